package catalog

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"membership-backend/internal/domain"
)

type TimingKind string

const (
	TimingFixedDelay     TimingKind = "FIXED_DELAY"
	TimingMonthly        TimingKind = "MONTHLY"
	TimingEventTriggered TimingKind = "EVENT_TRIGGERED"
)

// Events that trigger EVENT_TRIGGERED notification types.
const (
	EventActivityReminder = "activity.reminder"
	EventContestClosed    = "contest.closed"
	EventMemberRegistered = "member.registered"
)

// Timing tells when a notification type goes out. Delay applies to FIXED_DELAY and is
// measured from Event; DayOfMonth and Hour apply to MONTHLY.
type Timing struct {
	Kind       TimingKind    `json:"kind"`
	Delay      time.Duration `json:"delay,omitempty"`
	DayOfMonth int           `json:"day_of_month,omitempty"`
	Hour       int           `json:"hour,omitempty"`
	Event      string        `json:"event,omitempty"`
}

type NotificationType struct {
	Key          string              `json:"key"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	CampaignType domain.CampaignType `json:"campaign_type"`
	Channels     []domain.Channel    `json:"channels"`
	Timing       Timing              `json:"timing"`
	Subject      string              `json:"subject"`
	Body         string              `json:"body"`
	TargetPreset string              `json:"target_preset,omitempty"`
}

const (
	TypeWelcome           = "welcome"
	TypeProfileCompletion = "profile-completion"
	TypeMonthlyNewsletter = "monthly-newsletter"
	TypeAmbassadorDigest  = "ambassador-digest"
	TypeActivityReminder  = "activity-reminder"
	TypeContestResults    = "contest-results"
)

var notificationTypes = []NotificationType{
	{
		Key:          TypeWelcome,
		Name:         "Welcome",
		Description:  "Sent one hour after a member registers",
		CampaignType: domain.CampaignTypeWelcome,
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelInApp},
		Timing:       Timing{Kind: TimingFixedDelay, Delay: time.Hour, Event: EventMemberRegistered},
		Subject:      "Welcome to the foundation, {{.FirstName}}!",
		Body:         "Hello {{.FirstName}},\n\nThank you for joining us. Complete your profile so we can suggest activities that match your interests.",
	},
	{
		Key:          TypeProfileCompletion,
		Name:         "Profile completion",
		Description:  "Nudge sent one week after registration",
		CampaignType: domain.CampaignTypeReminder,
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelPush},
		Timing:       Timing{Kind: TimingFixedDelay, Delay: 7 * 24 * time.Hour, Event: EventMemberRegistered},
		Subject:      "{{.FirstName}}, tell us what you care about",
		Body:         "Add your skills, interests and availability to receive opportunities that fit you.",
	},
	{
		Key:          TypeMonthlyNewsletter,
		Name:         "Monthly newsletter",
		Description:  "Foundation news sent on the first day of each month",
		CampaignType: domain.CampaignTypeNewsletter,
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelInApp},
		Timing:       Timing{Kind: TimingMonthly, DayOfMonth: 1, Hour: 9},
		Subject:      "Foundation news - {{.Month}}",
		Body:         "Here is what happened this month and what is coming next.",
		TargetPreset: PresetAllMembers,
	},
	{
		Key:          TypeAmbassadorDigest,
		Name:         "Ambassador digest",
		Description:  "Mid-month digest for engaged ambassadors",
		CampaignType: domain.CampaignTypeNewsletter,
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelPush},
		Timing:       Timing{Kind: TimingMonthly, DayOfMonth: 15, Hour: 10},
		Subject:      "Ambassador digest - {{.Month}}",
		Body:         "Thank you for representing the foundation. Here are this month's priorities.",
		TargetPreset: PresetEngagedAmbassadors,
	},
	{
		Key:          TypeActivityReminder,
		Name:         "Activity reminder",
		Description:  "Reminder sent ahead of an activity according to its reminder schedule",
		CampaignType: domain.CampaignTypeReminder,
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelPush, domain.ChannelInApp},
		Timing:       Timing{Kind: TimingEventTriggered, Event: EventActivityReminder},
		Subject:      "{{.Title}} starts in {{.DaysBefore}} day(s)",
		Body:         "{{.Title}} starts on {{.StartsAt}}.\n\n{{.Description}}",
	},
	{
		Key:          TypeContestResults,
		Name:         "Contest results",
		Description:  "Sent when a contest closes",
		CampaignType: domain.CampaignTypeContest,
		Channels:     []domain.Channel{domain.ChannelEmail, domain.ChannelInApp},
		Timing:       Timing{Kind: TimingEventTriggered, Event: EventContestClosed},
		Subject:      "Results of {{.Title}}",
		Body:         "Voting for {{.Title}} is closed. See the winners in the app.",
		TargetPreset: PresetAllMembers,
	},
}

func NotificationTypes() []NotificationType {
	out := make([]NotificationType, len(notificationTypes))
	copy(out, notificationTypes)
	return out
}

func LookupNotificationType(key string) (NotificationType, bool) {
	for _, t := range notificationTypes {
		if t.Key == key {
			return t, true
		}
	}
	return NotificationType{}, false
}

// NotificationTypesByTiming returns the types with the given timing kind.
func NotificationTypesByTiming(kind TimingKind) []NotificationType {
	var out []NotificationType
	for _, t := range notificationTypes {
		if t.Timing.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Render executes a template string against vars. Missing keys render as empty.
func Render(tmpl string, vars map[string]string) (string, error) {
	t, err := template.New("notification").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// CronSpec converts a MONTHLY timing into a six-field (seconds first) cron spec.
func CronSpec(t Timing) (string, error) {
	if t.Kind != TimingMonthly {
		return "", fmt.Errorf("timing %s has no cron schedule", t.Kind)
	}
	if t.DayOfMonth < 1 || t.DayOfMonth > 28 {
		return "", fmt.Errorf("day of month must be between 1 and 28, got %d", t.DayOfMonth)
	}
	if t.Hour < 0 || t.Hour > 23 {
		return "", fmt.Errorf("hour must be between 0 and 23, got %d", t.Hour)
	}
	return fmt.Sprintf("0 0 %d %d * *", t.Hour, t.DayOfMonth), nil
}
