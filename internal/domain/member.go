package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

type ProfileType string

const (
	ProfileTypeAdherent   ProfileType = "ADHERENT"
	ProfileTypeAmbassador ProfileType = "AMBASSADOR"
	ProfileTypeAlumni     ProfileType = "ALUMNI"
	ProfileTypeVolunteer  ProfileType = "VOLUNTEER"
)

// ProfileTypes lists every profile type a member can hold.
var ProfileTypes = []ProfileType{
	ProfileTypeAdherent,
	ProfileTypeAmbassador,
	ProfileTypeAlumni,
	ProfileTypeVolunteer,
}

func (p ProfileType) Valid() bool {
	for _, t := range ProfileTypes {
		if p == t {
			return true
		}
	}
	return false
}

// ParseProfileType accepts any casing ("ambassador", "Ambassador", ...).
func ParseProfileType(s string) (ProfileType, error) {
	p := ProfileType(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown profile type %q", ErrValidation, s)
	}
	return p, nil
}

// CommunicationPreferences holds the per-channel opt-in flags of a member.
type CommunicationPreferences struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
	InApp bool `json:"in_app"`
}

// DefaultCommunicationPreferences is applied to newly registered members.
func DefaultCommunicationPreferences() CommunicationPreferences {
	return CommunicationPreferences{Email: true, InApp: true}
}

func (p CommunicationPreferences) Allows(c Channel) bool {
	switch c {
	case ChannelEmail:
		return p.Email
	case ChannelSMS:
		return p.SMS
	case ChannelPush:
		return p.Push
	case ChannelInApp:
		return p.InApp
	}
	return false
}

func (p *CommunicationPreferences) Set(c Channel, enabled bool) {
	switch c {
	case ChannelEmail:
		p.Email = enabled
	case ChannelSMS:
		p.SMS = enabled
	case ChannelPush:
		p.Push = enabled
	case ChannelInApp:
		p.InApp = enabled
	}
}

type Member struct {
	ID                       int32                    `json:"id"`
	ProfileType              ProfileType              `json:"profile_type"`
	FirstName                string                   `json:"first_name"`
	LastName                 string                   `json:"last_name"`
	Email                    string                   `json:"email"`
	Phone                    string                   `json:"phone"`
	BirthDate                *time.Time               `json:"birth_date,omitempty"`
	City                     string                   `json:"city"`
	Country                  string                   `json:"country"`
	Skills                   []string                 `json:"skills"`
	Interests                []string                 `json:"interests"`
	Availability             []string                 `json:"availability"`
	CommunicationPreferences CommunicationPreferences `json:"communication_preferences"`
	ParticipationScore       float64                  `json:"participation_score"`
	PushTokens               []string                 `json:"push_tokens,omitempty"`
	RegisteredOn             time.Time                `json:"registered_on"`
	UpdatedOn                time.Time                `json:"updated_on"`
}

func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Age returns the age in whole years at now. ok is false when the birth date is unknown.
func (m *Member) Age(now time.Time) (age int, ok bool) {
	if m.BirthDate == nil {
		return 0, false
	}
	b := m.BirthDate.UTC()
	n := now.UTC()
	age = n.Year() - b.Year()
	if n.Month() < b.Month() || (n.Month() == b.Month() && n.Day() < b.Day()) {
		age--
	}
	return age, true
}

func (m *Member) Validate() error {
	if !m.ProfileType.Valid() {
		return fmt.Errorf("%w: unknown profile type %q", ErrValidation, m.ProfileType)
	}
	if strings.TrimSpace(m.FirstName) == "" && strings.TrimSpace(m.LastName) == "" {
		return fmt.Errorf("%w: member name is required", ErrValidation)
	}
	if m.Email == "" {
		return fmt.Errorf("%w: member email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, m.Email)
	}
	if m.ParticipationScore < 0 || m.ParticipationScore > MaxParticipationScore {
		return fmt.Errorf("%w: participation score must be between 0 and %d", ErrValidation, MaxParticipationScore)
	}
	return nil
}

// MaxParticipationScore is the upper bound of the engagement score scale.
const MaxParticipationScore = 100

// NormalizeTags trims, lower-cases and de-duplicates tag values, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
