package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type ActivityType string

const (
	ActivityTypeEvent        ActivityType = "EVENT"
	ActivityTypeContest      ActivityType = "CONTEST"
	ActivityTypeVolunteering ActivityType = "VOLUNTEERING"
	ActivityTypeTraining     ActivityType = "TRAINING"
	ActivityTypeFundraiser   ActivityType = "FUNDRAISER"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeEvent, ActivityTypeContest, ActivityTypeVolunteering, ActivityTypeTraining, ActivityTypeFundraiser:
		return true
	}
	return false
}

// ActivityNotification describes an event or opportunity that members are notified about,
// with reminders sent a number of days before it starts.
type ActivityNotification struct {
	ID                  int32            `json:"id"`
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	ActivityType        ActivityType     `json:"activity_type"`
	ActivityID          string           `json:"activity_id"`
	StartsAt            time.Time        `json:"starts_at"`
	Targeting           *SegmentCriteria `json:"targeting,omitempty"`
	MaxParticipants     *int32           `json:"max_participants,omitempty"`
	CurrentParticipants int32            `json:"current_participants"`
	AutoSend            bool             `json:"auto_send"`
	ReminderSchedule    []int            `json:"reminder_schedule"`
	SentReminders       []int            `json:"sent_reminders"`
	Channels            []Channel        `json:"channels"`
	CreatedOn           time.Time        `json:"created_on"`
	UpdatedOn           time.Time        `json:"updated_on"`
}

func (a *ActivityNotification) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: activity title is required", ErrValidation)
	}
	if !a.ActivityType.Valid() {
		return fmt.Errorf("%w: unknown activity type %q", ErrValidation, a.ActivityType)
	}
	if a.StartsAt.IsZero() {
		return fmt.Errorf("%w: activity start time is required", ErrValidation)
	}
	if a.CurrentParticipants < 0 {
		return fmt.Errorf("%w: current participants must not be negative", ErrValidation)
	}
	if a.MaxParticipants != nil {
		if *a.MaxParticipants < 0 {
			return fmt.Errorf("%w: max participants must not be negative", ErrValidation)
		}
		if a.CurrentParticipants > *a.MaxParticipants {
			return fmt.Errorf("%w: current participants %d exceed max %d", ErrValidation, a.CurrentParticipants, *a.MaxParticipants)
		}
	}
	for _, d := range a.ReminderSchedule {
		if d < 0 {
			return fmt.Errorf("%w: reminder offsets must not be negative", ErrValidation)
		}
	}
	if a.Targeting != nil {
		if err := a.Targeting.Validate(); err != nil {
			return err
		}
	}
	return validateChannels(a.Channels, a.AutoSend)
}

// NormalizeReminderSchedule sorts offsets from furthest to closest and drops duplicates.
func (a *ActivityNotification) NormalizeReminderSchedule() {
	sort.Sort(sort.Reverse(sort.IntSlice(a.ReminderSchedule)))
	out := a.ReminderSchedule[:0]
	for i, d := range a.ReminderSchedule {
		if i > 0 && d == a.ReminderSchedule[i-1] {
			continue
		}
		out = append(out, d)
	}
	a.ReminderSchedule = out
}

func (a *ActivityNotification) IsFull() bool {
	return a.MaxParticipants != nil && a.CurrentParticipants >= *a.MaxParticipants
}

func (a *ActivityNotification) reminderSent(offset int) bool {
	for _, d := range a.SentReminders {
		if d == offset {
			return true
		}
	}
	return false
}

// sameDayLeadTime is how early a day-of reminder goes out for an activity starting at midnight UTC.
const sameDayLeadTime = time.Hour

// ReminderSendAt returns when the reminder for offset days before the start becomes due.
// Offset 0 is the day-of reminder and is due from the start of that UTC day.
func (a *ActivityNotification) ReminderSendAt(offset int) time.Time {
	if offset > 0 {
		return a.StartsAt.AddDate(0, 0, -offset)
	}
	start := a.StartsAt.UTC()
	sendAt := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	if !sendAt.Before(a.StartsAt) {
		sendAt = a.StartsAt.Add(-sameDayLeadTime)
	}
	return sendAt
}

// DueReminder returns the closest-to-start offset whose send time has passed and which
// has not been sent yet. Nothing is due once the activity has started.
func (a *ActivityNotification) DueReminder(now time.Time) (offset int, ok bool) {
	if !now.Before(a.StartsAt) {
		return 0, false
	}
	found := false
	for _, d := range a.ReminderSchedule {
		sendAt := a.ReminderSendAt(d)
		if now.Before(sendAt) || a.reminderSent(d) {
			continue
		}
		if !found || d < offset {
			offset = d
			found = true
		}
	}
	return offset, found
}

// StaleReminders returns unsent offsets larger than offset; they are skipped once a
// closer reminder goes out.
func (a *ActivityNotification) StaleReminders(offset int) []int {
	var out []int
	for _, d := range a.ReminderSchedule {
		if d > offset && !a.reminderSent(d) {
			out = append(out, d)
		}
	}
	return out
}
