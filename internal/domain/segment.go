package domain

import (
	"fmt"
	"time"
)

// AgeRange bounds a member's age in whole years, both ends inclusive.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// ScoreRange bounds the participation score, both ends inclusive.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DateRange bounds the registration date. From and To are absolute bounds;
// WithinLastDays is relative to the evaluation time. Any combination may be set.
type DateRange struct {
	From           *time.Time `json:"from,omitempty"`
	To             *time.Time `json:"to,omitempty"`
	WithinLastDays int        `json:"within_last_days,omitempty"`
}

// SegmentCriteria is a filter over the member population. Every field is optional.
// Populated fields are combined with AND; values inside a list field are combined with OR.
type SegmentCriteria struct {
	ProfileTypes             []ProfileType `json:"profile_types,omitempty"`
	Skills                   []string      `json:"skills,omitempty"`
	Interests                []string      `json:"interests,omitempty"`
	Availability             []string      `json:"availability,omitempty"`
	Cities                   []string      `json:"cities,omitempty"`
	Countries                []string      `json:"countries,omitempty"`
	AgeRange                 *AgeRange     `json:"age_range,omitempty"`
	RegistrationDateRange    *DateRange    `json:"registration_date_range,omitempty"`
	ParticipationScoreRange  *ScoreRange   `json:"participation_score_range,omitempty"`
	CommunicationPreferences []Channel     `json:"communication_preferences,omitempty"`
}

func (c *SegmentCriteria) IsEmpty() bool {
	return len(c.ProfileTypes) == 0 &&
		len(c.Skills) == 0 &&
		len(c.Interests) == 0 &&
		len(c.Availability) == 0 &&
		len(c.Cities) == 0 &&
		len(c.Countries) == 0 &&
		c.AgeRange == nil &&
		c.RegistrationDateRange == nil &&
		c.ParticipationScoreRange == nil &&
		len(c.CommunicationPreferences) == 0
}

func (c *SegmentCriteria) Validate() error {
	for _, p := range c.ProfileTypes {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown profile type %q", ErrValidation, p)
		}
	}
	if r := c.AgeRange; r != nil {
		if r.Min < 0 || r.Max < 0 {
			return fmt.Errorf("%w: age range bounds must not be negative", ErrValidation)
		}
		if r.Min > r.Max {
			return fmt.Errorf("%w: age range min %d is greater than max %d", ErrValidation, r.Min, r.Max)
		}
	}
	if r := c.ParticipationScoreRange; r != nil {
		if r.Min > r.Max {
			return fmt.Errorf("%w: participation score range min %.1f is greater than max %.1f", ErrValidation, r.Min, r.Max)
		}
	}
	if r := c.RegistrationDateRange; r != nil {
		if r.WithinLastDays < 0 {
			return fmt.Errorf("%w: within_last_days must not be negative", ErrValidation)
		}
		if r.From != nil && r.To != nil && r.From.After(*r.To) {
			return fmt.Errorf("%w: registration date range starts after it ends", ErrValidation)
		}
		if r.From == nil && r.To == nil && r.WithinLastDays == 0 {
			return fmt.Errorf("%w: registration date range is empty", ErrValidation)
		}
	}
	return validateChannels(c.CommunicationPreferences, false)
}

type Segment struct {
	ID          int32           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Criteria    SegmentCriteria `json:"criteria"`
	MemberCount int32           `json:"member_count"`
	PresetKey   string          `json:"preset_key,omitempty"`
	CreatedOn   time.Time       `json:"created_on"`
	UpdatedOn   time.Time       `json:"updated_on"`
}

func (s *Segment) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: segment name is required", ErrValidation)
	}
	return s.Criteria.Validate()
}

// SegmentExport describes a CSV snapshot of a segment's members.
type SegmentExport struct {
	Key         string    `json:"key"`
	SegmentID   int32     `json:"segment_id"`
	MemberCount int       `json:"member_count"`
	DownloadURL string    `json:"download_url"`
	CreatedOn   time.Time `json:"created_on"`
}
