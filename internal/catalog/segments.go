// Package catalog holds the reusable segment presets and notification templates
// offered to campaign managers.
package catalog

import "membership-backend/internal/domain"

type SegmentPreset struct {
	Key         string                 `json:"key"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Criteria    domain.SegmentCriteria `json:"criteria"`
}

const (
	PresetNewMembers         = "new-members-30d"
	PresetEngagedAmbassadors = "engaged-ambassadors"
	PresetWeekendVolunteers  = "weekend-volunteers"
	PresetAlumniNetwork      = "alumni-network"
	PresetLowEngagement      = "low-engagement"
	PresetAllMembers         = "all-members"
	PresetSMSReachable       = "sms-reachable"
	PresetYoungAdherents     = "young-adherents"
)

var segmentPresets = []SegmentPreset{
	{
		Key:         PresetNewMembers,
		Name:        "New members",
		Description: "Members registered in the last 30 days",
		Criteria: domain.SegmentCriteria{
			RegistrationDateRange: &domain.DateRange{WithinLastDays: 30},
		},
	},
	{
		Key:         PresetEngagedAmbassadors,
		Name:        "Engaged ambassadors",
		Description: "Ambassadors with a participation score of 70 or more",
		Criteria: domain.SegmentCriteria{
			ProfileTypes:            []domain.ProfileType{domain.ProfileTypeAmbassador},
			ParticipationScoreRange: &domain.ScoreRange{Min: 70, Max: domain.MaxParticipationScore},
		},
	},
	{
		Key:         PresetWeekendVolunteers,
		Name:        "Weekend volunteers",
		Description: "Volunteers available on weekends",
		Criteria: domain.SegmentCriteria{
			ProfileTypes: []domain.ProfileType{domain.ProfileTypeVolunteer},
			Availability: []string{"weekend", "saturday", "sunday"},
		},
	},
	{
		Key:         PresetAlumniNetwork,
		Name:        "Alumni network",
		Description: "All alumni",
		Criteria: domain.SegmentCriteria{
			ProfileTypes: []domain.ProfileType{domain.ProfileTypeAlumni},
		},
	},
	{
		Key:         PresetLowEngagement,
		Name:        "Low engagement",
		Description: "Members with a participation score of 20 or less",
		Criteria: domain.SegmentCriteria{
			ParticipationScoreRange: &domain.ScoreRange{Min: 0, Max: 20},
		},
	},
	{
		Key:         PresetAllMembers,
		Name:        "All members",
		Description: "Every registered member",
	},
	{
		Key:         PresetSMSReachable,
		Name:        "Reachable by SMS",
		Description: "Members who opted in to SMS",
		Criteria: domain.SegmentCriteria{
			CommunicationPreferences: []domain.Channel{domain.ChannelSMS},
		},
	},
	{
		Key:         PresetYoungAdherents,
		Name:        "Young adherents",
		Description: "Adherents aged 18 to 30",
		Criteria: domain.SegmentCriteria{
			ProfileTypes: []domain.ProfileType{domain.ProfileTypeAdherent},
			AgeRange:     &domain.AgeRange{Min: 18, Max: 30},
		},
	},
}

// SegmentPresets returns a copy of every preset.
func SegmentPresets() []SegmentPreset {
	out := make([]SegmentPreset, len(segmentPresets))
	copy(out, segmentPresets)
	return out
}

func LookupSegmentPreset(key string) (SegmentPreset, bool) {
	for _, p := range segmentPresets {
		if p.Key == key {
			return p, true
		}
	}
	return SegmentPreset{}, false
}
