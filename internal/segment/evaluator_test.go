package segment

import (
	"testing"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func members() []domain.Member {
	return []domain.Member{
		{
			ID: 1, ProfileType: domain.ProfileTypeAmbassador, City: "Lyon", Country: "FR",
			Skills: []string{"design", "photography"}, Interests: []string{"education"},
			ParticipationScore: 85, BirthDate: date(1990, 3, 1),
			RegisteredOn:             now.AddDate(0, 0, -10),
			CommunicationPreferences: domain.CommunicationPreferences{Email: true, SMS: true},
		},
		{
			ID: 2, ProfileType: domain.ProfileTypeVolunteer, City: "Paris", Country: "FR",
			Availability: []string{"Weekend"}, Interests: []string{"environment"},
			ParticipationScore: 40, BirthDate: date(2001, 1, 1),
			RegisteredOn:             now.AddDate(0, -6, 0),
			CommunicationPreferences: domain.CommunicationPreferences{Email: true, Push: true},
		},
		{
			ID: 3, ProfileType: domain.ProfileTypeAdherent, City: "Dakar", Country: "SN",
			Skills: []string{"Accounting"}, ParticipationScore: 10,
			RegisteredOn:             now.AddDate(-2, 0, 0),
			CommunicationPreferences: domain.CommunicationPreferences{InApp: true},
		},
		{
			ID: 4, ProfileType: domain.ProfileTypeAdherent, City: "lyon", Country: "FR",
			ParticipationScore: 70, BirthDate: date(2000, 9, 2),
			RegisteredOn:             now.AddDate(0, 0, -29),
			CommunicationPreferences: domain.CommunicationPreferences{Email: true},
		},
	}
}

func ids(ms []domain.Member) []int32 {
	out := make([]int32, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		criteria domain.SegmentCriteria
		want     []int32
	}{
		{"empty criteria matches all", domain.SegmentCriteria{}, []int32{1, 2, 3, 4}},
		{"profile types any-of", domain.SegmentCriteria{ProfileTypes: []domain.ProfileType{domain.ProfileTypeAdherent, domain.ProfileTypeVolunteer}}, []int32{2, 3, 4}},
		{"skills case-insensitive", domain.SegmentCriteria{Skills: []string{"accounting", "PHOTOGRAPHY"}}, []int32{1, 3}},
		{"availability", domain.SegmentCriteria{Availability: []string{"weekend"}}, []int32{2}},
		{"cities", domain.SegmentCriteria{Cities: []string{" Lyon "}}, []int32{1, 4}},
		{"countries", domain.SegmentCriteria{Countries: []string{"sn"}}, []int32{3}},
		{"fields combine with AND", domain.SegmentCriteria{Countries: []string{"FR"}, Interests: []string{"environment"}}, []int32{2}},
		{"age range requires birth date", domain.SegmentCriteria{AgeRange: &domain.AgeRange{Min: 18, Max: 30}}, []int32{2, 4}},
		{"age range upper bound inclusive", domain.SegmentCriteria{AgeRange: &domain.AgeRange{Min: 23, Max: 23}}, []int32{2, 4}},
		{"score range inclusive", domain.SegmentCriteria{ParticipationScoreRange: &domain.ScoreRange{Min: 70, Max: 100}}, []int32{1, 4}},
		{"registered within last days", domain.SegmentCriteria{RegistrationDateRange: &domain.DateRange{WithinLastDays: 30}}, []int32{1, 4}},
		{"registered between dates", domain.SegmentCriteria{RegistrationDateRange: &domain.DateRange{From: date(2024, 1, 1), To: date(2024, 6, 1)}}, []int32{2}},
		{"registered after date", domain.SegmentCriteria{RegistrationDateRange: &domain.DateRange{From: date(2024, 8, 1)}}, []int32{1, 4}},
		{"communication preferences all required", domain.SegmentCriteria{CommunicationPreferences: []domain.Channel{domain.ChannelEmail, domain.ChannelSMS}}, []int32{1}},
		{"no match", domain.SegmentCriteria{Skills: []string{"welding"}}, []int32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(members(), &tt.criteria, now)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, len(tt.want), Count(members(), &tt.criteria, now))
		})
	}
}

func TestPresetsAgainstMembers(t *testing.T) {
	p, _ := catalog.LookupSegmentPreset(catalog.PresetEngagedAmbassadors)
	assert.Equal(t, []int32{1}, ids(Filter(members(), &p.Criteria, now)))

	p, _ = catalog.LookupSegmentPreset(catalog.PresetNewMembers)
	assert.Equal(t, []int32{1, 4}, ids(Filter(members(), &p.Criteria, now)))

	p, _ = catalog.LookupSegmentPreset(catalog.PresetWeekendVolunteers)
	assert.Equal(t, []int32{2}, ids(Filter(members(), &p.Criteria, now)))

	p, _ = catalog.LookupSegmentPreset(catalog.PresetLowEngagement)
	assert.Equal(t, []int32{3}, ids(Filter(members(), &p.Criteria, now)))
}

func TestUnion(t *testing.T) {
	ms := members()
	got := Union(ms[:2], ms[1:3], nil, ms[3:])
	assert.Equal(t, []int32{1, 2, 3, 4}, ids(got))
	assert.Empty(t, Union())
}
