// Package segment evaluates segment criteria against members.
//
// Populated criteria fields combine with AND. A list field matches when the member
// holds any of the listed values. Text comparisons are trimmed and case-insensitive.
package segment

import (
	"strings"
	"time"

	"membership-backend/internal/domain"
)

// Matches reports whether m satisfies every populated field of c at time now.
func Matches(m *domain.Member, c *domain.SegmentCriteria, now time.Time) bool {
	if len(c.ProfileTypes) > 0 && !containsProfileType(c.ProfileTypes, m.ProfileType) {
		return false
	}
	if !anyOf(c.Skills, m.Skills) || !anyOf(c.Interests, m.Interests) || !anyOf(c.Availability, m.Availability) {
		return false
	}
	if len(c.Cities) > 0 && !anyOf(c.Cities, []string{m.City}) {
		return false
	}
	if len(c.Countries) > 0 && !anyOf(c.Countries, []string{m.Country}) {
		return false
	}
	if r := c.AgeRange; r != nil {
		age, ok := m.Age(now)
		if !ok || age < r.Min || age > r.Max {
			return false
		}
	}
	if r := c.RegistrationDateRange; r != nil && !inDateRange(m.RegisteredOn, r, now) {
		return false
	}
	if r := c.ParticipationScoreRange; r != nil {
		if m.ParticipationScore < r.Min || m.ParticipationScore > r.Max {
			return false
		}
	}
	for _, ch := range c.CommunicationPreferences {
		if !m.CommunicationPreferences.Allows(ch) {
			return false
		}
	}
	return true
}

// Filter returns the members matching c, in input order.
func Filter(members []domain.Member, c *domain.SegmentCriteria, now time.Time) []domain.Member {
	out := make([]domain.Member, 0, len(members))
	for i := range members {
		if Matches(&members[i], c, now) {
			out = append(out, members[i])
		}
	}
	return out
}

func Count(members []domain.Member, c *domain.SegmentCriteria, now time.Time) int {
	n := 0
	for i := range members {
		if Matches(&members[i], c, now) {
			n++
		}
	}
	return n
}

// Union merges member sets, keeping the first occurrence of each member ID.
func Union(sets ...[]domain.Member) []domain.Member {
	seen := make(map[int32]struct{})
	var out []domain.Member
	for _, set := range sets {
		for _, m := range set {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

func containsProfileType(types []domain.ProfileType, p domain.ProfileType) bool {
	for _, t := range types {
		if t == p {
			return true
		}
	}
	return false
}

// anyOf is true when wanted is empty or shares at least one value with have.
func anyOf(wanted, have []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		w = normalize(w)
		if w == "" {
			continue
		}
		for _, h := range have {
			if normalize(h) == w {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func inDateRange(t time.Time, r *domain.DateRange, now time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	if r.WithinLastDays > 0 {
		since := now.AddDate(0, 0, -r.WithinLastDays)
		if t.Before(since) || t.After(now) {
			return false
		}
	}
	return true
}
