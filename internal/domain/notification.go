package domain

import "time"

// Notification is an entry of a member's in-app inbox.
type Notification struct {
	ID         int32             `json:"id"`
	MemberID   int32             `json:"member_id"`
	CampaignID *int32            `json:"campaign_id,omitempty"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	IsRead     bool              `json:"is_read"`
	Attributes map[string]string `json:"attributes"`
	CreatedOn  time.Time         `json:"created_on"`
}
