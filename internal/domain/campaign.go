package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type CampaignType string

const (
	CampaignTypeAnnouncement CampaignType = "ANNOUNCEMENT"
	CampaignTypeNewsletter   CampaignType = "NEWSLETTER"
	CampaignTypeEvent        CampaignType = "EVENT"
	CampaignTypeContest      CampaignType = "CONTEST"
	CampaignTypeFundraising  CampaignType = "FUNDRAISING"
	CampaignTypeReminder     CampaignType = "REMINDER"
	CampaignTypeWelcome      CampaignType = "WELCOME"
)

var campaignTypes = []CampaignType{
	CampaignTypeAnnouncement,
	CampaignTypeNewsletter,
	CampaignTypeEvent,
	CampaignTypeContest,
	CampaignTypeFundraising,
	CampaignTypeReminder,
	CampaignTypeWelcome,
}

func (t CampaignType) Valid() bool {
	for _, k := range campaignTypes {
		if t == k {
			return true
		}
	}
	return false
}

type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusScheduled CampaignStatus = "SCHEDULED"
	CampaignStatusSending   CampaignStatus = "SENDING"
	CampaignStatusSent      CampaignStatus = "SENT"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusDraft:     {CampaignStatusScheduled, CampaignStatusSending, CampaignStatusCancelled},
	CampaignStatusScheduled: {CampaignStatusDraft, CampaignStatusSending, CampaignStatusCancelled},
	CampaignStatusSending:   {CampaignStatusSent},
}

func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range campaignTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignStatusSent || s == CampaignStatusCancelled
}

// Editable reports whether title, message, channels and targets may still change.
func (s CampaignStatus) Editable() bool {
	return s == CampaignStatusDraft
}

type CampaignStats struct {
	TotalRecipients int32 `json:"total_recipients"`
	Delivered       int32 `json:"delivered"`
	Opened          int32 `json:"opened"`
	Clicked         int32 `json:"clicked"`
	Unsubscribed    int32 `json:"unsubscribed"`
}

func (s CampaignStats) Validate() error {
	if s.TotalRecipients < 0 || s.Delivered < 0 || s.Opened < 0 || s.Clicked < 0 || s.Unsubscribed < 0 {
		return fmt.Errorf("%w: campaign stats must not be negative", ErrValidation)
	}
	if s.Delivered > s.TotalRecipients {
		return fmt.Errorf("%w: delivered %d exceeds recipients %d", ErrValidation, s.Delivered, s.TotalRecipients)
	}
	if s.Opened > s.Delivered {
		return fmt.Errorf("%w: opened %d exceeds delivered %d", ErrValidation, s.Opened, s.Delivered)
	}
	if s.Clicked > s.Opened {
		return fmt.Errorf("%w: clicked %d exceeds opened %d", ErrValidation, s.Clicked, s.Opened)
	}
	if s.Unsubscribed > s.Delivered {
		return fmt.Errorf("%w: unsubscribed %d exceeds delivered %d", ErrValidation, s.Unsubscribed, s.Delivered)
	}
	return nil
}

type NotificationCampaign struct {
	ID             int32          `json:"id"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Type           CampaignType   `json:"type"`
	Channels       []Channel      `json:"channels"`
	TargetSegments []int32        `json:"target_segments"`
	LinkURL        string         `json:"link_url,omitempty"`
	ScheduledAt    *time.Time     `json:"scheduled_at,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	Status         CampaignStatus `json:"status"`
	Stats          CampaignStats  `json:"stats"`
	CreatedBy      int32          `json:"created_by"`
	CreatedOn      time.Time      `json:"created_on"`
	UpdatedOn      time.Time      `json:"updated_on"`
}

func (c *NotificationCampaign) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: campaign title is required", ErrValidation)
	}
	if strings.TrimSpace(c.Message) == "" {
		return fmt.Errorf("%w: campaign message is required", ErrValidation)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown campaign type %q", ErrValidation, c.Type)
	}
	if err := validateChannels(c.Channels, true); err != nil {
		return err
	}
	if len(c.TargetSegments) == 0 {
		return fmt.Errorf("%w: at least one target segment is required", ErrValidation)
	}
	if c.LinkURL != "" {
		u, err := url.Parse(c.LinkURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: link url must be an absolute http(s) url", ErrValidation)
		}
	}
	return c.Stats.Validate()
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "PENDING"
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// Delivery is one attempt to reach one member on one channel for a campaign.
type Delivery struct {
	ID             int64          `json:"id"`
	CampaignID     int32          `json:"campaign_id"`
	MemberID       int32          `json:"member_id"`
	Channel        Channel        `json:"channel"`
	Status         DeliveryStatus `json:"status"`
	Token          string         `json:"token"`
	Error          string         `json:"error,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	OpenedAt       *time.Time     `json:"opened_at,omitempty"`
	ClickedAt      *time.Time     `json:"clicked_at,omitempty"`
	UnsubscribedAt *time.Time     `json:"unsubscribed_at,omitempty"`
}
