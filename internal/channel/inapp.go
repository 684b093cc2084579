package channel

import (
	"context"

	"membership-backend/internal/domain"
	"membership-backend/internal/repository"
)

// InAppSender writes the message into the member's notification inbox.
type InAppSender struct {
	repo repository.NotificationRepository
}

func NewInAppSender(repo repository.NotificationRepository) *InAppSender {
	return &InAppSender{repo: repo}
}

func (s *InAppSender) Channel() domain.Channel { return domain.ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, to Recipient, msg Message) error {
	attrs := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		attrs[k] = v
	}
	if msg.LinkURL != "" {
		attrs["link_url"] = msg.LinkURL
	}
	note := &domain.Notification{
		MemberID:   to.MemberID,
		Title:      msg.Subject,
		Message:    msg.Body,
		Attributes: attrs,
	}
	if msg.CampaignID != 0 {
		id := msg.CampaignID
		note.CampaignID = &id
	}
	return s.repo.Create(ctx, note)
}
