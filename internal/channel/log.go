package channel

import (
	"context"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
)

// LogSender only logs what would have been sent. It backs channels that have no
// provider configured in development.
type LogSender struct {
	channel domain.Channel
}

func NewLogSender(c domain.Channel) *LogSender {
	return &LogSender{channel: c}
}

func (s *LogSender) Channel() domain.Channel { return s.channel }

func (s *LogSender) Send(ctx context.Context, to Recipient, msg Message) error {
	logger.InfoContext(ctx, "Notification logged instead of sent",
		"channel", s.channel, "memberID", to.MemberID, "campaignID", msg.CampaignID, "subject", msg.Subject)
	return nil
}
