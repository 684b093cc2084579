package channel

import (
	"context"
	"fmt"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// multicastClient is satisfied by *messaging.Client.
type multicastClient interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushSender sends through Firebase Cloud Messaging to every registered device of a member.
type PushSender struct {
	client multicastClient
}

func NewPushSender(ctx context.Context, credentialsFile, projectID string) (*PushSender, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &PushSender{client: client}, nil
}

func (s *PushSender) Channel() domain.Channel { return domain.ChannelPush }

// Send succeeds when at least one device accepted the message.
func (s *PushSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if len(to.PushTokens) == 0 {
		return ErrNoAddress
	}
	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	if msg.LinkURL != "" {
		data["link_url"] = msg.LinkURL
	}

	logger.ExternalServiceCall("fcm", "send_multicast", "memberID", to.MemberID, "devices", len(to.PushTokens))
	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       to.PushTokens,
		Notification: &messaging.Notification{Title: msg.Subject, Body: msg.Body},
		Data:         data,
	})
	if err != nil {
		err = fmt.Errorf("failed to send push notification: %w", err)
	} else if resp.SuccessCount == 0 {
		err = fmt.Errorf("push rejected by all %d devices", resp.FailureCount)
		for _, r := range resp.Responses {
			if r.Error != nil {
				err = fmt.Errorf("push rejected by all %d devices: %w", resp.FailureCount, r.Error)
				break
			}
		}
	}
	logger.ExternalServiceResult("fcm", "send_multicast", err, "memberID", to.MemberID)
	return err
}
