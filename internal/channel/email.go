package channel

import (
	"context"
	"fmt"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"gopkg.in/gomail.v2"
)

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	dialer   mailDialer
	from     string
	fromName string
}

func NewSMTPSender(host string, port int, username, password, from, fromName string) *SMTPSender {
	return &SMTPSender{
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		fromName: fromName,
	}
}

func (s *SMTPSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *SMTPSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Email == "" {
		return ErrNoAddress
	}
	logger.ExternalServiceCall("smtp", "send", "memberID", to.MemberID, "campaignID", msg.CampaignID)

	err := s.dialer.DialAndSend(s.buildMessage(to, msg))
	if err != nil {
		err = fmt.Errorf("failed to send email via gomail: %w", err)
	}
	logger.ExternalServiceResult("smtp", "send", err, "memberID", to.MemberID)
	return err
}

func (s *SMTPSender) buildMessage(to Recipient, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetAddressHeader("To", to.Email, to.Name)
	m.SetHeader("Subject", msg.Subject)
	if msg.UnsubscribeURL != "" {
		m.SetHeader("List-Unsubscribe", "<"+msg.UnsubscribeURL+">")
	}
	m.SetBody("text/plain", plainBody(msg))
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}
	return m
}

type SendGridSender struct {
	apiKey   string
	endpoint string // overrides the mail send URL when set
	from     string
	fromName string
}

func NewSendGridSender(apiKey, from, fromName string) *SendGridSender {
	return &SendGridSender{
		apiKey:   apiKey,
		from:     from,
		fromName: fromName,
	}
}

func (s *SendGridSender) Channel() domain.Channel { return domain.ChannelEmail }

func (s *SendGridSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Email == "" {
		return ErrNoAddress
	}
	from := mail.NewEmail(s.fromName, s.from)
	recipient := mail.NewEmail(to.Name, to.Email)
	message := mail.NewSingleEmail(from, msg.Subject, recipient, plainBody(msg), msg.HTMLBody)
	if msg.UnsubscribeURL != "" {
		message.SetHeader("List-Unsubscribe", "<"+msg.UnsubscribeURL+">")
	}

	// sendgrid.Client keeps the request body on itself, so each send gets its own client.
	client := sendgrid.NewSendClient(s.apiKey)
	if s.endpoint != "" {
		client.BaseURL = s.endpoint
	}

	logger.ExternalServiceCall("sendgrid", "send", "memberID", to.MemberID, "campaignID", msg.CampaignID)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		err = fmt.Errorf("failed to send email: %w", err)
	} else if response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "memberID", to.MemberID)
	return err
}

// plainBody appends the tracked link and unsubscribe link to the text body.
func plainBody(msg Message) string {
	body := msg.Body
	if msg.LinkURL != "" {
		body += "\n\n" + msg.LinkURL
	}
	if msg.UnsubscribeURL != "" {
		body += "\n\nUnsubscribe: " + msg.UnsubscribeURL
	}
	return body
}
