package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
)

// SMSGateway posts messages to an HTTP SMS gateway:
// POST {baseURL}/messages {"to","from","text"} with a bearer API key.
type SMSGateway struct {
	baseURL    string
	apiKey     string
	senderID   string
	httpClient *http.Client
}

type smsRequest struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Text string `json:"text"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

func NewSMSGateway(baseURL, apiKey, senderID string, timeout time.Duration) *SMSGateway {
	return &SMSGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		senderID:   senderID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *SMSGateway) Channel() domain.Channel { return domain.ChannelSMS }

func (g *SMSGateway) Send(ctx context.Context, to Recipient, msg Message) error {
	if to.Phone == "" {
		return ErrNoAddress
	}
	text := msg.Body
	if msg.LinkURL != "" {
		text += " " + msg.LinkURL
	}
	payload, err := json.Marshal(smsRequest{To: to.Phone, From: g.senderID, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	logger.ExternalServiceCall("sms_gateway", "send", "memberID", to.MemberID)
	messageID, err := g.do(req)
	logger.ExternalServiceResult("sms_gateway", "send", err, "memberID", to.MemberID, "messageID", messageID)
	return err
}

func (g *SMSGateway) do(req *http.Request) (string, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send sms request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read sms response: %w", err)
	}

	var out smsResponse
	_ = json.Unmarshal(body, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != "" {
			return "", fmt.Errorf("sms gateway error: status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("sms gateway error: status %d", resp.StatusCode)
	}
	return out.MessageID, nil
}
