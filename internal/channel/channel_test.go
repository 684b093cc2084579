package channel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"membership-backend/internal/domain"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewLogSender(domain.ChannelSMS), NewLogSender(domain.ChannelEmail), NewInAppSender(nil))

	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelInApp, domain.ChannelSMS}, r.Channels())
	s, ok := r.Sender(domain.ChannelEmail)
	require.True(t, ok)
	assert.Equal(t, domain.ChannelEmail, s.Channel())
	_, ok = r.Sender(domain.ChannelPush)
	assert.False(t, ok)
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPSender_Send(t *testing.T) {
	dialer := &fakeDialer{}
	s := &SMTPSender{dialer: dialer, from: "news@foundation.org", fromName: "Foundation"}
	msg := Message{Subject: "Gala", Body: "Join us", HTMLBody: "<p>Join us</p>", UnsubscribeURL: "https://x.org/t/u/abc"}

	err := s.Send(context.Background(), Recipient{MemberID: 1, Name: "Ana", Email: "ana@example.org"}, msg)
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)
	assert.Equal(t, []string{"Gala"}, dialer.sent[0].GetHeader("Subject"))
	assert.Equal(t, []string{"<https://x.org/t/u/abc>"}, dialer.sent[0].GetHeader("List-Unsubscribe"))

	assert.ErrorIs(t, s.Send(context.Background(), Recipient{MemberID: 2}, msg), ErrNoAddress)

	dialer.err = errors.New("connection refused")
	assert.Error(t, s.Send(context.Background(), Recipient{MemberID: 1, Email: "ana@example.org"}, msg))
}

func TestSendGridSender_Send(t *testing.T) {
	var body string
	status := http.StatusAccepted
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.WriteHeader(status)
	}))
	defer server.Close()

	s := NewSendGridSender("key", "news@foundation.org", "Foundation")
	s.endpoint = server.URL + "/v3/mail/send"
	to := Recipient{MemberID: 1, Name: "Ana", Email: "ana@example.org"}

	require.NoError(t, s.Send(context.Background(), to, Message{Subject: "Monthly news", Body: "Hello"}))
	assert.Contains(t, body, "Monthly news")
	assert.Contains(t, body, "ana@example.org")

	status = http.StatusBadRequest
	assert.Error(t, s.Send(context.Background(), to, Message{Subject: "Monthly news", Body: "Hello"}))
}

func TestSMSGateway_Send(t *testing.T) {
	var got smsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.To == "+33000000000" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"invalid number"}`))
			return
		}
		_, _ = w.Write([]byte(`{"message_id":"m-1"}`))
	}))
	defer server.Close()

	g := NewSMSGateway(server.URL+"/", "secret", "FOUNDATION", 5*time.Second)
	ctx := context.Background()

	err := g.Send(ctx, Recipient{MemberID: 1, Phone: "+33611111111"}, Message{Body: "Gala tonight", LinkURL: "https://x.org/t/c/1"})
	require.NoError(t, err)
	assert.Equal(t, "FOUNDATION", got.From)
	assert.Equal(t, "Gala tonight https://x.org/t/c/1", got.Text)

	err = g.Send(ctx, Recipient{MemberID: 2, Phone: "+33000000000"}, Message{Body: "x"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid number"))

	assert.ErrorIs(t, g.Send(ctx, Recipient{MemberID: 3}, Message{Body: "x"}), ErrNoAddress)
}

type mockMulticast struct {
	mock.Mock
}

func (m *mockMulticast) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.BatchResponse), args.Error(1)
}

func TestPushSender_Send(t *testing.T) {
	client := new(mockMulticast)
	s := &PushSender{client: client}
	ctx := context.Background()
	to := Recipient{MemberID: 1, PushTokens: []string{"d1", "d2"}}

	client.On("SendEachForMulticast", ctx, mock.MatchedBy(func(m *messaging.MulticastMessage) bool {
		return m.Notification.Title == "Gala" && m.Data["link_url"] == "https://x.org/t/c/1"
	})).Return(&messaging.BatchResponse{SuccessCount: 1, FailureCount: 1}, nil).Once()
	require.NoError(t, s.Send(ctx, to, Message{Subject: "Gala", Body: "Tonight", LinkURL: "https://x.org/t/c/1"}))

	client.On("SendEachForMulticast", ctx, mock.Anything).Return(&messaging.BatchResponse{
		FailureCount: 2,
		Responses:    []*messaging.SendResponse{{Error: errors.New("unregistered")}, {Error: errors.New("unregistered")}},
	}, nil).Once()
	assert.ErrorContains(t, s.Send(ctx, to, Message{Subject: "Gala"}), "unregistered")

	assert.ErrorIs(t, s.Send(ctx, Recipient{MemberID: 2}, Message{}), ErrNoAddress)
	client.AssertExpectations(t)
}

type mockNotificationRepo struct {
	mock.Mock
}

func (m *mockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	return m.Called(ctx, note).Error(0)
}

func (m *mockNotificationRepo) List(ctx context.Context, memberID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, memberID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

func (m *mockNotificationRepo) MarkAsRead(ctx context.Context, id, memberID int32) error {
	return m.Called(ctx, id, memberID).Error(0)
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, memberID int32) (int32, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int32), args.Error(1)
}

func TestInAppSender_Send(t *testing.T) {
	repo := new(mockNotificationRepo)
	s := NewInAppSender(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.MemberID == 4 && n.CampaignID != nil && *n.CampaignID == 9 &&
			n.Title == "Gala" && n.Attributes["link_url"] == "https://x.org/t/c/1" && n.Attributes["type"] == "EVENT"
	})).Return(nil)

	err := s.Send(ctx, Recipient{MemberID: 4}, Message{
		CampaignID: 9, Subject: "Gala", Body: "Tonight", LinkURL: "https://x.org/t/c/1",
		Data: map[string]string{"type": "EVENT"},
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
