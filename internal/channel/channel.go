// Package channel delivers rendered notifications to members over email, SMS,
// push and the in-app inbox.
package channel

import (
	"context"
	"errors"
	"sort"

	"membership-backend/internal/domain"
)

// ErrNoAddress is returned when the recipient has no address for the sender's channel.
var ErrNoAddress = errors.New("recipient has no address for channel")

type Recipient struct {
	MemberID   int32
	Name       string
	Email      string
	Phone      string
	PushTokens []string
}

// Message is one rendered notification. LinkURL and UnsubscribeURL are already
// tracked URLs when the message belongs to a campaign.
type Message struct {
	CampaignID     int32
	Subject        string
	Body           string
	HTMLBody       string
	LinkURL        string
	UnsubscribeURL string
	Data           map[string]string
}

type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, to Recipient, msg Message) error
}

type Registry struct {
	senders map[domain.Channel]Sender
}

// NewRegistry indexes senders by channel. A later sender replaces an earlier one
// for the same channel.
func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[domain.Channel]Sender, len(senders))}
	for _, s := range senders {
		r.senders[s.Channel()] = s
	}
	return r
}

func (r *Registry) Sender(c domain.Channel) (Sender, bool) {
	s, ok := r.senders[c]
	return s, ok
}

// Channels returns the configured channels in a stable order.
func (r *Registry) Channels() []domain.Channel {
	out := make([]domain.Channel, 0, len(r.senders))
	for c := range r.senders {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
