package service

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"membership-backend/internal/catalog"
	"membership-backend/internal/channel"
	"membership-backend/internal/domain"
	"membership-backend/internal/logger"
	"membership-backend/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Dispatch describes one fan-out. Subject and Body are templates rendered per member
// with Vars plus the member's own fields (FirstName, LastName, FullName, City, Country).
// CampaignID is zero for messages that are not part of a campaign; those get no
// tracking links.
type Dispatch struct {
	CampaignID int32
	Members    []domain.Member
	Channels   []domain.Channel
	Subject    string
	Body       string
	Vars       map[string]string
	LinkURL    string
	Data       map[string]string
}

// Dispatcher delivers a Dispatch to every member on every requested channel the member
// has opted into, with bounded concurrency.
type Dispatcher struct {
	registry    *channel.Registry
	metrics     *metrics.Metrics
	concurrency int
	trackingURL string
	now         func() time.Time
}

func NewDispatcher(registry *channel.Registry, m *metrics.Metrics, concurrency int, trackingBaseURL string) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		registry:    registry,
		metrics:     m,
		concurrency: concurrency,
		trackingURL: strings.TrimRight(trackingBaseURL, "/"),
		now:         time.Now,
	}
}

type dispatchTask struct {
	member *domain.Member
	sender channel.Sender
}

// Send returns one delivery per attempted (member, channel) pair. Provider failures are
// recorded on the delivery, not returned; the error is only set when ctx ends early.
func (d *Dispatcher) Send(ctx context.Context, job Dispatch) ([]domain.Delivery, error) {
	var tasks []dispatchTask
	for i := range job.Members {
		m := &job.Members[i]
		for _, c := range job.Channels {
			if !m.CommunicationPreferences.Allows(c) {
				continue
			}
			sender, ok := d.registry.Sender(c)
			if !ok {
				logger.Debug("No sender configured for channel", "channel", c)
				continue
			}
			tasks = append(tasks, dispatchTask{member: m, sender: sender})
		}
	}

	results := make([]domain.Delivery, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = d.deliver(gctx, job, t)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Status == domain.DeliveryStatusFailed {
			failed++
		}
	}
	logger.Info("Dispatch finished",
		"campaignID", job.CampaignID, "members", len(job.Members), "attempts", len(results), "failed", failed)
	return results, ctx.Err()
}

func (d *Dispatcher) deliver(ctx context.Context, job Dispatch, t dispatchTask) domain.Delivery {
	c := t.sender.Channel()
	delivery := domain.Delivery{
		CampaignID: job.CampaignID,
		MemberID:   t.member.ID,
		Channel:    c,
		Status:     domain.DeliveryStatusPending,
		Token:      uuid.NewString(),
	}

	var err error
	if err = ctx.Err(); err == nil {
		msg := d.buildMessage(job, t.member, c, delivery.Token)
		err = t.sender.Send(ctx, recipientFor(t.member), msg)
	}
	if err != nil {
		delivery.Status = domain.DeliveryStatusFailed
		delivery.Error = err.Error()
	} else {
		at := d.now().UTC()
		delivery.Status = domain.DeliveryStatusDelivered
		delivery.DeliveredAt = &at
	}
	d.metrics.DeliveryRecorded(c, delivery.Status)
	return delivery
}

func recipientFor(m *domain.Member) channel.Recipient {
	return channel.Recipient{
		MemberID:   m.ID,
		Name:       m.FullName(),
		Email:      m.Email,
		Phone:      m.Phone,
		PushTokens: m.PushTokens,
	}
}

func memberVars(m *domain.Member, extra map[string]string) map[string]string {
	vars := make(map[string]string, len(extra)+6)
	for k, v := range extra {
		vars[k] = v
	}
	vars["FirstName"] = m.FirstName
	vars["LastName"] = m.LastName
	vars["FullName"] = m.FullName()
	vars["City"] = m.City
	vars["Country"] = m.Country
	vars["ProfileType"] = string(m.ProfileType)
	return vars
}

// renderOrRaw falls back to the raw text when it is not a valid template.
func renderOrRaw(text string, vars map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	out, err := catalog.Render(text, vars)
	if err != nil {
		return text
	}
	return out
}

func (d *Dispatcher) trackingLink(kind, token string) string {
	return d.trackingURL + "/t/" + kind + "/" + token
}

func (d *Dispatcher) buildMessage(job Dispatch, m *domain.Member, c domain.Channel, token string) channel.Message {
	vars := memberVars(m, job.Vars)
	msg := channel.Message{
		CampaignID: job.CampaignID,
		Subject:    renderOrRaw(job.Subject, vars),
		Body:       renderOrRaw(job.Body, vars),
		LinkURL:    job.LinkURL,
		Data:       job.Data,
	}

	var pixelURL string
	if job.CampaignID != 0 {
		if job.LinkURL != "" {
			msg.LinkURL = d.trackingLink("c", token)
		}
		msg.UnsubscribeURL = d.trackingLink("u", token)
		pixelURL = d.trackingLink("o", token)
	}
	if c == domain.ChannelEmail {
		msg.HTMLBody = emailHTML(msg, pixelURL)
	}
	return msg
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html><body>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .LinkURL}}<p><a href="{{.LinkURL}}">Learn more</a></p>
{{end}}{{if .UnsubscribeURL}}<p style="font-size:12px;color:#777"><a href="{{.UnsubscribeURL}}">Unsubscribe</a></p>
{{end}}{{if .PixelURL}}<img src="{{.PixelURL}}" width="1" height="1" alt="">
{{end}}</body></html>`))

func emailHTML(msg channel.Message, pixelURL string) string {
	data := struct {
		Paragraphs     []string
		LinkURL        string
		UnsubscribeURL string
		PixelURL       string
	}{
		Paragraphs:     strings.Split(msg.Body, "\n\n"),
		LinkURL:        msg.LinkURL,
		UnsubscribeURL: msg.UnsubscribeURL,
		PixelURL:       pixelURL,
	}
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, data); err != nil {
		logger.Warn("Failed to render email HTML", "error", err)
		return ""
	}
	return buf.String()
}
