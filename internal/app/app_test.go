package app

import (
	"context"
	"testing"

	"membership-backend/internal/config"
	"membership-backend/internal/domain"
	"membership-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
server:
  host: localhost
  port: 8080
database:
  driver: memory
jwt:
  secret: 0123456789abcdef0123456789abcdef
storage:
  export_dir: ` + t.TempDir() + `
`))
	require.NoError(t, err)
	return cfg
}

func TestNew_MemoryDriver(t *testing.T) {
	cfg := memoryConfig(t)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelInApp}, a.Channels.Channels())

	ctx := context.Background()
	m := &domain.Member{ProfileType: domain.ProfileTypeAdherent, FirstName: "Awa", Email: "awa@example.org"}
	require.NoError(t, a.Members.Register(ctx, m))

	seg, err := a.Segments.EnsurePreset(ctx, "all-members")
	require.NoError(t, err)
	assert.Equal(t, int32(1), seg.MemberCount)

	svc := a.HTTPServices()
	assert.NotNil(t, svc.Exports)
	assert.Same(t, a.Campaigns, a.JobServices().Campaigns)
	assert.NoError(t, a.Close())
}

func TestNewSenders(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Email.Provider = "smtp"
	cfg.SMTP.Host = "smtp.example.org"
	cfg.SMTP.Port = 587
	cfg.SMS.BaseURL = "https://sms.example.org"

	senders, err := NewSenders(context.Background(), cfg, memory.NewNotificationRepo())
	require.NoError(t, err)

	var channels []domain.Channel
	for _, s := range senders {
		channels = append(channels, s.Channel())
	}
	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelInApp}, channels)
}

func TestNewSenders_BadPushCredentials(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Push.CredentialsFile = "/does/not/exist.json"

	_, err := NewSenders(context.Background(), cfg, memory.NewNotificationRepo())
	assert.Error(t, err)
}
