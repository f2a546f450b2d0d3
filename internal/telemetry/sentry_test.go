package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// captureTransport implements sentry.Transport and keeps events in memory.
type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions) {}

func (t *captureTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *captureTransport) Flush(time.Duration) bool              { return true }
func (t *captureTransport) FlushWithContext(context.Context) bool { return true }
func (t *captureTransport) Close()                                {}

func (t *captureTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	ev := sentry.NewEvent()
	ev.ServerName = "farm-laptop"
	ev.User = sentry.User{ID: "u1"}
	ev.Tags = map[string]string{"hostname": "farm-laptop", "category": "transfer"}
	ev.Message = "open /home/siti/palm/a.tif: denied"
	ev.Exception = []sentry.Exception{{Value: `C:\Users\siti\pack.zip missing`}}

	out := applyPrivacyFilters(ev)
	assert.Empty(t, out.ServerName)
	assert.Empty(t, out.User.ID)
	assert.NotContains(t, out.Tags, "hostname")
	assert.Equal(t, "transfer", out.Tags["category"])
	assert.Equal(t, "open [PATH] denied", out.Message)
	assert.Equal(t, "[PATH] missing", out.Exception[0].Value)
}

func TestInitSentry(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		require.NoError(t, InitSentry(Config{}))
	})

	t.Run("enabled without dsn", func(t *testing.T) {
		require.Error(t, InitSentry(Config{Enabled: true}))
	})

	t.Run("reports enhanced errors", func(t *testing.T) {
		tr := &captureTransport{}
		require.NoError(t, InitSentry(Config{
			Enabled:   true,
			DSN:       "https://public@sentry.example.com/1",
			Release:   "test",
			Transport: tr,
		}))
		t.Cleanup(func() { require.NoError(t, InitSentry(Config{})) })

		_ = errors.Newf("download failed for /home/siti/x.zip").
			Component("aipack").
			Category(errors.CategoryTransfer).
			Build()
		Flush(time.Second)

		evs := tr.Events()
		require.Len(t, evs, 1)
		assert.Contains(t, evs[0].Message, "[PATH]")
		assert.Equal(t, "aipack", evs[0].Tags["component"])
	})
}
