package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	mu     sync.Mutex
	events []domain.CaseEvent
}

func (c *captured) Publish(event domain.CaseEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captured) all() []domain.CaseEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CaseEvent{}, c.events...)
}

// unreachable points at a port nothing listens on
func unreachable() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisRelay_PublishFallsBackToLocal(t *testing.T) {
	local := &captured{}
	relay := NewRedisRelayWithClient(unreachable(), "", "node-a", local, logger.Nop())
	t.Cleanup(func() { _ = relay.Close() })

	event := domain.CaseEvent{TenantID: "t1", Type: domain.EventCaseCreated, CaseID: "cc-1", Version: 1}
	relay.Publish(event)

	got := local.all()
	require.Len(t, got, 1)
	assert.Equal(t, event, got[0])
	assert.Equal(t, "case-events", relay.channel)
}

func TestRedisRelay_ForwardSkipsOwnEvents(t *testing.T) {
	local := &captured{}
	relay := NewRedisRelayWithClient(unreachable(), "events", "node-a", local, logger.Nop())
	t.Cleanup(func() { _ = relay.Close() })

	encode := func(origin string) []byte {
		raw, err := json.Marshal(envelope{Origin: origin, Event: domain.CaseEvent{
			TenantID: "t1", Type: domain.EventCaseAssigned, CaseID: "lc-1", CaseKind: domain.KindLegal, Version: 4,
		}})
		require.NoError(t, err)
		return raw
	}

	relay.forward(encode("node-a"))
	relay.forward([]byte("{not json"))
	relay.forward(encode("node-b"))

	got := local.all()
	require.Len(t, got, 1)
	assert.Equal(t, "lc-1", got[0].CaseID)
	assert.Equal(t, domain.KindLegal, got[0].CaseKind)
	assert.Equal(t, int64(4), got[0].Version)
}
