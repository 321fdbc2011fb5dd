package services

import (
	"sync"

	"casedesk/internal/core/domain"
	"casedesk/internal/pkg/logger"

	"github.com/google/uuid"
)

// EventBroadcaster is the only way the core tells the outside world that a
// case changed. Delivery is at-most-once and best-effort; Publish never blocks.
type EventBroadcaster interface {
	Publish(event domain.CaseEvent)
}

// EventClient is one subscriber of a tenant's event stream
type EventClient struct {
	ID       string
	UserID   string
	TenantID string
	Channel  chan domain.CaseEvent
}

// maxTrackedCases bounds the per-case version map
const maxTrackedCases = 10000

// EventHub fans case events out to in-process subscribers, per tenant
type EventHub struct {
	mu         sync.RWMutex
	clients    map[string]*EventClient
	bufferSize int
	log        *logger.Logger

	seqMu    sync.Mutex
	versions map[string]int64
}

// NewEventHub creates a hub whose subscribers buffer up to bufferSize events
func NewEventHub(bufferSize int, log *logger.Logger) *EventHub {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &EventHub{
		clients:    make(map[string]*EventClient),
		bufferSize: bufferSize,
		log:        log.With("component", "EventHub"),
		versions:   make(map[string]int64),
	}
}

// Subscribe registers a new client for tenantID
func (h *EventHub) Subscribe(tenantID, userID string) *EventClient {
	client := &EventClient{
		ID:       uuid.NewString(),
		UserID:   userID,
		TenantID: tenantID,
		Channel:  make(chan domain.CaseEvent, h.bufferSize),
	}
	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("event client registered", "client_id", client.ID, "tenant_id", tenantID, "user_id", userID, "total", total)
	return client
}

// Unsubscribe removes a client and closes its channel
func (h *EventHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		h.log.Debug("event client unregistered", "client_id", clientID, "total", len(h.clients))
	}
}

// Publish delivers event to every subscriber of its tenant. A subscriber whose
// buffer is full misses the event and must re-fetch. Events older than one
// already delivered for the same case are dropped.
func (h *EventHub) Publish(event domain.CaseEvent) {
	if event.TenantID == "" {
		h.log.Warn("dropping event without tenant", "type", event.Type, "case_id", event.CaseID)
		return
	}

	// admission and fan-out happen under one lock so per-case order holds
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.admit(event) {
		h.log.Debug("dropping stale event", "type", event.Type, "case_id", event.CaseID, "version", event.Version)
		return
	}

	sent, dropped := 0, 0
	for _, client := range h.clients {
		if client.TenantID != event.TenantID {
			continue
		}
		select {
		case client.Channel <- event:
			sent++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("event channel full, subscribers skipped", "type", event.Type, "tenant_id", event.TenantID, "dropped", dropped)
	}
	if sent > 0 {
		h.log.Debug("event broadcast", "type", event.Type, "tenant_id", event.TenantID, "clients", sent)
	}
}

// admit records the case version and rejects anything older than the last seen.
// Callers hold seqMu.
func (h *EventHub) admit(event domain.CaseEvent) bool {
	if event.CaseID == "" || event.Version == 0 {
		return true
	}
	if last, ok := h.versions[event.CaseID]; ok && event.Version < last {
		return false
	}
	if len(h.versions) >= maxTrackedCases {
		h.versions = make(map[string]int64)
	}
	h.versions[event.CaseID] = event.Version
	return true
}

// ClientCount returns the number of connected clients
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
