package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"casedesk/internal/core/domain"
	"casedesk/internal/core/services"
	"casedesk/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// EventSource is the subscriber side of the event hub
type EventSource interface {
	Subscribe(tenantID, userID string) *services.EventClient
	Unsubscribe(clientID string)
}

// EventHandler streams the caller's tenant events over SSE
type EventHandler struct {
	source    EventSource
	heartbeat time.Duration
	log       *logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(source EventSource, heartbeat time.Duration, log *logger.Logger) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &EventHandler{
		source:    source,
		heartbeat: heartbeat,
		log:       log.With("component", "EventHandler"),
	}
}

// Stream opens an SSE stream of case events for the actor's firm. Events are
// hints: clients re-fetch the case they name.
// @Summary Case event stream
// @Description Server-sent events for every case change in the caller's firm
// @Tags Events
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventHandler) Stream(c *fiber.Ctx) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no")

	client := h.source.Subscribe(actor.TenantID, actor.ID)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.source.Unsubscribe(client.ID)

		fmt.Fprintf(w, "event: connected\ndata: {\"client_id\":%q,\"tenant_id\":%q}\n\n", client.ID, actor.TenantID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(h.heartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case event, ok := <-client.Channel:
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					h.log.Warn("skipping unencodable event", "type", event.Type, "case_id", event.CaseID, "error", err)
					continue
				}
				if err := w.Flush(); err != nil {
					h.log.Debug("event client disconnected", "client_id", client.ID)
					return
				}

			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					h.log.Debug("event client disconnected", "client_id", client.ID)
					return
				}
			}
		}
	}))

	return nil
}

// writeEvent frames one case event
func writeEvent(w *bufio.Writer, event domain.CaseEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\n", event.Type)
	if event.Version > 0 {
		fmt.Fprintf(w, "id: %s/%d\n", event.CaseID, event.Version)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	return nil
}
