package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/skyward-ops/droneops/internal/core/services/events"
)

// defaultKeepaliveInterval is how long a stream may sit idle before a
// keepalive envelope is pushed, when no cadence is configured.
const defaultKeepaliveInterval = 15 * time.Second

// StreamHandler bridges the event bus onto Server-Sent Events.
type StreamHandler struct {
	Bus       *events.Bus
	Keepalive time.Duration
}

// NewStreamHandler creates a new StreamHandler. A non-positive keepalive
// falls back to the default interval.
func NewStreamHandler(bus *events.Bus, keepalive time.Duration) *StreamHandler {
	if keepalive <= 0 {
		keepalive = defaultKeepaliveInterval
	}
	return &StreamHandler{Bus: bus, Keepalive: keepalive}
}

// HandleStream subscribes the client and relays envelopes until disconnect.
// The subscriber is removed on every exit path.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.Bus.Subscribe()
	defer h.Bus.Unsubscribe(sub)

	timer := time.NewTimer(h.Keepalive)
	defer timer.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case envelope := <-sub.C:
			if err := writeSSE(w, envelope.Type, envelope); err != nil {
				return
			}
			flusher.Flush()
		case <-timer.C:
			keepalive := h.Bus.Keepalive()
			if err := writeSSE(w, keepalive.Type, keepalive); err != nil {
				return
			}
			flusher.Flush()
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(h.Keepalive)
	}
}

func writeSSE(w http.ResponseWriter, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event:%s\ndata:%s\n\n", eventType, data)
	return err
}
