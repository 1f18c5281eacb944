package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/summarize/internal/streammerge"
)

// EventsHandler serves GET /v1/summarize/{id}/events, the sole SSE
// subscription route for a run's streaming output.
type EventsHandler struct {
	buses             *streammerge.Registry
	logger            *slog.Logger
	heartbeatInterval time.Duration
}

// NewEventsHandler creates an SSE handler backed by the given bus registry.
func NewEventsHandler(buses *streammerge.Registry, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{
		buses:             buses,
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
	}
}

// SetHeartbeatInterval overrides the heartbeat cadence (for tests).
func (h *EventsHandler) SetHeartbeatInterval(interval time.Duration) {
	h.heartbeatInterval = interval
}

// ServeHTTP streams a run's event log as Server-Sent Events: events appended
// after subscription are delivered live, and a run that's already finished
// is replayed in full before the connection closes.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	bus := h.buses.Get(runID)
	if bus == nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()

	fmt.Fprint(w, ":connected\n\n")
	if err := rc.Flush(); err != nil {
		h.logger.Debug("failed to flush initial SSE connection", slog.Any("error", err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ":heartbeat %d\n\n", time.Now().Unix())
			if err := rc.Flush(); err != nil {
				h.logger.Debug("heartbeat flush failed, client likely disconnected", slog.Any("error", err))
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := h.writeEvent(w, ev); err != nil {
				h.logger.Error("failed to write SSE event",
					slog.String("run_id", runID),
					slog.String("event", string(ev.Name)),
					slog.Any("error", err),
				)
				return
			}
			if err := rc.Flush(); err != nil {
				h.logger.Debug("event flush failed, client likely disconnected", slog.Any("error", err))
				return
			}
			if ev.Name == streammerge.EventDone || ev.Name == streammerge.EventError {
				return
			}
		}
	}
}

// writeEvent writes one event in the "event: <name>\ndata: <json>\n\n"
// wire format, in a single Write call for atomicity.
func (h *EventsHandler) writeEvent(w http.ResponseWriter, ev streammerge.SseEvent) (int, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Fprintf(w, "event: error\ndata: {\"message\": \"marshal error\"}\n\n")
	}

	message := fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Name, data)
	raw := []byte(message)

	n, err := w.Write(raw)
	if err != nil {
		return n, err
	}
	if n < len(raw) {
		return n, fmt.Errorf("short write: wrote %d of %d bytes", n, len(raw))
	}
	return n, nil
}
