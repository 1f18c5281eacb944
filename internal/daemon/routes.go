package daemon

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/summarize/internal/costbook"
	"github.com/jmylchreest/summarize/internal/streammerge"
)

// RegisterRoutes wires every endpoint from the daemon's endpoint table onto
// server. SSE and slide-image routes are registered directly on the chi
// router since they need raw ResponseWriter access; job submission and
// stats go through Huma for OpenAPI documentation.
func RegisterRoutes(server *Server, runs RunManager, buses *streammerge.Registry, costs *costbook.Book, slidesDir string, logger *slog.Logger, startedAt time.Time) {
	NewSummarizeHandler(runs).Register(server.API())

	events := NewEventsHandler(buses, logger)
	server.Router().Get("/v1/summarize/{id}/events", events.ServeHTTP)

	slides := NewSlidesHandler(runs, slidesDir)
	server.Router().Get("/v1/slides/{sourceId}/{index}", slides.ServeImage)
	server.Router().Get("/v1/slides/{runId}/snapshot", slides.ServeSnapshot)

	stats := NewStatsHandler(costs, startedAt)
	server.Router().Get("/v1/live", stats.Live)
	server.Router().Get("/v1/stats", stats.Stats)
}
