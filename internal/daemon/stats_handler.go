package daemon

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/jmylchreest/summarize/internal/costbook"
)

// StatsHandler serves the liveness ping and the daemon-lifetime stats
// surface, an ambient observability endpoint a production daemon carries
// even though it isn't central to the summarization flow.
type StatsHandler struct {
	startedAt time.Time
	costs     *costbook.Book
}

// NewStatsHandler creates a stats handler tracking costs since startedAt.
func NewStatsHandler(costs *costbook.Book, startedAt time.Time) *StatsHandler {
	return &StatsHandler{costs: costs, startedAt: startedAt}
}

// Live handles GET /v1/live, the one endpoint exempt from auth.
func (h *StatsHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// statsResponse is the body of GET /v1/stats.
type statsResponse struct {
	UptimeSeconds float64            `json:"uptimeSeconds"`
	CPUPercent    float64            `json:"cpuPercent,omitempty"`
	MemUsedBytes  uint64             `json:"memUsedBytes,omitempty"`
	MemTotalBytes uint64             `json:"memTotalBytes,omitempty"`
	Costs         costbook.Totals    `json:"costs"`
}

// Stats handles GET /v1/stats: host CPU/mem plus lifetime CostBook totals.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		Costs:         h.costs.Totals(),
	}

	if percents, err := cpu.PercentWithContext(r.Context(), 200*time.Millisecond, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		resp.MemUsedBytes = vm.Used
		resp.MemTotalBytes = vm.Total
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
