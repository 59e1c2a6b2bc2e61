package api

import (
	"fmt"
	"net/http"
)

// StatsProvider exposes runtime counters of the scheduler and resync path.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	stats StatsProvider
}

// NewStatsHandler wraps a StatsProvider.
func NewStatsHandler(stats StatsProvider) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// HandleStats writes all counters, or one top-level section when
// ?section= is given (for example ?section=scheduler).
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	all := h.stats.GetStats()
	section := r.URL.Query().Get("section")
	if section == "" {
		writeJSON(w, http.StatusOK, all)
		return
	}
	v, ok := all[section]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_section", NewKind(fmt.Sprintf("stats section %q", section), ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{section: v})
}
