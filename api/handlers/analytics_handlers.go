package handlers

import (
	"net/http"
	"strings"
	"time"

	"rpi-diario/config"
	"rpi-diario/core/shift"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

// AnalyticsHandler aggregates seizures and party counts over duty windows.
// Without date params the current window is used.
type AnalyticsHandler struct {
	cfg         *config.AppConfig
	occurrences store.OccurrencesStore
	logger      *utils.Logger
	loc         *time.Location
}

func NewAnalyticsHandler(cfg *config.AppConfig, occurrences store.OccurrencesStore, logger *utils.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		cfg:         cfg,
		occurrences: occurrences,
		logger:      logger,
		loc:         shift.Location(cfg.Shift.TimeZone),
	}
}

func (h *AnalyticsHandler) window(r *http.Request) (shift.Window, bool) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if (fromStr == "") != (toStr == "") {
		return shift.Window{}, false
	}
	win, err := shift.Resolve(fromStr, toStr, time.Now().In(h.loc))
	if err != nil {
		return shift.Window{}, false
	}
	return win, true
}

func (h *AnalyticsHandler) Seizures(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(r)
	if !ok {
		http.Error(w, "invalid date range", http.StatusBadRequest)
		return
	}
	totals, err := h.occurrences.SeizureTotals(r.Context(), win.Start, win.End)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if totals == nil {
		totals = []store.MaterialTotal{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":   win.StartStr,
		"to":     win.EndStr,
		"totals": totals,
	})
}

func (h *AnalyticsHandler) Parties(w http.ResponseWriter, r *http.Request) {
	win, ok := h.window(r)
	if !ok {
		http.Error(w, "invalid date range", http.StatusBadRequest)
		return
	}
	role := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("role")))
	if role != "" {
		if _, known := store.PartyRoleLabels[role]; !known {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
	}
	totals, err := h.occurrences.PartyRoleTotals(r.Context(), win.Start, win.End, role)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	byUnit, err := h.occurrences.PartyRoleByUnit(r.Context(), win.Start, win.End, role)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if totals == nil {
		totals = []store.RoleCount{}
	}
	if byUnit == nil {
		byUnit = []store.UnitRoleCount{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from":    win.StartStr,
		"to":      win.EndStr,
		"totals":  totals,
		"by_unit": byUnit,
	})
}
