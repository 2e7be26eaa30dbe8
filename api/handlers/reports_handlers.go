package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"rpi-diario/config"
	"rpi-diario/core/export"
	"rpi-diario/core/reports"
	"rpi-diario/core/shift"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type ReportsHandler struct {
	cfg         *config.AppConfig
	svc         *reports.Service
	occurrences store.OccurrencesStore
	audits      store.AuditStore
	logger      *utils.Logger
	loc         *time.Location
}

func NewReportsHandler(cfg *config.AppConfig, svc *reports.Service, occurrences store.OccurrencesStore, audits store.AuditStore, logger *utils.Logger) *ReportsHandler {
	return &ReportsHandler{
		cfg:         cfg,
		svc:         svc,
		occurrences: occurrences,
		audits:      audits,
		logger:      logger,
		loc:         shift.Location(cfg.Shift.TimeZone),
	}
}

// List returns finalized reports. With from/to date params the range snaps to
// the 07:00 duty boundaries; without them the last 30 days are returned.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	now := time.Now().In(h.loc)

	var from, to time.Time
	if fromStr != "" || toStr != "" {
		if fromStr == "" || toStr == "" {
			http.Error(w, "from and to must be given together", http.StatusBadRequest)
			return
		}
		win, err := shift.Resolve(fromStr, toStr, now)
		if err != nil {
			http.Error(w, "invalid date range", http.StatusBadRequest)
			return
		}
		from, to = win.Start, win.End
	} else {
		to = now
		from = now.AddDate(0, 0, -30)
	}
	reps, err := h.svc.ListFinalized(r.Context(), from, to)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reps})
}

// Current returns the caller's open report, 404 when no shift is running.
func (h *ReportsHandler) Current(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	rep, err := h.svc.Current(r.Context(), sr.UserID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if rep == nil {
		http.Error(w, "no open report", http.StatusNotFound)
		return
	}
	occs, err := h.occurrences.ListByReport(r.Context(), rep.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": rep, "occurrences": occs})
}

func (h *ReportsHandler) Start(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	rep, err := h.svc.StartShift(r.Context(), userFromSession(sr), time.Now())
	if err != nil {
		if errors.Is(err, reports.ErrOpenReportExists) {
			http.Error(w, "an open report already exists", http.StatusConflict)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"report": rep})
}

func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	rep, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	occs, err := h.occurrences.ListByReport(r.Context(), rep.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": rep, "occurrences": occs})
}

func (h *ReportsHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	rep, err := h.svc.Finalize(r.Context(), userFromSession(sr), id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": rep})
}

func (h *ReportsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	rep, err := h.svc.Reopen(r.Context(), userFromSession(sr), id)
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"report": rep})
}

// PDF streams the printable report inline.
func (h *ReportsHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	rep, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	occs, err := h.occurrences.ListByReport(r.Context(), rep.ID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	agg := export.Aggregate(rep, occs, h.loc)
	data, err := export.RenderPDF(agg, export.PDFOptions{
		Title:    h.cfg.Reports.PDFTitle,
		UnitLine: h.cfg.Reports.PDFUnitLine,
		MediaDir: h.cfg.MediaDir,
	})
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("pdf render failed for report %s: %v", rep.Number(), err)
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	sr := sessionFrom(r)
	h.audits.Log(r.Context(), sr.Username, "report.export", rep.Number())
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", export.FileName(rep)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *ReportsHandler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, reports.ErrNotOwner):
		http.Error(w, "not the report owner", http.StatusForbidden)
	case errors.Is(err, reports.ErrNoOccurrences):
		http.Error(w, "report has no occurrences", http.StatusBadRequest)
	case errors.Is(err, reports.ErrFinalized):
		http.Error(w, "report already finalized", http.StatusConflict)
	case errors.Is(err, reports.ErrNotFinalized):
		http.Error(w, "report is not finalized", http.StatusConflict)
	case errors.Is(err, reports.ErrOpenReportExists):
		http.Error(w, "an open report already exists", http.StatusConflict)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
