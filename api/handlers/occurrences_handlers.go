package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"rpi-diario/config"
	"rpi-diario/core/milidate"
	"rpi-diario/core/reports"
	"rpi-diario/core/shift"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

const maxPhotoBytes = 10 << 20

type OccurrencesHandler struct {
	cfg         *config.AppConfig
	svc         *reports.Service
	occurrences store.OccurrencesStore
	audits      store.AuditStore
	logger      *utils.Logger
	loc         *time.Location
}

func NewOccurrencesHandler(cfg *config.AppConfig, svc *reports.Service, occurrences store.OccurrencesStore, audits store.AuditStore, logger *utils.Logger) *OccurrencesHandler {
	return &OccurrencesHandler{
		cfg:         cfg,
		svc:         svc,
		occurrences: occurrences,
		audits:      audits,
		logger:      logger,
		loc:         shift.Location(cfg.Shift.TimeZone),
	}
}

type occurrencePayload struct {
	NatureID       int64  `json:"nature_id"`
	UnitID         int64  `json:"unit_id"`
	MunicipalityID *int64 `json:"municipality_id"`
	InstrumentID   *int64 `json:"instrument_id"`
	OccurredToken  string `json:"occurred_token"`
	Action         string `json:"action"`
	Summary        string `json:"summary"`
	Narrative      string `json:"narrative"`
	Parties        []struct {
		Name string `json:"name"`
		Role string `json:"role"`
		Age  *int   `json:"age"`
	} `json:"parties"`
	Seizures []struct {
		MaterialTypeID int64   `json:"material_type_id"`
		Quantity       float64 `json:"quantity"`
		UnitOfMeasure  string  `json:"unit_of_measure"`
	} `json:"seizures"`
}

// validate normalizes the payload into store rows. The military token is the
// single source of the occurrence timestamp.
func (p *occurrencePayload) validate(loc *time.Location) (*store.Occurrence, []store.InvolvedParty, []store.SeizedItem, error) {
	if p.NatureID <= 0 {
		return nil, nil, nil, errors.New("nature required")
	}
	if p.UnitID <= 0 {
		return nil, nil, nil, errors.New("unit required")
	}
	occurredAt, ok := milidate.Parse(p.OccurredToken, loc)
	if !ok {
		return nil, nil, nil, errors.New("invalid military timestamp")
	}
	action := strings.TrimSpace(p.Action)
	if action == "" {
		action = store.ActionConsummated
	}
	if action != store.ActionConsummated && action != store.ActionAttempted {
		return nil, nil, nil, errors.New("invalid action")
	}
	occ := &store.Occurrence{
		NatureID:       p.NatureID,
		UnitID:         p.UnitID,
		MunicipalityID: p.MunicipalityID,
		InstrumentID:   p.InstrumentID,
		OccurredToken:  strings.ToUpper(strings.TrimSpace(p.OccurredToken)),
		OccurredAt:     occurredAt,
		Action:         action,
		Summary:        p.Summary,
		Narrative:      p.Narrative,
	}
	var parties []store.InvolvedParty
	for _, raw := range p.Parties {
		role := strings.ToLower(strings.TrimSpace(raw.Role))
		if _, ok := store.PartyRoleLabels[role]; !ok {
			return nil, nil, nil, fmt.Errorf("invalid party role %q", raw.Role)
		}
		if strings.TrimSpace(raw.Name) == "" {
			return nil, nil, nil, errors.New("party name required")
		}
		if raw.Age != nil && (*raw.Age < 0 || *raw.Age > 150) {
			return nil, nil, nil, errors.New("invalid party age")
		}
		parties = append(parties, store.InvolvedParty{Name: raw.Name, Role: role, Age: raw.Age})
	}
	var seizures []store.SeizedItem
	for _, raw := range p.Seizures {
		if raw.MaterialTypeID <= 0 {
			return nil, nil, nil, errors.New("material type required")
		}
		if raw.Quantity < 0 {
			return nil, nil, nil, errors.New("invalid quantity")
		}
		seizures = append(seizures, store.SeizedItem{
			MaterialTypeID: raw.MaterialTypeID,
			Quantity:       raw.Quantity,
			UnitOfMeasure:  raw.UnitOfMeasure,
		})
	}
	return occ, parties, seizures, nil
}

func (h *OccurrencesHandler) ListByReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if _, err := h.svc.Get(r.Context(), reportID); err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	occs, err := h.occurrences.ListByReport(r.Context(), reportID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"occurrences": occs})
}

func (h *OccurrencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	occ, err := h.occurrences.GetOccurrence(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if occ == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"occurrence": occ})
}

func (h *OccurrencesHandler) Create(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	sr := sessionFrom(r)
	if _, err := h.svc.EnsureMutable(r.Context(), userFromSession(sr), reportID); err != nil {
		h.writeMutabilityError(w, err)
		return
	}
	var payload occurrencePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	occ, parties, seizures, err := payload.validate(h.loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	occ.ReportID = reportID
	if _, err := h.occurrences.CreateOccurrence(r.Context(), occ, parties, seizures); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	created, err := h.occurrences.GetOccurrence(r.Context(), occ.ID)
	if err != nil || created == nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), sr.Username, "occurrence.create", created.OccurredToken)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"occurrence": created})
}

func (h *OccurrencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	existing, err := h.occurrences.GetOccurrence(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sr := sessionFrom(r)
	if _, err := h.svc.EnsureMutable(r.Context(), userFromSession(sr), existing.ReportID); err != nil {
		h.writeMutabilityError(w, err)
		return
	}
	var payload occurrencePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	occ, parties, seizures, err := payload.validate(h.loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	occ.ID = id
	occ.ReportID = existing.ReportID
	if err := h.occurrences.UpdateOccurrence(r.Context(), occ, parties, seizures); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	updated, err := h.occurrences.GetOccurrence(r.Context(), id)
	if err != nil || updated == nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), sr.Username, "occurrence.update", updated.OccurredToken)
	writeJSON(w, http.StatusOK, map[string]interface{}{"occurrence": updated})
}

func (h *OccurrencesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	occ, err := h.occurrences.GetOccurrence(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if occ == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sr := sessionFrom(r)
	if _, err := h.svc.EnsureMutable(r.Context(), userFromSession(sr), occ.ReportID); err != nil {
		h.writeMutabilityError(w, err)
		return
	}
	if err := h.occurrences.DeleteOccurrence(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	for _, photo := range occ.Photos {
		h.removePhotoFile(photo.FilePath)
	}
	h.audits.Log(r.Context(), sr.Username, "occurrence.delete", occ.OccurredToken)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UploadPhoto stores the multipart file under the media root and registers it
// on the occurrence.
func (h *OccurrencesHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	occ, err := h.occurrences.GetOccurrence(r.Context(), id)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if occ == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sr := sessionFrom(r)
	if _, err := h.svc.EnsureMutable(r.Context(), userFromSession(sr), occ.ReportID); err != nil {
		h.writeMutabilityError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		http.Error(w, "photo too large or malformed upload", http.StatusRequestEntityTooLarge)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		http.Error(w, "photo file required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType, ok := photoContentType(ext)
	if !ok {
		http.Error(w, "unsupported image type", http.StatusBadRequest)
		return
	}
	name := uuid.Must(uuid.NewV4()).String() + ext
	relPath := filepath.Join("occurrences", fmt.Sprintf("%d", occ.ID), name)
	absPath := filepath.Join(h.cfg.MediaDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	dst, err := os.Create(absPath)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	size, err := io.Copy(dst, file)
	dst.Close()
	if err != nil {
		os.Remove(absPath)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	photo := &store.OccurrencePhoto{
		OccurrenceID: occ.ID,
		FilePath:     filepath.ToSlash(relPath),
		Caption:      r.FormValue("caption"),
		ContentType:  contentType,
		SizeBytes:    size,
	}
	if _, err := h.occurrences.AddPhoto(r.Context(), photo); err != nil {
		os.Remove(absPath)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.audits.Log(r.Context(), sr.Username, "occurrence.photo_add", occ.OccurredToken)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"photo": photo})
}

func (h *OccurrencesHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	occID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	photoID, ok := pathID(r, "photo_id")
	if !ok {
		http.Error(w, "invalid photo id", http.StatusBadRequest)
		return
	}
	photo, err := h.occurrences.GetPhoto(r.Context(), photoID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if photo == nil || photo.OccurrenceID != occID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	occ, err := h.occurrences.GetOccurrence(r.Context(), occID)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if occ == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	sr := sessionFrom(r)
	if _, err := h.svc.EnsureMutable(r.Context(), userFromSession(sr), occ.ReportID); err != nil {
		h.writeMutabilityError(w, err)
		return
	}
	if err := h.occurrences.DeletePhoto(r.Context(), photoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.removePhotoFile(photo.FilePath)
	h.audits.Log(r.Context(), sr.Username, "occurrence.photo_delete", occ.OccurredToken)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OccurrencesHandler) removePhotoFile(relPath string) {
	if relPath == "" {
		return
	}
	path := relPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(h.cfg.MediaDir, filepath.FromSlash(relPath))
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) && h.logger != nil {
		h.logger.Warnf("photo file removal failed: %v", err)
	}
}

func (h *OccurrencesHandler) writeMutabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reports.ErrNotFound):
		http.Error(w, "report not found", http.StatusNotFound)
	case errors.Is(err, reports.ErrNotOwner):
		http.Error(w, "not the report owner", http.StatusForbidden)
	case errors.Is(err, reports.ErrFinalized):
		http.Error(w, "report already finalized", http.StatusConflict)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func photoContentType(ext string) (string, bool) {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".png":
		return "image/png", true
	case ".gif":
		return "image/gif", true
	default:
		return "", false
	}
}
