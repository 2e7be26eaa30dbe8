package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

// CatalogsHandler serves the lookup tables the occurrence form feeds from.
// Create endpoints double as the quick-add path: they return the stored row
// so the form can select it immediately.
type CatalogsHandler struct {
	catalogs store.CatalogStore
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewCatalogsHandler(catalogs store.CatalogStore, audits store.AuditStore, logger *utils.Logger) *CatalogsHandler {
	return &CatalogsHandler{catalogs: catalogs, audits: audits, logger: logger}
}

func (h *CatalogsHandler) ListNatures(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogs.ListNatures(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"natures": items})
}

func (h *CatalogsHandler) SearchNatures(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"natures": []store.Nature{}})
		return
	}
	items, err := h.catalogs.SearchNatures(r.Context(), q, 20)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []store.Nature{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"natures": items})
}

func (h *CatalogsHandler) CreateNature(w http.ResponseWriter, r *http.Request) {
	var n store.Nature
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(n.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if n.Impact != "" && n.Impact != store.ImpactPositive && n.Impact != store.ImpactNegative {
		http.Error(w, "invalid impact", http.StatusBadRequest)
		return
	}
	if _, err := h.catalogs.CreateNature(r.Context(), &n); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.nature_create", n.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"nature": n})
}

func (h *CatalogsHandler) UpdateNature(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var n store.Nature
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(n.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	n.ID = id
	if err := h.catalogs.UpdateNature(r.Context(), &n); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.nature_update", n.Name)
	writeJSON(w, http.StatusOK, map[string]interface{}{"nature": n})
}

func (h *CatalogsHandler) DeleteNature(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "catalog.nature_delete", h.catalogs.DeleteNature, "nature is referenced by occurrences")
}

func (h *CatalogsHandler) ListMunicipalities(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogs.ListMunicipalities(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"municipalities": items})
}

func (h *CatalogsHandler) CreateMunicipality(w http.ResponseWriter, r *http.Request) {
	var m store.Municipality
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(m.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if _, err := h.catalogs.CreateMunicipality(r.Context(), &m); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.municipality_create", m.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"municipality": m})
}

func (h *CatalogsHandler) UpdateMunicipality(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var m store.Municipality
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(m.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	m.ID = id
	if err := h.catalogs.UpdateMunicipality(r.Context(), &m); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.municipality_update", m.Name)
	writeJSON(w, http.StatusOK, map[string]interface{}{"municipality": m})
}

func (h *CatalogsHandler) DeleteMunicipality(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "catalog.municipality_delete", h.catalogs.DeleteMunicipality, "municipality is referenced by occurrences")
}

func (h *CatalogsHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogs.ListUnits(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"units": items})
}

func (h *CatalogsHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var u store.Unit
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(u.Acronym) == "" || strings.TrimSpace(u.Name) == "" {
		http.Error(w, "acronym and name required", http.StatusBadRequest)
		return
	}
	if _, err := h.catalogs.CreateUnit(r.Context(), &u); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.unit_create", u.Acronym)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"unit": u})
}

func (h *CatalogsHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var u store.Unit
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(u.Acronym) == "" || strings.TrimSpace(u.Name) == "" {
		http.Error(w, "acronym and name required", http.StatusBadRequest)
		return
	}
	u.ID = id
	if err := h.catalogs.UpdateUnit(r.Context(), &u); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.unit_update", u.Acronym)
	writeJSON(w, http.StatusOK, map[string]interface{}{"unit": u})
}

func (h *CatalogsHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "catalog.unit_delete", h.catalogs.DeleteUnit, "unit is referenced by occurrences")
}

func (h *CatalogsHandler) ListMaterialTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogs.ListMaterialTypes(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"material_types": items})
}

func (h *CatalogsHandler) CreateMaterialType(w http.ResponseWriter, r *http.Request) {
	var m store.MaterialType
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(m.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if _, err := h.catalogs.CreateMaterialType(r.Context(), &m); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.material_type_create", m.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"material_type": m})
}

func (h *CatalogsHandler) DeleteMaterialType(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "catalog.material_type_delete", h.catalogs.DeleteMaterialType, "material type is referenced by seized items")
}

func (h *CatalogsHandler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalogs.ListInstruments(r.Context())
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"instruments": items})
}

func (h *CatalogsHandler) CreateInstrument(w http.ResponseWriter, r *http.Request) {
	var i store.Instrument
	if err := json.NewDecoder(r.Body).Decode(&i); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(i.Name) == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if _, err := h.catalogs.CreateInstrument(r.Context(), &i); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, "catalog.instrument_create", i.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"instrument": i})
}

func (h *CatalogsHandler) DeleteInstrument(w http.ResponseWriter, r *http.Request) {
	h.deleteByID(w, r, "catalog.instrument_delete", h.catalogs.DeleteInstrument, "instrument is referenced by occurrences")
}

func (h *CatalogsHandler) deleteByID(w http.ResponseWriter, r *http.Request, action string, del func(ctx context.Context, id int64) error, referencedMsg string) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := del(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrReferenced) {
			http.Error(w, referencedMsg, http.StatusConflict)
			return
		}
		h.writeCatalogError(w, err)
		return
	}
	h.logCatalog(r, action, strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *CatalogsHandler) logCatalog(r *http.Request, action, details string) {
	if sr := sessionFrom(r); sr != nil {
		h.audits.Log(r.Context(), sr.Username, action, details)
	}
}

func (h *CatalogsHandler) writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrConflict):
		http.Error(w, "entry already exists", http.StatusConflict)
	case errors.Is(err, store.ErrReferenced):
		http.Error(w, "entry is referenced and cannot be deleted", http.StatusConflict)
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
