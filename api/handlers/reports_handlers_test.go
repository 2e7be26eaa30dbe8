package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"rpi-diario/config"
	"rpi-diario/core/auth"
	"rpi-diario/core/rbac"
	"rpi-diario/core/reports"
	"rpi-diario/core/shift"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type handlerFixture struct {
	cfg         *config.AppConfig
	users       store.UsersStore
	catalogs    store.CatalogStore
	occurrences store.OccurrencesStore
	reports     *ReportsHandler
	occ         *OccurrencesHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open("sqlite", filepath.Join(dir, "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := &config.AppConfig{
		MediaDir: filepath.Join(dir, "media"),
		Shift:    config.ShiftConfig{TimeZone: "UTC"},
		Reports: config.ReportsConfig{
			PDFTitle:    "RELATÓRIO DE PLANTÃO INTEGRADO",
			PDFUnitLine: "AGÊNCIA REGIONAL DE INTELIGÊNCIA - SUL",
		},
	}
	users := store.NewUsersStore(db)
	reportsStore := store.NewReportsStore(db)
	occurrences := store.NewOccurrencesStore(db)
	audits := store.NewAuditStore(db)
	logger := utils.NewNopLogger()
	svc := reports.NewService(reportsStore, occurrences, audits, shift.Location(cfg.Shift.TimeZone), logger)
	return &handlerFixture{
		cfg:         cfg,
		users:       users,
		catalogs:    store.NewCatalogStore(db),
		occurrences: occurrences,
		reports:     NewReportsHandler(cfg, svc, occurrences, audits, logger),
		occ:         NewOccurrencesHandler(cfg, svc, occurrences, audits, logger),
	}
}

func (f *handlerFixture) agent(t *testing.T, username string) *store.SessionRecord {
	t.Helper()
	u := &store.User{Username: username, FullName: username, PasswordHash: "x", Active: true}
	if _, err := f.users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &store.SessionRecord{ID: username + "-sess", UserID: u.ID, Username: username, Roles: rbac.RolesFor(false)}
}

func withSession(r *http.Request, sr *store.SessionRecord) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), auth.SessionContextKey, sr))
}

func (f *handlerFixture) startShift(t *testing.T, sr *store.SessionRecord) int64 {
	t.Helper()
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/reports", nil), sr)
	rr := httptest.NewRecorder()
	f.reports.Start(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("start: status %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Report store.ShiftReport `json:"report"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Report.ID
}

func (f *handlerFixture) createOccurrence(t *testing.T, sr *store.SessionRecord, reportID int64) int64 {
	t.Helper()
	ctx := context.Background()
	nature := &store.Nature{Name: "ROUBO A COMÉRCIO"}
	if _, err := f.catalogs.CreateNature(ctx, nature); err != nil {
		t.Fatalf("nature: %v", err)
	}
	unit := &store.Unit{Acronym: "4BPM", Name: "4BPM - Oeste"}
	if _, err := f.catalogs.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("unit: %v", err)
	}
	payload := map[string]interface{}{
		"nature_id":      nature.ID,
		"unit_id":        unit.ID,
		"occurred_token": "101430MAR25",
		"summary":        "roubo em estabelecimento",
		"parties": []map[string]interface{}{
			{"name": "Vítima Um", "role": "victim"},
		},
	}
	body, _ := json.Marshal(payload)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/reports/"+strconv.FormatInt(reportID, 10)+"/occurrences", bytes.NewReader(body)), sr)
	rr := httptest.NewRecorder()
	f.occ.Create(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create occurrence: status %d body %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Occurrence store.Occurrence `json:"occurrence"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Occurrence.ID
}

func TestStartShiftConflict(t *testing.T) {
	f := newHandlerFixture(t)
	sr := f.agent(t, "oscar")

	f.startShift(t, sr)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/reports", nil), sr)
	rr := httptest.NewRecorder()
	f.reports.Start(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected conflict, got %d", rr.Code)
	}
}

func TestOccurrenceRejectsBadToken(t *testing.T) {
	f := newHandlerFixture(t)
	sr := f.agent(t, "papa")
	reportID := f.startShift(t, sr)

	payload := map[string]interface{}{
		"nature_id":      1,
		"unit_id":        1,
		"occurred_token": "not-a-token",
	}
	body, _ := json.Marshal(payload)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/reports/"+strconv.FormatInt(reportID, 10)+"/occurrences", bytes.NewReader(body)), sr)
	rr := httptest.NewRecorder()
	f.occ.Create(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestOccurrenceRejectsUnknownRole(t *testing.T) {
	f := newHandlerFixture(t)
	sr := f.agent(t, "quebec")
	reportID := f.startShift(t, sr)

	ctx := context.Background()
	nature := &store.Nature{Name: "FURTO SIMPLES"}
	if _, err := f.catalogs.CreateNature(ctx, nature); err != nil {
		t.Fatalf("nature: %v", err)
	}
	unit := &store.Unit{Acronym: "5BPM", Name: "5BPM - Leste"}
	if _, err := f.catalogs.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("unit: %v", err)
	}
	payload := map[string]interface{}{
		"nature_id":      nature.ID,
		"unit_id":        unit.ID,
		"occurred_token": "101430MAR25",
		"parties": []map[string]interface{}{
			{"name": "Alguém", "role": "bystander"},
		},
	}
	body, _ := json.Marshal(payload)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/reports/"+strconv.FormatInt(reportID, 10)+"/occurrences", bytes.NewReader(body)), sr)
	rr := httptest.NewRecorder()
	f.occ.Create(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d body %s", rr.Code, rr.Body.String())
	}
}

func TestFinalizeFlowOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)
	sr := f.agent(t, "romeo")
	reportID := f.startShift(t, sr)
	idStr := strconv.FormatInt(reportID, 10)

	// Empty report cannot be finalized.
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/reports/"+idStr+"/finalize", nil), sr)
	rr := httptest.NewRecorder()
	f.reports.Finalize(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request for empty report, got %d", rr.Code)
	}

	f.createOccurrence(t, sr, reportID)
	req = withSession(httptest.NewRequest(http.MethodPost, "/api/reports/"+idStr+"/finalize", nil), sr)
	rr = httptest.NewRecorder()
	f.reports.Finalize(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("finalize: %d body %s", rr.Code, rr.Body.String())
	}

	// Occurrence edits are blocked after finalization.
	other := withSession(httptest.NewRequest(http.MethodPost, "/api/reports/"+idStr+"/occurrences", bytes.NewReader([]byte(`{}`))), sr)
	rr = httptest.NewRecorder()
	f.occ.Create(rr, other)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected conflict on finalized report, got %d", rr.Code)
	}
}

func TestPDFExportOverHTTP(t *testing.T) {
	f := newHandlerFixture(t)
	sr := f.agent(t, "sierra")
	reportID := f.startShift(t, sr)
	f.createOccurrence(t, sr, reportID)
	idStr := strconv.FormatInt(reportID, 10)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/reports/"+idStr+"/pdf", nil), sr)
	rr := httptest.NewRecorder()
	f.reports.PDF(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("pdf: %d body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("content type %q", got)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd == "" || !bytes.Contains([]byte(cd), []byte("inline")) {
		t.Fatalf("content disposition %q", cd)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("body is not a pdf")
	}
}

func TestCurrentReturnsNotFoundWithoutShift(t *testing.T) {
	f := newHandlerFixture(t)
	sr := f.agent(t, "tango")
	req := withSession(httptest.NewRequest(http.MethodGet, "/api/reports/current", nil), sr)
	rr := httptest.NewRecorder()
	f.reports.Current(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", rr.Code)
	}
}
