package reports

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

type fixture struct {
	svc         *Service
	users       store.UsersStore
	reports     store.ReportsStore
	occurrences store.OccurrencesStore
	catalogs    store.CatalogStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	users := store.NewUsersStore(db)
	reportsStore := store.NewReportsStore(db)
	occurrences := store.NewOccurrencesStore(db)
	audits := store.NewAuditStore(db)
	svc := NewService(reportsStore, occurrences, audits, time.UTC, utils.NewNopLogger())
	return &fixture{
		svc:         svc,
		users:       users,
		reports:     reportsStore,
		occurrences: occurrences,
		catalogs:    store.NewCatalogStore(db),
	}
}

func (f *fixture) user(t *testing.T, username string, staff bool) *store.User {
	t.Helper()
	u := &store.User{Username: username, FullName: username, PasswordHash: "x", IsStaff: staff, Active: true}
	if _, err := f.users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) addOccurrence(t *testing.T, reportID int64) {
	t.Helper()
	ctx := context.Background()
	nature := &store.Nature{Name: "FURTO"}
	if _, err := f.catalogs.CreateNature(ctx, nature); err != nil {
		t.Fatalf("nature: %v", err)
	}
	unit := &store.Unit{Acronym: "3BPM", Name: "3BPM - Norte"}
	if _, err := f.catalogs.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("unit: %v", err)
	}
	occ := &store.Occurrence{
		ReportID:      reportID,
		NatureID:      nature.ID,
		UnitID:        unit.ID,
		OccurredToken: "101000MAR25",
		OccurredAt:    time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		Summary:       "registro",
	}
	if _, err := f.occurrences.CreateOccurrence(ctx, occ, nil, nil); err != nil {
		t.Fatalf("occurrence: %v", err)
	}
}

func TestStartShiftUsesDutyWindow(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "golf", false)
	ctx := context.Background()

	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	rep, err := f.svc.StartShift(ctx, u, now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	wantStart := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	if !rep.StartedAt.Equal(wantStart) {
		t.Fatalf("window start %v, want %v", rep.StartedAt, wantStart)
	}
	if !rep.EndedAt.Equal(wantStart.Add(24*time.Hour - time.Second)) {
		t.Fatalf("window end %v", rep.EndedAt)
	}

	if _, err := f.svc.StartShift(ctx, u, now); !errors.Is(err, ErrOpenReportExists) {
		t.Fatalf("expected ErrOpenReportExists, got %v", err)
	}
	current, err := f.svc.Current(ctx, u.ID)
	if err != nil || current == nil || current.ID != rep.ID {
		t.Fatalf("current mismatch: %+v err=%v", current, err)
	}
}

func TestStartShiftBeforeAnchorUsesYesterday(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "hotel", false)

	now := time.Date(2025, 3, 11, 5, 30, 0, 0, time.UTC)
	rep, err := f.svc.StartShift(context.Background(), u, now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	wantStart := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	if !rep.StartedAt.Equal(wantStart) {
		t.Fatalf("window start %v, want %v", rep.StartedAt, wantStart)
	}
}

func TestFinalizeRequiresOccurrences(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "india", false)
	ctx := context.Background()

	rep, err := f.svc.StartShift(ctx, u, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.Finalize(ctx, u, rep.ID); !errors.Is(err, ErrNoOccurrences) {
		t.Fatalf("expected ErrNoOccurrences, got %v", err)
	}
	f.addOccurrence(t, rep.ID)
	done, err := f.svc.Finalize(ctx, u, rep.ID)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !done.Finalized {
		t.Fatalf("report not finalized")
	}
	if _, err := f.svc.Finalize(ctx, u, rep.ID); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
}

func TestFinalizeOwnershipRules(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "juliett", false)
	other := f.user(t, "kilo", false)
	staff := f.user(t, "lima", true)
	ctx := context.Background()

	rep, err := f.svc.StartShift(ctx, owner, time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	f.addOccurrence(t, rep.ID)

	if _, err := f.svc.Finalize(ctx, other, rep.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for other agent, got %v", err)
	}
	// Staff may close any report.
	if _, err := f.svc.Finalize(ctx, staff, rep.ID); err != nil {
		t.Fatalf("staff finalize: %v", err)
	}
	// Reopen is owner-only, staff included.
	if _, err := f.svc.Reopen(ctx, staff, rep.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner reopening as staff, got %v", err)
	}
	reopened, err := f.svc.Reopen(ctx, owner, rep.ID)
	if err != nil {
		t.Fatalf("owner reopen: %v", err)
	}
	if reopened.Finalized {
		t.Fatalf("report still finalized")
	}
}

func TestEnsureMutable(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "mike", false)
	other := f.user(t, "november", false)
	ctx := context.Background()

	rep, err := f.svc.StartShift(ctx, owner, time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.EnsureMutable(ctx, other, rep.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := f.svc.EnsureMutable(ctx, owner, rep.ID); err != nil {
		t.Fatalf("owner mutable: %v", err)
	}
	f.addOccurrence(t, rep.ID)
	if _, err := f.svc.Finalize(ctx, owner, rep.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := f.svc.EnsureMutable(ctx, owner, rep.ID); !errors.Is(err, ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if _, err := f.svc.EnsureMutable(ctx, owner, rep.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
