package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := ApplyMigrations(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, users UsersStore, username string, staff bool) *User {
	t.Helper()
	u := &User{
		Username:     username,
		FullName:     "Agente " + username,
		PasswordHash: "x",
		IsStaff:      staff,
		Active:       true,
	}
	if _, err := users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestUsersLifecycle(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	ctx := context.Background()

	u := &User{Username: "silva", FullName: "Sgt Silva", PasswordHash: "h", Active: false}
	if _, err := users.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := users.CreateUser(ctx, &User{Username: "silva", PasswordHash: "h"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate username, got %v", err)
	}

	pending, err := users.ListPendingUsers(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending user, got %d err=%v", len(pending), err)
	}

	activated, err := users.ActivateUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated.Active {
		t.Fatalf("expected activated account")
	}
	if _, err := users.ActivateUser(ctx, u.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double activation, got %v", err)
	}

	got, err := users.GetUserByUsername(ctx, "silva")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("lookup by username failed: %+v err=%v", got, err)
	}
}

func TestReportNumberingIsSequentialPerYear(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	reports := NewReportsStore(db)
	ctx := context.Background()

	a := createTestUser(t, users, "alpha", false)
	b := createTestUser(t, users, "bravo", false)

	start := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)

	r1, err := reports.CreateReport(ctx, a.ID, start, end)
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	r2, err := reports.CreateReport(ctx, b.ID, start, end)
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if r1.Nr != 1 || r2.Nr != 2 {
		t.Fatalf("expected sequence 1,2 got %d,%d", r1.Nr, r2.Nr)
	}
	if r1.Year != 2025 || r2.Year != 2025 {
		t.Fatalf("unexpected years %d,%d", r1.Year, r2.Year)
	}
	if r1.Number() != "001/2025" {
		t.Fatalf("unexpected display number %q", r1.Number())
	}
}

func TestSingleOpenReportPerOwner(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	reports := NewReportsStore(db)
	ctx := context.Background()

	u := createTestUser(t, users, "charlie", false)
	start := time.Date(2025, 5, 2, 7, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Second)

	first, err := reports.CreateReport(ctx, u.ID, start, end)
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	if _, err := reports.CreateReport(ctx, u.ID, start, end); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for second open report, got %v", err)
	}

	if err := reports.Finalize(ctx, first.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	// A finalized report no longer blocks a new shift.
	if _, err := reports.CreateReport(ctx, u.ID, start.AddDate(0, 0, 1), end.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("report after finalize: %v", err)
	}
}

func TestFinalizeAndReopenGuards(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	reports := NewReportsStore(db)
	ctx := context.Background()

	u := createTestUser(t, users, "delta", false)
	start := time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)
	rep, err := reports.CreateReport(ctx, u.ID, start, start.Add(24*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := reports.Reopen(ctx, rep.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict reopening an open report, got %v", err)
	}
	if err := reports.Finalize(ctx, rep.ID); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := reports.Finalize(ctx, rep.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double finalize, got %v", err)
	}
	if err := reports.Reopen(ctx, rep.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reports.GetReport(ctx, rep.ID)
	if err != nil || got.Finalized {
		t.Fatalf("expected reopened report, got %+v err=%v", got, err)
	}
	if !got.EndedAt.Equal(rep.EndedAt) {
		t.Fatalf("reopen must preserve the end boundary: %v != %v", got.EndedAt, rep.EndedAt)
	}
}

func TestMaterialTypeSeedsPresent(t *testing.T) {
	db := newTestDB(t)
	catalogs := NewCatalogStore(db)
	items, err := catalogs.ListMaterialTypes(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := map[string]bool{"Pistola": false, "Maconha": false, "Dinheiro (Espécie)": false}
	for _, item := range items {
		if _, ok := want[item.Name]; ok {
			want[item.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Fatalf("seed %q missing", name)
		}
	}
}

func TestCatalogDeleteGuard(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	reports := NewReportsStore(db)
	catalogs := NewCatalogStore(db)
	occurrences := NewOccurrencesStore(db)
	ctx := context.Background()

	u := createTestUser(t, users, "echo", false)
	start := time.Date(2025, 7, 1, 7, 0, 0, 0, time.UTC)
	rep, err := reports.CreateReport(ctx, u.ID, start, start.Add(24*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	nature := &Nature{Name: "ROUBO A PEDESTRE"}
	if _, err := catalogs.CreateNature(ctx, nature); err != nil {
		t.Fatalf("nature: %v", err)
	}
	unit := &Unit{Acronym: "1BPM", Name: "1BPM - Capital"}
	if _, err := catalogs.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("unit: %v", err)
	}
	occ := &Occurrence{
		ReportID:      rep.ID,
		NatureID:      nature.ID,
		UnitID:        unit.ID,
		OccurredToken: "011030JUL25",
		OccurredAt:    time.Date(2025, 7, 1, 10, 30, 0, 0, time.UTC),
		Summary:       "roubo registrado",
	}
	if _, err := occurrences.CreateOccurrence(ctx, occ, nil, nil); err != nil {
		t.Fatalf("occurrence: %v", err)
	}

	if err := catalogs.DeleteNature(ctx, nature.ID); !errors.Is(err, ErrReferenced) {
		t.Fatalf("expected ErrReferenced deleting a used nature, got %v", err)
	}
	if err := catalogs.DeleteUnit(ctx, unit.ID); !errors.Is(err, ErrReferenced) {
		t.Fatalf("expected ErrReferenced deleting a used unit, got %v", err)
	}
	if err := occurrences.DeleteOccurrence(ctx, occ.ID); err != nil {
		t.Fatalf("delete occurrence: %v", err)
	}
	if err := catalogs.DeleteNature(ctx, nature.ID); err != nil {
		t.Fatalf("delete unused nature: %v", err)
	}
}

func TestOccurrenceDetailsRoundtripAndTotals(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	reports := NewReportsStore(db)
	catalogs := NewCatalogStore(db)
	occurrences := NewOccurrencesStore(db)
	ctx := context.Background()

	u := createTestUser(t, users, "foxtrot", false)
	start := time.Date(2025, 8, 10, 7, 0, 0, 0, time.UTC)
	rep, err := reports.CreateReport(ctx, u.ID, start, start.Add(24*time.Hour-time.Second))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	nature := &Nature{Name: "TRÁFICO DE DROGAS"}
	if _, err := catalogs.CreateNature(ctx, nature); err != nil {
		t.Fatalf("nature: %v", err)
	}
	unit := &Unit{Acronym: "2BPM", Name: "2BPM - Interior"}
	if _, err := catalogs.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("unit: %v", err)
	}
	materials, err := catalogs.ListMaterialTypes(ctx)
	if err != nil || len(materials) == 0 {
		t.Fatalf("material seeds missing: %v", err)
	}
	age := 31
	occ := &Occurrence{
		ReportID:      rep.ID,
		NatureID:      nature.ID,
		UnitID:        unit.ID,
		OccurredToken: "101200AGO25",
		OccurredAt:    time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC),
		Narrative:     "abordagem com apreensão",
	}
	parties := []InvolvedParty{
		{Name: "Fulano de Tal", Role: RoleArrested, Age: &age},
		{Name: "Beltrano", Role: RoleWitness},
	}
	seizures := []SeizedItem{
		{MaterialTypeID: materials[0].ID, Quantity: 2, UnitOfMeasure: "un"},
	}
	if _, err := occurrences.CreateOccurrence(ctx, occ, parties, seizures); err != nil {
		t.Fatalf("create occurrence: %v", err)
	}

	got, err := occurrences.GetOccurrence(ctx, occ.ID)
	if err != nil || got == nil {
		t.Fatalf("get occurrence: %v", err)
	}
	if len(got.Parties) != 2 || len(got.Seizures) != 1 {
		t.Fatalf("details missing: %d parties, %d seizures", len(got.Parties), len(got.Seizures))
	}
	if got.Parties[0].Age == nil || *got.Parties[0].Age != 31 {
		t.Fatalf("age not persisted: %+v", got.Parties[0])
	}
	if got.UnitAcronym != "2BPM" {
		t.Fatalf("unit acronym not joined: %q", got.UnitAcronym)
	}

	totals, err := occurrences.SeizureTotals(ctx, start, start.Add(24*time.Hour))
	if err != nil || len(totals) != 1 {
		t.Fatalf("seizure totals: %v (%d)", err, len(totals))
	}
	if totals[0].Total != 2 {
		t.Fatalf("expected total 2, got %v", totals[0].Total)
	}

	counts, err := occurrences.PartyRoleTotals(ctx, start, start.Add(24*time.Hour), RoleArrested)
	if err != nil || len(counts) != 1 || counts[0].Count != 1 {
		t.Fatalf("arrest count wrong: %v %+v", err, counts)
	}
	byUnit, err := occurrences.PartyRoleByUnit(ctx, start, start.Add(24*time.Hour), RoleArrested)
	if err != nil || len(byUnit) != 1 || byUnit[0].UnitAcronym != "2BPM" {
		t.Fatalf("by-unit count wrong: %v %+v", err, byUnit)
	}

	// Update replaces parties and seizures wholesale.
	occ.Narrative = "texto revisado"
	if err := occurrences.UpdateOccurrence(ctx, occ, []InvolvedParty{{Name: "Sicrano", Role: RoleVictim}}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = occurrences.GetOccurrence(ctx, occ.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.Parties) != 1 || got.Parties[0].Role != RoleVictim || len(got.Seizures) != 0 {
		t.Fatalf("update did not replace details: %+v", got)
	}
}

func TestNatureSearchMatchesTags(t *testing.T) {
	db := newTestDB(t)
	catalogs := NewCatalogStore(db)
	ctx := context.Background()

	if _, err := catalogs.CreateNature(ctx, &Nature{Name: "FURTO DE VEÍCULO", SearchTags: "carro moto"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	hits, err := catalogs.SearchNatures(ctx, "moto", 10)
	if err != nil || len(hits) != 1 {
		t.Fatalf("expected tag hit, got %d err=%v", len(hits), err)
	}
	hits, err = catalogs.SearchNatures(ctx, "homicídio", 10)
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected no hits, got %d err=%v", len(hits), err)
	}
}
