package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type MaterialTotal struct {
	MaterialName  string  `json:"materialName"`
	UnitOfMeasure string  `json:"unitOfMeasure"`
	Total         float64 `json:"total"`
}

type RoleCount struct {
	Role  string `json:"role"`
	Count int    `json:"count"`
}

type UnitRoleCount struct {
	UnitAcronym string `json:"unitAcronym"`
	Role        string `json:"role"`
	Count       int    `json:"count"`
}

type OccurrencesStore interface {
	CreateOccurrence(ctx context.Context, occ *Occurrence, parties []InvolvedParty, seizures []SeizedItem) (int64, error)
	UpdateOccurrence(ctx context.Context, occ *Occurrence, parties []InvolvedParty, seizures []SeizedItem) error
	DeleteOccurrence(ctx context.Context, id int64) error
	GetOccurrence(ctx context.Context, id int64) (*Occurrence, error)
	ListByReport(ctx context.Context, reportID int64) ([]Occurrence, error)

	AddPhoto(ctx context.Context, photo *OccurrencePhoto) (int64, error)
	GetPhoto(ctx context.Context, id int64) (*OccurrencePhoto, error)
	DeletePhoto(ctx context.Context, id int64) error

	SeizureTotals(ctx context.Context, from, to time.Time) ([]MaterialTotal, error)
	PartyRoleTotals(ctx context.Context, from, to time.Time, role string) ([]RoleCount, error)
	PartyRoleByUnit(ctx context.Context, from, to time.Time, role string) ([]UnitRoleCount, error)
}

type occurrencesStore struct {
	db *DB
}

func NewOccurrencesStore(db *DB) OccurrencesStore {
	return &occurrencesStore{db: db}
}

const occurrenceColumns = `o.id, o.report_id, o.nature_id, n.name, o.unit_id, un.acronym, un.name,
	o.municipality_id, COALESCE(m.name, ''), o.instrument_id, COALESCE(i.name, ''),
	o.occurred_token, o.occurred_at, o.action, o.summary, o.narrative, o.created_at, o.updated_at`

const occurrenceJoins = `
	FROM occurrences o
	JOIN natures n ON n.id = o.nature_id
	JOIN units un ON un.id = o.unit_id
	LEFT JOIN municipalities m ON m.id = o.municipality_id
	LEFT JOIN instruments i ON i.id = o.instrument_id`

func (s *occurrencesStore) CreateOccurrence(ctx context.Context, occ *Occurrence, parties []InvolvedParty, seizures []SeizedItem) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	if strings.TrimSpace(occ.Action) == "" {
		occ.Action = ActionConsummated
	}
	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO occurrences(report_id, nature_id, unit_id, municipality_id, instrument_id, occurred_token, occurred_at, action, summary, narrative, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?) RETURNING id`,
		occ.ReportID, occ.NatureID, occ.UnitID, nullableID(occ.MunicipalityID), nullableID(occ.InstrumentID),
		strings.TrimSpace(occ.OccurredToken), occ.OccurredAt.UTC(), occ.Action,
		strings.TrimSpace(occ.Summary), strings.TrimSpace(occ.Narrative), now, now).Scan(&id); err != nil {
		tx.Rollback()
		return 0, err
	}
	occ.ID = id
	if err := insertDetails(ctx, tx, id, parties, seizures); err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateOccurrence rewrites the row and replaces its parties and seizures in
// one transaction. Photos are managed through their own endpoints and
// survive the update.
func (s *occurrencesStore) UpdateOccurrence(ctx context.Context, occ *Occurrence, parties []InvolvedParty, seizures []SeizedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE occurrences SET nature_id=?, unit_id=?, municipality_id=?, instrument_id=?, occurred_token=?, occurred_at=?, action=?, summary=?, narrative=?, updated_at=?
		WHERE id=?`,
		occ.NatureID, occ.UnitID, nullableID(occ.MunicipalityID), nullableID(occ.InstrumentID),
		strings.TrimSpace(occ.OccurredToken), occ.OccurredAt.UTC(), occ.Action,
		strings.TrimSpace(occ.Summary), strings.TrimSpace(occ.Narrative), now, occ.ID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return sql.ErrNoRows
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM involved_parties WHERE occurrence_id=?`, occ.ID); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM seized_items WHERE occurrence_id=?`, occ.ID); err != nil {
		tx.Rollback()
		return err
	}
	if err := insertDetails(ctx, tx, occ.ID, parties, seizures); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertDetails(ctx context.Context, tx *Tx, occurrenceID int64, parties []InvolvedParty, seizures []SeizedItem) error {
	for _, p := range parties {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO involved_parties(occurrence_id, name, role, age) VALUES(?,?,?,?)`,
			occurrenceID, strings.TrimSpace(p.Name), strings.ToLower(strings.TrimSpace(p.Role)), nullableAge(p.Age)); err != nil {
			return err
		}
	}
	for _, item := range seizures {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := strings.TrimSpace(item.UnitOfMeasure)
		if unit == "" {
			unit = "un"
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO seized_items(occurrence_id, material_type_id, quantity, unit_of_measure) VALUES(?,?,?,?)`,
			occurrenceID, item.MaterialTypeID, qty, unit); err != nil {
			return err
		}
	}
	return nil
}

func (s *occurrencesStore) DeleteOccurrence(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM occurrences WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *occurrencesStore) GetOccurrence(ctx context.Context, id int64) (*Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+occurrenceColumns+occurrenceJoins+` WHERE o.id=?`, id)
	occ, err := scanOccurrence(row)
	if err != nil || occ == nil {
		return occ, err
	}
	if err := s.attachDetails(ctx, occ); err != nil {
		return nil, err
	}
	return occ, nil
}

func (s *occurrencesStore) ListByReport(ctx context.Context, reportID int64) ([]Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+occurrenceColumns+occurrenceJoins+`
		WHERE o.report_id=? ORDER BY o.occurred_at, o.id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var occs []Occurrence
	for rows.Next() {
		occ, err := scanOccurrenceRows(rows)
		if err != nil {
			return nil, err
		}
		occs = append(occs, *occ)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range occs {
		if err := s.attachDetails(ctx, &occs[i]); err != nil {
			return nil, err
		}
	}
	return occs, nil
}

func (s *occurrencesStore) attachDetails(ctx context.Context, occ *Occurrence) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurrence_id, name, role, age FROM involved_parties WHERE occurrence_id=? ORDER BY id`, occ.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var p InvolvedParty
		var age sql.NullInt64
		if err := rows.Scan(&p.ID, &p.OccurrenceID, &p.Name, &p.Role, &age); err != nil {
			rows.Close()
			return err
		}
		if age.Valid {
			v := int(age.Int64)
			p.Age = &v
		}
		occ.Parties = append(occ.Parties, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT si.id, si.occurrence_id, si.material_type_id, mt.name, si.quantity, si.unit_of_measure
		FROM seized_items si JOIN material_types mt ON mt.id = si.material_type_id
		WHERE si.occurrence_id=? ORDER BY si.id`, occ.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var item SeizedItem
		if err := rows.Scan(&item.ID, &item.OccurrenceID, &item.MaterialTypeID, &item.MaterialName, &item.Quantity, &item.UnitOfMeasure); err != nil {
			rows.Close()
			return err
		}
		occ.Seizures = append(occ.Seizures, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, occurrence_id, file_path, caption, content_type, size_bytes, created_at
		FROM occurrence_photos WHERE occurrence_id=? ORDER BY id`, occ.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ph OccurrencePhoto
		if err := rows.Scan(&ph.ID, &ph.OccurrenceID, &ph.FilePath, &ph.Caption, &ph.ContentType, &ph.SizeBytes, &ph.CreatedAt); err != nil {
			return err
		}
		occ.Photos = append(occ.Photos, ph)
	}
	return rows.Err()
}

func (s *occurrencesStore) AddPhoto(ctx context.Context, photo *OccurrencePhoto) (int64, error) {
	now := time.Now().UTC()
	var id int64
	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO occurrence_photos(occurrence_id, file_path, caption, content_type, size_bytes, created_at)
		VALUES(?,?,?,?,?,?) RETURNING id`,
		photo.OccurrenceID, photo.FilePath, strings.TrimSpace(photo.Caption), photo.ContentType, photo.SizeBytes, now).Scan(&id); err != nil {
		return 0, err
	}
	photo.ID = id
	photo.CreatedAt = now
	return id, nil
}

func (s *occurrencesStore) GetPhoto(ctx context.Context, id int64) (*OccurrencePhoto, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, occurrence_id, file_path, caption, content_type, size_bytes, created_at
		FROM occurrence_photos WHERE id=?`, id)
	var ph OccurrencePhoto
	if err := row.Scan(&ph.ID, &ph.OccurrenceID, &ph.FilePath, &ph.Caption, &ph.ContentType, &ph.SizeBytes, &ph.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ph, nil
}

func (s *occurrencesStore) DeletePhoto(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM occurrence_photos WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *occurrencesStore) SeizureTotals(ctx context.Context, from, to time.Time) ([]MaterialTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mt.name, si.unit_of_measure, SUM(si.quantity)
		FROM seized_items si
		JOIN material_types mt ON mt.id = si.material_type_id
		JOIN occurrences o ON o.id = si.occurrence_id
		WHERE o.occurred_at >= ? AND o.occurred_at <= ?
		GROUP BY mt.name, si.unit_of_measure
		ORDER BY mt.name`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []MaterialTotal
	for rows.Next() {
		var t MaterialTotal
		if err := rows.Scan(&t.MaterialName, &t.UnitOfMeasure, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *occurrencesStore) PartyRoleTotals(ctx context.Context, from, to time.Time, role string) ([]RoleCount, error) {
	query := `
		SELECT ip.role, COUNT(*)
		FROM involved_parties ip
		JOIN occurrences o ON o.id = ip.occurrence_id
		WHERE o.occurred_at >= ? AND o.occurred_at <= ?`
	args := []any{from.UTC(), to.UTC()}
	if role != "" {
		query += ` AND ip.role=?`
		args = append(args, role)
	}
	query += ` GROUP BY ip.role ORDER BY ip.role`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []RoleCount
	for rows.Next() {
		var c RoleCount
		if err := rows.Scan(&c.Role, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *occurrencesStore) PartyRoleByUnit(ctx context.Context, from, to time.Time, role string) ([]UnitRoleCount, error) {
	query := `
		SELECT un.acronym, ip.role, COUNT(*)
		FROM involved_parties ip
		JOIN occurrences o ON o.id = ip.occurrence_id
		JOIN units un ON un.id = o.unit_id
		WHERE o.occurred_at >= ? AND o.occurred_at <= ?`
	args := []any{from.UTC(), to.UTC()}
	if role != "" {
		query += ` AND ip.role=?`
		args = append(args, role)
	}
	query += ` GROUP BY un.acronym, ip.role ORDER BY un.acronym, ip.role`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var counts []UnitRoleCount
	for rows.Next() {
		var c UnitRoleCount
		if err := rows.Scan(&c.UnitAcronym, &c.Role, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanOccurrence(row rowScanner) (*Occurrence, error) {
	occ, err := scanOccurrenceRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return occ, nil
}

func scanOccurrenceRows(row rowScanner) (*Occurrence, error) {
	var occ Occurrence
	var muniID, instID sql.NullInt64
	if err := row.Scan(&occ.ID, &occ.ReportID, &occ.NatureID, &occ.NatureName,
		&occ.UnitID, &occ.UnitAcronym, &occ.UnitName,
		&muniID, &occ.Municipality, &instID, &occ.Instrument,
		&occ.OccurredToken, &occ.OccurredAt, &occ.Action, &occ.Summary, &occ.Narrative,
		&occ.CreatedAt, &occ.UpdatedAt); err != nil {
		return nil, err
	}
	if muniID.Valid {
		v := muniID.Int64
		occ.MunicipalityID = &v
	}
	if instID.Valid {
		v := instID.Int64
		occ.InstrumentID = &v
	}
	return &occ, nil
}

func nullableAge(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
