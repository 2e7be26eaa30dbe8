package store

import (
	"context"
	"database/sql"
	"strings"
)

// CatalogStore owns the lookup tables occurrences point at. Deletes are
// blocked with ErrReferenced while any occurrence still references the row.
type CatalogStore interface {
	ListNatures(ctx context.Context) ([]Nature, error)
	SearchNatures(ctx context.Context, q string, limit int) ([]Nature, error)
	CreateNature(ctx context.Context, n *Nature) (int64, error)
	UpdateNature(ctx context.Context, n *Nature) error
	DeleteNature(ctx context.Context, id int64) error

	ListMunicipalities(ctx context.Context) ([]Municipality, error)
	CreateMunicipality(ctx context.Context, m *Municipality) (int64, error)
	UpdateMunicipality(ctx context.Context, m *Municipality) error
	DeleteMunicipality(ctx context.Context, id int64) error

	ListUnits(ctx context.Context) ([]Unit, error)
	CreateUnit(ctx context.Context, u *Unit) (int64, error)
	UpdateUnit(ctx context.Context, u *Unit) error
	DeleteUnit(ctx context.Context, id int64) error

	ListMaterialTypes(ctx context.Context) ([]MaterialType, error)
	CreateMaterialType(ctx context.Context, m *MaterialType) (int64, error)
	DeleteMaterialType(ctx context.Context, id int64) error

	ListInstruments(ctx context.Context) ([]Instrument, error)
	CreateInstrument(ctx context.Context, i *Instrument) (int64, error)
	DeleteInstrument(ctx context.Context, id int64) error
}

type catalogStore struct {
	db *DB
}

func NewCatalogStore(db *DB) CatalogStore {
	return &catalogStore{db: db}
}

func (s *catalogStore) ListNatures(ctx context.Context) ([]Nature, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, impact, search_tags FROM natures ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNatures(rows)
}

func (s *catalogStore) SearchNatures(ctx context.Context, q string, limit int) ([]Nature, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	term := "%" + strings.TrimSpace(q) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, impact, search_tags FROM natures
		WHERE name LIKE ? OR search_tags LIKE ?
		ORDER BY name LIMIT ?`, term, term, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNatures(rows)
}

func scanNatures(rows *sql.Rows) ([]Nature, error) {
	var natures []Nature
	for rows.Next() {
		var n Nature
		if err := rows.Scan(&n.ID, &n.Name, &n.Impact, &n.SearchTags); err != nil {
			return nil, err
		}
		natures = append(natures, n)
	}
	return natures, rows.Err()
}

func (s *catalogStore) CreateNature(ctx context.Context, n *Nature) (int64, error) {
	if n.Impact == "" {
		n.Impact = ImpactNegative
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `INSERT INTO natures(name, impact, search_tags) VALUES(?,?,?) RETURNING id`,
		strings.TrimSpace(n.Name), n.Impact, strings.TrimSpace(n.SearchTags)).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	n.ID = id
	return id, nil
}

func (s *catalogStore) UpdateNature(ctx context.Context, n *Nature) error {
	res, err := s.db.ExecContext(ctx, `UPDATE natures SET name=?, impact=?, search_tags=? WHERE id=?`,
		strings.TrimSpace(n.Name), n.Impact, strings.TrimSpace(n.SearchTags), n.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *catalogStore) DeleteNature(ctx context.Context, id int64) error {
	return s.deleteGuarded(ctx, `natures`, `SELECT COUNT(*) FROM occurrences WHERE nature_id=?`, id)
}

func (s *catalogStore) ListMunicipalities(ctx context.Context) ([]Municipality, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM municipalities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Municipality
	for rows.Next() {
		var m Municipality
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *catalogStore) CreateMunicipality(ctx context.Context, m *Municipality) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `INSERT INTO municipalities(name) VALUES(?) RETURNING id`, strings.TrimSpace(m.Name)).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *catalogStore) UpdateMunicipality(ctx context.Context, m *Municipality) error {
	res, err := s.db.ExecContext(ctx, `UPDATE municipalities SET name=? WHERE id=?`, strings.TrimSpace(m.Name), m.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *catalogStore) DeleteMunicipality(ctx context.Context, id int64) error {
	return s.deleteGuarded(ctx, `municipalities`, `SELECT COUNT(*) FROM occurrences WHERE municipality_id=?`, id)
}

func (s *catalogStore) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, acronym, name, municipality_id FROM units ORDER BY acronym`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []Unit
	for rows.Next() {
		var u Unit
		var muni sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Acronym, &u.Name, &muni); err != nil {
			return nil, err
		}
		if muni.Valid {
			v := muni.Int64
			u.MunicipalityID = &v
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (s *catalogStore) CreateUnit(ctx context.Context, u *Unit) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `INSERT INTO units(acronym, name, municipality_id) VALUES(?,?,?) RETURNING id`,
		strings.TrimSpace(u.Acronym), strings.TrimSpace(u.Name), nullableID(u.MunicipalityID)).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	u.ID = id
	return id, nil
}

func (s *catalogStore) UpdateUnit(ctx context.Context, u *Unit) error {
	res, err := s.db.ExecContext(ctx, `UPDATE units SET acronym=?, name=?, municipality_id=? WHERE id=?`,
		strings.TrimSpace(u.Acronym), strings.TrimSpace(u.Name), nullableID(u.MunicipalityID), u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *catalogStore) DeleteUnit(ctx context.Context, id int64) error {
	return s.deleteGuarded(ctx, `units`, `SELECT COUNT(*) FROM occurrences WHERE unit_id=?`, id)
}

func (s *catalogStore) ListMaterialTypes(ctx context.Context) ([]MaterialType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM material_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MaterialType
	for rows.Next() {
		var m MaterialType
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *catalogStore) CreateMaterialType(ctx context.Context, m *MaterialType) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `INSERT INTO material_types(name) VALUES(?) RETURNING id`, strings.TrimSpace(m.Name)).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *catalogStore) DeleteMaterialType(ctx context.Context, id int64) error {
	return s.deleteGuarded(ctx, `material_types`, `SELECT COUNT(*) FROM seized_items WHERE material_type_id=?`, id)
}

func (s *catalogStore) ListInstruments(ctx context.Context) ([]Instrument, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM instruments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Instrument
	for rows.Next() {
		var i Instrument
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *catalogStore) CreateInstrument(ctx context.Context, i *Instrument) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `INSERT INTO instruments(name) VALUES(?) RETURNING id`, strings.TrimSpace(i.Name)).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	i.ID = id
	return id, nil
}

func (s *catalogStore) DeleteInstrument(ctx context.Context, id int64) error {
	return s.deleteGuarded(ctx, `instruments`, `SELECT COUNT(*) FROM occurrences WHERE instrument_id=?`, id)
}

// deleteGuarded counts references before deleting so the caller gets a clean
// ErrReferenced instead of a driver-specific FK error.
func (s *catalogStore) deleteGuarded(ctx context.Context, table, countQuery string, id int64) error {
	var refs int
	if err := s.db.QueryRowContext(ctx, countQuery, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrReferenced
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=?`, id)
	if err != nil {
		if isFKViolation(err) {
			return ErrReferenced
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullableID(v *int64) any {
	if v == nil || *v == 0 {
		return nil
	}
	return *v
}
