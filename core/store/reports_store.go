package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ReportsStore interface {
	CreateReport(ctx context.Context, ownerID int64, start, end time.Time) (*ShiftReport, error)
	GetReport(ctx context.Context, id int64) (*ShiftReport, error)
	OpenReportForUser(ctx context.Context, userID int64) (*ShiftReport, error)
	ListFinalized(ctx context.Context, from, to time.Time) ([]ShiftReport, error)
	Finalize(ctx context.Context, id int64) error
	Reopen(ctx context.Context, id int64) error
	CountOccurrences(ctx context.Context, reportID int64) (int, error)
}

type reportsStore struct {
	db *DB
}

func NewReportsStore(db *DB) ReportsStore {
	return &reportsStore{db: db}
}

const reportColumns = `r.id, r.nr, r.year, r.owner_user_id, COALESCE(NULLIF(u.full_name, ''), u.username, ''), r.started_at, r.ended_at, r.finalized, r.created_at, r.updated_at`

// CreateReport claims the next per-year number and inserts the report in one
// transaction. The partial unique index on open reports turns a concurrent
// second start by the same owner into ErrConflict.
func (s *reportsStore) CreateReport(ctx context.Context, ownerID int64, start, end time.Time) (*ShiftReport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	year := start.Year()
	var seq int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO report_seq_counters(year, seq) VALUES(?, 1)
		ON CONFLICT (year) DO UPDATE SET seq = report_seq_counters.seq + 1
		RETURNING seq`, year).Scan(&seq); err != nil {
		tx.Rollback()
		return nil, err
	}
	now := time.Now().UTC()
	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO shift_reports(nr, year, owner_user_id, started_at, ended_at, finalized, created_at, updated_at)
		VALUES(?,?,?,?,?,0,?,?) RETURNING id`,
		seq, year, ownerID, start.UTC(), end.UTC(), now, now).Scan(&id); err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetReport(ctx, id)
}

func (s *reportsStore) GetReport(ctx context.Context, id int64) (*ShiftReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM shift_reports r LEFT JOIN users u ON u.id = r.owner_user_id
		WHERE r.id=?`, id)
	return scanReport(row)
}

// OpenReportForUser is the single open-report query: the most recent
// non-finalized report owned by the user, nil when there is none.
func (s *reportsStore) OpenReportForUser(ctx context.Context, userID int64) (*ShiftReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reportColumns+`
		FROM shift_reports r LEFT JOIN users u ON u.id = r.owner_user_id
		WHERE r.owner_user_id=? AND r.finalized=0
		ORDER BY r.started_at DESC, r.id DESC LIMIT 1`, userID)
	return scanReport(row)
}

func (s *reportsStore) ListFinalized(ctx context.Context, from, to time.Time) ([]ShiftReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM shift_reports r LEFT JOIN users u ON u.id = r.owner_user_id
		WHERE r.finalized=1 AND r.started_at >= ? AND r.started_at <= ?
		ORDER BY r.started_at DESC, r.id DESC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []ShiftReport
	for rows.Next() {
		r, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

func (s *reportsStore) Finalize(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE shift_reports SET finalized=1, updated_at=? WHERE id=? AND finalized=0`, now, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	return nil
}

// Reopen clears the finalized flag. The end timestamp is left untouched so
// the report keeps its original window.
func (s *reportsStore) Reopen(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE shift_reports SET finalized=0, updated_at=? WHERE id=? AND finalized=1`, now, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *reportsStore) CountOccurrences(ctx context.Context, reportID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM occurrences WHERE report_id=?`, reportID).Scan(&n)
	return n, err
}

func scanReport(row rowScanner) (*ShiftReport, error) {
	r, err := scanReportRows(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r, nil
}

func scanReportRows(row rowScanner) (*ShiftReport, error) {
	var r ShiftReport
	var finalized int
	if err := row.Scan(&r.ID, &r.Nr, &r.Year, &r.OwnerUserID, &r.OwnerName,
		&r.StartedAt, &r.EndedAt, &finalized, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Finalized = finalized == 1
	return &r, nil
}
