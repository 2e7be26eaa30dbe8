// Package reports owns the shift-report lifecycle: start, finalize, reopen,
// and the mutability gate the occurrence endpoints consult.
package reports

import (
	"context"
	"errors"
	"time"

	"rpi-diario/core/shift"
	"rpi-diario/core/store"
	"rpi-diario/core/utils"
)

var (
	ErrOpenReportExists = errors.New("user already owns an open report")
	ErrNoOccurrences    = errors.New("report has no occurrences")
	ErrNotOwner         = errors.New("not the report owner")
	ErrFinalized        = errors.New("report is finalized")
	ErrNotFinalized     = errors.New("report is not finalized")
	ErrNotFound         = errors.New("report not found")
)

type Service struct {
	reports     store.ReportsStore
	occurrences store.OccurrencesStore
	audits      store.AuditStore
	loc         *time.Location
	logger      *utils.Logger
}

func NewService(reports store.ReportsStore, occurrences store.OccurrencesStore, audits store.AuditStore, loc *time.Location, logger *utils.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{reports: reports, occurrences: occurrences, audits: audits, loc: loc, logger: logger}
}

// StartShift opens a new report for the user over the current duty window.
// One open report per owner: both the pre-check and the partial unique index
// behind CreateReport enforce it, the index closing the race.
func (s *Service) StartShift(ctx context.Context, user *store.User, now time.Time) (*store.ShiftReport, error) {
	open, err := s.reports.OpenReportForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrOpenReportExists
	}
	w := shift.Current(now.In(s.loc))
	rep, err := s.reports.CreateReport(ctx, user.ID, w.Start, w.End)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrOpenReportExists
		}
		return nil, err
	}
	s.audits.Log(ctx, user.Username, "report.start", rep.Number())
	return rep, nil
}

// Current returns the user's open report, nil when none exists.
func (s *Service) Current(ctx context.Context, userID int64) (*store.ShiftReport, error) {
	return s.reports.OpenReportForUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, id int64) (*store.ShiftReport, error) {
	rep, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, ErrNotFound
	}
	return rep, nil
}

func (s *Service) ListFinalized(ctx context.Context, from, to time.Time) ([]store.ShiftReport, error) {
	return s.reports.ListFinalized(ctx, from, to)
}

// Finalize closes the report. It requires at least one registered occurrence
// and keeps the precomputed 07:00 end boundary untouched.
func (s *Service) Finalize(ctx context.Context, user *store.User, id int64) (*store.ShiftReport, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.OwnerUserID != user.ID && !user.IsStaff {
		return nil, ErrNotOwner
	}
	if rep.Finalized {
		return nil, ErrFinalized
	}
	count, err := s.reports.CountOccurrences(ctx, id)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoOccurrences
	}
	if err := s.reports.Finalize(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrFinalized
		}
		return nil, err
	}
	s.audits.Log(ctx, user.Username, "report.finalize", rep.Number())
	return s.Get(ctx, id)
}

// Reopen clears the finalized flag so the owner can amend occurrences. The
// end timestamp is preserved.
func (s *Service) Reopen(ctx context.Context, user *store.User, id int64) (*store.ShiftReport, error) {
	rep, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.OwnerUserID != user.ID {
		return nil, ErrNotOwner
	}
	if !rep.Finalized {
		return nil, ErrNotFinalized
	}
	if err := s.reports.Reopen(ctx, id); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrOpenReportExists
		}
		return nil, err
	}
	s.audits.Log(ctx, user.Username, "report.reopen", rep.Number())
	return s.Get(ctx, id)
}

// EnsureMutable returns the report when the user may change its occurrences:
// the owner, on a non-finalized report.
func (s *Service) EnsureMutable(ctx context.Context, user *store.User, reportID int64) (*store.ShiftReport, error) {
	rep, err := s.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if rep.OwnerUserID != user.ID {
		return nil, ErrNotOwner
	}
	if rep.Finalized {
		return nil, ErrFinalized
	}
	return rep, nil
}
