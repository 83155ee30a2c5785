package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
)

// StatusRecordPGStore keeps the append-only per-user day-level status
// history.
type StatusRecordPGStore struct {
	pool pgBeginner
}

func NewStatusRecordPGStore(pool pgBeginner) *StatusRecordPGStore {
	return &StatusRecordPGStore{pool: pool}
}

func (s *StatusRecordPGStore) Append(ctx context.Context, siteID string, userID int64, rec types.OMTStatusRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("status record id is required")
	}
	if rec.Status != types.StatusConfirmed && rec.Status != types.StatusApproved {
		return errors.New("status record status must be Confirmed or Approved")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := setSite(ctx, tx, siteID); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO timesheet.status_records (id, site_id, user_id, actor, status, comment, task_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, rec.ID, siteID, userID, rec.Actor, string(rec.Status), rec.Comment, rec.TaskDate, rec.Created.UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *StatusRecordPGStore) ListForUser(ctx context.Context, siteID string, userID int64) ([]types.OMTStatusRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := setSite(ctx, tx, siteID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT id, actor, status, comment, task_date, created_at
FROM timesheet.status_records
WHERE site_id = $1 AND user_id = $2
ORDER BY created_at DESC, id DESC
`, siteID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.OMTStatusRecord
	for rows.Next() {
		var rec types.OMTStatusRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.Actor, &status, &rec.Comment, &rec.TaskDate, &rec.Created); err != nil {
			return nil, err
		}
		rec.Status = types.Status(status)
		rec.Created = rec.Created.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *StatusRecordPGStore) HasApprovedForDate(ctx context.Context, siteID string, userID int64, taskDate string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := setSite(ctx, tx, siteID); err != nil {
		return false, err
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM timesheet.status_records
  WHERE site_id = $1 AND user_id = $2 AND task_date = $3 AND status = 'Approved'
)
`, siteID, userID, taskDate).Scan(&exists); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return exists, nil
}
