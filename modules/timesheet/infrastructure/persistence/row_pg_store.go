package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RowPGStore keeps parent timesheet rows in Postgres. The entry sub-table
// is one jsonb document column; saves are whole-document rewrites gated by
// the row version.
type RowPGStore struct {
	pool pgBeginner
}

func NewRowPGStore(pool pgBeginner) *RowPGStore {
	return &RowPGStore{pool: pool}
}

func setSite(ctx context.Context, tx pgx.Tx, siteID string) error {
	_, err := tx.Exec(ctx, `SELECT set_config('app.current_site', $1, true);`, siteID)
	return err
}

func (s *RowPGStore) LoadRow(ctx context.Context, siteID string, listID string, rowID int64) (types.TimesheetRow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.TimesheetRow{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := setSite(ctx, tx, siteID); err != nil {
		return types.TimesheetRow{}, err
	}

	row, err := scanRow(tx.QueryRow(ctx, `
SELECT site_id, list_id, row_id, COALESCE(row_kind, ''), version,
       task_list_id, task_id, category, category_id, entries
FROM timesheet.rows
WHERE site_id = $1 AND list_id = $2 AND row_id = $3
`, siteID, listID, rowID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.TimesheetRow{}, ports.ErrRowNotFound
		}
		return types.TimesheetRow{}, err
	}

	// A row that does not echo its kind falls back to the list default.
	if row.RowKind == "" {
		if err := tx.QueryRow(ctx, `
SELECT COALESCE(default_kind, '')
FROM timesheet.list_kinds
WHERE site_id = $1 AND list_id = $2
`, siteID, listID).Scan(&row.RowKind); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return types.TimesheetRow{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.TimesheetRow{}, err
	}
	return row, nil
}

func (s *RowPGStore) SaveRow(ctx context.Context, row types.TimesheetRow, delta ports.TaskDelta) error {
	doc, err := types.EncodeEntries(row.Entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := setSite(ctx, tx, row.SiteID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
UPDATE timesheet.rows
SET entries = $1::jsonb,
    row_kind = $2,
    version = version + 1,
    updated_at = now()
WHERE site_id = $3 AND list_id = $4 AND row_id = $5 AND version = $6
`, doc, row.RowKind, row.SiteID, row.ListID, row.RowID, row.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM timesheet.rows
  WHERE site_id = $1 AND list_id = $2 AND row_id = $3
)
`, row.SiteID, row.ListID, row.RowID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ports.ErrRowNotFound
		}
		return ports.ErrVersionConflict
	}

	if delta.Minutes != 0 {
		if _, err := tx.Exec(ctx, `
INSERT INTO timesheet.task_time_outbox (site_id, task_list_id, task_id, delta_min, created_at)
VALUES ($1, $2, $3, $4, now())
`, row.SiteID, delta.TaskListID, delta.TaskID, delta.Minutes); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *RowPGStore) ListRows(ctx context.Context, siteID string, listID string) ([]types.TimesheetRow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := setSite(ctx, tx, siteID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT site_id, list_id, row_id, COALESCE(row_kind, ''), version,
       task_list_id, task_id, category, category_id, entries
FROM timesheet.rows
WHERE site_id = $1 AND list_id = $2
ORDER BY row_id
`, siteID, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.TimesheetRow
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func scanRow(row pgx.Row) (types.TimesheetRow, error) {
	var r types.TimesheetRow
	var doc []byte
	if err := row.Scan(&r.SiteID, &r.ListID, &r.RowID, &r.RowKind, &r.Version,
		&r.TaskListID, &r.TaskID, &r.Category, &r.CategoryID, &doc); err != nil {
		return types.TimesheetRow{}, err
	}
	r.Entries = types.DecodeEntries(doc)
	return r, nil
}
