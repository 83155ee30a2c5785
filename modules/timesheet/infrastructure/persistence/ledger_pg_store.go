package persistence

import "context"

// LedgerPGStore applies pending task-time deltas to the task aggregate.
// Applied outbox rows are deleted in the same transaction, so a crashed
// drain re-applies nothing and a failed one leaves its rows pending.
type LedgerPGStore struct {
	pool pgBeginner
}

func NewLedgerPGStore(pool pgBeginner) *LedgerPGStore {
	return &LedgerPGStore{pool: pool}
}

func (s *LedgerPGStore) Drain(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT id, site_id, task_list_id, task_id, delta_min
FROM timesheet.task_time_outbox
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED
`, limit)
	if err != nil {
		return 0, err
	}

	type pending struct {
		id         int64
		siteID     string
		taskListID string
		taskID     int64
		deltaMin   int
	}
	var batch []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.siteID, &p.taskListID, &p.taskID, &p.deltaMin); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(batch))
	for _, p := range batch {
		if _, err := tx.Exec(ctx, `
INSERT INTO timesheet.tasks (site_id, task_list_id, task_id, total_time_min)
VALUES ($1, $2, $3, $4)
ON CONFLICT (site_id, task_list_id, task_id)
DO UPDATE SET total_time_min = timesheet.tasks.total_time_min + EXCLUDED.total_time_min
`, p.siteID, p.taskListID, p.taskID, p.deltaMin); err != nil {
			return 0, err
		}
		ids = append(ids, p.id)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM timesheet.task_time_outbox WHERE id = ANY($1)`, ids); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(batch), nil
}
