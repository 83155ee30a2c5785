package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

// saveAttempts bounds the load-mutate-save retry cycle on version conflicts.
const saveAttempts = 3

// Service is the timesheet entry lifecycle engine: it locates entries inside
// parent rows, applies status transitions, postpones and splits entries, and
// drives the confirmation panel actions.
type Service struct {
	rows     ports.RowStore
	records  ports.StatusRecordStore
	notifier ports.Notifier
	ledger   ports.TotalTimeLedger
	log      *slog.Logger

	now         func() time.Time
	newUniqueID func() string
}

func NewService(rows ports.RowStore, records ports.StatusRecordStore, notifier ports.Notifier, ledger ports.TotalTimeLedger, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		rows:        rows,
		records:     records,
		notifier:    notifier,
		ledger:      ledger,
		log:         log,
		now:         time.Now,
		newUniqueID: newUniqueID,
	}
}

func newUniqueID() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// mutateRow runs one load-mutate-save cycle under optimistic concurrency,
// retrying on version conflict. The mutation returns the task delta to
// enqueue with the save; a zero delta enqueues nothing.
func (s *Service) mutateRow(ctx context.Context, siteID string, listID string, rowID int64, mutate func(row *types.TimesheetRow) (ports.TaskDelta, error)) (types.TimesheetRow, error) {
	var lastErr error
	for range saveAttempts {
		row, err := s.rows.LoadRow(ctx, siteID, listID, rowID)
		if err != nil {
			if errors.Is(err, ports.ErrRowNotFound) {
				return types.TimesheetRow{}, httperr.NewNotFound("timesheet row not found")
			}
			return types.TimesheetRow{}, err
		}

		delta, err := mutate(&row)
		if err != nil {
			return types.TimesheetRow{}, err
		}

		if err := s.rows.SaveRow(ctx, row, delta); err != nil {
			if errors.Is(err, ports.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return types.TimesheetRow{}, fmt.Errorf("save row %d: %w", rowID, err)
		}

		if delta.Minutes != 0 {
			s.kickDrain()
		}
		return row, nil
	}
	return types.TimesheetRow{}, httperr.NewConflict(fmt.Sprintf("timesheet row %d kept changing: %v", rowID, lastErr))
}

// kickDrain pushes pending total-time deltas toward the task aggregate.
// The entry-level write already committed, so failures here are logged and
// swallowed; the background drain job picks the delta up eventually.
func (s *Service) kickDrain() {
	if s.ledger == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.ledger.Drain(ctx, 100); err != nil {
			s.log.Warn("total-time drain failed, deltas stay pending", slog.Any("error", err))
		}
	}()
}
