package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

// StatusChange is one requested transition. Requesting the entry's current
// status means revert: fall back to the nearest distinct prior status.
type StatusChange struct {
	NewStatus types.Status
	Panel     types.PanelType
	Actor     int64
	Comment   string
}

// fallbackByPanel maps (panel type, current status) to the revert target
// used when an entry carries no audit history. Totality over all panels and
// statuses is checked at init.
var fallbackByPanel = map[types.PanelType]map[types.Status]types.Status{
	types.PanelDraft: {
		types.StatusDraft:       types.StatusDraft,
		types.StatusSuggestion:  types.StatusSuggestion,
		types.StatusConfirmed:   types.StatusSuggestion,
		types.StatusForApproval: types.StatusSuggestion,
		types.StatusApproved:    types.StatusForApproval,
		types.StatusQuestion:    types.StatusSuggestion,
		types.StatusRejected:    types.StatusSuggestion,
	},
	types.PanelSuggestion: {
		types.StatusDraft:       types.StatusDraft,
		types.StatusSuggestion:  types.StatusSuggestion,
		types.StatusConfirmed:   types.StatusSuggestion,
		types.StatusForApproval: types.StatusSuggestion,
		types.StatusApproved:    types.StatusForApproval,
		types.StatusQuestion:    types.StatusSuggestion,
		types.StatusRejected:    types.StatusSuggestion,
	},
	types.PanelConfirmed: {
		types.StatusDraft:       types.StatusDraft,
		types.StatusSuggestion:  types.StatusSuggestion,
		types.StatusConfirmed:   types.StatusSuggestion,
		types.StatusForApproval: types.StatusConfirmed,
		types.StatusApproved:    types.StatusForApproval,
		types.StatusQuestion:    types.StatusSuggestion,
		types.StatusRejected:    types.StatusSuggestion,
	},
	types.PanelForApproval: {
		types.StatusDraft:       types.StatusDraft,
		types.StatusSuggestion:  types.StatusSuggestion,
		types.StatusConfirmed:   types.StatusSuggestion,
		types.StatusForApproval: types.StatusConfirmed,
		types.StatusApproved:    types.StatusForApproval,
		types.StatusQuestion:    types.StatusForApproval,
		types.StatusRejected:    types.StatusForApproval,
	},
	types.PanelApproved: {
		types.StatusDraft:       types.StatusDraft,
		types.StatusSuggestion:  types.StatusSuggestion,
		types.StatusConfirmed:   types.StatusSuggestion,
		types.StatusForApproval: types.StatusConfirmed,
		types.StatusApproved:    types.StatusForApproval,
		types.StatusQuestion:    types.StatusApproved,
		types.StatusRejected:    types.StatusApproved,
	},
}

func init() {
	for _, p := range types.AllPanelTypes {
		row, ok := fallbackByPanel[p]
		if !ok {
			panic(fmt.Sprintf("status fallback table: missing panel %q", p))
		}
		for _, st := range types.AllStatuses {
			if _, ok := row[st]; !ok {
				panic(fmt.Sprintf("status fallback table: missing %q under panel %q", st, p))
			}
		}
	}
}

// previousStatusFromHistory scans the audit trail most-recent-first,
// skipping runs equal to the current status, and returns the nearest
// distinct prior status. Empty when no such record exists.
func previousStatusFromHistory(e *types.TimeEntry) types.Status {
	for i := len(e.TimeHistory) - 1; i >= 0; i-- {
		if e.TimeHistory[i].Status != e.Status && e.TimeHistory[i].Status.Known() {
			return e.TimeHistory[i].Status
		}
	}
	return ""
}

// ApplyStatus validates and applies one status transition on the entry the
// probe identifies, appends the audit record, and persists the row. There
// is no transition validity matrix beyond revert-vs-forward; which
// transitions a role may invoke is gated at the panel and authz layers.
func (s *Service) ApplyStatus(ctx context.Context, siteID string, listID string, rowID int64, probe EntryProbe, change StatusChange) (types.TimeEntry, error) {
	if !change.NewStatus.Known() {
		return types.TimeEntry{}, httperr.NewBadRequest(fmt.Sprintf("unknown status %q", change.NewStatus))
	}
	if change.Panel != "" && !change.Panel.Known() {
		return types.TimeEntry{}, httperr.NewBadRequest(fmt.Sprintf("unknown panel type %q", change.Panel))
	}

	var updated types.TimeEntry
	_, err := s.mutateRow(ctx, siteID, listID, rowID, func(row *types.TimesheetRow) (ports.TaskDelta, error) {
		_, entry, err := FindEntry(row.Entries, probe)
		if err != nil {
			return ports.TaskDelta{}, err
		}

		if change.NewStatus == entry.Status {
			s.revertStatus(entry, change)
		} else if err := s.forwardStatus(entry, change); err != nil {
			return ports.TaskDelta{}, err
		}

		updated = *entry
		return ports.TaskDelta{}, nil
	})
	if err != nil {
		return types.TimeEntry{}, err
	}
	return updated, nil
}

// revertStatus moves the entry back to its nearest distinct prior status,
// computed from the audit trail when present and from the static fallback
// table otherwise. The audit record is appended even when the target equals
// the current status.
func (s *Service) revertStatus(e *types.TimeEntry, change StatusChange) {
	target := previousStatusFromHistory(e)
	if target == "" {
		panel := change.Panel
		if panel == "" {
			panel = types.PanelConfirmed
		}
		target = fallbackByPanel[panel][e.Status]
	}
	s.appendHistory(e, change.Actor)
	e.Status = target
}

func (s *Service) forwardStatus(e *types.TimeEntry, change StatusChange) error {
	if change.NewStatus.RequiresComment() {
		comment := strings.TrimSpace(change.Comment)
		if comment == "" {
			return httperr.NewBadRequest(fmt.Sprintf("a comment is required to set status %q", change.NewStatus))
		}
		e.Comments = append(e.Comments, types.Comment{
			ID:      e.NextCommentID(),
			Text:    comment,
			Author:  change.Actor,
			Created: s.now(),
		})
	}
	s.appendHistory(e, change.Actor)
	e.Status = change.NewStatus
	return nil
}

// appendHistory snapshots the entry's state before a mutation.
func (s *Service) appendHistory(e *types.TimeEntry, actor int64) {
	e.TimeHistory = append(e.TimeHistory, types.TimeHistoryRecord{
		ID:      e.NextHistoryID(),
		Status:  e.Status,
		Minutes: e.TaskTimeInMin,
		Actor:   actor,
		Created: s.now(),
	})
}
