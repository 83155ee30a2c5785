package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

// Action is one confirmation-panel button.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionApprove  Action = "approve"
	ActionSubmit   Action = "submit"
	ActionQuestion Action = "question"
	ActionReject   Action = "reject"
)

// Eligibility is the set of buttons one row offers, plus the single button
// currently pressed. Acting on the active button means revert.
type Eligibility struct {
	CanConfirm  bool   `json:"can_confirm"`
	CanApprove  bool   `json:"can_approve"`
	CanSubmit   bool   `json:"can_submit"`
	CanQuestion bool   `json:"can_question"`
	CanReject   bool   `json:"can_reject"`
	Active      Action `json:"active,omitempty"`
}

// ActionsFor computes button eligibility as a pure function of the entry's
// status, the panel under view, and whether the viewer leads the viewed
// user.
func ActionsFor(status types.Status, panel types.PanelType, isLead bool) Eligibility {
	el := Eligibility{
		CanQuestion: true,
		CanReject:   true,
		Active:      activeAction(status, isLead),
	}

	if !isLead {
		el.CanSubmit = true
		return el
	}

	switch panel {
	case types.PanelConfirmed, types.PanelDraft, types.PanelSuggestion:
		if status == types.StatusForApproval {
			el.CanApprove = true
		} else {
			el.CanConfirm = true
		}
	case types.PanelForApproval, types.PanelApproved:
		el.CanConfirm = true
		el.CanApprove = true
	}
	return el
}

// activeAction maps the entry's current status to the one pressed button.
func activeAction(status types.Status, isLead bool) Action {
	switch status {
	case types.StatusConfirmed:
		return ActionConfirm
	case types.StatusApproved:
		return ActionApprove
	case types.StatusForApproval:
		if isLead {
			return ""
		}
		return ActionSubmit
	case types.StatusQuestion:
		return ActionQuestion
	case types.StatusRejected:
		return ActionReject
	}
	return ""
}

// SiteRef names one parent-row source to gather from.
type SiteRef struct {
	SiteID string `json:"site_id"`
	ListID string `json:"list_id"`
}

// SiteError is one source's inline failure; it never aborts the batch.
type SiteError struct {
	SiteID string `json:"site_id"`
	Error  string `json:"error"`
}

// PanelEntry is one entry of the viewed day plus everything the panel needs
// to act on it.
type PanelEntry struct {
	SiteID      string          `json:"site_id"`
	ListID      string          `json:"list_id"`
	RowID       int64           `json:"row_id"`
	TaskListID  string          `json:"task_list_id"`
	TaskID      int64           `json:"task_id"`
	Category    string          `json:"category"`
	Entry       types.TimeEntry `json:"entry"`
	Eligibility Eligibility     `json:"eligibility"`
}

type DayView struct {
	Date         string       `json:"date"`
	ViewedUser   int64        `json:"viewed_user"`
	IsLead       bool         `json:"is_lead"`
	Entries      []PanelEntry `json:"entries"`
	TotalMinutes int          `json:"total_minutes"`
	TaskCount    int          `json:"task_count"`
	Errors       []SiteError  `json:"errors,omitempty"`
}

type siteResult struct {
	ref  SiteRef
	rows []types.TimesheetRow
	err  error
}

// GatherDay collects every entry across the supplied sources whose trimmed
// TaskDate equals date, restricted to viewedUser when one is selected.
// Sources are fetched concurrently and joined all-settled: one source's
// failure is reported inline, not propagated.
func (s *Service) GatherDay(ctx context.Context, sites []SiteRef, date string, viewedUser int64, actingUser int64, panel types.PanelType) (DayView, error) {
	if !ValidTaskDate(date) {
		return DayView{}, httperr.NewBadRequest(fmt.Sprintf("invalid date %q", date))
	}
	if panel == "" {
		panel = types.PanelConfirmed
	}
	if !panel.Known() {
		return DayView{}, httperr.NewBadRequest(fmt.Sprintf("unknown panel type %q", panel))
	}

	results := make([]siteResult, len(sites))
	var wg sync.WaitGroup
	for i, ref := range sites {
		wg.Add(1)
		go func(i int, ref SiteRef) {
			defer wg.Done()
			rows, err := s.rows.ListRows(ctx, ref.SiteID, ref.ListID)
			results[i] = siteResult{ref: ref, rows: rows, err: err}
		}(i, ref)
	}
	wg.Wait()

	view := DayView{
		Date:       NormalizeTaskDate(date),
		ViewedUser: viewedUser,
		IsLead:     viewedUser != 0 && viewedUser != actingUser,
	}

	tasks := map[string]struct{}{}
	for _, res := range results {
		if res.err != nil {
			view.Errors = append(view.Errors, SiteError{SiteID: res.ref.SiteID, Error: res.err.Error()})
			continue
		}
		for _, row := range res.rows {
			for _, e := range row.Entries {
				if !SameTaskDate(e.TaskDate, date) {
					continue
				}
				if viewedUser != 0 && e.AuthorID != viewedUser {
					continue
				}
				view.Entries = append(view.Entries, PanelEntry{
					SiteID:      row.SiteID,
					ListID:      row.ListID,
					RowID:       row.RowID,
					TaskListID:  row.TaskListID,
					TaskID:      row.TaskID,
					Category:    row.Category,
					Entry:       e,
					Eligibility: ActionsFor(e.Status, panel, view.IsLead),
				})
				view.TotalMinutes += e.TaskTimeInMin
				tasks[fmt.Sprintf("%s/%d", row.TaskListID, row.TaskID)] = struct{}{}
			}
		}
	}
	view.TaskCount = len(tasks)
	return view, nil
}

// ConfirmWithStaff records that the lead confirmed the viewed user's date
// and fires the day-snapshot notification. The record lands in auditSite's
// audit log regardless of gather order.
func (s *Service) ConfirmWithStaff(ctx context.Context, auditSite string, sites []SiteRef, date string, viewedUser int64, actor int64, comment string) (DayView, error) {
	return s.panelAction(ctx, auditSite, sites, date, viewedUser, actor, comment, types.StatusConfirmed)
}

// SendToManagement records the Approved audit entry for the date and fires
// the management notification. A required comment and a per-date
// idempotency guard at the audit-log level apply.
func (s *Service) SendToManagement(ctx context.Context, auditSite string, sites []SiteRef, date string, viewedUser int64, actor int64, comment string) (DayView, error) {
	if strings.TrimSpace(comment) == "" {
		return DayView{}, httperr.NewBadRequest("a comment is required to send to management")
	}
	return s.panelAction(ctx, auditSite, sites, date, viewedUser, actor, comment, types.StatusApproved)
}

func (s *Service) panelAction(ctx context.Context, auditSite string, sites []SiteRef, date string, viewedUser int64, actor int64, comment string, status types.Status) (DayView, error) {
	if len(sites) == 0 {
		return DayView{}, httperr.NewBadRequest("no sites to act on")
	}
	if strings.TrimSpace(auditSite) == "" {
		return DayView{}, httperr.NewBadRequest("no site to record against")
	}
	view, err := s.GatherDay(ctx, sites, date, viewedUser, actor, types.PanelConfirmed)
	if err != nil {
		return DayView{}, err
	}

	kind := "confirmation"
	if status == types.StatusApproved {
		kind = "management"
		// Earlier sends may have been recorded under a different request
		// site, so the guard checks every gathered site's audit log.
		for _, siteID := range guardSiteIDs(auditSite, sites) {
			already, err := s.records.HasApprovedForDate(ctx, siteID, viewedUser, view.Date)
			if err != nil {
				return DayView{}, err
			}
			if already {
				return DayView{}, httperr.NewConflict("date already sent to management")
			}
		}
	}

	rec := types.OMTStatusRecord{
		ID:       s.newUniqueID(),
		Actor:    actor,
		Status:   status,
		Comment:  strings.TrimSpace(comment),
		Created:  s.now(),
		TaskDate: view.Date,
	}
	if err := s.records.Append(ctx, auditSite, viewedUser, rec); err != nil {
		return DayView{}, err
	}

	s.notifyDay(ctx, kind, view, actor, comment)
	return view, nil
}

// guardSiteIDs lists the distinct sites whose audit logs gate the
// management action: the recording site first, then each gathered site.
func guardSiteIDs(auditSite string, sites []SiteRef) []string {
	ids := []string{auditSite}
	seen := map[string]struct{}{auditSite: {}}
	for _, ref := range sites {
		if _, ok := seen[ref.SiteID]; ok {
			continue
		}
		seen[ref.SiteID] = struct{}{}
		ids = append(ids, ref.SiteID)
	}
	return ids
}

// notifyDay posts the snapshot to the webhook. Delivery is best effort: the
// audit record is already written, so failures are logged and swallowed.
func (s *Service) notifyDay(ctx context.Context, kind string, view DayView, actor int64, comment string) {
	if s.notifier == nil {
		return
	}
	entries := make([]types.TimeEntry, 0, len(view.Entries))
	for _, pe := range view.Entries {
		entries = append(entries, pe.Entry)
	}
	snap := types.DaySnapshot{
		Kind:         kind,
		Date:         view.Date,
		ViewedUser:   view.ViewedUser,
		Actor:        actor,
		Comment:      strings.TrimSpace(comment),
		TotalMinutes: view.TotalMinutes,
		TaskCount:    view.TaskCount,
		Entries:      entries,
	}
	if err := s.notifier.SendDaySnapshot(ctx, snap); err != nil {
		s.log.Warn("day snapshot notification failed",
			slog.String("kind", kind),
			slog.String("date", view.Date),
			slog.Any("error", err))
	}
}

// StatusTimeline returns the viewed user's day-level status history.
func (s *Service) StatusTimeline(ctx context.Context, siteID string, userID int64) ([]types.OMTStatusRecord, error) {
	return s.records.ListForUser(ctx, siteID, userID)
}
