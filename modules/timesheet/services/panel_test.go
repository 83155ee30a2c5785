package services

import (
	"context"
	"errors"
	"testing"

	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/ports"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/infrastructure/persistence"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

func TestActionsFor_Staff(t *testing.T) {
	el := ActionsFor(types.StatusDraft, types.PanelConfirmed, false)
	if !el.CanSubmit || el.CanConfirm || el.CanApprove {
		t.Fatalf("eligibility: %+v", el)
	}
	if !el.CanQuestion || !el.CanReject {
		t.Fatalf("side actions: %+v", el)
	}
	if el.Active != "" {
		t.Fatalf("active=%q", el.Active)
	}

	el = ActionsFor(types.StatusForApproval, types.PanelConfirmed, false)
	if el.Active != ActionSubmit {
		t.Fatalf("active=%q", el.Active)
	}
}

func TestActionsFor_LeadLowerPanels(t *testing.T) {
	for _, panel := range []types.PanelType{types.PanelDraft, types.PanelSuggestion, types.PanelConfirmed} {
		el := ActionsFor(types.StatusSuggestion, panel, true)
		if !el.CanConfirm || el.CanApprove || el.CanSubmit {
			t.Fatalf("panel %q: %+v", panel, el)
		}
		// Once submitted, the confirm button yields to approve.
		el = ActionsFor(types.StatusForApproval, panel, true)
		if el.CanConfirm || !el.CanApprove {
			t.Fatalf("panel %q for-approval: %+v", panel, el)
		}
		if el.Active != "" {
			t.Fatalf("panel %q active=%q", panel, el.Active)
		}
	}
}

func TestActionsFor_LeadUpperPanels(t *testing.T) {
	for _, panel := range []types.PanelType{types.PanelForApproval, types.PanelApproved} {
		el := ActionsFor(types.StatusApproved, panel, true)
		if !el.CanConfirm || !el.CanApprove {
			t.Fatalf("panel %q: %+v", panel, el)
		}
		if el.Active != ActionApprove {
			t.Fatalf("panel %q active=%q", panel, el.Active)
		}
	}
}

func TestActiveAction(t *testing.T) {
	cases := []struct {
		status types.Status
		isLead bool
		want   Action
	}{
		{types.StatusConfirmed, true, ActionConfirm},
		{types.StatusApproved, false, ActionApprove},
		{types.StatusForApproval, false, ActionSubmit},
		{types.StatusForApproval, true, ""},
		{types.StatusQuestion, true, ActionQuestion},
		{types.StatusRejected, false, ActionReject},
		{types.StatusDraft, false, ""},
	}
	for _, tc := range cases {
		if got := activeAction(tc.status, tc.isLead); got != tc.want {
			t.Fatalf("activeAction(%q, %v)=%q want=%q", tc.status, tc.isLead, got, tc.want)
		}
	}
}

func seedPanelFixtures(store *persistence.MemoryStore) {
	e1 := baseEntry() // author 42, 15/06, 60 min
	e2 := baseEntry()
	e2.ID = 2
	e2.UniqueID = "u-2"
	e2.TaskDate = "15/06/2026 00:00:00"
	e2.SetMinutes(30)
	e3 := baseEntry()
	e3.ID = 3
	e3.UniqueID = "u-3"
	e3.AuthorID = 99
	other := baseEntry()
	other.UniqueID = "u-4"
	other.TaskDate = "16/06/2026"

	store.SeedRow(types.TimesheetRow{
		SiteID: "site-a", ListID: "list-a", RowID: 10,
		TaskListID: "tasks-a", TaskID: 5, Category: "Development",
		Entries: []types.TimeEntry{e1, e2, e3, other},
	})

	e5 := baseEntry()
	e5.UniqueID = "u-5"
	e5.SetMinutes(45)
	store.SeedRow(types.TimesheetRow{
		SiteID: "site-b", ListID: "list-b", RowID: 20,
		TaskListID: "tasks-b", TaskID: 9, Category: "Support",
		Entries: []types.TimeEntry{e5},
	})
}

func panelRefs() []SiteRef {
	return []SiteRef{
		{SiteID: "site-a", ListID: "list-a"},
		{SiteID: "site-b", ListID: "list-b"},
	}
}

func TestGatherDay_FiltersDateAndUser(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)

	view, err := svc.GatherDay(context.Background(), panelRefs(), "15/06/2026", 42, 7, "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	// e1, e2 (trailing time) and the site-b entry; author 99 and the 16/06
	// entry are filtered out.
	if len(view.Entries) != 3 {
		t.Fatalf("entries: %+v", view.Entries)
	}
	if view.TotalMinutes != 60+30+45 {
		t.Fatalf("total=%d", view.TotalMinutes)
	}
	if view.TaskCount != 2 {
		t.Fatalf("task count=%d", view.TaskCount)
	}
	if !view.IsLead {
		t.Fatal("viewer 7 leads user 42")
	}
	if len(view.Errors) != 0 {
		t.Fatalf("errors: %+v", view.Errors)
	}
	for _, pe := range view.Entries {
		if pe.Entry.AuthorID != 42 {
			t.Fatalf("leaked author: %+v", pe.Entry)
		}
	}
}

func TestGatherDay_SelfViewIsNotLead(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)

	view, err := svc.GatherDay(context.Background(), panelRefs(), "15/06/2026", 42, 42, types.PanelConfirmed)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if view.IsLead {
		t.Fatal("self view must not be lead")
	}
	for _, pe := range view.Entries {
		if !pe.Eligibility.CanSubmit {
			t.Fatalf("staff eligibility: %+v", pe.Eligibility)
		}
	}
}

func TestGatherDay_InvalidInput(t *testing.T) {
	svc := newTestService(persistence.NewMemoryStore())
	if _, err := svc.GatherDay(context.Background(), panelRefs(), "June 15", 42, 7, ""); !httperr.IsBadRequest(err) {
		t.Fatalf("bad date err=%v", err)
	}
	if _, err := svc.GatherDay(context.Background(), panelRefs(), "15/06/2026", 42, 7, "Weekly"); !httperr.IsBadRequest(err) {
		t.Fatalf("bad panel err=%v", err)
	}
}

// failingSiteRows fails ListRows for one site and delegates the rest.
type failingSiteRows struct {
	ports.RowStore
	failSite string
}

func (f *failingSiteRows) ListRows(ctx context.Context, siteID string, listID string) ([]types.TimesheetRow, error) {
	if siteID == f.failSite {
		return nil, errors.New("site down")
	}
	return f.RowStore.ListRows(ctx, siteID, listID)
}

func TestGatherDay_AllSettled(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)
	svc.rows = &failingSiteRows{RowStore: store, failSite: "site-b"}

	view, err := svc.GatherDay(context.Background(), panelRefs(), "15/06/2026", 42, 7, "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(view.Entries) != 2 {
		t.Fatalf("entries: %+v", view.Entries)
	}
	if len(view.Errors) != 1 || view.Errors[0].SiteID != "site-b" {
		t.Fatalf("errors: %+v", view.Errors)
	}
}

// captureNotifier records the snapshots it is handed.
type captureNotifier struct {
	snaps []types.DaySnapshot
	err   error
}

func (c *captureNotifier) SendDaySnapshot(_ context.Context, snap types.DaySnapshot) error {
	c.snaps = append(c.snaps, snap)
	return c.err
}

func TestConfirmWithStaff_AppendsRecordAndNotifies(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)
	notifier := &captureNotifier{}
	svc.notifier = notifier

	view, err := svc.ConfirmWithStaff(context.Background(), "site-a", panelRefs(), "15/06/2026", 42, 7, "looks right")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if view.TotalMinutes != 135 {
		t.Fatalf("total=%d", view.TotalMinutes)
	}

	recs, err := store.ListForUser(context.Background(), "site-a", 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records: %+v", recs)
	}
	rec := recs[0]
	if rec.Status != types.StatusConfirmed || rec.Actor != 7 || rec.TaskDate != "15/06/2026" || rec.Comment != "looks right" {
		t.Fatalf("record: %+v", rec)
	}
	if rec.ID == "" {
		t.Fatal("record id must be set")
	}

	if len(notifier.snaps) != 1 {
		t.Fatalf("snaps: %+v", notifier.snaps)
	}
	snap := notifier.snaps[0]
	if snap.Kind != "confirmation" || snap.Date != "15/06/2026" || snap.ViewedUser != 42 || snap.Actor != 7 {
		t.Fatalf("snapshot: %+v", snap)
	}
	if len(snap.Entries) != 3 || snap.TotalMinutes != 135 {
		t.Fatalf("snapshot body: %+v", snap)
	}
}

func TestConfirmWithStaff_NotifyFailureIsSwallowed(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)
	svc.notifier = &captureNotifier{err: errors.New("webhook down")}

	if _, err := svc.ConfirmWithStaff(context.Background(), "site-a", panelRefs(), "15/06/2026", 42, 7, ""); err != nil {
		t.Fatalf("err=%v", err)
	}
	recs, err := store.ListForUser(context.Background(), "site-a", 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records: %+v", recs)
	}
}

func TestSendToManagement_RequiresComment(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)

	if _, err := svc.SendToManagement(context.Background(), "site-a", panelRefs(), "15/06/2026", 42, 7, "  "); !httperr.IsBadRequest(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestSendToManagement_IdempotencyGuard(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)
	notifier := &captureNotifier{}
	svc.notifier = notifier

	if _, err := svc.SendToManagement(context.Background(), "site-a", panelRefs(), "15/06/2026", 42, 7, "week closed"); err != nil {
		t.Fatalf("first send err=%v", err)
	}
	_, err := svc.SendToManagement(context.Background(), "site-a", panelRefs(), "15/06/2026", 42, 7, "again")
	if !httperr.IsConflict(err) {
		t.Fatalf("second send err=%v", err)
	}

	recs, err := store.ListForUser(context.Background(), "site-a", 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("records: %+v", recs)
	}
	if recs[0].Status != types.StatusApproved {
		t.Fatalf("record: %+v", recs[0])
	}
	if len(notifier.snaps) != 1 || notifier.snaps[0].Kind != "management" {
		t.Fatalf("snaps: %+v", notifier.snaps)
	}

	// Another date goes through untouched by the guard.
	if _, err := svc.SendToManagement(context.Background(), "site-a", panelRefs(), "16/06/2026", 42, 7, "next day"); err != nil {
		t.Fatalf("other date err=%v", err)
	}
}

func TestSendToManagement_GuardIgnoresGatherOrder(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)

	if _, err := svc.SendToManagement(context.Background(), "site-a", panelRefs(), "15/06/2026", 42, 7, "week closed"); err != nil {
		t.Fatalf("first send err=%v", err)
	}

	// A repeat from a different request site with the sources reversed
	// must still hit the guard.
	reversed := []SiteRef{
		{SiteID: "site-b", ListID: "list-b"},
		{SiteID: "site-a", ListID: "list-a"},
	}
	if _, err := svc.SendToManagement(context.Background(), "site-b", reversed, "15/06/2026", 42, 7, "again"); !httperr.IsConflict(err) {
		t.Fatalf("reordered send err=%v", err)
	}

	recsA, err := store.ListForUser(context.Background(), "site-a", 42)
	if err != nil {
		t.Fatal(err)
	}
	recsB, err := store.ListForUser(context.Background(), "site-b", 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(recsA) != 1 || len(recsB) != 0 {
		t.Fatalf("records: site-a=%+v site-b=%+v", recsA, recsB)
	}
}

func TestPanelAction_BlankAuditSite(t *testing.T) {
	store := persistence.NewMemoryStore()
	seedPanelFixtures(store)
	svc := newTestService(store)

	if _, err := svc.ConfirmWithStaff(context.Background(), " ", panelRefs(), "15/06/2026", 42, 7, ""); !httperr.IsBadRequest(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestPanelAction_NoSites(t *testing.T) {
	svc := newTestService(persistence.NewMemoryStore())
	if _, err := svc.ConfirmWithStaff(context.Background(), "site-a", nil, "15/06/2026", 42, 7, ""); !httperr.IsBadRequest(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestStatusTimeline(t *testing.T) {
	store := persistence.NewMemoryStore()
	svc := newTestService(store)

	if err := store.Append(context.Background(), "site-a", 42, types.OMTStatusRecord{ID: "r-1", Status: types.StatusConfirmed, TaskDate: "15/06/2026"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(context.Background(), "site-a", 42, types.OMTStatusRecord{ID: "r-2", Status: types.StatusApproved, TaskDate: "15/06/2026"}); err != nil {
		t.Fatal(err)
	}

	recs, err := svc.StatusTimeline(context.Background(), "site-a", 42)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(recs) != 2 || recs[0].ID != "r-2" {
		t.Fatalf("records: %+v", recs)
	}
}
