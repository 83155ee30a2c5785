package server

import (
	"encoding/json"
	"net/http"

	"github.com/omtlabs/timesheet-hub/internal/routing"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/services"
	"github.com/omtlabs/timesheet-hub/pkg/httperr"
)

// entryProbeRequest is the wire shape of an entry identity: canonical id
// when the caller has one, natural key otherwise.
type entryProbeRequest struct {
	UniqueID  string `json:"unique_id"`
	ID        int    `json:"id"`
	AuthorID  int64  `json:"author_id"`
	TaskDate  string `json:"task_date"`
	ParentID  int64  `json:"parent_id"`
	CheckDate bool   `json:"check_date"`
}

func (p entryProbeRequest) probe() services.EntryProbe {
	return services.EntryProbe{
		UniqueID:  p.UniqueID,
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		TaskDate:  p.TaskDate,
		ParentID:  p.ParentID,
		CheckDate: p.CheckDate,
	}
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case httperr.IsBadRequest(err):
		routing.WriteError(w, r, http.StatusBadRequest, "bad_request", err.Error())
	case httperr.IsNotFound(err):
		routing.WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
	case httperr.IsConflict(err):
		routing.WriteError(w, r, http.StatusConflict, "conflict", err.Error())
	default:
		routing.WriteError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}

func handleEntryStatus(w http.ResponseWriter, r *http.Request, svc *services.Service) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	site, _ := currentSite(r.Context())
	principal, _ := currentPrincipal(r.Context())

	var req struct {
		RowID   int64             `json:"row_id"`
		Probe   entryProbeRequest `json:"probe"`
		Status  string            `json:"status"`
		Panel   string            `json:"panel"`
		Comment string            `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	entry, err := svc.ApplyStatus(r.Context(), site.ID, site.ListID, req.RowID, req.Probe.probe(), services.StatusChange{
		NewStatus: types.Status(req.Status),
		Panel:     types.PanelType(req.Panel),
		Actor:     principal.ID,
		Comment:   req.Comment,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, entry)
}

func handleEntryPostpone(w http.ResponseWriter, r *http.Request, svc *services.Service) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	site, _ := currentSite(r.Context())
	principal, _ := currentPrincipal(r.Context())

	var req struct {
		RowID       int64             `json:"row_id"`
		Probe       entryProbeRequest `json:"probe"`
		NewDate     string            `json:"new_date"`
		NewMinutes  int               `json:"new_minutes"`
		Description string            `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	entry, err := svc.Postpone(r.Context(), site.ID, site.ListID, req.RowID, req.Probe.probe(), req.NewDate, req.NewMinutes, req.Description, principal.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, entry)
}

func handleEntrySplit(w http.ResponseWriter, r *http.Request, svc *services.Service) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	site, _ := currentSite(r.Context())
	principal, _ := currentPrincipal(r.Context())

	var req struct {
		RowID int64             `json:"row_id"`
		Probe entryProbeRequest `json:"probe"`
		Items []struct {
			Date    string `json:"date"`
			Minutes int    `json:"minutes"`
		} `json:"items"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	items := make([]services.SplitItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.SplitItem{TaskDate: it.Date, Minutes: it.Minutes})
	}

	created, err := svc.Split(r.Context(), site.ID, site.ListID, req.RowID, req.Probe.probe(), items, req.Description, principal.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"created": created})
}

func handleEntryDelete(w http.ResponseWriter, r *http.Request, svc *services.Service) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	site, _ := currentSite(r.Context())

	var req struct {
		RowID int64             `json:"row_id"`
		Probe entryProbeRequest `json:"probe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	if err := svc.Delete(r.Context(), site.ID, site.ListID, req.RowID, req.Probe.probe()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
