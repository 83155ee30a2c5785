package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/omtlabs/timesheet-hub/internal/routing"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/domain/types"
	"github.com/omtlabs/timesheet-hub/modules/timesheet/services"
)

// panelSources turns the site registry into the set of parent-row sources
// the orchestrator gathers from, in stable site order.
func panelSources(sites map[string]Site) []services.SiteRef {
	refs := make([]services.SiteRef, 0, len(sites))
	for _, s := range sites {
		refs = append(refs, services.SiteRef{SiteID: s.ID, ListID: s.ListID})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].SiteID < refs[j].SiteID })
	return refs
}

func handlePanel(w http.ResponseWriter, r *http.Request, svc *services.Service, sites map[string]Site) {
	if r.Method != http.MethodGet {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	principal, _ := currentPrincipal(r.Context())

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		routing.WriteError(w, r, http.StatusBadRequest, "missing_date", "date is required")
		return
	}

	viewedUser := principal.ID
	if raw := strings.TrimSpace(r.URL.Query().Get("user")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			routing.WriteError(w, r, http.StatusBadRequest, "invalid_user", "invalid user")
			return
		}
		viewedUser = n
	}

	panel := types.PanelType(strings.TrimSpace(r.URL.Query().Get("panel")))

	view, err := svc.GatherDay(r.Context(), panelSources(sites), date, viewedUser, principal.ID, panel)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, view)
}

type panelActionRequest struct {
	Date       string `json:"date"`
	ViewedUser int64  `json:"viewed_user"`
	Comment    string `json:"comment"`
}

func handlePanelConfirm(w http.ResponseWriter, r *http.Request, svc *services.Service, sites map[string]Site) {
	handlePanelAction(w, r, svc, sites, false)
}

func handlePanelManagement(w http.ResponseWriter, r *http.Request, svc *services.Service, sites map[string]Site) {
	handlePanelAction(w, r, svc, sites, true)
}

func handlePanelAction(w http.ResponseWriter, r *http.Request, svc *services.Service, sites map[string]Site, management bool) {
	if r.Method != http.MethodPost {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	site, _ := currentSite(r.Context())
	principal, _ := currentPrincipal(r.Context())

	var req panelActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		routing.WriteError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	if req.ViewedUser == 0 {
		req.ViewedUser = principal.ID
	}

	var (
		view services.DayView
		err  error
	)
	if management {
		view, err = svc.SendToManagement(r.Context(), site.ID, panelSources(sites), req.Date, req.ViewedUser, principal.ID, req.Comment)
	} else {
		view, err = svc.ConfirmWithStaff(r.Context(), site.ID, panelSources(sites), req.Date, req.ViewedUser, principal.ID, req.Comment)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	routing.WriteJSON(w, http.StatusOK, view)
}

func handleStatusRecords(w http.ResponseWriter, r *http.Request, svc *services.Service) {
	if r.Method != http.MethodGet {
		routing.WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	site, _ := currentSite(r.Context())
	principal, _ := currentPrincipal(r.Context())

	userID := principal.ID
	if raw := strings.TrimSpace(r.URL.Query().Get("user")); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			routing.WriteError(w, r, http.StatusBadRequest, "invalid_user", "invalid user")
			return
		}
		userID = n
	}

	records, err := svc.StatusTimeline(r.Context(), site.ID, userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// Optional date filter narrows the timeline to one day.
	if date := strings.TrimSpace(r.URL.Query().Get("date")); date != "" {
		filtered := records[:0]
		for _, rec := range records {
			if services.SameTaskDate(rec.TaskDate, date) {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	routing.WriteJSON(w, http.StatusOK, map[string]any{
		"user":    userID,
		"records": records,
	})
}
