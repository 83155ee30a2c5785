package server

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/omtlabs/timesheet-hub/internal/routing"
	"github.com/omtlabs/timesheet-hub/pkg/authz"
)

func loadAuthorizer(cfg Config) (*authz.Authorizer, error) {
	modelPath := cfg.AuthzModelPath
	if modelPath == "" {
		p, err := defaultAuthzPath("config/access/model.conf")
		if err != nil {
			return nil, err
		}
		modelPath = p
	}

	policyPath := cfg.AuthzPolicyPath
	if policyPath == "" {
		p, err := defaultAuthzPath("config/access/policy.csv")
		if err != nil {
			return nil, err
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.NewAuthorizer(modelPath, policyPath, mode)
}

func defaultAuthzPath(rel string) (string, error) {
	path := rel
	for range 8 {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: authz config not found: " + rel)
}

type authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

// objectForPath maps an API route onto its policy object.
func objectForPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/timesheet/panel/confirm"):
		return authz.ObjectPanelConfirm
	case strings.HasPrefix(path, "/api/timesheet/panel/management"):
		return authz.ObjectPanelManage
	case strings.HasPrefix(path, "/api/timesheet/panel"):
		return authz.ObjectPanel
	case strings.HasPrefix(path, "/api/timesheet/entries"):
		return authz.ObjectEntries
	case strings.HasPrefix(path, "/api/timesheet/status-records"):
		return authz.ObjectStatusRecords
	}
	return ""
}

func actionForMethod(method string) string {
	if method == http.MethodGet || method == http.MethodHead {
		return authz.ActionRead
	}
	return authz.ActionWrite
}

func authzMiddleware(a authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		object := objectForPath(r.URL.Path)
		if object == "" {
			next.ServeHTTP(w, r)
			return
		}

		principal, ok := currentPrincipal(r.Context())
		if !ok {
			routing.WriteError(w, r, http.StatusInternalServerError, "principal_missing", "principal missing")
			return
		}
		site, ok := currentSite(r.Context())
		if !ok {
			routing.WriteError(w, r, http.StatusInternalServerError, "site_missing", "site missing")
			return
		}

		subject := authz.SubjectFromRole(principal.Role)
		domain := authz.DomainFromSite(site.ID)
		action := actionForMethod(r.Method)

		allowed, enforced, err := a.Authorize(subject, domain, object, action)
		if err != nil {
			routing.WriteError(w, r, http.StatusInternalServerError, "authz_error", "authorization failed")
			return
		}
		if !allowed {
			if enforced {
				routing.WriteError(w, r, http.StatusForbidden, "forbidden", "forbidden")
				return
			}
			log.Printf("authz shadow deny: sub=%s dom=%s obj=%s act=%s", subject, domain, object, action)
		}
		next.ServeHTTP(w, r)
	})
}
