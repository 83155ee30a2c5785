package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/omtlabs/timesheet-hub/internal/routing"
)

type siteCtxKey struct{}

func withSite(ctx context.Context, site Site) context.Context {
	return context.WithValue(ctx, siteCtxKey{}, site)
}

func currentSite(ctx context.Context) (Site, bool) {
	s, ok := ctx.Value(siteCtxKey{}).(Site)
	return s, ok
}

// siteMiddleware resolves the X-Site header against the registry. A single
// registered site is implied when the header is absent.
func siteMiddleware(sites map[string]Site, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Site"))
		if id == "" && len(sites) == 1 {
			for only := range sites {
				id = only
			}
		}
		site, ok := sites[id]
		if !ok {
			routing.WriteError(w, r, http.StatusBadRequest, "unknown_site", "unknown site")
			return
		}
		next.ServeHTTP(w, r.WithContext(withSite(r.Context(), site)))
	})
}
