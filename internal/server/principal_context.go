package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/omtlabs/timesheet-hub/internal/routing"
)

type Principal struct {
	ID   int64
	Role string // lead or staff
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// principalMiddleware reads the dev identity headers. Authentication proper
// is an upstream concern; this core only needs who is acting and as what
// role.
func principalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("X-Principal-ID"))
		if raw == "" {
			routing.WriteError(w, r, http.StatusUnauthorized, "principal_missing", "X-Principal-ID header is required")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			routing.WriteError(w, r, http.StatusUnauthorized, "principal_invalid", "invalid X-Principal-ID")
			return
		}

		role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Principal-Role")))
		if role == "" {
			role = "staff"
		}
		if role != "lead" && role != "staff" {
			routing.WriteError(w, r, http.StatusUnauthorized, "role_invalid", "invalid X-Principal-Role")
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), Principal{ID: id, Role: role})))
	})
}
