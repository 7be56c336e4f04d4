package middleware

import (
	"context"
	"net/http"

	"github.com/edvin/gamehost/internal/api/response"
)

// TenantHeader carries the caller's tenant, resolved upstream by the
// platform's auth gateway. Every record access is scoped to it.
const TenantHeader = "X-Tenant-ID"

type tenantKey struct{}

// Tenant rejects requests without a tenant and stores it on the context.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get(TenantHeader)
		if tenantID == "" {
			response.WriteError(w, http.StatusBadRequest, "missing "+TenantHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), tenantKey{}, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantID returns the tenant set by Tenant, or "" outside it.
func TenantID(ctx context.Context) string {
	id, _ := ctx.Value(tenantKey{}).(string)
	return id
}
