package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenant_RejectsMissingHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a tenant")
	})

	rec := httptest.NewRecorder()
	Tenant(next).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTenant_StoresTenantOnContext(t *testing.T) {
	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = TenantID(r.Context())
	})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(TenantHeader, "t1")
	rec := httptest.NewRecorder()
	Tenant(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", got)
}

func TestTenantID_EmptyOutsideMiddleware(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, TenantID(r.Context()))
}
