package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/menucraft/api/internal/auth"
	"github.com/menucraft/api/internal/enum"
)

const testJWTSecret = "test-secret-for-handlers"

func newJSONRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return serve(router, newJSONRequest(t, method, path, body))
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	// Generate a real JWT token from claims
	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.TenantID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := newJSONRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	return serve(router, req)
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeListResponse(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func staffClaims(tenantID string) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), TenantID: tenantID, Role: enum.UserRoleStaff}
}

func ownerClaims(tenantID string) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), TenantID: tenantID, Role: enum.UserRoleOwner}
}

// passthroughCatalog runs mutations directly and counts successful ones.
type passthroughCatalog struct {
	refreshed int
}

func (p *passthroughCatalog) Mutate(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	p.refreshed++
	return nil
}
