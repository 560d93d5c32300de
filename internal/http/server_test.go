package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/middleware/ratelimit"
	"finledger/internal/services"
	"finledger/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	store := cache.NewMemoryStore(64)
	tokens := auth.NewTokenManager("test-secret", "finledger-test", time.Hour)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 10000, CleanupInterval: time.Minute})
	t.Cleanup(limiter.Stop)

	server := NewServer(":0",
		services.NewAuthService(repo, tokens, logger),
		services.NewTransactionService(repo, store, nil, logger),
		services.NewCategoryService(repo, store, time.Hour, logger),
		services.NewAnalyticsService(repo, store, 15*time.Minute, logger),
		services.NewUserService(repo, store, logger),
		limiter,
		logger,
	)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func register(t *testing.T, ts *httptest.Server, email string, role core.Role) (core.User, string) {
	t.Helper()
	resp, raw := doJSON(t, ts, http.MethodPost, "/auth/register", "", map[string]any{
		"name":     "Test",
		"email":    email,
		"password": "password123",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", email, resp.StatusCode, raw)
	}
	var out struct {
		User  core.User `json:"user"`
		Token string    `json:"token"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.User, out.Token
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, ts, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)

	_, token := register(t, ts, "ada@example.com", "")
	if token == "" {
		t.Fatal("registration should return a token")
	}

	resp, raw := doJSON(t, ts, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d: %s", resp.StatusCode, raw)
	}

	// Both failure modes return the same message.
	_, rawUnknown := doJSON(t, ts, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "password123",
	})
	_, rawWrongPw := doJSON(t, ts, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	if string(rawUnknown) != string(rawWrongPw) {
		t.Errorf("login failures must be uniform: %s vs %s", rawUnknown, rawWrongPw)
	}
}

func TestRequestsWithoutTokenAre401(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/transactions", "/categories", "/users/me", "/analytics/chart", "/transactions/stats"} {
		resp, _ := doJSON(t, ts, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without token = %d, want 401", path, resp.StatusCode)
		}
	}

	resp, _ := doJSON(t, ts, http.MethodGet, "/transactions", "not-a-real-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", resp.StatusCode)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	_, token := register(t, ts, "user@example.com", "")

	resp, raw := doJSON(t, ts, http.MethodPost, "/transactions", token, map[string]any{
		"amount":      19.99,
		"type":        "expense",
		"description": "lunch",
		"date":        "2026-08-30",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d: %s", resp.StatusCode, raw)
	}
	var created core.Transaction
	if err := json.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Amount.Cents != 1999 {
		t.Errorf("amount = %d cents, want 1999", created.Amount.Cents)
	}

	resp, raw = doJSON(t, ts, http.MethodGet, "/transactions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d: %s", resp.StatusCode, raw)
	}
	var list struct {
		Data []core.Transaction `json:"data"`
		Meta services.PageMeta  `json:"meta"`
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Meta.Total != 1 || len(list.Data) != 1 {
		t.Errorf("list = %+v", list)
	}
	if list.Meta.PerPage != 10 {
		t.Errorf("default perPage = %d, want 10", list.Meta.PerPage)
	}

	id := created.ID
	resp, raw = doJSON(t, ts, http.MethodPut, "/transactions/"+itoa(id), token, map[string]any{
		"amount": 25.00,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d: %s", resp.StatusCode, raw)
	}
	var updated core.Transaction
	if err := json.Unmarshal(raw, &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.Amount.Cents != 2500 || updated.Description != "lunch" {
		t.Errorf("updated = %+v, want merged partial update", updated)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/transactions/"+itoa(id), token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/transactions/"+itoa(id), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", resp.StatusCode)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts := newTestServer(t)
	_, token := register(t, ts, "user@example.com", "")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing amount", map[string]any{"type": "expense"}},
		{"zero amount", map[string]any{"amount": 0, "type": "expense"}},
		{"bad type", map[string]any{"amount": 10, "type": "transfer"}},
		{"bad date", map[string]any{"amount": 10, "type": "expense", "date": "30/08/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := doJSON(t, ts, http.MethodPost, "/transactions", token, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", resp.StatusCode, raw)
			}
		})
	}
}

func TestReadOnlyRoleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, token := register(t, ts, "reader@example.com", core.RoleReadOnly)

	resp, raw := doJSON(t, ts, http.MethodPost, "/transactions", token, map[string]any{
		"amount": 10, "type": "expense",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("read-only create = %d, want 403: %s", resp.StatusCode, raw)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/transactions", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("read-only list = %d, want 200", resp.StatusCode)
	}
}

func TestCategoryAdminGateOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := register(t, ts, "admin@example.com", core.RoleAdmin)
	_, userToken := register(t, ts, "user@example.com", "")

	resp, _ := doJSON(t, ts, http.MethodPost, "/categories", userToken, map[string]string{"name": "Food"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("user create category = %d, want 403", resp.StatusCode)
	}

	resp, raw := doJSON(t, ts, http.MethodPost, "/categories", adminToken, map[string]string{"name": "Food"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("admin create category = %d: %s", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, ts, http.MethodGet, "/categories", userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list categories = %d: %s", resp.StatusCode, raw)
	}
	var out struct {
		Data   []core.Category `json:"data"`
		Cached bool            `json:"cached"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Data) != 1 || out.Data[0].Name != "Food" {
		t.Errorf("categories = %+v", out.Data)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, token := register(t, ts, "user@example.com", "")

	if resp, raw := doJSON(t, ts, http.MethodPost, "/transactions", token, map[string]any{
		"amount": 100, "type": "income",
	}); resp.StatusCode != http.StatusCreated {
		t.Fatalf("seed: %d: %s", resp.StatusCode, raw)
	}

	resp, raw := doJSON(t, ts, http.MethodGet, "/transactions/stats", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats = %d: %s", resp.StatusCode, raw)
	}
	var out struct {
		Data   core.Snapshot `json:"data"`
		Cached bool          `json:"cached"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Cached {
		t.Error("first stats read should be a recompute")
	}
	if len(out.Data.IncomeVsExpense) != 1 || out.Data.IncomeVsExpense[0].Total.Cents != 10000 {
		t.Errorf("snapshot = %+v", out.Data)
	}

	_, raw = doJSON(t, ts, http.MethodGet, "/transactions/stats", token, nil)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Cached {
		t.Error("second stats read should come from cache")
	}
}

func TestUserAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := register(t, ts, "admin@example.com", core.RoleAdmin)
	victim, _ := register(t, ts, "victim@example.com", "")
	_, userToken := register(t, ts, "user@example.com", "")

	resp, _ := doJSON(t, ts, http.MethodGet, "/users/me", userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin user list = %d, want 403", resp.StatusCode)
	}

	resp, raw := doJSON(t, ts, http.MethodGet, "/users/me", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin user list = %d: %s", resp.StatusCode, raw)
	}

	resp, raw = doJSON(t, ts, http.MethodPut, "/users/me/"+itoa(victim.ID), adminToken, map[string]string{"role": "read-only"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("role update = %d: %s", resp.StatusCode, raw)
	}
	var updated core.User
	if err := json.Unmarshal(raw, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Role != core.RoleReadOnly {
		t.Errorf("role = %q, want read-only", updated.Role)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/users/me/"+itoa(victim.ID), adminToken, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete user = %d, want 204", resp.StatusCode)
	}
}

func TestErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)
	_, token := register(t, ts, "user@example.com", "")

	resp, raw := doJSON(t, ts, http.MethodGet, "/transactions/9999", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("error body is not JSON: %s", raw)
	}
	if _, ok := out["message"]; !ok {
		t.Errorf("error envelope missing message: %s", raw)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
