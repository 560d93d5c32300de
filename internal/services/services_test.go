package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"finledger/internal/auth"
	"finledger/internal/cache"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// testEnv wires real storage and a memory cache behind the services so the
// full authorize/validate/execute/invalidate pipeline runs in tests.
type testEnv struct {
	repo         *storage.SQLiteRepository
	cache        *cache.MemoryStore
	auth         *AuthService
	transactions *TransactionService
	categories   *CategoryService
	analytics    *AnalyticsService
	users        *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	store := cache.NewMemoryStore(64)
	tokens := auth.NewTokenManager("test-secret", "finledger-test", time.Hour)

	return &testEnv{
		repo:         repo,
		cache:        store,
		auth:         NewAuthService(repo, tokens, logger),
		transactions: NewTransactionService(repo, store, nil, logger),
		categories:   NewCategoryService(repo, store, time.Hour, logger),
		analytics:    NewAnalyticsService(repo, store, 15*time.Minute, logger),
		users:        NewUserService(repo, store, logger),
	}
}

// registerIdentity registers a user through the auth service and returns the
// resolved identity.
func (e *testEnv) registerIdentity(t *testing.T, email string, role core.Role) *auth.Identity {
	t.Helper()
	user, _, err := e.auth.Register(context.Background(), "Test", email, "password123", role)
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return &auth.Identity{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
}

func (e *testEnv) createTransaction(t *testing.T, caller *auth.Identity, cents int64, txnType core.TransactionType, date core.Date) core.Transaction {
	t.Helper()
	txn, err := e.transactions.Create(context.Background(), caller, CreateTransactionParams{
		Amount: core.Money{Cents: cents},
		Type:   txnType,
		Date:   &date,
	})
	if err != nil {
		t.Fatalf("Create transaction: %v", err)
	}
	return txn
}

// A nil identity is denied before any of its fields are read.
func TestNilCallerIsDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.transactions.Create(ctx, nil, CreateTransactionParams{
		Amount: core.Money{Cents: 100},
		Type:   core.Expense,
	}); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("create: got %v, want ErrForbidden", err)
	}
	if _, _, err := env.transactions.List(ctx, nil, ListTransactionParams{}); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("list: got %v, want ErrForbidden", err)
	}
	if _, _, err := env.analytics.Snapshot(ctx, nil, 0); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("snapshot: got %v, want ErrForbidden", err)
	}
	if _, err := env.analytics.Chart(ctx, nil); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("chart: got %v, want ErrForbidden", err)
	}
	if _, _, err := env.categories.List(ctx, nil); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("category list: got %v, want ErrForbidden", err)
	}
}

func TestClampPagination(t *testing.T) {
	tests := []struct {
		page, perPage         int
		wantPage, wantPerPage int
	}{
		{0, 0, 1, 10},
		{-5, 0, 1, 10},
		{1, 3, 1, 5},
		{1, 5, 1, 5},
		{2, 50, 2, 50},
		{1, 200, 1, 200},
		{1, 1000, 1, 200},
	}
	for _, tt := range tests {
		page, perPage := clampPagination(tt.page, tt.perPage)
		if page != tt.wantPage || perPage != tt.wantPerPage {
			t.Errorf("clampPagination(%d, %d) = (%d, %d), want (%d, %d)",
				tt.page, tt.perPage, page, perPage, tt.wantPage, tt.wantPerPage)
		}
	}
}

func TestPageMeta(t *testing.T) {
	meta := pageMeta(2, 10, 21)
	if meta.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", meta.TotalPages)
	}
	meta = pageMeta(1, 10, 20)
	if meta.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", meta.TotalPages)
	}
	meta = pageMeta(1, 10, 0)
	if meta.TotalPages != 0 {
		t.Errorf("TotalPages = %d, want 0", meta.TotalPages)
	}
}
