package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finledger/internal/core"
)

// The window start is anchored to the first of the month: subtracting
// months from a month-end date must not overflow into the following month.
func TestSnapshotWindowStart(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC), "2025-09"},
		{time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), "2025-04"},
		{time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), "2025-02"},
		{time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), "2024-01"},
		{time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), "2025-03"},
	}
	for _, tt := range tests {
		if got := snapshotWindowStart(tt.now); got != tt.want {
			t.Errorf("snapshotWindowStart(%s) = %q, want %q", tt.now.Format("2006-01-02"), got, tt.want)
		}
	}
}

// A transaction in the oldest month of the trailing window must appear in
// the snapshot no matter what day of the month it is computed on.
func TestSnapshotKeepsOldestWindowMonth(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerIdentity(t, "user@example.com", core.RoleUser)

	now := time.Now().UTC()
	oldest := core.NewDate(now.Year(), int(now.Month())-11, 1)
	env.createTransaction(t, user, 1500, core.Expense, oldest)

	snap, _, err := env.analytics.Snapshot(ctx, user, 0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.MonthTotals) != 1 || snap.MonthTotals[0].Month != oldest.MonthKey() {
		t.Fatalf("MonthTotals = %+v, want month %s present", snap.MonthTotals, oldest.MonthKey())
	}
	if snap.MonthTotals[0].Expense.Cents != 1500 {
		t.Errorf("oldest month expense = %d, want 1500", snap.MonthTotals[0].Expense.Cents)
	}
}

func TestSnapshotCaching(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerIdentity(t, "user@example.com", core.RoleUser)

	env.createTransaction(t, user, 5000, core.Income, core.Today())

	snap, cached, err := env.analytics.Snapshot(ctx, user, 0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if cached {
		t.Error("first snapshot should be a recompute")
	}
	if len(snap.MonthTotals) != 1 || snap.MonthTotals[0].Income.Cents != 5000 {
		t.Errorf("snapshot = %+v", snap.MonthTotals)
	}

	again, cached, err := env.analytics.Snapshot(ctx, user, 0)
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if !cached {
		t.Error("second snapshot should come from cache")
	}
	if len(again.MonthTotals) != 1 || again.MonthTotals[0].Income.Cents != 5000 {
		t.Errorf("cached snapshot = %+v", again.MonthTotals)
	}
}

func TestSnapshotTargeting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.registerIdentity(t, "admin@example.com", core.RoleAdmin)
	alice := env.registerIdentity(t, "alice@example.com", core.RoleUser)
	bob := env.registerIdentity(t, "bob@example.com", core.RoleUser)

	env.createTransaction(t, alice, 1234, core.Expense, core.Today())

	// Admin targets another user's snapshot.
	snap, _, err := env.analytics.Snapshot(ctx, admin, alice.ID)
	if err != nil {
		t.Fatalf("admin Snapshot: %v", err)
	}
	if len(snap.MonthTotals) != 1 || snap.MonthTotals[0].Expense.Cents != 1234 {
		t.Errorf("admin snapshot of alice = %+v", snap.MonthTotals)
	}

	// A non-admin may not target anyone else.
	if _, _, err := env.analytics.Snapshot(ctx, bob, alice.ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("cross-user snapshot: got %v, want ErrForbidden", err)
	}

	// Zero target means self.
	if _, _, err := env.analytics.Snapshot(ctx, bob, 0); err != nil {
		t.Errorf("self snapshot: %v", err)
	}
}

func TestSnapshotEmptyUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerIdentity(t, "empty@example.com", core.RoleUser)

	snap, cached, err := env.analytics.Snapshot(context.Background(), user, 0)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if cached {
		t.Error("first snapshot should not be cached")
	}
	if len(snap.MonthTotals) != 0 || len(snap.CategoryBreakdown) != 0 || len(snap.IncomeVsExpense) != 0 {
		t.Errorf("empty snapshot = %+v", snap)
	}
}

func TestChart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.registerIdentity(t, "user@example.com", core.RoleUser)

	food, err := env.categories.Create(ctx, env.registerIdentity(t, "admin@example.com", core.RoleAdmin), "Food")
	if err != nil {
		t.Fatalf("Create category: %v", err)
	}

	today := core.Today()
	if _, err := env.transactions.Create(ctx, user, CreateTransactionParams{
		Amount:     core.Money{Cents: 2500},
		Type:       core.Expense,
		CategoryID: &food.ID,
		Date:       &today,
	}); err != nil {
		t.Fatalf("Create transaction: %v", err)
	}
	env.createTransaction(t, user, 10000, core.Income, today)

	data, err := env.analytics.Chart(ctx, user)
	if err != nil {
		t.Fatalf("Chart: %v", err)
	}
	if len(data.CategoryDistribution) != 1 || data.CategoryDistribution[0].Category != "Food" {
		t.Errorf("CategoryDistribution = %+v", data.CategoryDistribution)
	}
	if len(data.MonthlyTrends) != 1 || data.MonthlyTrends[0].Total.Cents != 12500 {
		t.Errorf("MonthlyTrends = %+v", data.MonthlyTrends)
	}
	if len(data.IncomeVsExpenses) != 2 {
		t.Errorf("IncomeVsExpenses = %+v", data.IncomeVsExpenses)
	}
}
