package storage

import (
	"context"
	"database/sql"
	"fmt"

	"finledger/internal/core"
)

// Analytics computes a user's snapshot: month totals over the window starting
// at fromMonth (YYYY-MM, inclusive), the per-category expense breakdown, and
// the income-vs-expense split. All three queries run inside one read
// transaction so the snapshot is internally consistent.
func (r *SQLiteRepository) Analytics(ctx context.Context, userID int64, fromMonth string) (core.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("begin analytics snapshot: %w", err)
	}
	defer tx.Rollback()

	snapshot := core.Snapshot{
		MonthTotals:       []core.MonthTotal{},
		CategoryBreakdown: []core.CategoryExpense{},
		IncomeVsExpense:   []core.TypeTotal{},
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month,
		        SUM(CASE WHEN type = 'income' THEN amount_cents ELSE 0 END),
		        SUM(CASE WHEN type = 'expense' THEN amount_cents ELSE 0 END)
		 FROM transactions
		 WHERE user_id = ? AND date >= ?
		 GROUP BY month
		 ORDER BY month ASC`,
		userID, fromMonth+"-01")
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("month totals: %w", err)
	}
	for rows.Next() {
		var mt core.MonthTotal
		if err := rows.Scan(&mt.Month, &mt.Income.Cents, &mt.Expense.Cents); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("scan month total: %w", err)
		}
		snapshot.MonthTotals = append(snapshot.MonthTotals, mt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("month totals: %w", err)
	}

	rows, err = tx.QueryContext(ctx,
		`SELECT c.id, c.name, SUM(t.amount_cents)
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ? AND t.type = 'expense'
		 GROUP BY c.id, c.name
		 ORDER BY c.name ASC`,
		userID)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("category breakdown: %w", err)
	}
	for rows.Next() {
		var ce core.CategoryExpense
		if err := rows.Scan(&ce.CategoryID, &ce.CategoryName, &ce.TotalExpense.Cents); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("scan category breakdown: %w", err)
		}
		snapshot.CategoryBreakdown = append(snapshot.CategoryBreakdown, ce)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("category breakdown: %w", err)
	}

	rows, err = tx.QueryContext(ctx,
		`SELECT type, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ?
		 GROUP BY type
		 ORDER BY type ASC`,
		userID)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("income vs expense: %w", err)
	}
	for rows.Next() {
		var tt core.TypeTotal
		var txnType string
		if err := rows.Scan(&txnType, &tt.Total.Cents); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("scan income vs expense: %w", err)
		}
		tt.Type = core.TransactionType(txnType)
		snapshot.IncomeVsExpense = append(snapshot.IncomeVsExpense, tt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("income vs expense: %w", err)
	}

	return snapshot, tx.Commit()
}

// CategoryDistribution sums all of a user's amounts (both types) per
// category name for the chart's pie series.
func (r *SQLiteRepository) CategoryDistribution(ctx context.Context, userID int64) ([]core.CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.name, SUM(t.amount_cents)
		 FROM transactions t
		 JOIN categories c ON c.id = t.category_id
		 WHERE t.user_id = ?
		 GROUP BY c.name
		 ORDER BY c.name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("category distribution: %w", err)
	}
	defer rows.Close()

	totals := []core.CategoryTotal{}
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category distribution: %w", err)
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

// MonthlyTrends sums all of a user's amounts per month across their full
// history for the chart's line series.
func (r *SQLiteRepository) MonthlyTrends(ctx context.Context, userID int64) ([]core.MonthTrend, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ?
		 GROUP BY month
		 ORDER BY month ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	defer rows.Close()

	trends := []core.MonthTrend{}
	for rows.Next() {
		var mt core.MonthTrend
		if err := rows.Scan(&mt.Month, &mt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		trends = append(trends, mt)
	}
	return trends, rows.Err()
}

// IncomeVsExpense sums a user's amounts grouped by type, yielding at most
// two rows.
func (r *SQLiteRepository) IncomeVsExpense(ctx context.Context, userID int64) ([]core.TypeTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, SUM(amount_cents)
		 FROM transactions
		 WHERE user_id = ?
		 GROUP BY type
		 ORDER BY type ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("income vs expense: %w", err)
	}
	defer rows.Close()

	totals := []core.TypeTotal{}
	for rows.Next() {
		var tt core.TypeTotal
		var txnType string
		if err := rows.Scan(&txnType, &tt.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan income vs expense: %w", err)
		}
		tt.Type = core.TransactionType(txnType)
		totals = append(totals, tt)
	}
	return totals, rows.Err()
}
