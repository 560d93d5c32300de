// Package storage provides the sqlite-backed persistence layer: users,
// categories, transactions, and the aggregate queries behind analytics.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finledger/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys must be on for user-deletion cascade and the
	// category SET NULL behavior.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- users ---

// CreateUser inserts a new user row, mapping the unique-email constraint to
// core.ErrDuplicateEmail.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, string(u.Role), now)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user insert id: %w", err)
	}
	u.ID = id
	u.CreatedAt = now
	return u, nil
}

// GetUserByEmail fetches a user by email address.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByID fetches a user by primary key.
func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// ListUsers returns one page of users plus the total count.
func (r *SQLiteRepository) ListUsers(ctx context.Context, limit, offset int) ([]core.User, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, password_hash, role, created_at FROM users ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UpdateUserRole persists a role change and returns the updated user.
func (r *SQLiteRepository) UpdateUserRole(ctx context.Context, id int64, role core.Role) (core.User, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), id)
	if err != nil {
		return core.User{}, fmt.Errorf("update user role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.User{}, core.ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

// DeleteUser removes a user; the schema cascades to their transactions.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Role = core.Role(role)
	return u, nil
}

// --- categories ---

// ListCategories returns all categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category, mapping the unique-name constraint to
// core.ErrDuplicateName.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}
	return core.Category{ID: id, Name: name}, nil
}

// UpdateCategory renames a category.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id int64, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Category{}, core.ErrNotFound
	}
	return core.Category{ID: id, Name: name}, nil
}

// DeleteCategory removes a category. Transactions referencing it keep their
// rows with category_id set to NULL by the schema.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// CategoryExists reports whether a category id references an existing row.
func (r *SQLiteRepository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check category: %w", err)
	}
	return true, nil
}

// --- transactions ---

const transactionColumns = `t.id, t.user_id, t.amount_cents, t.type, t.category_id,
	t.description, t.notes, t.date, t.created_at, t.updated_at, c.id, c.name`

// CreateTransaction persists a validated transaction and returns it with
// identifiers and timestamps filled in.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, amount_cents, type, category_id, description, notes, date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Amount.Cents, string(t.Type), t.CategoryID, t.Description, t.Notes, t.Date.String(), now, now)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	return r.GetTransaction(ctx, id)
}

// GetTransaction fetches one transaction with its category name joined in.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.id = ?`, id)
	return scanTransaction(row)
}

// UpdateTransaction writes the full mutable field set of an existing row.
// The service layer merges partial updates before calling this.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = ?, type = ?, category_id = ?, description = ?, notes = ?, date = ?, updated_at = ?
		 WHERE id = ?`,
		t.Amount.Cents, string(t.Type), t.CategoryID, t.Description, t.Notes, t.Date.String(), time.Now().UTC(), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Transaction{}, core.ErrNotFound
	}
	return r.GetTransaction(ctx, t.ID)
}

// DeleteTransaction hard-deletes a row.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// TransactionFilter is the filter/pagination/sort set accepted by
// ListTransactions. Nil pointer fields mean "no constraint".
type TransactionFilter struct {
	UserID     *int64 // non-admins are always scoped by the service layer
	Query      string // case-insensitive substring over description/notes
	CategoryID *int64
	Type       core.TransactionType // empty means both types
	MinCents   *int64
	MaxCents   *int64
	DateFrom   *core.Date
	DateTo     *core.Date
	SortBy     string // one of date, amount, createdAt; anything else falls back to date
	SortAsc    bool
	Limit      int
	Offset     int
}

var sortColumns = map[string]string{
	"date":      "t.date",
	"amount":    "t.amount_cents",
	"createdAt": "t.created_at",
}

func (f TransactionFilter) whereClause() (string, []any) {
	conds := []string{"1=1"}
	var args []any

	if f.UserID != nil {
		conds = append(conds, "t.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.MinCents != nil {
		conds = append(conds, "t.amount_cents >= ?")
		args = append(args, *f.MinCents)
	}
	if f.MaxCents != nil {
		conds = append(conds, "t.amount_cents <= ?")
		args = append(args, *f.MaxCents)
	}
	if f.DateFrom != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, f.DateFrom.String())
	}
	if f.DateTo != nil {
		conds = append(conds, "t.date <= ?")
		args = append(args, f.DateTo.String())
	}
	if f.Query != "" {
		needle := "%" + strings.ToLower(f.Query) + "%"
		conds = append(conds, "(LOWER(t.description) LIKE ? OR LOWER(t.notes) LIKE ?)")
		args = append(args, needle, needle)
	}

	return strings.Join(conds, " AND "), args
}

// ListTransactions returns one page of matching transactions plus the total
// match count.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, int64, error) {
	where, args := f.whereClause()

	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	orderCol, ok := sortColumns[f.SortBy]
	if !ok {
		orderCol = sortColumns["date"]
	}
	direction := "DESC"
	if f.SortAsc {
		direction = "ASC"
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + where + `
		ORDER BY ` + orderCol + ` ` + direction + `, t.id ` + direction + `
		LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, t)
	}
	return transactions, total, rows.Err()
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		txnType  string
		catID    sql.NullInt64
		dateStr  string
		joinedID sql.NullInt64
		joinedNm sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Amount.Cents, &txnType, &catID,
		&t.Description, &t.Notes, &dateStr, &t.CreatedAt, &t.UpdatedAt, &joinedID, &joinedNm)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(txnType)
	if catID.Valid {
		id := catID.Int64
		t.CategoryID = &id
	}
	if joinedID.Valid && joinedNm.Valid {
		t.Category = &core.Category{ID: joinedID.Int64, Name: joinedNm.String}
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	t.Date = date
	return t, nil
}
