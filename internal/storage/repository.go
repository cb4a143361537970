// Package storage persists the tracker's records in SQLite. Monetary
// amounts are stored as decimal text, never floats, so what goes in comes
// back out exact.
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

	"github.com/shopspring/decimal"

	"contas/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureUser returns the ID for the username, creating the row if needed.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, username string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM users WHERE username = ?", username).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("look up user: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username) VALUES (?)", username)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// ListUsers returns every registered user, for sweep fan-out.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, username FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const billColumns = `b.id, b.name, b.amount, b.total_amount, b.due_date,
	b.category_id, b.installment, b.installments, b.recurring,
	b.instrument_id, b.user_id, COALESCE(c.name, '')`

const billFrom = ` FROM bills b LEFT JOIN categories c ON c.id = b.category_id`

func (r *SQLiteRepository) CreateBill(ctx context.Context, bill core.Bill) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO bills (name, amount, total_amount, due_date, category_id,
			installment, installments, recurring, instrument_id, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.Name,
		bill.Amount.String(),
		nullDecimal(bill.TotalAmount),
		bill.DueDate.ISO(),
		nullInt(bill.CategoryID),
		nullInt(bill.Installment),
		nullInt(bill.Installments),
		bill.Recurring,
		nullInt(bill.InstrumentID),
		bill.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert bill: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id, userID int64) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+billColumns+billFrom+" WHERE b.id = ? AND b.user_id = ?", id, userID)
	bill, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, core.ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, err)
	}
	return bill, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context, userID int64) ([]core.Bill, error) {
	return r.queryBills(ctx,
		"SELECT "+billColumns+billFrom+" WHERE b.user_id = ? ORDER BY b.due_date, b.id", userID)
}

func (r *SQLiteRepository) ListBillsByMonth(ctx context.Context, userID int64, year int, month time.Month, categories []string) ([]core.Bill, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	query := "SELECT " + billColumns + billFrom +
		" WHERE b.user_id = ? AND b.due_date >= ? AND b.due_date < ?"
	args := []any{userID, start.Format("2006-01-02"), end.Format("2006-01-02")}

	if len(categories) > 0 {
		placeholders := strings.Repeat("?,", len(categories))
		query += " AND c.name IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, name := range categories {
			args = append(args, name)
		}
	}
	query += " ORDER BY b.due_date, b.id"

	return r.queryBills(ctx, query, args...)
}

func (r *SQLiteRepository) ListDueInstallmentBills(ctx context.Context, userID int64, before core.Date) ([]core.Bill, error) {
	return r.queryBills(ctx,
		"SELECT "+billColumns+billFrom+`
		WHERE b.user_id = ?
		  AND b.installment IS NOT NULL
		  AND b.installments IS NOT NULL
		  AND b.installment < b.installments
		  AND b.due_date < ?
		ORDER BY b.id`,
		userID, before.ISO())
}

func (r *SQLiteRepository) ListDueRecurringBills(ctx context.Context, userID int64, before core.Date) ([]core.Bill, error) {
	return r.queryBills(ctx,
		"SELECT "+billColumns+billFrom+`
		WHERE b.user_id = ? AND b.recurring = 1 AND b.due_date < ?
		ORDER BY b.id`,
		userID, before.ISO())
}

func (r *SQLiteRepository) UpdateBill(ctx context.Context, bill core.Bill) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bills SET name = ?, amount = ?, total_amount = ?, due_date = ?,
			category_id = ?, installment = ?, installments = ?, recurring = ?,
			instrument_id = ?
		WHERE id = ? AND user_id = ?`,
		bill.Name,
		bill.Amount.String(),
		nullDecimal(bill.TotalAmount),
		bill.DueDate.ISO(),
		nullInt(bill.CategoryID),
		nullInt(bill.Installment),
		nullInt(bill.Installments),
		bill.Recurring,
		nullInt(bill.InstrumentID),
		bill.ID,
		bill.UserID,
	)
	if err != nil {
		return fmt.Errorf("update bill %d: %w", bill.ID, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM bills WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete bill %d: %w", id, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CountBillsByInstrument(ctx context.Context, instrumentID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bills WHERE instrument_id = ?", instrumentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bills for instrument %d: %w", instrumentID, err)
	}
	return n, nil
}

func (r *SQLiteRepository) CreateInstrument(ctx context.Context, inst core.PaymentInstrument) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_instruments (name, kind, credit_limit, available_limit, balance, user_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		inst.Name, string(inst.Kind),
		inst.CreditLimit.String(), inst.AvailableLimit.String(), inst.Balance.String(),
		inst.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert instrument: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetInstrument(ctx context.Context, id int64) (core.PaymentInstrument, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, kind, credit_limit, available_limit, balance, user_id
		FROM payment_instruments WHERE id = ?`, id)
	inst, err := scanInstrument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PaymentInstrument{}, core.ErrNotFound
	}
	if err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("get instrument %d: %w", id, err)
	}
	return inst, nil
}

func (r *SQLiteRepository) ListInstruments(ctx context.Context, userID int64) ([]core.PaymentInstrument, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind, credit_limit, available_limit, balance, user_id
		FROM payment_instruments WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var instruments []core.PaymentInstrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}
	return instruments, rows.Err()
}

func (r *SQLiteRepository) UpdateInstrument(ctx context.Context, inst core.PaymentInstrument) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_instruments
		SET name = ?, kind = ?, credit_limit = ?, available_limit = ?, balance = ?
		WHERE id = ? AND user_id = ?`,
		inst.Name, string(inst.Kind),
		inst.CreditLimit.String(), inst.AvailableLimit.String(), inst.Balance.String(),
		inst.ID, inst.UserID,
	)
	if err != nil {
		return fmt.Errorf("update instrument %d: %w", inst.ID, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteInstrument(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM payment_instruments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete instrument %d: %w", id, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, cat core.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO categories (name, user_id) VALUES (?, ?)", cat.Name, cat.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, core.ErrCategoryExists
		}
		return 0, fmt.Errorf("insert category: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id, userID int64) (core.Category, error) {
	var cat core.Category
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, user_id FROM categories WHERE id = ? AND user_id = ?",
		id, userID).Scan(&cat.ID, &cat.Name, &cat.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return cat, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, user_id FROM categories WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var cat core.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.UserID); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, cat core.Category) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE categories SET name = ? WHERE id = ? AND user_id = ?",
		cat.Name, cat.ID, cat.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrCategoryExists
		}
		return fmt.Errorf("update category %d: %w", cat.ID, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) queryBills(ctx context.Context, query string, args ...any) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		bill         core.Bill
		amount       string
		totalAmount  sql.NullString
		dueDate      string
		categoryID   sql.NullInt64
		installment  sql.NullInt64
		installments sql.NullInt64
		instrumentID sql.NullInt64
	)
	err := row.Scan(&bill.ID, &bill.Name, &amount, &totalAmount, &dueDate,
		&categoryID, &installment, &installments, &bill.Recurring,
		&instrumentID, &bill.UserID, &bill.CategoryName)
	if err != nil {
		return core.Bill{}, err
	}

	if bill.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Bill{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if totalAmount.Valid {
		total, err := decimal.NewFromString(totalAmount.String)
		if err != nil {
			return core.Bill{}, fmt.Errorf("parse total amount %q: %w", totalAmount.String, err)
		}
		bill.TotalAmount = &total
	}
	if bill.DueDate, err = core.ParseDate(dueDate); err != nil {
		return core.Bill{}, fmt.Errorf("parse due date %q: %w", dueDate, err)
	}
	bill.CategoryID = intPtr(categoryID)
	bill.Installment = intPtr(installment)
	bill.Installments = intPtr(installments)
	bill.InstrumentID = intPtr(instrumentID)

	return bill, nil
}

func scanInstrument(row rowScanner) (core.PaymentInstrument, error) {
	var (
		inst    core.PaymentInstrument
		kind    string
		limit   string
		avail   string
		balance string
	)
	err := row.Scan(&inst.ID, &inst.Name, &kind, &limit, &avail, &balance, &inst.UserID)
	if err != nil {
		return core.PaymentInstrument{}, err
	}
	inst.Kind = core.InstrumentKind(kind)

	if inst.CreditLimit, err = decimal.NewFromString(limit); err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("parse credit limit %q: %w", limit, err)
	}
	if inst.AvailableLimit, err = decimal.NewFromString(avail); err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("parse available limit %q: %w", avail, err)
	}
	if inst.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.PaymentInstrument{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}

	return inst, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
