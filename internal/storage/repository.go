package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recur/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

// DSN adds the pragmas the repository relies on to a database path.
// Immediate transactions take the write lock up front, so two processes
// materializing the same month serialize instead of failing on upgrade.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would serialize it anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
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

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func parseStoredDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date: %w", err)
	}
	return d, nil
}

// Profiles

func (r *SQLiteRepository) GetProfile(ctx context.Context, ownerID string) (core.Profile, error) {
	var (
		p                   core.Profile
		income, savingsGoal decimal.Decimal
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id, email, full_name, income, savings_goal FROM profiles WHERE owner_id = ?`,
		ownerID,
	).Scan(&p.OwnerID, &p.Email, &p.FullName, &income, &savingsGoal)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, core.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Income = core.Money{Amount: income}
	p.SavingsGoal = core.Money{Amount: savingsGoal}
	return p, nil
}

func (r *SQLiteRepository) UpdateProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (owner_id, email, full_name, income, savings_goal, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			income = excluded.income,
			savings_goal = excluded.savings_goal,
			updated_at = CURRENT_TIMESTAMP`,
		p.OwnerID, p.Email, p.FullName, p.Income.Amount.String(), p.SavingsGoal.Amount.String())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Subscriptions

const subscriptionColumns = `id, owner_id, name, price, category, start_date, active`

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		s         core.Subscription
		price     decimal.Decimal
		category  string
		startDate string
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &price, &category, &startDate, &s.Active); err != nil {
		return core.Subscription{}, err
	}
	start, err := parseStoredDate(startDate)
	if err != nil {
		return core.Subscription{}, err
	}
	s.Price = core.Money{Amount: price}
	s.Category = core.ParseCategory(category)
	s.StartDate = start
	return s, nil
}

func (r *SQLiteRepository) ListActiveSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE owner_id = ? AND active = 1
		 ORDER BY CAST(price AS REAL) DESC, name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.OwnerID, s.Name, s.Price.Amount.String(), string(s.Category), s.StartDate.String(), s.Active)
		if err != nil {
			return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
		}
		slog.InfoContext(ctx, "Subscription saved to SQLite", "id", s.ID, "name", s.Name)
		return s, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET name = ?, price = ?, category = ?, start_date = ?, active = ?
		 WHERE id = ? AND owner_id = ?`,
		s.Name, s.Price.Amount.String(), string(s.Category), s.StartDate.String(), s.Active, s.ID, s.OwnerID)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	if err := requireAffected(res, "subscription", s.ID); err != nil {
		return core.Subscription{}, err
	}
	return s, nil
}

func (r *SQLiteRepository) DeactivateSubscription(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions SET active = 0 WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return requireAffected(res, "subscription", id)
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return nil
}

// Expenses

const expenseColumns = `id, owner_id, title, amount, date, category, recurring`

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e        core.Expense
		amount   decimal.Decimal
		date     string
		category string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &amount, &date, &category, &e.Recurring); err != nil {
		return core.Expense{}, err
	}
	d, err := parseStoredDate(date)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Money{Amount: amount}
	e.Date = d
	e.Category = core.ParseCategory(category)
	return e, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryExpenses(ctx context.Context, q querier, query string, args ...any) ([]core.Expense, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const selectMonthExpenses = `SELECT ` + expenseColumns + ` FROM expenses
	WHERE owner_id = ? AND date >= ? AND date <= ?
	ORDER BY date DESC, created_at DESC`

func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string, start, end core.Date) ([]core.Expense, error) {
	out, err := queryExpenses(ctx, r.db, selectMonthExpenses, ownerID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListAllExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	out, err := queryExpenses(ctx, r.db,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = ? ORDER BY date DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return out, nil
}

func insertExpenses(ctx context.Context, q querier, expenses []core.Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		e.ID = uuid.NewString()
		_, err := q.ExecContext(ctx,
			`INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.OwnerID, e.Title, e.Amount.Amount.String(), e.Date.String(), string(e.Category), e.Recurring)
		if err != nil {
			return nil, fmt.Errorf("insert expense %q: %w", e.Title, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertExpenses(ctx context.Context, expenses []core.Expense) ([]core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	out, err := insertExpenses(ctx, tx, expenses)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expenses: %w", err)
	}
	for _, e := range out {
		slog.InfoContext(ctx, "Expense saved to SQLite",
			"id", e.ID,
			"title", e.Title,
			"amount", e.Amount.String(),
			"date", e.Date.String())
	}
	return out, nil
}

// MaterializeIfAbsent re-reads the month inside an immediate transaction
// and inserts the batch only while the gate is still open.
func (r *SQLiteRepository) MaterializeIfAbsent(ctx context.Context, ownerID string, rng core.MonthRange, gate core.MaterializationGate, batch []core.Expense) ([]core.Expense, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := queryExpenses(ctx, tx, selectMonthExpenses, ownerID, rng.Start.String(), rng.End.String())
	if err != nil {
		return nil, false, fmt.Errorf("recheck month: %w", err)
	}
	if gate.Closed(existing) {
		return nil, false, nil
	}

	inserted, err := insertExpenses(ctx, tx, batch)
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit materialization: %w", err)
	}
	return inserted, true, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	e, err := scanExpense(tx.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit delete: %w", err)
	}
	return e, nil
}

// Budget periods

func (r *SQLiteRepository) ListBudgetPeriods(ctx context.Context, ownerID string) ([]core.BudgetPeriod, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id, month, income FROM budget_periods WHERE owner_id = ? ORDER BY month`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budget periods: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetPeriod
	for rows.Next() {
		p, err := scanBudgetPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanBudgetPeriod(row rowScanner) (core.BudgetPeriod, error) {
	var (
		p      core.BudgetPeriod
		month  string
		income decimal.Decimal
	)
	if err := row.Scan(&p.OwnerID, &month, &income); err != nil {
		return core.BudgetPeriod{}, err
	}
	k, err := core.ParseMonthKey(month)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("stored month: %w", err)
	}
	p.Month = k
	p.Income = core.Money{Amount: income}
	return p, nil
}

func (r *SQLiteRepository) GetBudgetPeriod(ctx context.Context, ownerID string, month core.MonthKey) (core.BudgetPeriod, error) {
	p, err := scanBudgetPeriod(r.db.QueryRowContext(ctx,
		`SELECT owner_id, month, income FROM budget_periods WHERE owner_id = ? AND month = ?`,
		ownerID, month.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetPeriod{}, core.ErrNotFound
	}
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("get budget period: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SetBudgetPeriod(ctx context.Context, p core.BudgetPeriod) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_periods (owner_id, month, income) VALUES (?, ?, ?)
		ON CONFLICT(owner_id, month) DO UPDATE SET income = excluded.income`,
		p.OwnerID, p.Month.String(), p.Income.Amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget period: %w", err)
	}
	return nil
}

// Renewals

// ListRenewalsOn narrows candidates by day of month in SQL and leaves the
// clamping rules to core.RenewsOn.
func (r *SQLiteRepository) ListRenewalsOn(ctx context.Context, day core.Date) ([]core.RenewalCandidate, error) {
	dayOp := "="
	if day.AddDays(1).Day() == 1 {
		// Last day of the month also collects later start days.
		dayOp = ">="
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.owner_id, s.name, s.price, s.category, s.start_date, s.active,
		       COALESCE(p.email, ''), COALESCE(p.full_name, '')
		FROM subscriptions s
		LEFT JOIN profiles p ON p.owner_id = s.owner_id
		WHERE s.active = 1
		  AND s.start_date <= ?
		  AND CAST(strftime('%d', s.start_date) AS INTEGER) `+dayOp+` ?
		ORDER BY s.owner_id, s.id`,
		day.String(), day.Day())
	if err != nil {
		return nil, fmt.Errorf("list renewals: %w", err)
	}
	defer rows.Close()

	var out []core.RenewalCandidate
	for rows.Next() {
		var (
			c                   core.RenewalCandidate
			price               decimal.Decimal
			category, startDate string
		)
		if err := rows.Scan(&c.Subscription.ID, &c.Subscription.OwnerID, &c.Subscription.Name, &price,
			&category, &startDate, &c.Subscription.Active, &c.Email, &c.FullName); err != nil {
			return nil, fmt.Errorf("scan renewal: %w", err)
		}
		start, err := parseStoredDate(startDate)
		if err != nil {
			return nil, err
		}
		c.Subscription.Price = core.Money{Amount: price}
		c.Subscription.Category = core.ParseCategory(category)
		c.Subscription.StartDate = start
		c.Email = strings.TrimSpace(c.Email)
		if core.RenewsOn(c.Subscription, day) {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}
