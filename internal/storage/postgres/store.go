// Package postgres is the hosted store backed by a pgx connection pool.
//
// Amounts travel as text and are cast to NUMERIC in SQL; dates travel as
// YYYY-MM-DD text and come back through to_char, so no value is ever
// converted through a time zone.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"recur/internal/core"
)

type Store struct {
	pool *pgxpool.Pool
}

// New connects, pings and migrates.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func money(s string) (core.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("stored amount %q: %w", s, err)
	}
	return core.Money{Amount: d}, nil
}

func date(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("stored date: %w", err)
	}
	return d, nil
}

// Profiles

func (s *Store) GetProfile(ctx context.Context, ownerID string) (core.Profile, error) {
	var (
		p                   core.Profile
		income, savingsGoal string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT owner_id, email, full_name, income::text, savings_goal::text
		 FROM profiles WHERE owner_id = $1`,
		ownerID,
	).Scan(&p.OwnerID, &p.Email, &p.FullName, &income, &savingsGoal)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Profile{}, core.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if p.Income, err = money(income); err != nil {
		return core.Profile{}, err
	}
	if p.SavingsGoal, err = money(savingsGoal); err != nil {
		return core.Profile{}, err
	}
	return p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, p core.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (owner_id, email, full_name, income, savings_goal, updated_at)
		 VALUES ($1, $2, $3, $4::numeric, $5::numeric, NOW())
		 ON CONFLICT (owner_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   full_name = EXCLUDED.full_name,
		   income = EXCLUDED.income,
		   savings_goal = EXCLUDED.savings_goal,
		   updated_at = NOW()`,
		p.OwnerID, p.Email, p.FullName, p.Income.Amount.String(), p.SavingsGoal.Amount.String())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Subscriptions

const subscriptionColumns = `id::text, owner_id, name, price::text, category, to_char(start_date, 'YYYY-MM-DD'), active`

func scanSubscription(row pgx.Row) (core.Subscription, error) {
	var (
		sub                    core.Subscription
		price, category, start string
	)
	if err := row.Scan(&sub.ID, &sub.OwnerID, &sub.Name, &price, &category, &start, &sub.Active); err != nil {
		return core.Subscription{}, err
	}
	var err error
	if sub.Price, err = money(price); err != nil {
		return core.Subscription{}, err
	}
	if sub.StartDate, err = date(start); err != nil {
		return core.Subscription{}, err
	}
	sub.Category = core.ParseCategory(category)
	return sub, nil
}

func (s *Store) ListActiveSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE owner_id = $1 AND active
		 ORDER BY price DESC, name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) SaveSubscription(ctx context.Context, sub core.Subscription) (core.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
		_, err := s.pool.Exec(ctx,
			`INSERT INTO subscriptions (id, owner_id, name, price, category, start_date, active)
			 VALUES ($1::uuid, $2, $3, $4::numeric, $5, $6::date, $7)`,
			sub.ID, sub.OwnerID, sub.Name, sub.Price.Amount.String(), string(sub.Category), sub.StartDate.String(), sub.Active)
		if err != nil {
			return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
		}
		slog.InfoContext(ctx, "Subscription saved to Postgres", "id", sub.ID, "name", sub.Name)
		return sub, nil
	}
	if _, err := uuid.Parse(sub.ID); err != nil {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", sub.ID, core.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET name = $1, price = $2::numeric, category = $3, start_date = $4::date, active = $5
		 WHERE id = $6::uuid AND owner_id = $7`,
		sub.Name, sub.Price.Amount.String(), string(sub.Category), sub.StartDate.String(), sub.Active, sub.ID, sub.OwnerID)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.Subscription{}, fmt.Errorf("subscription %s: %w", sub.ID, core.ErrNotFound)
	}
	return sub, nil
}

func (s *Store) DeactivateSubscription(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE subscriptions SET active = FALSE WHERE id = $1::uuid AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// Expenses

const expenseColumns = `id::text, owner_id, title, amount::text, to_char(date, 'YYYY-MM-DD'), category, recurring`

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e                     core.Expense
		amount, day, category string
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &amount, &day, &category, &e.Recurring); err != nil {
		return core.Expense{}, err
	}
	var err error
	if e.Amount, err = money(amount); err != nil {
		return core.Expense{}, err
	}
	if e.Date, err = date(day); err != nil {
		return core.Expense{}, err
	}
	e.Category = core.ParseCategory(category)
	return e, nil
}

func queryExpenses(ctx context.Context, q dbtx, sql string, args ...any) ([]core.Expense, error) {
	rows, err := q.Query(ctx, sql, args...)
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
	WHERE owner_id = $1 AND date >= $2::date AND date <= $3::date
	ORDER BY date DESC, created_at DESC`

func (s *Store) ListExpenses(ctx context.Context, ownerID string, start, end core.Date) ([]core.Expense, error) {
	out, err := queryExpenses(ctx, s.pool, selectMonthExpenses, ownerID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *Store) ListAllExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	out, err := queryExpenses(ctx, s.pool,
		`SELECT `+expenseColumns+` FROM expenses WHERE owner_id = $1 ORDER BY date DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return out, nil
}

func insertExpenses(ctx context.Context, q dbtx, expenses []core.Expense) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		e.ID = uuid.NewString()
		_, err := q.Exec(ctx,
			`INSERT INTO expenses (id, owner_id, title, amount, date, category, recurring)
			 VALUES ($1::uuid, $2, $3, $4::numeric, $5::date, $6, $7)`,
			e.ID, e.OwnerID, e.Title, e.Amount.Amount.String(), e.Date.String(), string(e.Category), e.Recurring)
		if err != nil {
			return nil, fmt.Errorf("insert expense %q: %w", e.Title, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) InsertExpenses(ctx context.Context, expenses []core.Expense) ([]core.Expense, error) {
	var out []core.Expense
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		out, err = insertExpenses(ctx, tx, expenses)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MaterializeIfAbsent serializes writers of one (owner, month) with a
// transaction scoped advisory lock, then re-checks the gate before inserting.
func (s *Store) MaterializeIfAbsent(ctx context.Context, ownerID string, rng core.MonthRange, gate core.MaterializationGate, batch []core.Expense) ([]core.Expense, bool, error) {
	var (
		inserted []core.Expense
		created  bool
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "materialize|"+ownerID+"|"+rng.Key.String()); err != nil {
			return fmt.Errorf("lock month: %w", err)
		}
		existing, err := queryExpenses(ctx, tx, selectMonthExpenses, ownerID, rng.Start.String(), rng.End.String())
		if err != nil {
			return fmt.Errorf("recheck month: %w", err)
		}
		if gate.Closed(existing) {
			return nil
		}
		inserted, err = insertExpenses(ctx, tx, batch)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return inserted, created, nil
}

func (s *Store) DeleteExpense(ctx context.Context, ownerID, id string) (core.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	e, err := scanExpense(s.pool.QueryRow(ctx,
		`DELETE FROM expenses WHERE id = $1::uuid AND owner_id = $2 RETURNING `+expenseColumns, id, ownerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}
	return e, nil
}

// Budget periods

func scanBudgetPeriod(row pgx.Row) (core.BudgetPeriod, error) {
	var (
		p             core.BudgetPeriod
		month, income string
	)
	if err := row.Scan(&p.OwnerID, &month, &income); err != nil {
		return core.BudgetPeriod{}, err
	}
	k, err := core.ParseMonthKey(month)
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("stored month: %w", err)
	}
	p.Month = k
	if p.Income, err = money(income); err != nil {
		return core.BudgetPeriod{}, err
	}
	return p, nil
}

func (s *Store) ListBudgetPeriods(ctx context.Context, ownerID string) ([]core.BudgetPeriod, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner_id, month, income::text FROM budget_periods WHERE owner_id = $1 ORDER BY month`, ownerID)
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

func (s *Store) GetBudgetPeriod(ctx context.Context, ownerID string, month core.MonthKey) (core.BudgetPeriod, error) {
	p, err := scanBudgetPeriod(s.pool.QueryRow(ctx,
		`SELECT owner_id, month, income::text FROM budget_periods WHERE owner_id = $1 AND month = $2`,
		ownerID, month.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.BudgetPeriod{}, core.ErrNotFound
	}
	if err != nil {
		return core.BudgetPeriod{}, fmt.Errorf("get budget period: %w", err)
	}
	return p, nil
}

func (s *Store) SetBudgetPeriod(ctx context.Context, p core.BudgetPeriod) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO budget_periods (owner_id, month, income) VALUES ($1, $2, $3::numeric)
		 ON CONFLICT (owner_id, month) DO UPDATE SET income = EXCLUDED.income`,
		p.OwnerID, p.Month.String(), p.Income.Amount.String())
	if err != nil {
		return fmt.Errorf("upsert budget period: %w", err)
	}
	return nil
}

// Renewals

func (s *Store) ListRenewalsOn(ctx context.Context, day core.Date) ([]core.RenewalCandidate, error) {
	dayOp := "="
	if day.AddDays(1).Day() == 1 {
		dayOp = ">="
	}
	rows, err := s.pool.Query(ctx,
		`SELECT s.id::text, s.owner_id, s.name, s.price::text, s.category, to_char(s.start_date, 'YYYY-MM-DD'), s.active,
		        COALESCE(p.email, ''), COALESCE(p.full_name, '')
		 FROM subscriptions s
		 LEFT JOIN profiles p ON p.owner_id = s.owner_id
		 WHERE s.active
		   AND s.start_date <= $1::date
		   AND EXTRACT(DAY FROM s.start_date)::int `+dayOp+` $2::int
		 ORDER BY s.owner_id, s.id`,
		day.String(), day.Day())
	if err != nil {
		return nil, fmt.Errorf("list renewals: %w", err)
	}
	defer rows.Close()

	var out []core.RenewalCandidate
	for rows.Next() {
		var (
			c                      core.RenewalCandidate
			price, category, start string
		)
		if err := rows.Scan(&c.Subscription.ID, &c.Subscription.OwnerID, &c.Subscription.Name, &price,
			&category, &start, &c.Subscription.Active, &c.Email, &c.FullName); err != nil {
			return nil, fmt.Errorf("scan renewal: %w", err)
		}
		if c.Subscription.Price, err = money(price); err != nil {
			return nil, err
		}
		if c.Subscription.StartDate, err = date(start); err != nil {
			return nil, err
		}
		c.Subscription.Category = core.ParseCategory(category)
		c.Email = strings.TrimSpace(c.Email)
		if core.RenewsOn(c.Subscription, day) {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}
