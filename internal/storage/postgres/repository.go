package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

const uniqueViolation = "23505"

const expenseColumns = "id, user_id, amount_cents, category, description, date, created_at"

var _ ports.Store = (*Repository)(nil)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type Repository struct {
	pool *pgxpool.Pool
}

// New migrates the schema and opens a connection pool.
func New(ctx context.Context, cfg Config) (*Repository, error) {
	version, err := RunMigrations(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.InfoContext(ctx, "Postgres repository ready",
		"max_conns", poolConfig.MaxConns,
		"schema_version", version)

	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// CreateUser implements ports.UserStore
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return core.User{}, core.ErrDuplicateUser
		}
		return core.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail implements ports.UserStore
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

// GetUserByID implements ports.UserStore
func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *Repository) getUser(ctx context.Context, query string, arg string) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// CreateExpense implements ports.ExpenseStore
func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO expenses (`+expenseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Amount.Cents, e.Category, e.Description, e.Date.Time, e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("failed to create expense: %w", err)
	}
	return e, nil
}

// ListExpenses implements ports.ExpenseStore
func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE user_id = $1
		 ORDER BY date DESC, created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return collectExpenses(rows)
}

// GetExpense implements ports.ExpenseStore
func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND user_id = $2`, id, userID))
}

// UpdateExpense implements ports.ExpenseStore
func (r *Repository) UpdateExpense(ctx context.Context, userID, id string, patch core.ExpensePatch) (core.Expense, error) {
	var updated core.Expense
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanExpense(tx.QueryRow(ctx,
			`SELECT `+expenseColumns+` FROM expenses WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID))
		if err != nil {
			return err
		}
		updated = patch.Apply(current)
		_, err = tx.Exec(ctx,
			`UPDATE expenses SET amount_cents = $1, category = $2, description = $3, date = $4
			 WHERE id = $5 AND user_id = $6`,
			updated.Amount.Cents, updated.Category, updated.Description, updated.Date.Time, id, userID)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Expense{}, err
	}
	return updated, nil
}

// DeleteExpense implements ports.ExpenseStore
func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ExpenseTotal implements ports.AnalyticsReader
func (r *Repository) ExpenseTotal(ctx context.Context, userID string) (core.Money, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0)::bigint FROM expenses WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("failed to get expense total: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// CategoryBreakdown implements ports.AnalyticsReader
func (r *Repository) CategoryBreakdown(ctx context.Context, userID string) ([]core.CategoryTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, SUM(amount_cents)::bigint AS total, COUNT(*) AS count
		 FROM expenses
		 WHERE user_id = $1
		 GROUP BY category
		 ORDER BY total DESC, category ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category breakdown: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryTotal, error) {
		var ct core.CategoryTotal
		err := row.Scan(&ct.Category, &ct.Total.Cents, &ct.Count)
		return ct, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan category totals: %w", err)
	}
	if out == nil {
		out = []core.CategoryTotal{}
	}
	return out, nil
}

// MonthlySpending implements ports.AnalyticsReader
func (r *Repository) MonthlySpending(ctx context.Context, userID string, limit int) ([]core.MonthTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT month, total FROM (
		   SELECT to_char(date, 'YYYY-MM') AS month, SUM(amount_cents)::bigint AS total
		   FROM expenses
		   WHERE user_id = $1
		   GROUP BY month
		   ORDER BY month DESC
		   LIMIT $2
		 ) recent
		 ORDER BY month ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly spending: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.MonthTotal, error) {
		var mt core.MonthTotal
		err := row.Scan(&mt.Month, &mt.Total.Cents)
		return mt, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan month totals: %w", err)
	}
	if out == nil {
		out = []core.MonthTotal{}
	}
	return out, nil
}

// RecentExpenses implements ports.AnalyticsReader
func (r *Repository) RecentExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent expenses: %w", err)
	}
	return collectExpenses(rows)
}

func scanExpense(row pgx.Row) (core.Expense, error) {
	var (
		e    core.Expense
		date time.Time
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Category, &e.Description, &date, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("failed to scan expense: %w", err)
	}
	e.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func collectExpenses(rows pgx.Rows) ([]core.Expense, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		return scanExpense(row)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Expense{}
	}
	return out, nil
}
