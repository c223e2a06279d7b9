package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for storage backends.
type (
	// UserStore persists user records. CreateUser returns core.ErrDuplicateUser
	// when the email is taken; lookups return core.ErrNotFound.
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		GetUserByID(ctx context.Context, id string) (core.User, error)
	}

	// ExpenseStore persists expenses. Every method is scoped by userID and a
	// row owned by someone else is indistinguishable from a missing one.
	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// ListExpenses orders by date descending, newest insert first on ties.
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
		// UpdateExpense applies the patch to the stored row in one transaction.
		UpdateExpense(ctx context.Context, userID, id string, patch core.ExpensePatch) (core.Expense, error)
		DeleteExpense(ctx context.Context, userID, id string) error
	}

	// AnalyticsReader computes per-user aggregates.
	AnalyticsReader interface {
		ExpenseTotal(ctx context.Context, userID string) (core.Money, error)
		// CategoryBreakdown orders by total descending, then category name.
		CategoryBreakdown(ctx context.Context, userID string) ([]core.CategoryTotal, error)
		// MonthlySpending returns the most recent limit months with activity,
		// in ascending month order.
		MonthlySpending(ctx context.Context, userID string, limit int) ([]core.MonthTotal, error)
		// RecentExpenses orders by creation time descending.
		RecentExpenses(ctx context.Context, userID string, limit int) ([]core.Expense, error)
	}

	// Store is a complete backend.
	Store interface {
		UserStore
		ExpenseStore
		AnalyticsReader
		Ping(ctx context.Context) error
		Close() error
	}
)
