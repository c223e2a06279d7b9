package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
	"expensetracker/internal/validation"
)

const (
	// AnalyticsMonths is how many active months the monthly series covers.
	AnalyticsMonths = 6
	// AnalyticsRecent is the length of the recent-expenses preview.
	AnalyticsRecent = 10
)

// ExpenseStore is everything the service needs from a backend.
type ExpenseStore interface {
	ports.ExpenseStore
	ports.AnalyticsReader
}

// CreateExpenseInput is the payload of a new expense.
type CreateExpenseInput struct {
	Amount      *float64 `json:"amount" validate:"required"`
	Category    *string  `json:"category" validate:"required"`
	Description *string  `json:"description"`
	Date        *string  `json:"date" validate:"required,datetime=2006-01-02"`
}

// UpdateExpenseInput carries a partial update. Nil fields are left alone.
type UpdateExpenseInput struct {
	Amount      *float64 `json:"amount"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	Date        *string  `json:"date" validate:"omitnil,datetime=2006-01-02"`
}

// ExpenseService implements expense CRUD and analytics for one user at a time.
type ExpenseService struct {
	store ExpenseStore
	now   func() time.Time
}

// NewExpenseService returns a service over store. A nil clock means time.Now.
func NewExpenseService(store ExpenseStore, clock func() time.Time) *ExpenseService {
	if clock == nil {
		clock = time.Now
	}
	return &ExpenseService{
		store: store,
		now:   clock,
	}
}

func (s *ExpenseService) Create(ctx context.Context, userID string, in CreateExpenseInput) (core.Expense, error) {
	if err := validation.Struct(in); err != nil {
		return core.Expense{}, err
	}

	ve := &core.ValidationError{}
	amount, err := core.MoneyFromFloat(*in.Amount)
	if err != nil {
		ve.Add("amount", "Amount out of range")
	}
	date, err := core.ParseDate(*in.Date)
	if err != nil {
		ve.Add("date", "Expected date in YYYY-MM-DD format")
	}
	if len(ve.Fields) > 0 {
		return core.Expense{}, ve
	}

	e := core.Expense{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Category:  *in.Category,
		Date:      date,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}
	if in.Description != nil {
		e.Description = *in.Description
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Expense created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithUser(userID).
			WithExpense(created.ID, created.Amount.Cents, created.Category).
			ToSlice()...)

	return created, nil
}

func (s *ExpenseService) List(ctx context.Context, userID string) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return expenses, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID, id string, in UpdateExpenseInput) (core.Expense, error) {
	patch, err := in.patch()
	if err != nil {
		return core.Expense{}, err
	}

	updated, err := s.store.UpdateExpense(ctx, userID, id, patch)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Expense updated",
		log.NewFields().
			WithOperation(log.OpUpdate).
			WithUser(userID).
			WithExpense(updated.ID, updated.Amount.Cents, updated.Category).
			ToSlice()...)

	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	log.FromContext(ctx).InfoContext(ctx, "Expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldUserID, userID,
		log.FieldExpenseID, id)

	return nil
}

// Analytics gathers the four aggregates concurrently.
func (s *ExpenseService) Analytics(ctx context.Context, userID string) (core.Analytics, error) {
	out := core.EmptyAnalytics()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.ExpenseTotal(gctx, userID)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		out.Total = total
		return nil
	})
	g.Go(func() error {
		breakdown, err := s.store.CategoryBreakdown(gctx, userID)
		if err != nil {
			return fmt.Errorf("category breakdown: %w", err)
		}
		if breakdown != nil {
			out.CategoryBreakdown = breakdown
		}
		return nil
	})
	g.Go(func() error {
		months, err := s.store.MonthlySpending(gctx, userID, AnalyticsMonths)
		if err != nil {
			return fmt.Errorf("monthly spending: %w", err)
		}
		if months != nil {
			out.MonthlySpending = months
		}
		return nil
	})
	g.Go(func() error {
		recent, err := s.store.RecentExpenses(gctx, userID, AnalyticsRecent)
		if err != nil {
			return fmt.Errorf("recent expenses: %w", err)
		}
		if recent != nil {
			out.RecentExpenses = recent
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Analytics{}, fmt.Errorf("analytics: %w", err)
	}
	return out, nil
}

func (in UpdateExpenseInput) patch() (core.ExpensePatch, error) {
	if err := validation.Struct(in); err != nil {
		return core.ExpensePatch{}, err
	}

	var (
		patch core.ExpensePatch
		ve    = &core.ValidationError{}
	)
	if in.Amount != nil {
		amount, err := core.MoneyFromFloat(*in.Amount)
		if err != nil {
			ve.Add("amount", "Amount out of range")
		}
		patch.Amount = &amount
	}
	if in.Category != nil {
		patch.Category = in.Category
	}
	if in.Description != nil {
		patch.Description = in.Description
	}
	if in.Date != nil {
		date, err := core.ParseDate(*in.Date)
		if err != nil {
			ve.Add("date", "Expected date in YYYY-MM-DD format")
		}
		patch.Date = &date
	}
	if len(ve.Fields) > 0 {
		return core.ExpensePatch{}, ve
	}
	return patch, nil
}
