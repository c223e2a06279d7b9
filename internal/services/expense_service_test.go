package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*ExpenseService, string) {
	t.Helper()
	store := memory.New()
	user, err := store.CreateUser(context.Background(), core.User{
		ID:        "user-1",
		Email:     "u1@example.com",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	_, err = store.CreateUser(context.Background(), core.User{ID: "user-2", Email: "u2@example.com"})
	require.NoError(t, err)

	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	return NewExpenseService(store, c.now), user.ID
}

func create(t *testing.T, svc *ExpenseService, userID string, amount float64, category, date string) core.Expense {
	t.Helper()
	e, err := svc.Create(context.Background(), userID, CreateExpenseInput{
		Amount:   ptr(amount),
		Category: ptr(category),
		Date:     ptr(date),
	})
	require.NoError(t, err)
	return e
}

func TestCreate(t *testing.T) {
	svc, userID := newTestService(t)

	e, err := svc.Create(context.Background(), userID, CreateExpenseInput{
		Amount:      ptr(12.5),
		Category:    ptr("Food"),
		Description: ptr("lunch"),
		Date:        ptr("2024-01-15"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, userID, e.UserID)
	assert.Equal(t, int64(1250), e.Amount.Cents)
	assert.Equal(t, "Food", e.Category)
	assert.Equal(t, "lunch", e.Description)
	assert.Equal(t, "2024-01-15", e.Date.String())
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 1, 0, time.UTC), e.CreatedAt)
}

func TestCreateAcceptsZeroAndNegativeAmounts(t *testing.T) {
	svc, userID := newTestService(t)

	zero := create(t, svc, userID, 0, "Misc", "2024-01-01")
	refund := create(t, svc, userID, -4.99, "Refund", "2024-01-02")

	assert.Equal(t, int64(0), zero.Amount.Cents)
	assert.Equal(t, int64(-499), refund.Amount.Cents)
	assert.Equal(t, "", zero.Description)
}

func TestCreateValidation(t *testing.T) {
	svc, userID := newTestService(t)

	tests := []struct {
		name   string
		in     CreateExpenseInput
		fields []string
	}{
		{name: "empty payload", in: CreateExpenseInput{}, fields: []string{"amount", "category", "date"}},
		{name: "bad date", in: CreateExpenseInput{Amount: ptr(1.0), Category: ptr("Food"), Date: ptr("15/01/2024")}, fields: []string{"date"}},
		{name: "impossible date", in: CreateExpenseInput{Amount: ptr(1.0), Category: ptr("Food"), Date: ptr("2024-02-30")}, fields: []string{"date"}},
		{name: "huge amount", in: CreateExpenseInput{Amount: ptr(1e300), Category: ptr("Food"), Date: ptr("2024-01-01")}, fields: []string{"amount"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), userID, tt.in)
			ve, ok := core.AsValidationError(err)
			require.True(t, ok, "expected ValidationError, got %v", err)

			var got []string
			for _, f := range ve.Fields {
				got = append(got, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}

func TestListIsScopedAndOrdered(t *testing.T) {
	svc, userID := newTestService(t)
	ctx := context.Background()

	create(t, svc, userID, 1, "A", "2024-01-01")
	create(t, svc, userID, 2, "B", "2024-03-01")
	create(t, svc, "user-2", 3, "C", "2024-02-01")

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Category)
	assert.Equal(t, "A", list[1].Category)

	empty, err := svc.List(ctx, "user-3")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdate(t *testing.T) {
	svc, userID := newTestService(t)
	ctx := context.Background()
	e := create(t, svc, userID, 10, "Food", "2024-01-01")

	updated, err := svc.Update(ctx, userID, e.ID, UpdateExpenseInput{Amount: ptr(0.0), Description: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Amount.Cents)
	assert.Equal(t, "Food", updated.Category)
	assert.Equal(t, "2024-01-01", updated.Date.String())
	assert.Equal(t, e.CreatedAt, updated.CreatedAt)

	updated, err = svc.Update(ctx, userID, e.ID, UpdateExpenseInput{Category: ptr("Travel"), Date: ptr("2024-02-29")})
	require.NoError(t, err)
	assert.Equal(t, "Travel", updated.Category)
	assert.Equal(t, "2024-02-29", updated.Date.String())

	same, err := svc.Update(ctx, userID, e.ID, UpdateExpenseInput{})
	require.NoError(t, err)
	assert.Equal(t, updated, same)
}

func TestUpdateValidation(t *testing.T) {
	svc, userID := newTestService(t)
	e := create(t, svc, userID, 10, "Food", "2024-01-01")

	_, err := svc.Update(context.Background(), userID, e.ID, UpdateExpenseInput{Amount: ptr(1e300), Date: ptr("nope")})
	ve, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Fields, 2)

	_, err = svc.Update(context.Background(), userID, e.ID, UpdateExpenseInput{Date: ptr("2024-13-01")})
	_, ok = core.AsValidationError(err)
	assert.True(t, ok)
}

func TestCategoryIsFreeForm(t *testing.T) {
	svc, userID := newTestService(t)
	ctx := context.Background()

	for _, category := range []string{"", "   ", "Café & Bar", "food"} {
		e, err := svc.Create(ctx, userID, CreateExpenseInput{Amount: ptr(5.0), Category: ptr(category), Date: ptr("2024-01-05")})
		require.NoError(t, err, "category %q", category)
		assert.Equal(t, category, e.Category)
	}

	e := create(t, svc, userID, 10, "Food", "2024-01-01")
	updated, err := svc.Update(ctx, userID, e.ID, UpdateExpenseInput{Category: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Category)
}

func TestUpdateAndDeleteRespectOwnership(t *testing.T) {
	svc, userID := newTestService(t)
	ctx := context.Background()
	e := create(t, svc, userID, 10, "Food", "2024-01-01")

	_, err := svc.Update(ctx, "user-2", e.ID, UpdateExpenseInput{Amount: ptr(1.0)})
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "user-2", e.ID), core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, userID, "missing"), core.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, userID, e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, userID, e.ID), core.ErrNotFound)
}

func TestAnalytics(t *testing.T) {
	svc, userID := newTestService(t)
	ctx := context.Background()

	empty, err := svc.Analytics(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Total.Cents)
	assert.NotNil(t, empty.CategoryBreakdown)
	assert.NotNil(t, empty.MonthlySpending)
	assert.NotNil(t, empty.RecentExpenses)

	// Eight months, two expenses each.
	for m := 1; m <= 8; m++ {
		create(t, svc, userID, 10.10, "Food", fmt.Sprintf("2024-%02d-01", m))
		create(t, svc, userID, 0.20, "Coffee", fmt.Sprintf("2024-%02d-15", m))
	}

	a, err := svc.Analytics(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(8*1030), a.Total.Cents)

	require.Len(t, a.CategoryBreakdown, 2)
	assert.Equal(t, "Food", a.CategoryBreakdown[0].Category)
	assert.Equal(t, int64(8), a.CategoryBreakdown[0].Count)

	require.Len(t, a.MonthlySpending, AnalyticsMonths)
	assert.Equal(t, "2024-03", a.MonthlySpending[0].Month)
	assert.Equal(t, "2024-08", a.MonthlySpending[5].Month)

	require.Len(t, a.RecentExpenses, AnalyticsRecent)
	assert.Equal(t, "Coffee", a.RecentExpenses[0].Category)
	assert.Equal(t, "2024-08-15", a.RecentExpenses[0].Date.String())

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	var sum core.Money
	for _, e := range list {
		sum = sum.Add(e.Amount)
	}
	assert.Equal(t, sum, a.Total)
}

type failingStore struct {
	ExpenseStore
	err error
}

func (f failingStore) ExpenseTotal(context.Context, string) (core.Money, error) {
	return core.Money{}, f.err
}

func (f failingStore) CategoryBreakdown(context.Context, string) ([]core.CategoryTotal, error) {
	return nil, nil
}

func (f failingStore) MonthlySpending(context.Context, string, int) ([]core.MonthTotal, error) {
	return nil, nil
}

func (f failingStore) RecentExpenses(context.Context, string, int) ([]core.Expense, error) {
	return nil, nil
}

func (f failingStore) ListExpenses(context.Context, string) ([]core.Expense, error) {
	return nil, f.err
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := NewExpenseService(failingStore{err: boom}, nil)

	_, err := svc.Analytics(context.Background(), "user-1")
	assert.ErrorIs(t, err, boom)

	_, err = svc.List(context.Background(), "user-1")
	assert.ErrorIs(t, err, boom)
}
