// Package storetest holds the behavioural suite every ports.Store backend
// must pass.
package storetest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

// Suite runs against a fresh store per test. Embed it and set NewStore, or
// call Run.
type Suite struct {
	suite.Suite

	NewStore func() (ports.Store, error)

	store ports.Store
	ctx   context.Context
	clock time.Time
}

func (s *Suite) SetupTest() {
	store, err := s.NewStore()
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
	s.clock = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

// Store exposes the store under test to embedding suites.
func (s *Suite) Store() ports.Store { return s.store }

func (s *Suite) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Suite) newUser(email string) core.User {
	u, err := s.store.CreateUser(s.ctx, core.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "$2a$04$hash",
		CreatedAt:    s.tick(),
	})
	s.Require().NoError(err)
	return u
}

func (s *Suite) newExpense(userID string, cents int64, category, date string) core.Expense {
	d, err := core.ParseDate(date)
	s.Require().NoError(err)
	e, err := s.store.CreateExpense(s.ctx, core.Expense{
		ID:          uuid.New().String(),
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Description: fmt.Sprintf("%s on %s", category, date),
		Date:        d,
		CreatedAt:   s.tick(),
	})
	s.Require().NoError(err)
	return e
}

func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *Suite) TestCreateAndFetchUser() {
	u := s.newUser("a@x.com")

	byEmail, err := s.store.GetUserByEmail(s.ctx, "a@x.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
	s.Equal(u.PasswordHash, byEmail.PasswordHash)
	s.True(u.CreatedAt.Equal(byEmail.CreatedAt))

	byID, err := s.store.GetUserByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("a@x.com", byID.Email)
}

func (s *Suite) TestDuplicateEmail() {
	s.newUser("a@x.com")
	_, err := s.store.CreateUser(s.ctx, core.User{
		ID: uuid.New().String(), Email: "a@x.com", PasswordHash: "h", CreatedAt: s.tick(),
	})
	s.ErrorIs(err, core.ErrDuplicateUser)
}

func (s *Suite) TestEmailIsCaseSensitive() {
	s.newUser("a@x.com")
	s.newUser("A@x.com")

	_, err := s.store.GetUserByEmail(s.ctx, "A@X.COM")
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestUnknownUser() {
	_, err := s.store.GetUserByEmail(s.ctx, "nobody@x.com")
	s.ErrorIs(err, core.ErrNotFound)
	_, err = s.store.GetUserByID(s.ctx, uuid.New().String())
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestCreateAndGetExpense() {
	u := s.newUser("a@x.com")
	e := s.newExpense(u.ID, -1250, "Refund", "2024-01-05")

	got, err := s.store.GetExpense(s.ctx, u.ID, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal(int64(-1250), got.Amount.Cents)
	s.Equal("Refund", got.Category)
	s.Equal(e.Description, got.Description)
	s.Equal(core.NewDate(2024, 1, 5), got.Date)
	s.True(e.CreatedAt.Equal(got.CreatedAt))
}

func (s *Suite) TestListOrderedByDateDescending() {
	u := s.newUser("a@x.com")
	older := s.newExpense(u.ID, 100, "Food", "2024-01-01")
	newest := s.newExpense(u.ID, 200, "Food", "2024-03-01")
	sameDayFirst := s.newExpense(u.ID, 300, "Food", "2024-02-01")
	sameDaySecond := s.newExpense(u.ID, 400, "Food", "2024-02-01")

	list, err := s.store.ListExpenses(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 4)
	s.Equal([]string{newest.ID, sameDaySecond.ID, sameDayFirst.ID, older.ID},
		[]string{list[0].ID, list[1].ID, list[2].ID, list[3].ID})
}

func (s *Suite) TestListEmpty() {
	u := s.newUser("a@x.com")
	list, err := s.store.ListExpenses(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(list)
	s.Empty(list)
}

func (s *Suite) TestOwnershipIsolation() {
	a := s.newUser("a@x.com")
	b := s.newUser("b@x.com")
	e := s.newExpense(a.ID, 1000, "Food", "2024-01-05")

	_, err := s.store.GetExpense(s.ctx, b.ID, e.ID)
	s.ErrorIs(err, core.ErrNotFound)

	amount := core.Money{Cents: 1}
	_, err = s.store.UpdateExpense(s.ctx, b.ID, e.ID, core.ExpensePatch{Amount: &amount})
	s.ErrorIs(err, core.ErrNotFound)

	s.ErrorIs(s.store.DeleteExpense(s.ctx, b.ID, e.ID), core.ErrNotFound)

	listB, err := s.store.ListExpenses(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Empty(listB)

	totalB, err := s.store.ExpenseTotal(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Zero(totalB.Cents)

	listA, err := s.store.ListExpenses(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(listA, 1)
	s.Equal(int64(1000), listA[0].Amount.Cents)
}

func (s *Suite) TestUpdatePartial() {
	u := s.newUser("a@x.com")
	e := s.newExpense(u.ID, 1000, "Food", "2024-01-05")

	amount := core.Money{Cents: 5000}
	updated, err := s.store.UpdateExpense(s.ctx, u.ID, e.ID, core.ExpensePatch{Amount: &amount})
	s.Require().NoError(err)
	s.Equal(int64(5000), updated.Amount.Cents)
	s.Equal("Food", updated.Category)
	s.Equal(e.Description, updated.Description)
	s.Equal(e.Date, updated.Date)

	again, err := s.store.UpdateExpense(s.ctx, u.ID, e.ID, core.ExpensePatch{Amount: &amount})
	s.Require().NoError(err)
	s.Equal(updated.Amount, again.Amount)

	empty := ""
	zero := core.Money{}
	date := core.NewDate(2023, 12, 31)
	cleared, err := s.store.UpdateExpense(s.ctx, u.ID, e.ID, core.ExpensePatch{Amount: &zero, Description: &empty, Date: &date})
	s.Require().NoError(err)
	s.Zero(cleared.Amount.Cents)
	s.Empty(cleared.Description)

	stored, err := s.store.GetExpense(s.ctx, u.ID, e.ID)
	s.Require().NoError(err)
	s.Zero(stored.Amount.Cents)
	s.Empty(stored.Description)
	s.Equal(date, stored.Date)
	s.True(e.CreatedAt.Equal(stored.CreatedAt))
}

func (s *Suite) TestUpdateMissing() {
	u := s.newUser("a@x.com")
	_, err := s.store.UpdateExpense(s.ctx, u.ID, uuid.New().String(), core.ExpensePatch{})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestDeleteTwice() {
	u := s.newUser("a@x.com")
	e := s.newExpense(u.ID, 1000, "Food", "2024-01-05")

	s.Require().NoError(s.store.DeleteExpense(s.ctx, u.ID, e.ID))
	s.ErrorIs(s.store.DeleteExpense(s.ctx, u.ID, e.ID), core.ErrNotFound)

	_, err := s.store.GetExpense(s.ctx, u.ID, e.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestAnalyticsEmpty() {
	u := s.newUser("a@x.com")

	total, err := s.store.ExpenseTotal(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Zero(total.Cents)

	breakdown, err := s.store.CategoryBreakdown(s.ctx, u.ID)
	s.Require().NoError(err)
	s.NotNil(breakdown)
	s.Empty(breakdown)

	months, err := s.store.MonthlySpending(s.ctx, u.ID, 6)
	s.Require().NoError(err)
	s.NotNil(months)
	s.Empty(months)

	recent, err := s.store.RecentExpenses(s.ctx, u.ID, 10)
	s.Require().NoError(err)
	s.NotNil(recent)
	s.Empty(recent)
}

func (s *Suite) TestAnalyticsAggregates() {
	u := s.newUser("a@x.com")
	other := s.newUser("b@x.com")
	s.newExpense(other.ID, 99999, "Food", "2024-01-01")

	s.newExpense(u.ID, 1250, "Food", "2024-01-05")
	s.newExpense(u.ID, 750, "Food", "2024-02-10")
	s.newExpense(u.ID, 3000, "Rent", "2024-02-01")
	s.newExpense(u.ID, -500, "Refund", "2024-02-15")
	s.newExpense(u.ID, 1000, "Books", "2024-03-01")
	s.newExpense(u.ID, 1000, "Art", "2024-03-02")

	total, err := s.store.ExpenseTotal(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(int64(6500), total.Cents)

	list, err := s.store.ListExpenses(s.ctx, u.ID)
	s.Require().NoError(err)
	var sum int64
	for _, e := range list {
		sum += e.Amount.Cents
	}
	s.Equal(total.Cents, sum)

	breakdown, err := s.store.CategoryBreakdown(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal([]core.CategoryTotal{
		{Category: "Rent", Total: core.Money{Cents: 3000}, Count: 1},
		{Category: "Food", Total: core.Money{Cents: 2000}, Count: 2},
		{Category: "Art", Total: core.Money{Cents: 1000}, Count: 1},
		{Category: "Books", Total: core.Money{Cents: 1000}, Count: 1},
		{Category: "Refund", Total: core.Money{Cents: -500}, Count: 1},
	}, breakdown)

	months, err := s.store.MonthlySpending(s.ctx, u.ID, 6)
	s.Require().NoError(err)
	s.Equal([]core.MonthTotal{
		{Month: "2024-01", Total: core.Money{Cents: 1250}},
		{Month: "2024-02", Total: core.Money{Cents: 3250}},
		{Month: "2024-03", Total: core.Money{Cents: 2000}},
	}, months)
}

func (s *Suite) TestMonthlySpendingKeepsMostRecentMonths() {
	u := s.newUser("a@x.com")
	for month := 1; month <= 8; month++ {
		s.newExpense(u.ID, int64(month*100), "Food", fmt.Sprintf("2023-%02d-15", month))
	}
	s.newExpense(u.ID, 100, "Food", "2024-01-03")

	months, err := s.store.MonthlySpending(s.ctx, u.ID, 6)
	s.Require().NoError(err)
	s.Require().Len(months, 6)
	s.Equal("2023-04", months[0].Month)
	s.Equal("2024-01", months[5].Month)
	for i := 1; i < len(months); i++ {
		s.Less(months[i-1].Month, months[i].Month)
	}
}

func (s *Suite) TestRecentExpensesByCreationTime() {
	u := s.newUser("a@x.com")
	var ids []string
	for i := 0; i < 12; i++ {
		// Dates run backwards so creation order and date order disagree.
		e := s.newExpense(u.ID, 100, "Food", fmt.Sprintf("2024-01-%02d", 28-i))
		ids = append(ids, e.ID)
	}

	recent, err := s.store.RecentExpenses(s.ctx, u.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 10)
	s.Equal(ids[11], recent[0].ID)
	s.Equal(ids[2], recent[9].ID)
}
