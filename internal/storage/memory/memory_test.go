package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
	"expensetracker/internal/storage/storetest"
)

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, &storetest.Suite{
		NewStore: func() (ports.Store, error) { return New(), nil },
	})
}

func TestCreateExpenseRequiresKnownUser(t *testing.T) {
	s := New()
	_, err := s.CreateExpense(context.Background(), core.Expense{
		ID: "e1", UserID: "ghost", Category: "Food", Date: core.NewDate(2024, 1, 1),
	})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestConcurrentCreates(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.CreateUser(ctx, core.User{ID: "u1", Email: "a@x.com", CreatedAt: time.Now()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.CreateExpense(ctx, core.Expense{
				ID:        fmt.Sprintf("e%d", i),
				UserID:    "u1",
				Amount:    core.Money{Cents: 100},
				Category:  "Food",
				Date:      core.NewDate(2024, 1, 1),
				CreatedAt: time.Now(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	total, err := s.ExpenseTotal(ctx, "u1")
	require.NoError(t, err)
	list, err := s.ListExpenses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 50)
	assert.Equal(t, int64(5000), total.Cents)
}
