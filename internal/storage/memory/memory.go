package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

var _ ports.Store = (*Store)(nil)

type record struct {
	expense core.Expense
	seq     uint64
}

// Store keeps users and expenses in process memory. Contents are lost on
// restart.
type Store struct {
	mu       sync.Mutex
	users    map[string]core.User // by id
	emails   map[string]string    // email -> id
	expenses map[string]*record   // by id
	seq      uint64
}

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		emails:   make(map[string]string),
		expenses: make(map[string]*record),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// CreateUser implements ports.UserStore
func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return core.User{}, core.ErrDuplicateUser
	}
	if _, ok := s.users[u.ID]; ok {
		return core.User{}, core.ErrDuplicateUser
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return u, nil
}

// GetUserByEmail implements ports.UserStore
func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emails[email]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return s.users[id], nil
}

// GetUserByID implements ports.UserStore
func (s *Store) GetUserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

// CreateExpense implements ports.ExpenseStore
func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[e.UserID]; !ok {
		return core.Expense{}, core.ErrNotFound
	}
	s.seq++
	s.expenses[e.ID] = &record{expense: e, seq: s.seq}
	return e, nil
}

// ListExpenses implements ports.ExpenseStore
func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	recs := s.owned(userID)
	s.mu.Unlock()

	slices.SortFunc(recs, func(a, b record) int {
		if c := b.expense.Date.Compare(a.expense.Date.Time); c != 0 {
			return c
		}
		if c := b.expense.CreatedAt.Compare(a.expense.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	return expensesOf(recs), nil
}

// GetExpense implements ports.ExpenseStore
func (s *Store) GetExpense(_ context.Context, userID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.expenses[id]
	if !ok || rec.expense.UserID != userID {
		return core.Expense{}, core.ErrNotFound
	}
	return rec.expense, nil
}

// UpdateExpense implements ports.ExpenseStore
func (s *Store) UpdateExpense(_ context.Context, userID, id string, patch core.ExpensePatch) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.expenses[id]
	if !ok || rec.expense.UserID != userID {
		return core.Expense{}, core.ErrNotFound
	}
	rec.expense = patch.Apply(rec.expense)
	return rec.expense, nil
}

// DeleteExpense implements ports.ExpenseStore
func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.expenses[id]
	if !ok || rec.expense.UserID != userID {
		return core.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

// ExpenseTotal implements ports.AnalyticsReader
func (s *Store) ExpenseTotal(_ context.Context, userID string) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total core.Money
	for _, rec := range s.expenses {
		if rec.expense.UserID == userID {
			total = total.Add(rec.expense.Amount)
		}
	}
	return total, nil
}

// CategoryBreakdown implements ports.AnalyticsReader
func (s *Store) CategoryBreakdown(_ context.Context, userID string) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	byCategory := map[string]*core.CategoryTotal{}
	for _, rec := range s.expenses {
		if rec.expense.UserID != userID {
			continue
		}
		ct, ok := byCategory[rec.expense.Category]
		if !ok {
			ct = &core.CategoryTotal{Category: rec.expense.Category}
			byCategory[rec.expense.Category] = ct
		}
		ct.Total = ct.Total.Add(rec.expense.Amount)
		ct.Count++
	}
	s.mu.Unlock()

	out := make([]core.CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		out = append(out, *ct)
	}
	slices.SortFunc(out, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.Total.Cents, a.Total.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out, nil
}

// MonthlySpending implements ports.AnalyticsReader
func (s *Store) MonthlySpending(_ context.Context, userID string, limit int) ([]core.MonthTotal, error) {
	s.mu.Lock()
	byMonth := map[string]core.Money{}
	for _, rec := range s.expenses {
		if rec.expense.UserID == userID {
			key := rec.expense.Date.MonthKey()
			byMonth[key] = byMonth[key].Add(rec.expense.Amount)
		}
	}
	s.mu.Unlock()

	out := make([]core.MonthTotal, 0, len(byMonth))
	for month, total := range byMonth {
		out = append(out, core.MonthTotal{Month: month, Total: total})
	}
	slices.SortFunc(out, func(a, b core.MonthTotal) int { return cmp.Compare(a.Month, b.Month) })
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// RecentExpenses implements ports.AnalyticsReader
func (s *Store) RecentExpenses(_ context.Context, userID string, limit int) ([]core.Expense, error) {
	s.mu.Lock()
	recs := s.owned(userID)
	s.mu.Unlock()

	slices.SortFunc(recs, func(a, b record) int {
		if c := b.expense.CreatedAt.Compare(a.expense.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})
	if limit >= 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return expensesOf(recs), nil
}

// owned copies userID's records. Callers hold s.mu.
func (s *Store) owned(userID string) []record {
	var out []record
	for _, rec := range s.expenses {
		if rec.expense.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out
}

func expensesOf(recs []record) []core.Expense {
	out := make([]core.Expense, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.expense)
	}
	return out
}
