package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of expense dates.
const DateLayout = "2006-01-02"

// MonthLayout is the key format used when grouping by calendar month.
const MonthLayout = "2006-01"

type (
	// Date is a calendar date with no time component, always UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// PublicUser is the user record exposed over the API; it never carries the hash.
	PublicUser struct {
		ID        string    `json:"id"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}

	Expense struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		Amount      Money     `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// ExpensePatch carries the fields of a partial update. A nil field keeps
	// the stored value.
	ExpensePatch struct {
		Amount      *Money
		Category    *string
		Description *string
		Date        *Date
	}

	CategoryTotal struct {
		Category string `json:"category"`
		Total    Money  `json:"total"`
		Count    int64  `json:"count"`
	}

	MonthTotal struct {
		Month string `json:"month"`
		Total Money  `json:"total"`
	}

	Analytics struct {
		Total             Money           `json:"total"`
		CategoryBreakdown []CategoryTotal `json:"categoryBreakdown"`
		MonthlySpending   []MonthTotal    `json:"monthlySpending"`
		RecentExpenses    []Expense       `json:"recentExpenses"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingOwner  = errors.New("expense has no owner")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (e Expense) Validate() error {
	if e.UserID == "" {
		return ErrMissingOwner
	}
	return e.Date.Validate()
}

// Apply returns e with every non-nil patch field written over it.
// Identity, owner and creation time never change.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	return e
}

// IsEmpty reports whether the patch would leave the expense unchanged.
func (p ExpensePatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.Date == nil
}

// EmptyAnalytics is the result for a user with no expenses.
func EmptyAnalytics() Analytics {
	return Analytics{
		CategoryBreakdown: []CategoryTotal{},
		MonthlySpending:   []MonthTotal{},
		RecentExpenses:    []Expense{},
	}
}
