package core

import (
	"strings"
	"time"
)

const (
	RoleAdmin    Role = "admin"
	RoleUser     Role = "user"
	RoleReadOnly Role = "read-only"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	Role string

	TransactionType string

	// Date is a calendar date without a time component, serialized as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	User struct {
		ID           int64     `json:"id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Role         Role      `json:"role"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Category struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID          int64           `json:"id"`
		UserID      int64           `json:"userId"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		CategoryID  *int64          `json:"categoryId"`
		Description string          `json:"description,omitempty"`
		Notes       string          `json:"notes,omitempty"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
		Category    *Category       `json:"category,omitempty"`
	}
)

// IsValid reports whether the role is one of the three known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleReadOnly:
		return true
	default:
		return false
	}
}

// IsValid reports whether the type is one of the two enumerated values.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: parsed}, nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the calendar month key (YYYY-MM) the date falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the invariants that must hold before a transaction is persisted.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 500 {
		return ErrDescriptionTooLong
	}
	return nil
}
