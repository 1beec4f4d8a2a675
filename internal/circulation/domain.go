// internal/circulation/domain.go
package circulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// LoanDays is the fixed loan period.
	LoanDays = 14
	// PenaltyPerDay is charged for every started day past the due date.
	PenaltyPerDay = 1000
	// MaxActiveLoans caps concurrent borrowed physical books per user.
	MaxActiveLoans = 3
)

const day = 24 * time.Hour

// Status of a borrow transaction. Overdue is derived, never stored.
type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusReturned Status = "returned"
)

// UnmarshalJSON folds the legacy "overdue" value into borrowed; the overdue
// condition is recomputed from the due date.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "overdue" {
		raw = string(StatusBorrowed)
	}
	*s = Status(raw)
	return nil
}

// Transaction represents one book borrowed by one user.
type Transaction struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	BookID     string     `json:"bookId"`
	BorrowDate time.Time  `json:"borrowDate"`
	DueDate    time.Time  `json:"dueDate"`
	ReturnDate *time.Time `json:"returnDate,omitempty"`
	Status     Status     `json:"status"`
	Penalty    *int       `json:"penalty,omitempty"`
}

// NewTransaction opens a loan at now with the fixed due date.
func NewTransaction(id, userID, bookID string, now time.Time) Transaction {
	return Transaction{
		ID:         id,
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: now,
		DueDate:    now.AddDate(0, 0, LoanDays),
		Status:     StatusBorrowed,
	}
}

func (t Transaction) Active() bool { return t.Status == StatusBorrowed }

// IsOverdue reports whether the loan is still out past its due date.
func (t Transaction) IsOverdue(now time.Time) bool {
	return t.Active() && t.DueDate.Before(now)
}

// DaysUntilDue rounds the remaining time up to whole days; negative once
// the loan is overdue.
func (t Transaction) DaysUntilDue(now time.Time) int {
	return ceilDays(t.DueDate.Sub(now))
}

// Close marks the transaction returned at now and settles any penalty.
func (t Transaction) Close(now time.Time) Transaction {
	returned := now
	t.ReturnDate = &returned
	t.Status = StatusReturned
	t.Penalty = Penalty(t.DueDate, now)
	return t
}

// Penalty is nil unless returned is strictly after due.
func Penalty(due, returned time.Time) *int {
	if !returned.After(due) {
		return nil
	}
	p := ceilDays(returned.Sub(due)) * PenaltyPerDay
	return &p
}

func ceilDays(d time.Duration) int {
	days := d / day
	if d%day > 0 {
		days++
	}
	return int(days)
}

// Validate checks the shape of a stored transaction.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction: missing id")
	}
	if t.UserID == "" || t.BookID == "" {
		return fmt.Errorf("transaction %s: missing user or book", t.ID)
	}
	switch t.Status {
	case StatusBorrowed, StatusReturned:
	default:
		return fmt.Errorf("transaction %s: unknown status %q", t.ID, t.Status)
	}
	return nil
}

// CountActive counts the loans userID still has out.
func CountActive(txs []Transaction, userID string) int {
	n := 0
	for _, t := range txs {
		if t.UserID == userID && t.Active() {
			n++
		}
	}
	return n
}

// Overdue lists the loans past due at now, in collection order.
func Overdue(txs []Transaction, now time.Time) []Transaction {
	out := []Transaction{}
	for _, t := range txs {
		if t.IsOverdue(now) {
			out = append(out, t)
		}
	}
	return out
}
