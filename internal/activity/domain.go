// Package activity holds the append-only audit trail of catalog and
// circulation mutations.
package activity

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

type Action string

const (
	ActionBorrow     Action = "borrow"
	ActionReturn     Action = "return"
	ActionAddBook    Action = "add_book"
	ActionEditBook   Action = "edit_book"
	ActionDeleteBook Action = "delete_book"
)

// Log is one audit entry. Entries are never edited or removed.
type Log struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

func (l Log) Validate() error {
	if l.ID == "" {
		return errors.New("activity log: missing id")
	}
	switch l.Action {
	case ActionBorrow, ActionReturn, ActionAddBook, ActionEditBook, ActionDeleteBook:
	default:
		return fmt.Errorf("activity log %s: unknown action %q", l.ID, l.Action)
	}
	return nil
}

// Criteria narrows the audit view; empty fields match everything.
type Criteria struct {
	Action Action
	UserID string
}

// Select returns the matching entries newest first. Entries with equal
// timestamps keep their reverse insertion order.
func Select(logs []Log, c Criteria) []Log {
	out := []Log{}
	for i := len(logs) - 1; i >= 0; i-- {
		l := logs[i]
		if c.Action != "" && l.Action != c.Action {
			continue
		}
		if c.UserID != "" && l.UserID != c.UserID {
			continue
		}
		out = append(out, l)
	}
	slices.SortStableFunc(out, func(a, b Log) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}
