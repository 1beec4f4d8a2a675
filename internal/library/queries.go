package library

import (
	"libraryos/internal/activity"
	"libraryos/internal/circulation"
	"libraryos/internal/membership"
)

func (s *service) Transaction(id string) (circulation.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.txIndex(id); i >= 0 {
		return s.txs[i], true
	}
	return circulation.Transaction{}, false
}

func (s *service) Transactions() []circulation.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]circulation.Transaction{}, s.txs...)
}

// UserTransactions lists userID's loans in the order they were opened.
func (s *service) UserTransactions(userID string) []circulation.Transaction {
	return s.selectTransactions(func(t circulation.Transaction) bool { return t.UserID == userID })
}

// BookTransactions lists the loans of bookID, including those of a deleted
// book.
func (s *service) BookTransactions(bookID string) []circulation.Transaction {
	return s.selectTransactions(func(t circulation.Transaction) bool { return t.BookID == bookID })
}

func (s *service) OverdueTransactions() []circulation.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return circulation.Overdue(s.txs, s.now())
}

func (s *service) selectTransactions(keep func(circulation.Transaction) bool) []circulation.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []circulation.Transaction{}
	for _, t := range s.txs {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *service) ActivityLogs(c activity.Criteria) []activity.Log {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activity.Select(s.logs, c)
}

func (s *service) User(id string) (membership.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return membership.User{}, false
}

func (s *service) Users() []membership.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]membership.User{}, s.users...)
}

// UserName resolves an id for display; unknown users read "Unknown User".
func (s *service) UserName(id string) string {
	if u, ok := s.User(id); ok {
		return u.Name
	}
	return "Unknown User"
}
