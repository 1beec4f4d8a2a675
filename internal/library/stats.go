package library

import (
	"time"

	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
	"libraryos/internal/membership"
)

// Stats summarises the collections for the admin dashboard. It is derived
// on every call and never stored.
type Stats struct {
	TotalBooks     int `json:"totalBooks"`
	ActiveBorrows  int `json:"activeBorrows"`
	TotalMembers   int `json:"totalMembers"`
	OverdueBooks   int `json:"overdueBooks"`
	AvailableBooks int `json:"availableBooks"`
	OutOfStock     int `json:"outOfStock"`
}

func (s *service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.books, s.txs, s.users, s.now())
}

func computeStats(books []catalog.Book, txs []circulation.Transaction, users []membership.User, now time.Time) Stats {
	st := Stats{
		TotalBooks:   len(books),
		TotalMembers: membership.CountMembers(users),
	}
	for _, b := range books {
		st.AvailableBooks += b.AvailableStock
		if b.AvailableStock == 0 {
			st.OutOfStock++
		}
	}
	for _, t := range txs {
		if t.Active() {
			st.ActiveBorrows++
		}
		if t.IsOverdue(now) {
			st.OverdueBooks++
		}
	}
	return st
}
