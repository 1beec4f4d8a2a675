package library

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"libraryos/internal/activity"
	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
)

// BorrowRefusal names the first borrow precondition that does not hold.
type BorrowRefusal string

const (
	RefusalNone         BorrowRefusal = ""
	RefusalBookNotFound BorrowRefusal = "book_not_found"
	RefusalOutOfStock   BorrowRefusal = "out_of_stock"
	RefusalLoanLimit    BorrowRefusal = "loan_limit"
	RefusalUnavailable  BorrowRefusal = "unavailable"
)

// Message is the user-facing explanation of the refusal.
func (r BorrowRefusal) Message() string {
	switch r {
	case RefusalNone:
		return ""
	case RefusalBookNotFound:
		return "This book does not exist."
	case RefusalOutOfStock:
		return "This book is currently out of stock."
	case RefusalLoanLimit:
		return fmt.Sprintf("You have reached the maximum limit of %d borrowed books.", circulation.MaxActiveLoans)
	default:
		return "Unable to borrow book. Please try again."
	}
}

// BorrowBook opens a loan for userID. It reports false, without changing
// anything, when the book is missing, out of stock, or the user already has
// the maximum number of loans out and the book is physical.
func (s *service) BorrowBook(ctx context.Context, userID, bookID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "library.borrow",
		trace.WithAttributes(attribute.String("user.id", userID), attribute.String("book.id", bookID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if refusal := s.diagnose(userID, bookID); refusal != RefusalNone {
		span.SetAttributes(attribute.String("borrow.refusal", string(refusal)))
		s.metrics.refusals.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(refusal))))
		s.log.WithFields(logrus.Fields{"user_id": userID, "book_id": bookID, "reason": refusal}).Debug("borrow refused")
		return false, nil
	}

	i := s.bookIndex(bookID)
	now := s.now()
	tx := circulation.NewTransaction(s.newID(), userID, bookID, now)

	txs := append(slices.Clone(s.txs), tx)
	books := slices.Clone(s.books)
	books[i].AvailableStock--
	logs := s.withLog(userID, bookID, activity.ActionBorrow, "Borrowed: "+books[i].Title, now)

	if err := s.commit(ctx, changeset{books: &books, txs: &txs, logs: &logs}); err != nil {
		return false, s.fail(span, err, "borrow book")
	}

	span.SetAttributes(attribute.String("transaction.id", tx.ID))
	s.metrics.borrows.Add(ctx, 1, metric.WithAttributes(attribute.String("book.type", string(books[i].Type))))
	s.log.WithFields(logrus.Fields{
		"user_id":        userID,
		"book_id":        bookID,
		"transaction_id": tx.ID,
		"due":            tx.DueDate,
	}).Info("book borrowed")
	return true, nil
}

// DiagnoseBorrow re-derives why a borrow would fail right now.
func (s *service) DiagnoseBorrow(userID, bookID string) BorrowRefusal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diagnose(userID, bookID)
}

func (s *service) diagnose(userID, bookID string) BorrowRefusal {
	i := s.bookIndex(bookID)
	if i < 0 {
		return RefusalBookNotFound
	}
	book := s.books[i]
	if book.AvailableStock <= 0 {
		return RefusalOutOfStock
	}
	if book.IsPhysical() && circulation.CountActive(s.txs, userID) >= circulation.MaxActiveLoans {
		return RefusalLoanLimit
	}
	return RefusalNone
}

// ReturnBook closes the loan and restocks physical books. Unknown and
// already-returned transactions are left alone.
func (s *service) ReturnBook(ctx context.Context, transactionID string) error {
	ctx, span := s.tracer.Start(ctx, "library.return",
		trace.WithAttributes(attribute.String("transaction.id", transactionID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.txIndex(transactionID)
	if i < 0 {
		s.log.WithField("transaction_id", transactionID).Debug("return of unknown transaction ignored")
		return nil
	}
	tx := s.txs[i]
	if !tx.Active() {
		s.log.WithField("transaction_id", transactionID).Debug("transaction already returned")
		return nil
	}

	now := s.now()
	closed := tx.Close(now)
	txs := slices.Clone(s.txs)
	txs[i] = closed
	cs := changeset{txs: &txs}

	if bi := s.bookIndex(tx.BookID); bi >= 0 && s.books[bi].IsPhysical() {
		if s.books[bi].AvailableStock < s.books[bi].Stock {
			books := slices.Clone(s.books)
			books[bi].AvailableStock++
			cs.books = &books
		} else {
			s.log.WithField("book_id", tx.BookID).Warn("return would exceed stock, not restocking")
		}
	}

	logs := s.withLog(tx.UserID, tx.BookID, activity.ActionReturn, "Returned: "+s.bookTitle(tx.BookID), now)
	cs.logs = &logs

	if err := s.commit(ctx, cs); err != nil {
		return s.fail(span, err, "return book")
	}

	s.metrics.returns.Add(ctx, 1)
	fields := logrus.Fields{"transaction_id": transactionID, "user_id": tx.UserID, "book_id": tx.BookID}
	if closed.Penalty != nil {
		s.metrics.penalties.Add(ctx, int64(*closed.Penalty))
		fields["penalty"] = *closed.Penalty
	}
	s.log.WithFields(fields).Info("book returned")
	return nil
}

// OpenEbook hands out the download location of an ebook. Downloads bypass
// circulation entirely: no transaction, stock change or log entry.
func (s *service) OpenEbook(userID, bookID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.bookIndex(bookID)
	if i < 0 || s.books[i].Type != catalog.TypeEbook || s.books[i].FileURL == "" {
		return "", false
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "book_id": bookID}).Debug("ebook opened")
	return s.books[i].FileURL, true
}
