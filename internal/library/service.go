// internal/library/service.go
package library

import (
	"context"

	"libraryos/internal/activity"
	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
	"libraryos/internal/membership"
)

// Service defines the interface for the library service. It is the only
// reader and writer of the users, books, transactions and activity log
// collections.
//
// Mutating methods return an error only when the store write fails; unknown
// ids are silent no-ops and borrow refusals are reported as false.
type Service interface {
	Load(ctx context.Context) error
	Flush(ctx context.Context) error

	AddBook(ctx context.Context, actorID string, d catalog.Draft) (catalog.Book, error)
	UpdateBook(ctx context.Context, actorID, id string, p catalog.Patch) error
	DeleteBook(ctx context.Context, actorID, id string) error
	Book(id string) (catalog.Book, bool)
	Books() []catalog.Book
	SearchBooks(query string) []catalog.Book
	FilterBooks(c catalog.Criteria) []catalog.Book
	BookTitle(id string) string

	BorrowBook(ctx context.Context, userID, bookID string) (bool, error)
	DiagnoseBorrow(userID, bookID string) BorrowRefusal
	ReturnBook(ctx context.Context, transactionID string) error
	OpenEbook(userID, bookID string) (string, bool)
	Transaction(id string) (circulation.Transaction, bool)
	Transactions() []circulation.Transaction
	UserTransactions(userID string) []circulation.Transaction
	BookTransactions(bookID string) []circulation.Transaction
	OverdueTransactions() []circulation.Transaction

	ActivityLogs(c activity.Criteria) []activity.Log
	Stats() Stats

	Register(ctx context.Context, email, password, name string, role membership.Role) (membership.User, error)
	Authenticate(ctx context.Context, email, password string) (membership.User, error)
	User(id string) (membership.User, bool)
	Users() []membership.User
	UserName(id string) string
}
