package library

import (
	"context"
	"slices"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libraryos/internal/activity"
	"libraryos/internal/catalog"
)

// AddBook stores a new book exactly as supplied and logs add_book.
func (s *service) AddBook(ctx context.Context, actorID string, d catalog.Draft) (catalog.Book, error) {
	ctx, span := s.tracer.Start(ctx, "library.add_book",
		trace.WithAttributes(attribute.String("user.id", actorID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	book := catalog.NewBook(s.newID(), d, now)
	books := append(slices.Clone(s.books), book)
	logs := s.withLog(actorID, book.ID, activity.ActionAddBook, "Added book: "+book.Title, now)

	if err := s.commit(ctx, changeset{books: &books, logs: &logs}); err != nil {
		return catalog.Book{}, s.fail(span, err, "add book")
	}

	span.SetAttributes(attribute.String("book.id", book.ID))
	s.log.WithFields(logrus.Fields{"book_id": book.ID, "user_id": actorID, "type": book.Type}).Info("book added")
	return book, nil
}

// UpdateBook merges p into the book. Unknown ids are ignored.
func (s *service) UpdateBook(ctx context.Context, actorID, id string, p catalog.Patch) error {
	ctx, span := s.tracer.Start(ctx, "library.update_book",
		trace.WithAttributes(attribute.String("book.id", id), attribute.String("user.id", actorID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookIndex(id)
	if i < 0 {
		s.log.WithField("book_id", id).Debug("update of unknown book ignored")
		return nil
	}

	now := s.now()
	books := slices.Clone(s.books)
	books[i] = books[i].Apply(p, now)
	logs := s.withLog(actorID, id, activity.ActionEditBook, "Updated book", now)

	if err := s.commit(ctx, changeset{books: &books, logs: &logs}); err != nil {
		return s.fail(span, err, "update book")
	}

	s.log.WithFields(logrus.Fields{"book_id": id, "user_id": actorID}).Info("book updated")
	return nil
}

// DeleteBook removes the book. Its transactions and log entries stay behind
// with a dangling book id.
func (s *service) DeleteBook(ctx context.Context, actorID, id string) error {
	ctx, span := s.tracer.Start(ctx, "library.delete_book",
		trace.WithAttributes(attribute.String("book.id", id), attribute.String("user.id", actorID)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.bookIndex(id)
	if i < 0 {
		s.log.WithField("book_id", id).Debug("delete of unknown book ignored")
		return nil
	}

	title := s.books[i].Title
	books := slices.Delete(slices.Clone(s.books), i, i+1)
	logs := s.withLog(actorID, id, activity.ActionDeleteBook, "Deleted book: "+title, s.now())

	if err := s.commit(ctx, changeset{books: &books, logs: &logs}); err != nil {
		return s.fail(span, err, "delete book")
	}

	s.log.WithFields(logrus.Fields{"book_id": id, "user_id": actorID}).Info("book deleted")
	return nil
}

func (s *service) Book(id string) (catalog.Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.bookIndex(id); i >= 0 {
		return s.books[i], true
	}
	return catalog.Book{}, false
}

func (s *service) Books() []catalog.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]catalog.Book{}, s.books...)
}

func (s *service) SearchBooks(query string) []catalog.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Search(s.books, query)
}

func (s *service) FilterBooks(c catalog.Criteria) []catalog.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return catalog.Filter(s.books, c)
}

// BookTitle resolves an id for display; deleted books read "Unknown Book".
func (s *service) BookTitle(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookTitle(id)
}

func (s *service) bookTitle(id string) string {
	if i := s.bookIndex(id); i >= 0 {
		return s.books[i].Title
	}
	return "Unknown Book"
}
