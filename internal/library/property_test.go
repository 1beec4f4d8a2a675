package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"pgregory.net/rapid"

	"libraryos/internal/circulation"
	"libraryos/internal/membership"
	"libraryos/internal/storage"
)

// TestStockStaysWithinBounds drives random borrow and return sequences and
// checks the stock bounds of every physical book after each step.
func TestStockStaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		store := storage.NewMemory()
		require.NoError(t, storage.Save(ctx, store, storage.KeyUsers, testUsers))
		require.NoError(t, storage.Save[membership.Credential](ctx, store, storage.KeyCredentials, nil))

		clock := &testClock{now: t0}
		svc := NewService(store,
			WithClock(clock.Now),
			WithIDGenerator(sequentialIDs()),
			WithAuthLimiter(func() *rate.Limiter { return rate.NewLimiter(rate.Inf, 0) }),
		)
		require.NoError(t, svc.Load(ctx))

		users := []string{"admin-1", "member-1", "member-2"}
		books := []string{"1", "2", "3", "missing"}

		t.Repeat(map[string]func(*rapid.T){
			"borrow": func(t *rapid.T) {
				user := rapid.SampledFrom(users).Draw(t, "user")
				book := rapid.SampledFrom(books).Draw(t, "book")

				before := len(svc.Transactions())
				refusal := svc.DiagnoseBorrow(user, book)
				ok, err := svc.BorrowBook(ctx, user, book)
				require.NoError(t, err)
				require.Equal(t, refusal == RefusalNone, ok)
				if !ok {
					require.Len(t, svc.Transactions(), before)
				}
			},
			"return": func(t *rapid.T) {
				txs := svc.Transactions()
				if len(txs) == 0 {
					t.Skip("no transactions yet")
				}
				tx := rapid.SampledFrom(txs).Draw(t, "tx")
				require.NoError(t, svc.ReturnBook(ctx, tx.ID))

				got, _ := svc.Transaction(tx.ID)
				require.Equal(t, circulation.StatusReturned, got.Status)
			},
			"tick": func(t *rapid.T) {
				days := rapid.IntRange(1, 10).Draw(t, "days")
				clock.now = clock.now.AddDate(0, 0, days)
			},
			"": func(t *rapid.T) {
				for _, b := range svc.Books() {
					if !b.IsPhysical() {
						continue
					}
					if b.AvailableStock < 0 || b.AvailableStock > b.Stock {
						t.Fatalf("book %s: availableStock %d outside [0, %d]", b.ID, b.AvailableStock, b.Stock)
					}
				}
				physical := map[string]int{}
				for _, tx := range svc.Transactions() {
					if b, ok := svc.Book(tx.BookID); ok && b.IsPhysical() && tx.Active() {
						physical[tx.UserID]++
					}
				}
				for u, n := range physical {
					if n > circulation.MaxActiveLoans {
						t.Fatalf("user %s holds %d physical loans", u, n)
					}
				}
			},
		})
	})
}
