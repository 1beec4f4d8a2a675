package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"libraryos/internal/activity"
	"libraryos/internal/library"
	"libraryos/internal/membership"
	"libraryos/internal/storage"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemory()
	require.NoError(t, storage.Save(ctx, store, storage.KeyUsers, []membership.User{
		{ID: "admin-1", Email: "admin@library.com", Name: "Admin User", Role: membership.RoleAdmin, CreatedAt: now},
		{ID: "member-1", Email: "member@library.com", Name: "John Member", Role: membership.RoleMember, CreatedAt: now},
	}))
	require.NoError(t, storage.Save[membership.Credential](ctx, store, storage.KeyCredentials, nil))

	svc := library.NewService(store,
		library.WithClock(func() time.Time { return now }),
		library.WithAuthLimiter(func() *rate.Limiter { return rate.NewLimiter(rate.Inf, 0) }),
	)
	require.NoError(t, svc.Load(ctx))

	var out bytes.Buffer
	return &app{out: &out, svc: svc, now: func() time.Time { return now }}, &out
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.out)
	return root.ExecuteContext(context.Background())
}

func TestBooksCommand(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "books"))
	assert.Contains(t, out.String(), "The Great Gatsby")
	assert.Contains(t, out.String(), "React: The Complete Guide")

	out.Reset()
	require.NoError(t, run(t, a, "books", "harper"))
	assert.Contains(t, out.String(), "To Kill a Mockingbird")
	assert.NotContains(t, out.String(), "Gatsby")

	out.Reset()
	require.NoError(t, run(t, a, "books", "--type", "ebook", "--available", "yes"))
	assert.Contains(t, out.String(), "React")
	assert.NotContains(t, out.String(), "Gatsby")

	out.Reset()
	require.NoError(t, run(t, a, "books", "zzz"))
	assert.Contains(t, out.String(), "No books found.")

	assert.Error(t, run(t, a, "books", "--available", "perhaps"))
}

func TestAddBookCommand(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "add-book", "--title", "Dune", "--author", "Frank Herbert", "--stock", "4", "--category", "Fiction"))
	assert.Contains(t, out.String(), "Added book")

	found := a.svc.SearchBooks("Dune")
	require.Len(t, found, 1)
	assert.Equal(t, 4, found[0].Stock)
	assert.Equal(t, 4, found[0].AvailableStock)

	logs := a.svc.ActivityLogs(activity.Criteria{})
	require.Len(t, logs, 1)
	assert.Equal(t, "admin-1", logs[0].UserID)

	require.NoError(t, run(t, a, "add-book", "--title", "Go in Action", "--type", "ebook", "--file-url", "/files/go.pdf"))
	ebook := a.svc.SearchBooks("Go in Action")
	require.Len(t, ebook, 1)
	assert.Equal(t, 999, ebook[0].AvailableStock)

	assert.Error(t, run(t, a, "add-book", "--title", "Scroll", "--type", "papyrus"))
}

func TestBorrowReturnAndLoans(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "borrow", "member-1", "1"))
	assert.Contains(t, out.String(), "due 2024-03-15")

	out.Reset()
	require.NoError(t, run(t, a, "loans", "--user", "member-1"))
	assert.Contains(t, out.String(), "John Member")
	assert.Contains(t, out.String(), "The Great Gatsby")

	txID := a.svc.UserTransactions("member-1")[0].ID
	out.Reset()
	require.NoError(t, run(t, a, "return", txID))
	assert.Contains(t, out.String(), `Returned "The Great Gatsby"`)

	assert.Error(t, run(t, a, "return", "missing"))

	require.NoError(t, run(t, a, "borrow", "member-1", "2"))
	err := run(t, a, "borrow", "admin-1", "2")
	require.Error(t, err)
	assert.Equal(t, "This book is currently out of stock.", err.Error())

	out.Reset()
	require.NoError(t, run(t, a, "logs", "--action", "return"))
	assert.Contains(t, out.String(), "Returned: The Great Gatsby")
}

func TestStatsCommand(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "stats"))
	assert.Contains(t, out.String(), "Total books")
	assert.Regexp(t, `Members\s+1`, out.String())
}

func TestRegisterCommand(t *testing.T) {
	a, out := newTestApp(t)

	require.NoError(t, run(t, a, "register", "--email", "ops@library.com", "--name", "Ops", "--role", "admin", "--password", "hunter2"))
	assert.Contains(t, out.String(), "as admin")

	user, err := a.svc.Authenticate(context.Background(), "ops@library.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, membership.RoleAdmin, user.Role)
}
