package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
	"libraryos/internal/library"
	"libraryos/internal/logging"
	"libraryos/internal/membership"
	"libraryos/internal/storage"
)

func setupServer(t *testing.T) (*httptest.Server, library.Service) {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemory()
	require.NoError(t, storage.Save[membership.User](ctx, store, storage.KeyUsers, nil))
	require.NoError(t, storage.Save[membership.Credential](ctx, store, storage.KeyCredentials, nil))

	svc := library.NewService(store, library.WithAuthLimiter(func() *rate.Limiter { return rate.NewLimiter(rate.Inf, 0) }))
	require.NoError(t, svc.Load(ctx))

	tokens := library.NewTokenIssuer("client-test", time.Hour)
	server := httptest.NewServer(library.NewHandler(svc, tokens, logging.Discard()).Routes())
	t.Cleanup(server.Close)
	return server, svc
}

func TestLibraryClientRoundTrip(t *testing.T) {
	server, svc := setupServer(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "ops@library.com", "hunter2", "Ops", membership.RoleAdmin)
	require.NoError(t, err)

	client := NewLibraryClient(server.URL)

	_, err = client.SearchBooks(ctx, "", catalog.Criteria{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	user, err := client.Login(ctx, "ops@library.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, membership.RoleAdmin, user.Role)

	available := true
	books, err := client.SearchBooks(ctx, "gatsby", catalog.Criteria{Available: &available})
	require.NoError(t, err)
	require.Len(t, books, 1)

	book, err := client.GetBook(ctx, books[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "The Great Gatsby", book.Title)

	tx, err := client.Borrow(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusBorrowed, tx.Status)

	st, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActiveBorrows)

	returned, err := client.Return(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusReturned, returned.Status)
	assert.Nil(t, returned.Penalty)
}

func TestLibraryClientBorrowRefusal(t *testing.T) {
	server, svc := setupServer(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, "reader@library.com", "pw", "Reader", membership.RoleMember)
	require.NoError(t, err)

	client := NewLibraryClient(server.URL).WithHTTPClient(&http.Client{Timeout: 5 * time.Second})
	token, err := library.NewTokenIssuer("client-test", time.Hour).Issue(member)
	require.NoError(t, err)
	client.SetToken(token)

	_, err = client.Borrow(ctx, "2")
	require.NoError(t, err)

	_, err = client.Borrow(ctx, "2")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "out_of_stock", apiErr.Reason)

	_, err = client.Stats(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}
