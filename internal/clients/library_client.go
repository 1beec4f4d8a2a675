// internal/clients/library_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
	"libraryos/internal/library"
	"libraryos/internal/membership"
)

// APIError is a non-2xx answer from the library API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Reason     string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("library api: %d: %s", e.StatusCode, e.Message)
}

type LibraryClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewLibraryClient(baseURL string) *LibraryClient {
	return &LibraryClient{baseURL: baseURL, httpClient: http.DefaultClient}
}

// WithHTTPClient swaps the transport, e.g. for timeouts.
func (c *LibraryClient) WithHTTPClient(hc *http.Client) *LibraryClient {
	c.httpClient = hc
	return c
}

// SetToken authenticates later calls with a token obtained elsewhere.
func (c *LibraryClient) SetToken(token string) { c.token = token }

// Login exchanges credentials for a token and keeps it for later calls.
func (c *LibraryClient) Login(ctx context.Context, email, password string) (*membership.User, error) {
	loginReq := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{
		Email:    email,
		Password: password,
	}

	var resp struct {
		Token string          `json:"token"`
		User  membership.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", loginReq, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

func (c *LibraryClient) SearchBooks(ctx context.Context, query string, criteria catalog.Criteria) ([]catalog.Book, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if criteria.Category != "" {
		q.Set("category", criteria.Category)
	}
	if criteria.Type != "" {
		q.Set("type", string(criteria.Type))
	}
	if criteria.Available != nil {
		q.Set("available", fmt.Sprint(*criteria.Available))
	}

	path := "/books"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var books []catalog.Book
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *LibraryClient) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, http.StatusOK, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Borrow opens a loan. A refusal comes back as an *APIError whose Reason is
// the refusal code.
func (c *LibraryClient) Borrow(ctx context.Context, bookID string) (*circulation.Transaction, error) {
	var tx circulation.Transaction
	if err := c.do(ctx, http.MethodPost, "/books/"+url.PathEscape(bookID)+"/borrow", nil, http.StatusCreated, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *LibraryClient) Return(ctx context.Context, transactionID string) (*circulation.Transaction, error) {
	var tx circulation.Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions/"+url.PathEscape(transactionID)+"/return", nil, http.StatusOK, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *LibraryClient) Stats(ctx context.Context) (*library.Stats, error) {
	var st library.Stats
	if err := c.do(ctx, http.MethodGet, "/stats", nil, http.StatusOK, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *LibraryClient) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
