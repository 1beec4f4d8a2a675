// internal/library/handler.go
package library

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"libraryos/internal/activity"
	"libraryos/internal/catalog"
	"libraryos/internal/circulation"
	"libraryos/internal/membership"
)

type Handler struct {
	service Service
	tokens  *TokenIssuer
	log     *logrus.Logger
}

func NewHandler(service Service, tokens *TokenIssuer, log *logrus.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, log: log}
}

// Routes mounts the JSON API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/books", h.handleListBooks)
		r.Get("/books/{id}", h.handleGetBook)
		r.Post("/books/{id}/borrow", h.handleBorrow)
		r.Get("/books/{id}/download", h.handleDownload)
		r.Post("/transactions/{id}/return", h.handleReturn)
		r.Get("/me/transactions", h.handleMyTransactions)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Post("/books", h.handleAddBook)
			r.Patch("/books/{id}", h.handleUpdateBook)
			r.Delete("/books/{id}", h.handleDeleteBook)
			r.Get("/books/{id}/transactions", h.handleBookTransactions)
			r.Get("/stats", h.handleStats)
			r.Get("/activity", h.handleActivity)
			r.Get("/users", h.handleUsers)
		})
	})
	return r
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// handleRegister creates member accounts; admins are provisioned with the
// libraryctl tool.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, membership.RoleMember)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := catalog.Criteria{
		Category: q.Get("category"),
		Type:     catalog.Type(q.Get("type")),
	}
	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "available must be true or false")
			return
		}
		criteria.Available = &available
	}

	var books []catalog.Book
	if query := q.Get("q"); query != "" {
		books = catalog.Filter(h.service.SearchBooks(query), criteria)
	} else {
		books = h.service.FilterBooks(criteria)
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, ok := h.service.Book(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var draft catalog.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := ClaimsFrom(r.Context())
	book, err := h.service.AddBook(r.Context(), claims.UserID(), draft)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch catalog.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.service.Book(id); !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	claims, _ := ClaimsFrom(r.Context())
	if err := h.service.UpdateBook(r.Context(), claims.UserID(), id, patch); err != nil {
		h.internalError(w, err)
		return
	}
	book, ok := h.service.Book(id)
	if !ok {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	if err := h.service.DeleteBook(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		h.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBookTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.BookTransactions(chi.URLParam(r, "id")))
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")
	claims, _ := ClaimsFrom(r.Context())
	userID := claims.UserID()

	ok, err := h.service.BorrowBook(r.Context(), userID, bookID)
	if err != nil {
		h.internalError(w, err)
		return
	}
	if !ok {
		// The diagnosis runs under a later lock and may no longer see a refusal.
		reason := h.service.DiagnoseBorrow(userID, bookID)
		status := http.StatusConflict
		switch reason {
		case RefusalBookNotFound:
			status = http.StatusNotFound
		case RefusalNone:
			reason = RefusalUnavailable
		}
		writeJSON(w, status, map[string]string{"error": reason.Message(), "reason": string(reason)})
		return
	}

	tx, found := latestLoan(h.service.UserTransactions(userID), bookID)
	if !found {
		h.internalError(w, errors.New("borrowed loan not found"))
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func latestLoan(txs []circulation.Transaction, bookID string) (circulation.Transaction, bool) {
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].BookID == bookID && txs[i].Active() {
			return txs[i], true
		}
	}
	return circulation.Transaction{}, false
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	url, ok := h.service.OpenEbook(claims.UserID(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "no ebook download for this book")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"fileUrl": url})
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims, _ := ClaimsFrom(r.Context())

	tx, ok := h.service.Transaction(id)
	if !ok {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if !claims.IsAdmin() && tx.UserID != claims.UserID() {
		writeError(w, http.StatusForbidden, "not your loan")
		return
	}

	if err := h.service.ReturnBook(r.Context(), id); err != nil {
		h.internalError(w, err)
		return
	}
	tx, _ = h.service.Transaction(id)
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleMyTransactions(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())
	writeJSON(w, http.StatusOK, h.service.UserTransactions(claims.UserID()))
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Stats())
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.service.ActivityLogs(activity.Criteria{
		Action: activity.Action(q.Get("action")),
		UserID: q.Get("userId"),
	}))
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Users())
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.log.WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
