// Package api provides HTTP handlers for the catalog server REST API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/adapters/googlebooks"
	"github.com/shelfstream/catalog/model"
)

// CorrelationHeader carries the request trace ID. Incoming values are
// propagated to domain events; absent values get a fresh UUID.
const CorrelationHeader = "X-Correlation-ID"

// Handler holds dependencies for API handlers.
type Handler struct {
	books         *catalog.BookService
	auth          *catalog.AuthService
	notifications catalog.NotificationRepository
	external      *googlebooks.Client
	logger        catalog.Logger
}

// NewHandler creates a new API handler. The external client may be nil when
// the Google Books passthrough is disabled.
func NewHandler(
	books *catalog.BookService,
	auth *catalog.AuthService,
	notifications catalog.NotificationRepository,
	external *googlebooks.Client,
	logger catalog.Logger,
) *Handler {
	return &Handler{
		books:         books,
		auth:          auth,
		notifications: notifications,
		external:      external,
		logger:        logger,
	}
}

// RegisterUserRequest represents a user registration request.
type RegisterUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error response. Success is always false so
// clients can branch on the same field in both envelopes.
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	TraceID   string    `json:"traceId"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

type contextKey string

// userContextKey carries the authenticated user through the request context.
const userContextKey contextKey = "authenticated-user"

// authenticatedUser returns the user stored by RequireRole, or nil when the
// request never passed through it.
func authenticatedUser(r *http.Request) *model.User {
	user, _ := r.Context().Value(userContextKey).(*model.User)
	return user
}

// RequireRole wraps a handler with HTTP Basic authentication. Admins pass
// every check; non-admins only pass when role is model.RoleUser. The
// authenticated user is stored on the request context so handlers can apply
// finer-grained checks without re-verifying the password.
func (h *Handler) RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="catalog"`)
			h.respondError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		user, err := h.auth.Authenticate(r.Context(), username, password)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="catalog"`)
			h.respondError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		if role == model.RoleAdmin && !user.IsAdmin() {
			h.respondError(w, r, http.StatusForbidden, "Admin role required")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	}
}

// requireAdmin enforces the admin role on handlers routed behind a
// USER-level RequireRole, using the already-authenticated context user.
func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	user := authenticatedUser(r)
	if user == nil || !user.IsAdmin() {
		h.respondError(w, r, http.StatusForbidden, "Admin role required")
		return false
	}
	return true
}

// HandleBooks handles GET and POST /api/v1/books
func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listBooks(w, r)
	case http.MethodPost:
		h.createBook(w, r)
	default:
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleBook handles the sub-resources of /api/v1/books/:
// {id}, isbn/{isbn}, search, and external/search.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	parts := pathParts(r.URL.Path) // ["api", "v1", "books", ...]
	if len(parts) == 5 && parts[3] == "isbn" {
		if r.Method != http.MethodGet {
			h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.getBookByISBN(w, r, parts[4])
		return
	}
	if len(parts) == 4 && parts[3] == "search" {
		if r.Method != http.MethodGet {
			h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.searchBooks(w, r)
		return
	}
	if len(parts) == 5 && parts[3] == "external" && parts[4] == "search" {
		if r.Method != http.MethodGet {
			h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.externalSearch(w, r)
		return
	}
	if len(parts) != 4 {
		h.respondError(w, r, http.StatusNotFound, "Resource not found")
		return
	}

	id, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, r, http.StatusBadRequest, "Invalid book ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getBook(w, r, id)
	case http.MethodPut:
		h.updateBook(w, r, id)
	case http.MethodDelete:
		h.deleteBook(w, r, id)
	default:
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}

	var in model.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	book, err := h.books.Create(r.Context(), correlationID(r), in)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to create book")
		return
	}

	h.respondSuccess(w, http.StatusCreated, book, "Book created successfully")
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request, id int64) {
	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to load book")
		return
	}

	h.respondSuccess(w, http.StatusOK, book, "")
}

func (h *Handler) getBookByISBN(w http.ResponseWriter, r *http.Request, raw string) {
	book, err := h.books.GetByISBN(r.Context(), raw)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to load book")
		return
	}

	h.respondSuccess(w, http.StatusOK, book, "")
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := catalog.BookFilter{
		Author:   q.Get("author"),
		Genre:    q.Get("genre"),
		Title:    q.Get("title"),
		Language: q.Get("language"),
		Limit:    limit,
		Offset:   offset,
	}

	books, err := h.books.List(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to list books")
		return
	}

	total, err := h.books.Count(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to count books")
		return
	}

	h.respondSuccess(w, http.StatusOK, map[string]interface{}{
		"books": books,
		"total": total,
	}, "")
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request, id int64) {
	if !h.requireAdmin(w, r) {
		return
	}

	var in model.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	book, err := h.books.Update(r.Context(), correlationID(r), id, in)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to update book")
		return
	}

	h.respondSuccess(w, http.StatusOK, book, "Book updated successfully")
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request, id int64) {
	if !h.requireAdmin(w, r) {
		return
	}

	if err := h.books.Delete(r.Context(), correlationID(r), id); err != nil {
		h.respondServiceError(w, r, err, "Failed to delete book")
		return
	}

	h.respondSuccess(w, http.StatusOK, nil, "Book deleted successfully")
}

// searchBooks handles GET /api/v1/books/search?query=
// The query matches title substrings; author narrows further.
func (h *Handler) searchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := catalog.BookFilter{
		Title:  q.Get("query"),
		Author: q.Get("author"),
		Limit:  limit,
		Offset: offset,
	}

	books, err := h.books.List(r.Context(), filter)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to search books")
		return
	}

	h.respondSuccess(w, http.StatusOK, books, "")
}

// externalSearch handles GET /api/v1/books/external/search.
// Pass either ?query=<text> for a search or ?isbn=<isbn> for a direct lookup.
func (h *Handler) externalSearch(w http.ResponseWriter, r *http.Request) {
	if h.external == nil {
		h.respondError(w, r, http.StatusServiceUnavailable, "External book lookup is disabled")
		return
	}

	if raw := r.URL.Query().Get("isbn"); raw != "" {
		volume, err := h.external.LookupISBN(r.Context(), raw)
		if err != nil {
			h.respondServiceError(w, r, err, "External lookup failed")
			return
		}
		h.respondSuccess(w, http.StatusOK, volume, "")
		return
	}

	query := r.URL.Query().Get("query")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	volumes, err := h.external.Search(r.Context(), query, limit)
	if err != nil {
		h.respondServiceError(w, r, err, "External search failed")
		return
	}

	h.respondSuccess(w, http.StatusOK, volumes, "")
}

// HandleNotifications handles GET /api/v1/notifications
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	notifications, err := h.notifications.FindRecent(r.Context(), limit)
	if err != nil {
		if catalog.IsNoData(err) {
			h.respondSuccess(w, http.StatusOK, []model.Notification{}, "No notifications found")
			return
		}
		h.respondServiceError(w, r, err, "Failed to list notifications")
		return
	}

	h.respondSuccess(w, http.StatusOK, notifications, "")
}

// HandleRegisterUser handles POST /api/v1/users
func (h *Handler) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}

	user, err := h.auth.RegisterUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.respondServiceError(w, r, err, "Failed to register user")
		return
	}

	h.respondSuccess(w, http.StatusCreated, user, "User registered successfully")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   "0.1.0",
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// respondServiceError maps service error codes to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch catalog.CodeOf(err) {
	case catalog.ErrCodeValidation:
		h.respondError(w, r, http.StatusBadRequest, err.Error())
	case catalog.ErrCodeNotFound, catalog.ErrCodeNoData:
		h.respondError(w, r, http.StatusNotFound, err.Error())
	case catalog.ErrCodeDuplicateISBN:
		h.respondError(w, r, http.StatusConflict, err.Error())
	case catalog.ErrCodeUnauthorized:
		h.respondError(w, r, http.StatusUnauthorized, err.Error())
	case catalog.ErrCodeForbidden:
		h.respondError(w, r, http.StatusForbidden, err.Error())
	default:
		h.logger.Errorf("%s: %v", fallback, err)
		h.respondError(w, r, http.StatusInternalServerError, fallback)
	}
}

// respondError sends the error envelope.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Success:   false,
		Message:   message,
		Error:     message,
		TraceID:   correlationID(r),
		Timestamp: time.Now().UTC(),
		Path:      r.URL.Path,
	})
}

// respondSuccess sends the success envelope.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// correlationID returns the request trace ID, minting one if the client
// did not send any. The value is stored back on the request header so a
// request only ever gets a single ID.
func correlationID(r *http.Request) string {
	if id := r.Header.Get(CorrelationHeader); id != "" {
		return id
	}
	id := uuid.NewString()
	r.Header.Set(CorrelationHeader, id)
	return id
}

// pathParts splits a URL path into non-empty segments.
func pathParts(path string) []string {
	parts := []string{}
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
