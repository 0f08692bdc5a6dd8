package catalog

import (
	"context"
	"time"

	"github.com/shelfstream/catalog/model"
)

// BookFilter represents query filtering options for book listings.
// Used by BookRepository.List to narrow results.
type BookFilter struct {
	Author   string // Filter by author substring (empty = no filter)
	Genre    string // Filter by exact genre (empty = no filter)
	Title    string // Filter by title substring (empty = no filter)
	Language string // Filter by exact language (empty = no filter)
	Limit    int    // Maximum results to return (0 = repository default)
	Offset   int    // Results to skip for pagination
}

// BookRepository defines the persistence interface for catalog books.
//
// Implementations must be safe for concurrent use and should use
// database transactions where appropriate. All lookups operate on
// active rows only unless the method states otherwise.
type BookRepository interface {
	// Load retrieves an active book by ID.
	// Returns ErrNoData if not found or soft-deleted.
	Load(ctx context.Context, id int64) (model.Book, error)

	// Save creates a new book (if ID=0) or updates an existing one.
	// Returns the saved book with populated ID.
	Save(ctx context.Context, b *model.Book) (*model.Book, error)

	// FindByISBN retrieves an active book by its normalized ISBN.
	// Soft-deleted rows never match, so a deleted book's ISBN can be
	// registered again. Returns ErrNoData if not found.
	FindByISBN(ctx context.Context, isbn string) (model.Book, error)

	// List retrieves active books matching the filter criteria,
	// ordered by created_at DESC. Returns empty slice if none found.
	List(ctx context.Context, filter BookFilter) ([]model.Book, error)

	// Count returns the number of active books matching the filter.
	Count(ctx context.Context, filter BookFilter) (int, error)
}

// UserRepository defines the persistence interface for API accounts.
type UserRepository interface {
	// Load retrieves a user by ID.
	// Returns ErrNoData if not found.
	Load(ctx context.Context, id int64) (model.User, error)

	// Save creates a new user (if ID=0) or updates an existing one.
	// Returns the saved user with populated ID.
	Save(ctx context.Context, u *model.User) (*model.User, error)

	// FindByUsername retrieves an active user by username.
	// Returns ErrNoData if not found or deactivated.
	FindByUsername(ctx context.Context, username string) (model.User, error)
}

// NotificationRepository defines the persistence interface for consumer
// notifications. Notifications are immutable once created.
type NotificationRepository interface {
	// Save persists a new notification.
	// Returns the saved notification with populated ID.
	Save(ctx context.Context, n *model.Notification) (*model.Notification, error)

	// FindByEventID retrieves the notification produced for an event.
	// Returns ErrNoData if not found.
	FindByEventID(ctx context.Context, eventID string) (model.Notification, error)

	// FindRecent retrieves the most recent notifications,
	// ordered by created_at DESC.
	FindRecent(ctx context.Context, limit int) ([]model.Notification, error)
}

// ProcessedEventRepository defines the persistence interface for the
// consumer's idempotency ledger. The broker delivers at least once;
// recording processed event IDs lets redeliveries be skipped.
type ProcessedEventRepository interface {
	// Exists reports whether the event ID has already been processed.
	Exists(ctx context.Context, eventID string) (bool, error)

	// Save records an event ID as processed.
	Save(ctx context.Context, p *model.ProcessedEvent) (*model.ProcessedEvent, error)

	// DeleteOlderThan removes ledger entries older than the threshold.
	// Used by periodic cleanup to keep the ledger bounded.
	DeleteOlderThan(ctx context.Context, threshold time.Duration) (int, error)
}
