package catalog

import (
	"context"
	"fmt"

	"github.com/shelfstream/catalog/isbn"
	"github.com/shelfstream/catalog/model"
)

// EventPublisher is the outbound event dependency of the BookService.
// Satisfied by *Publisher; narrowed to an interface so tests can observe
// published envelopes without a broker.
type EventPublisher interface {
	PublishWithRetry(ctx context.Context, event model.Event) error
}

// BookService handles the book catalog lifecycle.
// It provides high-level operations for creating, querying, replacing, and
// soft-deleting books, publishing a domain event after each successful write.
//
// Key operations:
//   - Create: Register a new book with ISBN uniqueness enforcement
//   - Get / GetByISBN / List: Query active books
//   - Update: Whole-field replacement with re-validation
//   - Delete: Soft delete, freeing the ISBN for re-registration
//
// Event publishing is at-least-once and never blocks the write path: a
// failed publish is logged and swallowed, the database remains the source
// of truth.
//
// Thread safety: Safe for concurrent use.
type BookService struct {
	bookRepo  BookRepository
	publisher EventPublisher
	logger    Logger
}

// BookServiceOption is a function that configures a BookService.
// Used with the Options Pattern for flexible service construction.
type BookServiceOption func(*BookService) error

// NewBookService creates a new BookService with the provided options.
//
// Required options:
//   - WithBookRepository: book repository
//   - WithBookServiceLogger: logger instance
//
// Optional options:
//   - WithBookEventPublisher: outbound event publisher (default: none,
//     writes succeed without emitting events)
//
// Example:
//
//	books, err := catalog.NewBookService(
//	    catalog.WithBookRepository(bookRepo),
//	    catalog.WithBookEventPublisher(publisher),
//	    catalog.WithBookServiceLogger(logger),
//	)
func NewBookService(opts ...BookServiceOption) (*BookService, error) {
	s := &BookService{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply book service option", err)
		}
	}

	// Validate required dependencies
	if s.bookRepo == nil {
		return nil, NewError(ErrCodeConfiguration, "BookRepository is required (use WithBookRepository)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithBookServiceLogger)")
	}

	return s, nil
}

// WithBookRepository sets the book repository dependency.
func WithBookRepository(bookRepo BookRepository) BookServiceOption {
	return func(s *BookService) error {
		if bookRepo == nil {
			return fmt.Errorf("bookRepo cannot be nil")
		}
		s.bookRepo = bookRepo
		return nil
	}
}

// WithBookEventPublisher sets the outbound event publisher.
func WithBookEventPublisher(publisher EventPublisher) BookServiceOption {
	return func(s *BookService) error {
		if publisher == nil {
			return fmt.Errorf("publisher cannot be nil")
		}
		s.publisher = publisher
		return nil
	}
}

// WithBookServiceLogger sets the logger instance.
func WithBookServiceLogger(logger Logger) BookServiceOption {
	return func(s *BookService) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// Create registers a new book in the catalog.
//
// Validation:
//   - All field invariants of model.BookInput
//   - ISBN must not collide with another active book (soft-deleted rows
//     do not block re-registration)
//
// On success a BookCreated event is published with the given correlation ID.
func (s *BookService) Create(ctx context.Context, correlationID string, in model.BookInput) (*model.Book, error) {
	book, err := model.NewBook(in)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid book", err)
	}

	if book.ISBN != "" {
		if err := s.checkISBNAvailable(ctx, book.ISBN, 0); err != nil {
			return nil, err
		}
	}

	saved, err := s.bookRepo.Save(ctx, &book)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to save book", err)
	}

	s.logger.Infof("Book created: id=%d, title=%s, isbn=%s", saved.ID, saved.Title, saved.ISBN)

	s.publish(ctx, model.NewBookCreated(correlationID, saved))

	return saved, nil
}

// Get retrieves an active book by ID.
// Returns a NOT_FOUND error if the book does not exist or is soft-deleted.
func (s *BookService) Get(ctx context.Context, id int64) (*model.Book, error) {
	if id == 0 {
		return nil, NewError(ErrCodeValidation, "book ID is required")
	}

	book, err := s.bookRepo.Load(ctx, id)
	if err != nil {
		if IsNoData(err) {
			return nil, NewErrorWithCause(ErrCodeNotFound, fmt.Sprintf("book not found: %d", id), err)
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load book", err)
	}

	return &book, nil
}

// GetByISBN retrieves an active book by ISBN, accepting hyphenated input.
// Returns a VALIDATION_ERROR for malformed ISBNs and NOT_FOUND when no
// active book holds the ISBN.
func (s *BookService) GetByISBN(ctx context.Context, raw string) (*model.Book, error) {
	if err := isbn.Validate(raw); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid ISBN", err)
	}

	book, err := s.bookRepo.FindByISBN(ctx, isbn.Normalize(raw))
	if err != nil {
		if IsNoData(err) {
			return nil, NewErrorWithCause(ErrCodeNotFound, fmt.Sprintf("no book with ISBN %s", isbn.Normalize(raw)), err)
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load book", err)
	}

	return &book, nil
}

// List retrieves active books matching the filter.
// Returns empty slice if none found (not an error).
func (s *BookService) List(ctx context.Context, filter BookFilter) ([]model.Book, error) {
	books, err := s.bookRepo.List(ctx, filter)
	if err != nil {
		if IsNoData(err) {
			return []model.Book{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to list books", err)
	}

	return books, nil
}

// Count returns the number of active books matching the filter.
func (s *BookService) Count(ctx context.Context, filter BookFilter) (int, error) {
	count, err := s.bookRepo.Count(ctx, filter)
	if err != nil {
		return 0, NewErrorWithCause(ErrCodeDatabase, "failed to count books", err)
	}
	return count, nil
}

// Update replaces every field of an existing book with the new input.
// Partial updates are not supported: callers send the full desired state.
//
// On success a BookUpdated event carrying the changed fields' previous
// values is published.
func (s *BookService) Update(ctx context.Context, correlationID string, id int64, in model.BookInput) (*model.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := previousValues(*book, in)

	newISBN := isbn.Normalize(in.ISBN)
	if newISBN != "" && newISBN != book.ISBN {
		if err := s.checkISBNAvailable(ctx, newISBN, book.ID); err != nil {
			return nil, err
		}
	}

	if err := book.Replace(in); err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid book", err)
	}

	saved, err := s.bookRepo.Save(ctx, book)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to save book", err)
	}

	s.logger.Infof("Book updated: id=%d, version=%d", saved.ID, saved.Version)

	s.publish(ctx, model.NewBookUpdated(correlationID, saved, previous))

	return saved, nil
}

// Delete soft-deletes a book. The row is retained with is_active=false,
// which releases the ISBN for a future registration.
//
// On success a BookDeleted event with deletion type SOFT is published.
// Deleting an already deleted or missing book returns NOT_FOUND.
func (s *BookService) Delete(ctx context.Context, correlationID string, id int64) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	book.Deactivate()
	saved, err := s.bookRepo.Save(ctx, book)
	if err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to save book", err)
	}

	s.logger.Infof("Book deactivated: id=%d", saved.ID)

	s.publish(ctx, model.NewBookDeleted(correlationID, saved, model.DeletionSoft))

	return nil
}

// checkISBNAvailable returns DUPLICATE_ISBN if another active book holds
// the normalized ISBN. excludeID ignores the book being updated.
func (s *BookService) checkISBNAvailable(ctx context.Context, normalized string, excludeID int64) error {
	existing, err := s.bookRepo.FindByISBN(ctx, normalized)
	if err != nil {
		if IsNoData(err) {
			return nil
		}
		return NewErrorWithCause(ErrCodeDatabase, "failed to check ISBN uniqueness", err)
	}
	if existing.ID == excludeID {
		return nil
	}
	return NewError(ErrCodeDuplicateISBN, fmt.Sprintf("an active book already has ISBN %s", normalized))
}

// publish emits the event with retry, detached from the request lifecycle.
// Publish failures never fail the write; they are logged for operators and
// surfaced through metrics at the gateway.
func (s *BookService) publish(ctx context.Context, event model.Event) {
	if s.publisher == nil {
		return
	}

	// The write already committed; cancelling the request must not cancel
	// the event delivery, and retry backoff must not block the caller.
	go func(ctx context.Context) {
		if err := s.publisher.PublishWithRetry(ctx, event); err != nil {
			s.logger.Errorf("Event delivery failed for %s (%s): %v", event.EventID, event.EventType, err)
		}
	}(context.WithoutCancel(ctx))
}

// previousValues captures the old values of fields that the input changes.
func previousValues(book model.Book, in model.BookInput) map[string]interface{} {
	prev := make(map[string]interface{})

	if in.Title != book.Title {
		prev["title"] = book.Title
	}
	if in.Author != book.Author {
		prev["author"] = book.Author
	}
	if isbn.Normalize(in.ISBN) != book.ISBN {
		prev["isbn"] = book.ISBN
	}
	if !in.PublishedDate.Equal(book.PublishedDate) {
		prev["publishedDate"] = book.PublishedDate
	}
	if in.Genre != book.Genre {
		prev["genre"] = book.Genre
	}
	if in.Publisher != book.Publisher {
		prev["publisher"] = book.Publisher
	}
	if in.Language != book.Language {
		prev["language"] = book.Language
	}
	if price, ok := book.PriceValue(); ok {
		if in.Price == nil || *in.Price != price {
			prev["price"] = price
		}
	} else if in.Price != nil {
		prev["price"] = nil
	}
	if book.PageCount.Valid {
		if in.PageCount == nil || int64(*in.PageCount) != book.PageCount.Int64 {
			prev["pageCount"] = book.PageCount.Int64
		}
	} else if in.PageCount != nil {
		prev["pageCount"] = nil
	}

	return prev
}
