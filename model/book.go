package model

import (
	"database/sql"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/shelfstream/catalog/isbn"
)

// Field bounds for Book validation.
const (
	TitleMaxLen     = 200
	AuthorMaxLen    = 100
	GenreMaxLen     = 50
	PublisherMaxLen = 100
	LanguageMaxLen  = 20

	PriceMin = 0.01
	PriceMax = 999999.99

	PageCountMin = 1
	PageCountMax = 10000
)

// Book represents a catalog entry with its business invariants.
//
// Lifecycle:
//  1. Created via NewBook, which validates every field
//  2. Mutated only through Replace (whole-field replacement, no partial patch)
//  3. Soft-deleted via Deactivate; the row is retained with is_active=false
//
// ISBN uniqueness is scoped to active rows: a soft-deleted book does not
// block re-registration of the same ISBN.
type Book struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Author        string          `json:"author"`
	ISBN          string          `json:"isbn,omitempty"`
	PublishedDate time.Time       `json:"publishedDate" db:"published_date"`
	Price         sql.NullFloat64 `json:"price" db:"price"`
	PageCount     sql.NullInt64   `json:"pageCount" db:"page_count"`
	Genre         string          `json:"genre,omitempty"`
	Publisher     string          `json:"publisher,omitempty"`
	Language      string          `json:"language,omitempty"`
	IsActive      bool            `json:"isActive" db:"is_active"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
	DeletedAt     sql.NullTime    `json:"deletedAt" db:"deleted_at"`
}

// TableName returns the database table name for Book.
func (b Book) TableName() string {
	return tablePrefix + "book"
}

// BookInput carries the caller-supplied fields for creating or replacing a
// book. Optional numeric fields use pointers to distinguish absent from zero.
type BookInput struct {
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	ISBN          string     `json:"isbn"`
	PublishedDate time.Time  `json:"publishedDate"`
	Price         *float64   `json:"price"`
	PageCount     *int       `json:"pageCount"`
	Genre         string     `json:"genre"`
	Publisher     string     `json:"publisher"`
	Language      string     `json:"language"`
}

// Validate checks the input against all Book invariants.
// Field-level checks (required, length bounds) run through ozzo-validation;
// the ISBN checksum, future-date, and sign checks return typed domain errors
// so callers can match on the failure kind.
func (in BookInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, TitleMaxLen)),
		validation.Field(&in.Author, validation.Required, validation.Length(1, AuthorMaxLen)),
		validation.Field(&in.Genre, validation.Length(0, GenreMaxLen)),
		validation.Field(&in.Publisher, validation.Length(0, PublisherMaxLen)),
		validation.Field(&in.Language, validation.Length(0, LanguageMaxLen)),
		validation.Field(&in.PublishedDate, validation.Required),
	)
	if err != nil {
		return err
	}

	if in.ISBN != "" {
		if err := isbn.Validate(in.ISBN); err != nil {
			return err
		}
	}

	// Evaluated against the wall clock at validation time, not a frozen one.
	if in.PublishedDate.After(time.Now()) {
		return ErrFutureDate
	}

	if in.Price != nil {
		if *in.Price < 0 {
			return ErrNegativeValue
		}
		if *in.Price < PriceMin || *in.Price > PriceMax {
			return ErrPriceOutOfRange
		}
	}

	if in.PageCount != nil && (*in.PageCount < PageCountMin || *in.PageCount > PageCountMax) {
		return ErrPageCountOutOfRange
	}

	return nil
}

// NewBook creates an active book from validated input.
// Returns an error without constructing anything if validation fails.
func NewBook(in BookInput) (Book, error) {
	if err := in.Validate(); err != nil {
		return Book{}, err
	}

	now := time.Now()
	b := Book{
		ID:            0,
		Title:         in.Title,
		Author:        in.Author,
		ISBN:          isbn.Normalize(in.ISBN),
		PublishedDate: in.PublishedDate,
		Genre:         in.Genre,
		Publisher:     in.Publisher,
		Language:      in.Language,
		IsActive:      true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.setOptional(in)

	return b, nil
}

// Replace applies a whole-field replacement to the book after validating
// the new input. The identifier, active flag, and creation timestamp are
// preserved; the version is incremented.
func (b *Book) Replace(in BookInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	b.Title = in.Title
	b.Author = in.Author
	b.ISBN = isbn.Normalize(in.ISBN)
	b.PublishedDate = in.PublishedDate
	b.Genre = in.Genre
	b.Publisher = in.Publisher
	b.Language = in.Language
	b.setOptional(in)
	b.Version++
	b.UpdatedAt = time.Now()

	return nil
}

func (b *Book) setOptional(in BookInput) {
	if in.Price != nil {
		b.Price = sql.NullFloat64{Float64: *in.Price, Valid: true}
	} else {
		b.Price = sql.NullFloat64{}
	}
	if in.PageCount != nil {
		b.PageCount = sql.NullInt64{Int64: int64(*in.PageCount), Valid: true}
	} else {
		b.PageCount = sql.NullInt64{}
	}
}

// Deactivate performs a soft delete on the book.
// The row is retained for audit purposes; only active rows participate in
// ISBN uniqueness checks.
func (b *Book) Deactivate() {
	now := time.Now()
	b.IsActive = false
	b.DeletedAt = sql.NullTime{Time: now, Valid: true}
	b.Version++
	b.UpdatedAt = now
}

// PriceValue returns the price and whether one is set.
func (b *Book) PriceValue() (float64, bool) {
	return b.Price.Float64, b.Price.Valid
}

// Domain errors returned by Book validation.
var (
	// ErrFutureDate indicates a published date after the current time.
	ErrFutureDate = DomainError{Code: "FUTURE_DATE", Message: "Published date must not be in the future"}

	// ErrNegativeValue indicates a negative price.
	ErrNegativeValue = DomainError{Code: "NEGATIVE_VALUE", Message: "Price must not be negative"}

	// ErrPriceOutOfRange indicates a price outside the accepted range.
	ErrPriceOutOfRange = DomainError{Code: "PRICE_RANGE", Message: "Price is out of range"}

	// ErrPageCountOutOfRange indicates a page count outside the accepted range.
	ErrPageCountOutOfRange = DomainError{Code: "PAGE_COUNT_RANGE", Message: "Page count is out of range"}
)

// DomainError represents a domain-level business rule violation.
type DomainError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
}

func (e DomainError) Error() string {
	return e.Message
}
