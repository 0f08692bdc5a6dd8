package relica

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/coregx/relica"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/model"
)

// BookRepository implements catalog.BookRepository using Relica.
type BookRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewBookRepository creates a new BookRepository with default table prefix.
func NewBookRepository(sqlDB *sql.DB, driverName string) *BookRepository {
	return &BookRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: "catalog_"}
}

// NewBookRepositoryWithPrefix creates a new BookRepository with custom table prefix.
func NewBookRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *BookRepository {
	return &BookRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *BookRepository) tableName() string {
	return r.tablePrefix + "book"
}

// Load retrieves an active book by ID.
func (r *BookRepository) Load(ctx context.Context, id int64) (model.Book, error) {
	var book model.Book
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("id = ? AND is_active = ?", id, true).
		One(&book)
	if errors.Is(err, sql.ErrNoRows) {
		return book, catalog.ErrNoData
	}
	if err != nil {
		return book, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to load book", err)
	}
	return book, nil
}

// Save creates or updates a book.
func (r *BookRepository) Save(ctx context.Context, b *model.Book) (*model.Book, error) {
	if b.ID == 0 {
		// Insert new book using Model() API
		err := r.db.WithContext(ctx).Model(b).Table(r.tableName()).Insert()
		if err != nil {
			return b, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to insert book", err)
		}
		// b.ID is auto-populated by Model().Insert()
		return b, nil
	}

	// Update existing book
	err := r.db.WithContext(ctx).Model(b).Table(r.tableName()).Update()
	if err != nil {
		return b, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to update book", err)
	}
	return b, nil
}

// FindByISBN retrieves an active book by normalized ISBN.
func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (model.Book, error) {
	var book model.Book
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("isbn = ? AND is_active = ?", isbn, true).
		One(&book)
	if errors.Is(err, sql.ErrNoRows) {
		return book, catalog.ErrNoData
	}
	if err != nil {
		return book, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to find book by ISBN", err)
	}
	return book, nil
}

// List retrieves active books matching the filter, newest first.
func (r *BookRepository) List(ctx context.Context, filter catalog.BookFilter) ([]model.Book, error) {
	where, args := buildBookFilter(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	// Offset is applied client-side over a window of offset+limit rows.
	q := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where(where, args...).
		OrderBy("created_at DESC").
		Limit(int64(limit + filter.Offset))

	var books []model.Book
	if err := q.All(&books); err != nil {
		return nil, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to list books", err)
	}
	if filter.Offset >= len(books) {
		books = nil
	} else if filter.Offset > 0 {
		books = books[filter.Offset:]
	}
	if len(books) == 0 {
		return nil, catalog.ErrNoData
	}
	return books, nil
}

// Count returns the number of active books matching the filter.
func (r *BookRepository) Count(ctx context.Context, filter catalog.BookFilter) (int, error) {
	where, args := buildBookFilter(filter)

	var count int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").
		From(r.tableName()).
		Where(where, args...).
		One(&count)
	if err != nil {
		return 0, catalog.NewErrorWithCause(catalog.ErrCodeDatabase, "failed to count books", err)
	}
	return int(count), nil
}

// buildBookFilter assembles the WHERE clause for active-row book queries.
func buildBookFilter(filter catalog.BookFilter) (string, []interface{}) {
	conds := []string{"is_active = ?"}
	args := []interface{}{true}

	if filter.Author != "" {
		conds = append(conds, "author LIKE ?")
		args = append(args, "%"+filter.Author+"%")
	}
	if filter.Title != "" {
		conds = append(conds, "title LIKE ?")
		args = append(args, "%"+filter.Title+"%")
	}
	if filter.Genre != "" {
		conds = append(conds, "genre = ?")
		args = append(args, filter.Genre)
	}
	if filter.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, filter.Language)
	}

	return strings.Join(conds, " AND "), args
}
