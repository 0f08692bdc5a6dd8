package catalog

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfstream/catalog/model"
)

func validInput() model.BookInput {
	return model.BookInput{
		Title:         "The Go Programming Language",
		Author:        "Alan A. A. Donovan",
		ISBN:          "978-0-13-468599-1",
		PublishedDate: time.Date(2015, 10, 26, 0, 0, 0, 0, time.UTC),
		Genre:         "Programming",
		Publisher:     "Addison-Wesley",
		Language:      "en",
	}
}

// fakeBookRepo is an in-memory BookRepository honoring the active-row
// contract of the real adapters.
type fakeBookRepo struct {
	mu     sync.Mutex
	books  map[int64]model.Book
	nextID int64
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[int64]model.Book), nextID: 1}
}

func (r *fakeBookRepo) Load(_ context.Context, id int64) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok || !b.IsActive {
		return model.Book{}, ErrNoData
	}
	return b, nil
}

func (r *fakeBookRepo) Save(_ context.Context, b *model.Book) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		b.ID = r.nextID
		r.nextID++
	}
	r.books[b.ID] = *b
	return b, nil
}

func (r *fakeBookRepo) FindByISBN(_ context.Context, isbn string) (model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.books {
		if b.IsActive && b.ISBN == isbn {
			return b, nil
		}
	}
	return model.Book{}, ErrNoData
}

func (r *fakeBookRepo) List(_ context.Context, filter BookFilter) ([]model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Book
	for _, b := range r.books {
		if !b.IsActive {
			continue
		}
		if filter.Author != "" && !strings.Contains(b.Author, filter.Author) {
			continue
		}
		if filter.Genre != "" && b.Genre != filter.Genre {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookRepo) Count(ctx context.Context, filter BookFilter) (int, error) {
	books, err := r.List(ctx, filter)
	return len(books), err
}

// recordingPublisher captures published envelopes and signals each publish.
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
	done   chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}, 16)}
}

func (p *recordingPublisher) PublishWithRetry(_ context.Context, event model.Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

// waitForEvent blocks until one publish completed or the test times out.
func (p *recordingPublisher) waitForEvent(t *testing.T) model.Event {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event publish")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func newTestBookService(t *testing.T) (*BookService, *fakeBookRepo, *recordingPublisher) {
	t.Helper()
	repo := newFakeBookRepo()
	pub := newRecordingPublisher()

	s, err := NewBookService(
		WithBookRepository(repo),
		WithBookEventPublisher(pub),
		WithBookServiceLogger(&NoopLogger{}),
	)
	require.NoError(t, err)
	return s, repo, pub
}

func TestBookServiceCreate(t *testing.T) {
	t.Run("valid book is persisted and published", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		book, err := s.Create(context.Background(), "corr-create", validInput())
		require.NoError(t, err)
		assert.NotZero(t, book.ID)
		assert.True(t, book.IsActive)

		event := pub.waitForEvent(t)
		assert.Equal(t, model.EventTypeBookCreated, event.EventType)
		assert.Equal(t, "corr-create", event.CorrelationID)
		assert.Equal(t, book.ID, event.AggregateID)
	})

	t.Run("invalid input is rejected", func(t *testing.T) {
		s, repo, _ := newTestBookService(t)

		in := validInput()
		in.Title = ""

		_, err := s.Create(context.Background(), "corr", in)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Empty(t, repo.books)
	})

	t.Run("duplicate active ISBN is rejected", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		_, err := s.Create(context.Background(), "corr", validInput())
		require.NoError(t, err)
		pub.waitForEvent(t)

		in := validInput()
		in.Title = "Same ISBN, Different Book"

		_, err = s.Create(context.Background(), "corr", in)
		require.Error(t, err)
		assert.True(t, IsDuplicateISBN(err))
	})

	t.Run("soft-deleted book releases its ISBN", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		book, err := s.Create(context.Background(), "corr", validInput())
		require.NoError(t, err)
		pub.waitForEvent(t)

		require.NoError(t, s.Delete(context.Background(), "corr", book.ID))
		pub.waitForEvent(t)

		recreated, err := s.Create(context.Background(), "corr", validInput())
		require.NoError(t, err)
		assert.NotEqual(t, book.ID, recreated.ID)
	})

	t.Run("books without ISBN never collide", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		in := validInput()
		in.ISBN = ""

		_, err := s.Create(context.Background(), "corr", in)
		require.NoError(t, err)
		pub.waitForEvent(t)

		in.Title = "Another ISBN-less Book"
		_, err = s.Create(context.Background(), "corr", in)
		assert.NoError(t, err)
	})
}

func TestBookServiceGet(t *testing.T) {
	s, _, pub := newTestBookService(t)

	book, err := s.Create(context.Background(), "corr", validInput())
	require.NoError(t, err)
	pub.waitForEvent(t)

	t.Run("existing book", func(t *testing.T) {
		got, err := s.Get(context.Background(), book.ID)
		require.NoError(t, err)
		assert.Equal(t, book.ID, got.ID)
	})

	t.Run("missing book", func(t *testing.T) {
		_, err := s.Get(context.Background(), 9999)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("by ISBN with hyphens", func(t *testing.T) {
		got, err := s.GetByISBN(context.Background(), "978-0-13-468599-1")
		require.NoError(t, err)
		assert.Equal(t, book.ID, got.ID)
	})

	t.Run("by malformed ISBN", func(t *testing.T) {
		_, err := s.GetByISBN(context.Background(), "not-an-isbn")
		require.Error(t, err)
		assert.True(t, IsValidation(err))
	})
}

func TestBookServiceUpdate(t *testing.T) {
	t.Run("replacement publishes previous values", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		book, err := s.Create(context.Background(), "corr", validInput())
		require.NoError(t, err)
		pub.waitForEvent(t)

		in := validInput()
		in.Title = "Renamed"

		updated, err := s.Update(context.Background(), "corr-upd", book.ID, in)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Title)
		assert.Equal(t, 2, updated.Version)

		event := pub.waitForEvent(t)
		assert.Equal(t, model.EventTypeBookUpdated, event.EventType)
		assert.Equal(t, validInput().Title, event.Previous["title"])
	})

	t.Run("missing book", func(t *testing.T) {
		s, _, _ := newTestBookService(t)
		_, err := s.Update(context.Background(), "corr", 404, validInput())
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("ISBN change onto another active book is rejected", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		first, err := s.Create(context.Background(), "corr", validInput())
		require.NoError(t, err)
		pub.waitForEvent(t)

		other := validInput()
		other.Title = "Other"
		other.ISBN = "0-306-40615-2"
		second, err := s.Create(context.Background(), "corr", other)
		require.NoError(t, err)
		pub.waitForEvent(t)

		steal := validInput()
		steal.ISBN = "978-0-13-468599-1" // held by first
		_, err = s.Update(context.Background(), "corr", second.ID, steal)
		require.Error(t, err)
		assert.True(t, IsDuplicateISBN(err))
		_ = first
	})

	t.Run("keeping own ISBN is allowed", func(t *testing.T) {
		s, _, pub := newTestBookService(t)

		book, err := s.Create(context.Background(), "corr", validInput())
		require.NoError(t, err)
		pub.waitForEvent(t)

		in := validInput()
		in.Genre = "Reference"
		_, err = s.Update(context.Background(), "corr", book.ID, in)
		assert.NoError(t, err)
	})
}

func TestBookServiceDelete(t *testing.T) {
	s, repo, pub := newTestBookService(t)

	book, err := s.Create(context.Background(), "corr", validInput())
	require.NoError(t, err)
	pub.waitForEvent(t)

	t.Run("soft delete keeps the row", func(t *testing.T) {
		require.NoError(t, s.Delete(context.Background(), "corr-del", book.ID))

		event := pub.waitForEvent(t)
		assert.Equal(t, model.EventTypeBookDeleted, event.EventType)
		assert.Equal(t, model.DeletionSoft, event.DeletionType)

		stored := repo.books[book.ID]
		assert.False(t, stored.IsActive)
		assert.True(t, stored.DeletedAt.Valid)
	})

	t.Run("deleting again is NOT_FOUND", func(t *testing.T) {
		err := s.Delete(context.Background(), "corr", book.ID)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestBookServiceList(t *testing.T) {
	s, _, pub := newTestBookService(t)

	first := validInput()
	_, err := s.Create(context.Background(), "corr", first)
	require.NoError(t, err)
	pub.waitForEvent(t)

	second := validInput()
	second.Title = "Clean Architecture"
	second.Author = "Robert C. Martin"
	second.ISBN = ""
	second.Genre = "Software"
	_, err = s.Create(context.Background(), "corr", second)
	require.NoError(t, err)
	pub.waitForEvent(t)

	t.Run("no filter returns all active", func(t *testing.T) {
		books, err := s.List(context.Background(), BookFilter{})
		require.NoError(t, err)
		assert.Len(t, books, 2)
	})

	t.Run("filter by genre", func(t *testing.T) {
		books, err := s.List(context.Background(), BookFilter{Genre: "Software"})
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "Clean Architecture", books[0].Title)
	})

	t.Run("count matches", func(t *testing.T) {
		count, err := s.Count(context.Background(), BookFilter{})
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}
