package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfstream/catalog/model"
)

// In-memory repository fakes for consumer tests.

type fakeNotificationRepo struct {
	mu      sync.Mutex
	saved   []*model.Notification
	saveErr error
}

func (r *fakeNotificationRepo) Save(_ context.Context, n *model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	n.ID = int64(len(r.saved) + 1)
	r.saved = append(r.saved, n)
	return n, nil
}

func (r *fakeNotificationRepo) FindByEventID(_ context.Context, eventID string) (model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.saved {
		if n.EventID == eventID {
			return *n, nil
		}
	}
	return model.Notification{}, ErrNoData
}

func (r *fakeNotificationRepo) FindRecent(_ context.Context, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Notification, 0, limit)
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *r.saved[i])
	}
	return out, nil
}

type fakeProcessedRepo struct {
	mu          sync.Mutex
	seen        map[string]bool
	pruned      int
	deleteCalls int
	deleteErr   error
}

func newFakeProcessedRepo() *fakeProcessedRepo {
	return &fakeProcessedRepo{seen: make(map[string]bool)}
}

func (r *fakeProcessedRepo) Exists(_ context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[eventID], nil
}

func (r *fakeProcessedRepo) Save(_ context.Context, p *model.ProcessedEvent) (*model.ProcessedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[p.EventID] = true
	return p, nil
}

func (r *fakeProcessedRepo) DeleteOlderThan(_ context.Context, _ time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	return r.pruned, nil
}

func (r *fakeProcessedRepo) deleteCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteCalls
}

type recordingSink struct {
	mu         sync.Mutex
	dispatched []*model.Notification
	err        error
}

func (s *recordingSink) Dispatch(_ context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.dispatched = append(s.dispatched, n)
	return nil
}

type recordingDeadLetterer struct {
	mu     sync.Mutex
	calls  [][]byte
	causes []error
}

func (d *recordingDeadLetterer) DeadLetter(_ context.Context, payload []byte, _ model.Attributes, cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, payload)
	d.causes = append(d.causes, cause)
	return nil
}

type consumerFixture struct {
	consumer      *EventConsumer
	notifications *fakeNotificationRepo
	processed     *fakeProcessedRepo
	sink          *recordingSink
	dlq           *recordingDeadLetterer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	f := &consumerFixture{
		notifications: &fakeNotificationRepo{},
		processed:     newFakeProcessedRepo(),
		sink:          &recordingSink{},
		dlq:           &recordingDeadLetterer{},
	}

	consumer, err := NewEventConsumer(
		WithConsumerRepositories(f.notifications, f.processed),
		WithConsumerSink(f.sink),
		WithConsumerDeadLetterer(f.dlq),
		WithConsumerLogger(&NoopLogger{}),
	)
	require.NoError(t, err)
	f.consumer = consumer
	return f
}

func marshalEvent(t *testing.T, e model.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	return raw
}

func TestNewEventConsumer(t *testing.T) {
	t.Run("missing repositories", func(t *testing.T) {
		_, err := NewEventConsumer(WithConsumerLogger(&NoopLogger{}))
		assert.Error(t, err)
	})

	t.Run("missing logger", func(t *testing.T) {
		_, err := NewEventConsumer(WithConsumerRepositories(&fakeNotificationRepo{}, newFakeProcessedRepo()))
		assert.Error(t, err)
	})
}

func TestEventConsumerHandleMessage(t *testing.T) {
	book := &model.Book{ID: 7, Title: "Consumed Book"}

	t.Run("created event produces BOOK_CREATED notification", func(t *testing.T) {
		f := newConsumerFixture(t)
		event := model.NewBookCreated("corr-1", book)

		result, err := f.consumer.HandleMessage(context.Background(), marshalEvent(t, event), event.Headers())
		require.NoError(t, err)
		assert.Equal(t, StateDispatched, result.State)
		assert.Equal(t, event.EventID, result.EventID)
		assert.False(t, result.Skipped)

		require.Len(t, f.sink.dispatched, 1)
		n := f.sink.dispatched[0]
		assert.Equal(t, model.NotificationBookCreated, n.Type)
		assert.Equal(t, event.EventID, n.EventID)
		assert.Contains(t, n.Subject, "Consumed Book")
	})

	t.Run("each event type maps to its own notification type", func(t *testing.T) {
		f := newConsumerFixture(t)

		events := []model.Event{
			model.NewBookCreated("c", book),
			model.NewBookUpdated("c", book, map[string]interface{}{"title": "Old"}),
			model.NewBookDeleted("c", book, model.DeletionSoft),
		}
		wantTypes := []string{
			model.NotificationBookCreated,
			model.NotificationBookUpdated,
			model.NotificationBookDeleted,
		}

		for i, event := range events {
			result, err := f.consumer.HandleMessage(context.Background(), marshalEvent(t, event), event.Headers())
			require.NoError(t, err)
			assert.Equal(t, StateDispatched, result.State)
			assert.Equal(t, wantTypes[i], f.sink.dispatched[i].Type)
		}
	})

	t.Run("redelivery of a processed event is skipped", func(t *testing.T) {
		f := newConsumerFixture(t)
		event := model.NewBookCreated("corr-2", book)
		payload := marshalEvent(t, event)

		first, err := f.consumer.HandleMessage(context.Background(), payload, event.Headers())
		require.NoError(t, err)
		assert.False(t, first.Skipped)

		second, err := f.consumer.HandleMessage(context.Background(), payload, event.Headers())
		require.NoError(t, err)
		assert.True(t, second.Skipped)
		assert.Equal(t, StateDispatched, second.State)
		assert.Len(t, f.sink.dispatched, 1, "no duplicate dispatch")
	})

	t.Run("undecodable payload is dead-lettered, not retried", func(t *testing.T) {
		f := newConsumerFixture(t)

		result, err := f.consumer.HandleMessage(context.Background(), []byte("{not json"), nil)
		require.NoError(t, err, "poison messages must not trigger redelivery")
		assert.Equal(t, StateFailed, result.State)
		require.Len(t, f.dlq.calls, 1)
		assert.Equal(t, ErrCodeDeserialization, CodeOf(f.dlq.causes[0]))
		assert.Empty(t, f.sink.dispatched)
	})

	t.Run("valid JSON that is not an event is dead-lettered", func(t *testing.T) {
		f := newConsumerFixture(t)

		result, err := f.consumer.HandleMessage(context.Background(), []byte(`{"foo":"bar"}`), nil)
		require.NoError(t, err)
		assert.Equal(t, StateFailed, result.State)
		assert.Len(t, f.dlq.calls, 1)
	})

	t.Run("sink failure returns error for transport-level redelivery", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.sink.err = errors.New("smtp down")
		event := model.NewBookCreated("corr-3", book)

		result, err := f.consumer.HandleMessage(context.Background(), marshalEvent(t, event), event.Headers())
		require.Error(t, err)
		assert.Equal(t, StateFailed, result.State)

		// Not recorded as processed, so the redelivery will go through.
		seen, _ := f.processed.Exists(context.Background(), event.EventID)
		assert.False(t, seen)
	})

	t.Run("repository failure returns error", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.notifications.saveErr = errors.New("disk full")
		event := model.NewBookCreated("corr-4", book)

		result, err := f.consumer.HandleMessage(context.Background(), marshalEvent(t, event), event.Headers())
		require.Error(t, err)
		assert.Equal(t, StateFailed, result.State)
	})
}

func TestRunLedgerCleanup(t *testing.T) {
	t.Run("prunes on every tick until canceled", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.processed.pruned = 3

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			f.consumer.RunLedgerCleanup(ctx, 5*time.Millisecond, 7*24*time.Hour)
			close(done)
		}()

		assert.Eventually(t, func() bool {
			return f.processed.deleteCallCount() >= 2
		}, 2*time.Second, time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("cleanup loop did not stop after cancel")
		}
	})

	t.Run("keeps running after a prune failure", func(t *testing.T) {
		f := newConsumerFixture(t)
		f.processed.deleteErr = errors.New("table locked")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go f.consumer.RunLedgerCleanup(ctx, 5*time.Millisecond, time.Hour)

		assert.Eventually(t, func() bool {
			return f.processed.deleteCallCount() >= 2
		}, 2*time.Second, time.Millisecond)
	})
}

func TestBuildNotification(t *testing.T) {
	t.Run("unknown event type has no template", func(t *testing.T) {
		_, err := BuildNotification(model.Event{EventType: "BookShredded"})
		assert.Error(t, err)
	})

	t.Run("deleted template names the deletion type", func(t *testing.T) {
		event := model.NewBookDeleted("c", &model.Book{ID: 1, Title: "Gone"}, model.DeletionSoft)
		n, err := BuildNotification(event)
		require.NoError(t, err)
		assert.Contains(t, n.Body, "SOFT")
	})

	t.Run("references the aggregate and default recipient", func(t *testing.T) {
		event := model.NewBookCreated("c", &model.Book{ID: 5, Title: "Ref"})
		n, err := BuildNotification(event)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n.ReferenceID)
		assert.Equal(t, "book", n.ReferenceType)
		assert.Equal(t, DefaultRecipientEmail, n.RecipientEmail)
		assert.Equal(t, DefaultRecipientName, n.RecipientName)
	})

	t.Run("pure over the envelope", func(t *testing.T) {
		event := model.NewBookCreated("c", &model.Book{ID: 1, Title: "Same"})
		a, err := BuildNotification(event)
		require.NoError(t, err)
		b, err := BuildNotification(event)
		require.NoError(t, err)
		assert.Equal(t, a.Subject, b.Subject)
		assert.Equal(t, a.Body, b.Body)
	})
}
