package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfstream/catalog"
	"github.com/shelfstream/catalog/model"
)

type memNotificationRepo struct {
	mu      sync.Mutex
	saved   []model.Notification
	saveErr error
}

func (r *memNotificationRepo) Save(_ context.Context, n *model.Notification) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	r.saved = append(r.saved, *n)
	return n, nil
}

func (r *memNotificationRepo) FindByEventID(_ context.Context, _ string) (model.Notification, error) {
	return model.Notification{}, catalog.ErrNoData
}

func (r *memNotificationRepo) FindRecent(_ context.Context, _ int) ([]model.Notification, error) {
	return nil, catalog.ErrNoData
}

type memProcessedRepo struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemProcessedRepo() *memProcessedRepo {
	return &memProcessedRepo{seen: make(map[string]bool)}
}

func (r *memProcessedRepo) Exists(_ context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[eventID], nil
}

func (r *memProcessedRepo) Save(_ context.Context, p *model.ProcessedEvent) (*model.ProcessedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[p.EventID] = true
	return p, nil
}

func (r *memProcessedRepo) DeleteOlderThan(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

// fakeSession records offset marks; its context ends the claim loop.
type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "test-member" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg)
}

func (s *fakeSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	offsets := make([]int64, len(s.marked))
	for i, m := range s.marked {
		offsets[i] = m.Offset
	}
	return offsets
}

var _ sarama.ConsumerGroupSession = (*fakeSession)(nil)

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

var _ sarama.ConsumerGroupClaim = (*fakeClaim)(nil)

func (c *fakeClaim) Topic() string                            { return model.ExchangeName }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type flakySink struct {
	mu         sync.Mutex
	dispatched int
	err        error
}

func (s *flakySink) Dispatch(_ context.Context, _ *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.dispatched++
	return nil
}

func newTestHandler(t *testing.T, sink catalog.NotificationSink) *groupHandler {
	t.Helper()

	processor, err := catalog.NewEventConsumer(
		catalog.WithConsumerRepositories(&memNotificationRepo{}, newMemProcessedRepo()),
		catalog.WithConsumerSink(sink),
		catalog.WithConsumerLogger(&catalog.NoopLogger{}),
	)
	require.NoError(t, err)

	return &groupHandler{processor: processor, logger: &catalog.NoopLogger{}}
}

func eventMessage(t *testing.T, offset int64) *sarama.ConsumerMessage {
	t.Helper()

	event := model.NewBookCreated("corr-claim", &model.Book{ID: offset, Title: "Claimed"})
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return &sarama.ConsumerMessage{
		Topic:  model.ExchangeName,
		Offset: offset,
		Value:  payload,
		Headers: []*sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.EventType)},
		},
	}
}

// runClaim feeds the messages through ConsumeClaim and returns the session.
func runClaim(t *testing.T, handler *groupHandler, messages ...*sarama.ConsumerMessage) *fakeSession {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(messages))}
	for _, m := range messages {
		claim.messages <- m
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = handler.ConsumeClaim(session, claim)
	}()

	// Let the buffered messages drain before ending the session.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ConsumeClaim did not return after session context ended")
	}

	return session
}

func TestConsumeClaimMarksProcessedMessages(t *testing.T) {
	sink := &flakySink{}
	handler := newTestHandler(t, sink)

	session := runClaim(t, handler, eventMessage(t, 1), eventMessage(t, 2))

	assert.Equal(t, []int64{1, 2}, session.markedOffsets())
	assert.Equal(t, 2, sink.dispatched)
}

func TestConsumeClaimMarksDeadLetteredPoison(t *testing.T) {
	handler := newTestHandler(t, &flakySink{})

	poison := &sarama.ConsumerMessage{Topic: model.ExchangeName, Offset: 7, Value: []byte("{not json")}
	session := runClaim(t, handler, poison)

	// Poison payloads are dead-lettered; their offsets must still advance.
	assert.Equal(t, []int64{7}, session.markedOffsets())
}

func TestConsumeClaimLeavesFailedDispatchUnmarked(t *testing.T) {
	sink := &flakySink{err: assert.AnError}
	handler := newTestHandler(t, sink)

	session := runClaim(t, handler, eventMessage(t, 3))

	// Dispatch failed after a clean decode: the offset stays unmarked so the
	// broker redelivers the event.
	assert.Empty(t, session.markedOffsets())
}
