package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/orders-service/internal/domain"
	"github.com/fjod/go_shop/orders-service/internal/repository"
	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafkaGo.Message
	failOn   int
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil && len(w.messages) == w.failOn {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) sent() []kafkaGo.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafkaGo.Message(nil), w.messages...)
}

type failingSource struct {
	*repository.MemoryRepository
	fetchErr error
	markErr  error
}

func (s *failingSource) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OrderEvent, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.MemoryRepository.GetUnprocessedEvents(ctx, limit)
}

func (s *failingSource) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	if s.markErr != nil {
		return s.markErr
	}
	return s.MemoryRepository.MarkEventAsProcessed(ctx, id)
}

func mustField(t *testing.T, payload []byte, field string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &fields))
	v, ok := fields[field]
	require.True(t, ok, "payload has no %q field", field)
	return v
}

func seedOrder(t *testing.T, repo *repository.MemoryRepository) *domain.Order {
	t.Helper()
	items := []domain.OrderItem{{ProductID: 1, Title: "Wireless Headphones", Price: 2999, Quantity: 1}}
	now := time.Now().UTC()
	o := &domain.Order{
		ID:        uuid.New(),
		UserID:    "u-1",
		UserName:  "Asha",
		Email:     "asha@example.com",
		Status:    domain.OrderStatusCreated,
		Method:    domain.MethodCard,
		Totals:    domain.ComputeTotals(items, ""),
		Items:     items,
		PlacedAt:  now,
		UpdatedAt: now,
	}
	ev, err := domain.NewOrderCreatedEvent(o)
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(context.Background(), o, ev))
	return o
}

func cancelOrder(t *testing.T, repo *repository.MemoryRepository, o *domain.Order) {
	t.Helper()
	ev, err := domain.NewOrderCancelledEvent(o)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), o.ID, nil, domain.OrderStatusCancelled, ev))
}

func TestProcessUnpublishedEvents_PublishesAndMarks(t *testing.T) {
	repo := repository.NewMemoryRepository()
	order := seedOrder(t, repo)
	cancelOrder(t, repo, order)
	writer := &fakeWriter{}
	poller := NewOutboxPoller(repo, writer)

	n := poller.processUnpublishedEvents(context.Background())

	assert.Equal(t, 2, n)
	msgs := writer.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, order.ID.String(), string(msgs[0].Key))
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)
	assert.Equal(t, domain.EventOrderCreated, string(msgs[0].Headers[0].Value))
	assert.Equal(t, domain.EventOrderCancelled, string(msgs[1].Headers[0].Value))
	assert.JSONEq(t, `"Cancelled"`, string(mustField(t, msgs[1].Value, "status")))

	left, err := repo.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, left)

	// nothing is sent twice
	assert.Equal(t, 0, poller.processUnpublishedEvents(context.Background()))
}

func TestProcessUnpublishedEvents_StopsAtFirstPublishFailure(t *testing.T) {
	repo := repository.NewMemoryRepository()
	order := seedOrder(t, repo)
	cancelOrder(t, repo, order)
	writer := &fakeWriter{failOn: 0, err: errors.New("leader not available")}
	poller := NewOutboxPoller(repo, writer)

	n := poller.processUnpublishedEvents(context.Background())

	assert.Equal(t, 0, n)
	assert.Empty(t, writer.sent())
	left, err := repo.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestProcessUnpublishedEvents_FetchError(t *testing.T) {
	source := &failingSource{
		MemoryRepository: repository.NewMemoryRepository(),
		fetchErr:         errors.New("database connection error"),
	}
	writer := &fakeWriter{}
	poller := NewOutboxPoller(source, writer)

	assert.Equal(t, 0, poller.processUnpublishedEvents(context.Background()))
	assert.Empty(t, writer.sent())
}

func TestProcessUnpublishedEvents_MarkErrorRepublishesLater(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedOrder(t, repo)
	source := &failingSource{MemoryRepository: repo, markErr: errors.New("deadlock detected")}
	writer := &fakeWriter{}
	poller := NewOutboxPoller(source, writer)

	assert.Equal(t, 0, poller.processUnpublishedEvents(context.Background()))
	source.markErr = nil
	assert.Equal(t, 1, poller.processUnpublishedEvents(context.Background()))

	// at least once: the first attempt already reached the broker
	assert.Len(t, writer.sent(), 2)
}

func TestRun_StopsOnCancelAndClosesWriter(t *testing.T) {
	repo := repository.NewMemoryRepository()
	seedOrder(t, repo)
	writer := &fakeWriter{}
	poller := NewOutboxPoller(repo, writer)
	poller.eventTick = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(writer.sent()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.True(t, writer.closed)
}

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")
	return brokers[0]
}

func TestOutboxPoller_PublishesEventsToKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	brokerAddr := setupKafka(t)

	repo := repository.NewMemoryRepository()
	order := seedOrder(t, repo)

	writer := NewKafkaWriter("orders-outbox-test", brokerAddr)
	writer.WriteTimeout = 10 * time.Second
	poller := NewOutboxPoller(repo, writer)
	poller.timeout = 20 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	go poller.Run(ctx)

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    "orders-outbox-test",
		GroupID:  "orders-outbox-test-consumer",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)

	assert.Equal(t, order.ID.String(), string(msg.Key))
	assert.JSONEq(t, `"`+order.ID.String()+`"`, string(mustField(t, msg.Value, "order_id")))

	require.Eventually(t, func() bool {
		left, err := repo.GetUnprocessedEvents(context.Background(), 10)
		return err == nil && len(left) == 0
	}, 10*time.Second, 100*time.Millisecond)
}
