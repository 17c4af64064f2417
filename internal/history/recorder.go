// Package history records performed searches without delaying responses.
package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/metrics"
	"github.com/Daption-ciray/proapp/pkg/kafka"
)

// DefaultTimeout bounds a single background append or publish.
const DefaultTimeout = 2 * time.Second

// Topic is the topic and event type of search history events.
const Topic = "search.performed"

const eventSource = "search"

// Recorder records a performed search. Record returns immediately; failures
// are logged and counted, never reported to the caller.
type Recorder interface {
	Record(ctx context.Context, entry domain.SearchHistoryEntry)
}

// Appender persists history entries.
type Appender interface {
	AppendHistory(ctx context.Context, entry *domain.SearchHistoryEntry) error
}

// Publisher publishes events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// background runs fire-and-forget work on a context detached from the
// request, bounded by timeout.
type background struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func (b *background) goDetached(ctx context.Context, fn func(ctx context.Context)) {
	timeout := b.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	detached := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(detached, timeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until all pending background work has finished.
func (b *background) Wait() {
	b.wg.Wait()
}

func prepare(entry *domain.SearchHistoryEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Filters = entry.Filters.Clone()
}

// DirectRecorder appends to the store in a background goroutine.
type DirectRecorder struct {
	background
	store  Appender
	logger *slog.Logger
}

// NewDirectRecorder creates a recorder writing to store.
func NewDirectRecorder(store Appender, timeout time.Duration, logger *slog.Logger) *DirectRecorder {
	return &DirectRecorder{
		background: background{timeout: timeout},
		store:      store,
		logger:     logger,
	}
}

func (r *DirectRecorder) Record(ctx context.Context, entry domain.SearchHistoryEntry) {
	if entry.UserID == "" {
		return
	}
	prepare(&entry)
	r.goDetached(ctx, func(ctx context.Context) {
		if err := r.store.AppendHistory(ctx, &entry); err != nil {
			metrics.HistoryAppendFailures.WithLabelValues("direct").Inc()
			r.logger.WarnContext(ctx, "failed to append search history",
				slog.String("user_id", entry.UserID),
				slog.String("error", err.Error()),
			)
		}
	})
}

// KafkaRecorder publishes history entries as events; a Consumer built with
// NewHandler persists them.
type KafkaRecorder struct {
	background
	publisher Publisher
	logger    *slog.Logger
}

// NewKafkaRecorder creates a recorder publishing to Topic.
func NewKafkaRecorder(publisher Publisher, timeout time.Duration, logger *slog.Logger) *KafkaRecorder {
	return &KafkaRecorder{
		background: background{timeout: timeout},
		publisher:  publisher,
		logger:     logger,
	}
}

func (r *KafkaRecorder) Record(ctx context.Context, entry domain.SearchHistoryEntry) {
	if entry.UserID == "" {
		return
	}
	prepare(&entry)
	r.goDetached(ctx, func(ctx context.Context) {
		event, err := kafka.NewEvent(Topic, entry.UserID, eventSource, entry)
		if err == nil {
			err = r.publisher.Publish(ctx, Topic, event)
		}
		if err != nil {
			metrics.HistoryAppendFailures.WithLabelValues("kafka").Inc()
			r.logger.WarnContext(ctx, "failed to publish search history",
				slog.String("user_id", entry.UserID),
				slog.String("error", err.Error()),
			)
		}
	})
}

// NewHandler returns a consumer handler that appends each event's entry to
// store. Redelivered events reuse the entry ID assigned at record time.
func NewHandler(store Appender) kafka.Handler {
	return func(ctx context.Context, event *kafka.Event) error {
		var entry domain.SearchHistoryEntry
		if err := event.Decode(&entry); err != nil {
			return err
		}
		return store.AppendHistory(ctx, &entry)
	}
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, domain.SearchHistoryEntry) {}
