package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/domain/entities"
	"github.com/botaqiy/botaqiy/internal/metrics"
	"github.com/botaqiy/botaqiy/internal/storage"
)

// Store is the part of the local store the queue persists items in.
type Store interface {
	Put(ctx context.Context, collection string, record any) error
	Get(ctx context.Context, collection, key string, dest any) (bool, error)
	GetAllByIndex(ctx context.Context, collection, index string, value any) ([]json.RawMessage, error)
}

// Replayer applies a queued mutation to the remote database.
// A nil error acknowledges the item.
type Replayer interface {
	Replay(ctx context.Context, item entities.SyncQueueItem) error
}

// ReplayerFunc adapts a function to Replayer.
type ReplayerFunc func(ctx context.Context, item entities.SyncQueueItem) error

func (f ReplayerFunc) Replay(ctx context.Context, item entities.SyncQueueItem) error {
	return f(ctx, item)
}

// Queue records mutations made while offline so they can be replayed later.
type Queue struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.SyncMetrics
	now     func() time.Time

	drainMu sync.Mutex
}

// New creates a queue persisting into store. m may be nil.
func New(store Store, m *metrics.SyncMetrics, logger *zap.Logger) *Queue {
	return &Queue{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Enqueue records a pending mutation of collection.
func (q *Queue) Enqueue(ctx context.Context, action entities.SyncAction, collection string, payload any) (entities.SyncQueueItem, error) {
	if !action.Valid() {
		return entities.SyncQueueItem{}, fmt.Errorf("enqueue: unknown action %q", action)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return entities.SyncQueueItem{}, fmt.Errorf("enqueue: encode payload: %w", err)
	}

	item := entities.SyncQueueItem{
		ID:         uuid.NewString(),
		Action:     action,
		Collection: collection,
		Payload:    data,
		Timestamp:  q.now().UnixMilli(),
		Synced:     false,
	}

	if err := q.store.Put(ctx, storage.SyncQueue, item); err != nil {
		return entities.SyncQueueItem{}, fmt.Errorf("enqueue: %w", err)
	}

	return item, nil
}

// ListPending returns the items not yet synced, oldest first.
func (q *Queue) ListPending(ctx context.Context) ([]entities.SyncQueueItem, error) {
	raws, err := q.store.GetAllByIndex(ctx, storage.SyncQueue, "synced", false)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	items, err := storage.DecodeAll[entities.SyncQueueItem](raws)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp < items[j].Timestamp
	})

	return items, nil
}

// MarkSynced flags the item as replayed. Unknown ids are ignored.
func (q *Queue) MarkSynced(ctx context.Context, id string) error {
	var item entities.SyncQueueItem
	found, err := q.store.Get(ctx, storage.SyncQueue, id, &item)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}
	if !found || item.Synced {
		return nil
	}

	item.Synced = true
	if err := q.store.Put(ctx, storage.SyncQueue, item); err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}

	return nil
}

// Drain replays pending items in enqueue order. It stops at the first item
// the replayer rejects; that item and everything after it stay pending.
// Concurrent calls run one after another.
func (q *Queue) Drain(ctx context.Context, r Replayer) (int, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	pending, err := q.ListPending(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	defer func() {
		if q.metrics != nil {
			q.metrics.Pending.Set(float64(len(pending) - synced))
		}
	}()

	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		if err := r.Replay(ctx, item); err != nil {
			q.observe("failed")
			return synced, fmt.Errorf("replay %s %s/%s: %w", item.ID, item.Action, item.Collection, err)
		}

		if err := q.MarkSynced(ctx, item.ID); err != nil {
			// The item was applied remotely; replaying it again is harmless.
			q.observe("unmarked")
			return synced, err
		}

		q.observe("synced")
		synced++
	}

	return synced, nil
}

func (q *Queue) observe(outcome string) {
	if q.metrics != nil {
		q.metrics.Replayed.WithLabelValues(outcome).Inc()
	}
}

// Subscriber is the part of the connectivity monitor the queue listens to.
type Subscriber interface {
	OnChange(fn func(online bool)) (unsubscribe func())
}

// DrainOnReconnect drains the queue every time the device comes back online.
// The returned function stops listening.
func (q *Queue) DrainOnReconnect(ctx context.Context, monitor Subscriber, r Replayer) (stop func()) {
	return monitor.OnChange(func(online bool) {
		if !online {
			return
		}

		go func() {
			n, err := q.Drain(ctx, r)
			if err != nil && !errors.Is(err, context.Canceled) {
				q.logger.Warn("sync drain stopped", zap.Int("synced", n), zap.Error(err))
				return
			}
			if n > 0 {
				q.logger.Info("sync queue drained", zap.Int("synced", n))
			}
		}()
	})
}
