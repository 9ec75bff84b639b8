// Package syncqueue is the durable outbox for writes that could not be
// confirmed against the remote backend. Items survive restarts and are
// replayed strictly in enqueue order; delivery is at-least-once, so the
// remote operations it drives must be upserts or tolerate repeats.
package syncqueue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"courier-backend/internal/models"
)

// MaxRetries is the number of failed apply attempts before an item is
// parked as failed and left for manual retry.
const MaxRetries = 3

// ApplyFunc replays one queued mutation against the remote backend.
// A nil return deletes the item; an error counts as a failed attempt.
type ApplyFunc func(ctx context.Context, item *models.QueueItem) error

// DrainResult reports one drain pass.
type DrainResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type Queue struct {
	db       *sql.DB
	draining atomic.Bool

	mu        sync.Mutex
	listeners []func()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sync_queue (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		entity TEXT NOT NULL,
		operation TEXT NOT NULL,
		payload TEXT NOT NULL,
		retries INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		error_message TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
}

func New(db *sql.DB) (*Queue, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to create queue schema: %w", err)
		}
	}
	return &Queue{db: db}, nil
}

// OnChange registers a listener invoked after every enqueue, once per
// completed drain, and after RetryFailed. Listeners must be fast; they
// run on the mutating goroutine.
func (q *Queue) OnChange(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

func (q *Queue) notify() {
	q.mu.Lock()
	listeners := make([]func(), len(q.listeners))
	copy(listeners, q.listeners)
	q.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Enqueue appends a new pending mutation. The payload is snapshotted as
// JSON at call time; later edits to the same entity enqueue their own
// items rather than rewriting this one.
func (q *Queue) Enqueue(ctx context.Context, entity models.EntityKind, op models.Operation, payload interface{}) (*models.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue payload: %w", err)
	}

	now := time.Now()
	item := &models.QueueItem{
		ID:        uuid.New().String(),
		Entity:    entity,
		Operation: op,
		Payload:   data,
		Status:    models.QueueStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO sync_queue(id, entity, operation, payload, status, created_at, updated_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		item.ID, string(entity), string(op), string(data), string(item.Status),
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	if seq, err := res.LastInsertId(); err == nil {
		item.Seq = seq
	}

	log.Printf("[SyncQueue] Enqueued %s %s (item %s)", op, entity, item.ID)
	q.notify()
	return item, nil
}

// PendingCount counts items still awaiting delivery (pending or
// processing). Indexed on status, so cheap enough for UI polling.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_queue WHERE status IN (?, ?)`,
		string(models.QueueStatusPending), string(models.QueueStatusProcessing)).Scan(&n)
	return n, err
}

// FailedItems returns terminally failed items, oldest first.
func (q *Queue) FailedItems(ctx context.Context) ([]*models.QueueItem, error) {
	return q.selectItems(ctx,
		`SELECT seq, id, entity, operation, payload, retries, status, error_message, created_at, updated_at
		 FROM sync_queue WHERE status=? ORDER BY created_at, seq`,
		string(models.QueueStatusFailed))
}

// Drain replays every deliverable item in FIFO order through applyFn.
// A second drain started while one is running is a no-op returning a
// zero result: the guard is a plain boolean swap, which is all the
// re-entrancy protection sequential drains need. Items enqueued while
// the drain runs are left for the next pass. Listeners are notified
// once, at the end, regardless of how many items moved.
func (q *Queue) Drain(ctx context.Context, applyFn ApplyFunc) (DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainResult{}, nil
	}
	defer q.draining.Store(false)
	defer q.notify()

	// Snapshot the work list up front. Processing rows are included so a
	// crash mid-drain leaves nothing stranded.
	items, err := q.selectItems(ctx,
		`SELECT seq, id, entity, operation, payload, retries, status, error_message, created_at, updated_at
		 FROM sync_queue WHERE status IN (?, ?) ORDER BY created_at, seq`,
		string(models.QueueStatusPending), string(models.QueueStatusProcessing))
	if err != nil {
		return DrainResult{}, err
	}

	var result DrainResult
	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if err := q.setStatus(ctx, item.ID, models.QueueStatusProcessing, item.Retries, ""); err != nil {
			return result, err
		}

		applyErr := applyFn(ctx, item)
		if applyErr == nil {
			if _, err := q.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id=?`, item.ID); err != nil {
				return result, err
			}
			result.Processed++
			continue
		}

		item.Retries++
		if item.Retries >= MaxRetries {
			log.Printf("[SyncQueue] Item %s (%s %s) failed permanently after %d attempts: %v",
				item.ID, item.Operation, item.Entity, item.Retries, applyErr)
			if err := q.setStatus(ctx, item.ID, models.QueueStatusFailed, item.Retries, applyErr.Error()); err != nil {
				return result, err
			}
			result.Failed++
		} else {
			log.Printf("[SyncQueue] Item %s (%s %s) failed attempt %d/%d: %v",
				item.ID, item.Operation, item.Entity, item.Retries, MaxRetries, applyErr)
			if err := q.setStatus(ctx, item.ID, models.QueueStatusPending, item.Retries, applyErr.Error()); err != nil {
				return result, err
			}
		}
	}

	if result.Processed > 0 || result.Failed > 0 {
		log.Printf("[SyncQueue] Drain complete: %d processed, %d failed", result.Processed, result.Failed)
	}
	return result, nil
}

// RetryFailed resets every failed item to pending with a fresh retry
// budget. Never called automatically; this is the operator's lever.
func (q *Queue) RetryFailed(ctx context.Context) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE sync_queue SET status=?, retries=0, error_message='', updated_at=? WHERE status=?`,
		string(models.QueueStatusPending), time.Now().UnixMilli(), string(models.QueueStatusFailed))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Printf("[SyncQueue] Reset %d failed items for retry", n)
		q.notify()
	}
	return int(n), nil
}

func (q *Queue) setStatus(ctx context.Context, id string, status models.QueueStatus, retries int, errMsg string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE sync_queue SET status=?, retries=?, error_message=?, updated_at=? WHERE id=?`,
		string(status), retries, errMsg, time.Now().UnixMilli(), id)
	return err
}

func (q *Queue) selectItems(ctx context.Context, query string, args ...interface{}) ([]*models.QueueItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.QueueItem{}
	for rows.Next() {
		var (
			item               models.QueueItem
			entity, op, status string
			payload            string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&item.Seq, &item.ID, &entity, &op, &payload, &item.Retries,
			&status, &item.ErrorMessage, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		item.Entity = models.EntityKind(entity)
		item.Operation = models.Operation(op)
		item.Status = models.QueueStatus(status)
		item.Payload = json.RawMessage(payload)
		item.CreatedAt = time.UnixMilli(createdAt)
		item.UpdatedAt = time.UnixMilli(updatedAt)
		items = append(items, &item)
	}
	return items, rows.Err()
}
