// Package memory implements the repository ports in process. Writes made
// inside RunInTx are undone if the transaction function fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/laundry-desk/backend/internal/models"
)

type txKey struct{}

type memTx struct {
	undo []func()
}

type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	pending       map[uuid.UUID]models.PendingUpdate
	notifications map[uuid.UUID]models.Notification
	activity      []models.ActivityLog
	profiles      map[uuid.UUID]models.Profile
	records       map[string]map[uuid.UUID]models.Record

	now func() time.Time

	PendingUpdates *PendingUpdateStore
	Notifications  *NotificationStore
	ActivityLogs   *ActivityLogStore
	Profiles       *ProfileStore
	Records        *RecordStore
}

func New() *DB {
	d := &DB{
		pending:       make(map[uuid.UUID]models.PendingUpdate),
		notifications: make(map[uuid.UUID]models.Notification),
		profiles:      make(map[uuid.UUID]models.Profile),
		records: map[string]map[uuid.UUID]models.Record{
			models.TableServices: {},
			models.TableExpenses: {},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	d.PendingUpdates = &PendingUpdateStore{db: d}
	d.Notifications = &NotificationStore{db: d}
	d.ActivityLogs = &ActivityLogStore{db: d}
	d.Profiles = &ProfileStore{db: d}
	d.Records = &RecordStore{db: d}
	return d
}

// SetClock replaces the timestamp source.
func (d *DB) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// RunInTx serializes transactions and rolls back their writes on error or panic.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*memTx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.txMu.Lock()
	defer d.txMu.Unlock()

	tx := &memTx{}
	defer func() {
		p := recover()
		if err != nil || p != nil {
			d.mu.Lock()
			for i := len(tx.undo) - 1; i >= 0; i-- {
				tx.undo[i]()
			}
			d.mu.Unlock()
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// onRollback registers undo for a write made under d.mu. Outside a
// transaction it is a no-op.
func (d *DB) onRollback(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(txKey{}).(*memTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

func copyFields(m models.FieldMap) models.FieldMap {
	if m == nil {
		return nil
	}
	out := make(models.FieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
