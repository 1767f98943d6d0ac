package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"YellowbellPOS/app/database"
	"YellowbellPOS/app/models"

	"gorm.io/gorm"
)

// Sync log statuses
const (
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
	SyncStatusDropped = "dropped"
)

// MirrorTarget receives whole-collection snapshots
type MirrorTarget interface {
	Name() string
	Replicate(ctx context.Context, collection string, payload []byte) error
}

// MirrorWorker pushes changed collections to a remote target in the background.
// Each change gets at most one attempt and nothing waits for it.
type MirrorWorker struct {
	store   *database.Store
	target  MirrorTarget
	logger  *LoggerService
	timeout time.Duration

	queue    chan models.Collection
	mu       sync.Mutex
	pending  map[models.Collection]bool
	dropped  []droppedChange
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// droppedChange is a change the full queue turned away, journaled later by the worker
type droppedChange struct {
	collection models.Collection
	event      models.EventType
}

// NewMirrorWorker creates a worker with a queue of queueSize collections
func NewMirrorWorker(store *database.Store, target MirrorTarget, logger *LoggerService, queueSize int, timeout time.Duration) *MirrorWorker {
	if queueSize <= 0 {
		queueSize = len(models.AllCollections)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MirrorWorker{
		store:   store,
		target:  target,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan models.Collection, queueSize),
		pending: make(map[models.Collection]bool),
	}
}

// Start launches the worker goroutine
func (w *MirrorWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(w.stopChan, w.done)

	log.Printf("Mirror worker started (target: %s)", w.target.Name())
}

// Stop ends the worker after the snapshot in flight, if any. Queued changes are dropped.
func (w *MirrorWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	done := w.done
	w.mu.Unlock()

	<-done
	log.Println("Mirror worker stopped")
}

// Publish queues the event's collections without blocking. A collection already
// waiting is not queued twice; a full queue drops the change, and the worker
// journals the drop on its own goroutine.
func (w *MirrorWorker) Publish(_ context.Context, evt models.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, collection := range evt.Collections {
		if w.pending[collection] {
			continue
		}
		select {
		case w.queue <- collection:
			w.pending[collection] = true
		default:
			w.dropped = append(w.dropped, droppedChange{collection: collection, event: evt.Type})
		}
	}
}

func (w *MirrorWorker) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if w.logger != nil {
		defer w.logger.RecoverPanic()
	}

	for {
		select {
		case <-stop:
			w.journalDropped()
			return
		case collection := <-w.queue:
			w.mu.Lock()
			delete(w.pending, collection)
			w.mu.Unlock()
			w.journalDropped()
			w.replicate(collection)
		}
	}
}

// journalDropped records the changes Publish had to turn away
func (w *MirrorWorker) journalDropped() {
	w.mu.Lock()
	dropped := w.dropped
	w.dropped = nil
	w.mu.Unlock()

	for _, change := range dropped {
		w.warn(fmt.Sprintf("Mirror queue full, dropped %s change", change.collection), string(change.event))
		w.journal(change.collection, SyncStatusDropped, "queue full", 0)
	}
}

// replicate makes the single attempt for one collection
func (w *MirrorWorker) replicate(collection models.Collection) {
	var snapshot interface{}
	err := w.store.View(func(db *gorm.DB) error {
		var err error
		snapshot, err = SnapshotCollection(db, collection)
		return err
	})
	if err != nil {
		w.warn("Mirror snapshot failed", err.Error())
		w.journal(collection, SyncStatusFailed, err.Error(), 0)
		return
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		w.warn("Mirror encode failed", err.Error())
		w.journal(collection, SyncStatusFailed, err.Error(), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if err := w.target.Replicate(ctx, string(collection), payload); err != nil {
		w.warn(fmt.Sprintf("Mirror write of %s to %s failed", collection, w.target.Name()), err.Error())
		w.journal(collection, SyncStatusFailed, err.Error(), len(payload))
		return
	}
	w.journal(collection, SyncStatusSuccess, "", len(payload))
}

func (w *MirrorWorker) journal(collection models.Collection, status, errMsg string, size int) {
	if err := w.store.LogSync(string(collection), w.target.Name(), status, errMsg, size); err != nil {
		log.Printf("⚠️ Could not record sync log: %v", err)
	}
}

func (w *MirrorWorker) warn(message, details string) {
	if w.logger != nil {
		w.logger.LogWarning(message, details)
		return
	}
	log.Printf("⚠️ %s | %s", message, details)
}
