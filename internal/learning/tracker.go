package learning

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanglvm/tool-router/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are flushed.
	flushInterval = 50 * time.Millisecond
)

// Tracker writes operation events to storage in the background.
type Tracker struct {
	storage    storage.Storage
	eventQueue chan OperationEvent
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewTracker creates a tracker and starts its background worker. A storage
// that fails to initialize leaves the tracker disabled.
func NewTracker(s storage.Storage, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		storage:    s,
		eventQueue: make(chan OperationEvent, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    s != nil,
		logger:     logger,
	}

	if s != nil {
		if err := s.Init(); err != nil {
			logger.Warn("learning storage initialization failed", zap.Error(err))
			t.enabled = false
		}
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues an event without blocking. A full queue drops the event.
func (t *Tracker) Track(event OperationEvent) {
	if !t.IsEnabled() {
		return
	}

	select {
	case <-t.stopChan:
		return
	default:
	}

	select {
	case t.eventQueue <- event:
	default:
		t.logger.Warn("learning queue full, dropping event", zap.String("tool", event.Tool))
	}
}

// Stop flushes queued events and waits for the worker to exit.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable disables tracking (events are ignored).
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enable enables tracking when storage is present.
func (t *Tracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = t.storage != nil
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// QueueSize returns the number of events waiting to be flushed.
func (t *Tracker) QueueSize() int {
	return len(t.eventQueue)
}

// processEvents runs in the background, batching and flushing events.
func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]OperationEvent, 0, batchFlushSize)

	for {
		select {
		case event := <-t.eventQueue:
			batch = append(batch, event)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = batch[:0]
			}

		case <-t.stopChan:
			for {
				select {
				case event := <-t.eventQueue:
					batch = append(batch, event)
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to storage in one transaction.
func (t *Tracker) flush(events []OperationEvent) {
	if len(events) == 0 || t.storage == nil {
		return
	}

	records := make([]storage.OperationRecord, len(events))
	for i, e := range events {
		records[i] = e.ToStorage()
	}
	if err := t.storage.RecordOperations(records); err != nil {
		t.logger.Warn("failed to record operations", zap.Int("count", len(records)), zap.Error(err))
	}
}
