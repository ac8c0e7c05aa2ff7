package history

import (
	"sync"

	"go.uber.org/zap"
)

// writerQueueSize bounds pending snapshots; a full queue drops new ones.
const writerQueueSize = 16

// Writer saves record snapshots in the background. Pending snapshots are
// coalesced so only the newest one is written.
type Writer struct {
	path     string
	queue    chan *Record
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	logger   *zap.Logger

	mu      sync.Mutex
	saves   int
	lastErr error
}

// NewWriter starts a writer for path.
func NewWriter(path string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Writer{
		path:     path,
		queue:    make(chan *Record, writerQueueSize),
		stopChan: make(chan struct{}),
		logger:   logger,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Enqueue schedules a snapshot of rec for writing without blocking.
func (w *Writer) Enqueue(rec *Record) {
	select {
	case <-w.stopChan:
		w.logger.Warn("history writer stopped, dropping snapshot")
		return
	default:
	}

	select {
	case w.queue <- rec.Clone():
	default:
		w.logger.Warn("history queue full, dropping snapshot", zap.String("path", w.path))
	}
}

// Stop writes the newest pending snapshot and waits for the worker to exit.
func (w *Writer) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
	})
}

// Saves returns how many snapshots were written and the last write error.
func (w *Writer) Saves() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saves, w.lastErr
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case rec := <-w.queue:
			w.save(w.latest(rec))
		case <-w.stopChan:
			if rec := w.latest(nil); rec != nil {
				w.save(rec)
			}
			return
		}
	}
}

// latest drains the queue and returns the newest snapshot, or rec when the
// queue is empty.
func (w *Writer) latest(rec *Record) *Record {
	for {
		select {
		case next := <-w.queue:
			rec = next
		default:
			return rec
		}
	}
}

func (w *Writer) save(rec *Record) {
	err := Save(w.path, rec)

	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.saves++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("failed to save history", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Debug("history saved", zap.String("path", w.path), zap.Int("current", len(rec.Current)))
}
