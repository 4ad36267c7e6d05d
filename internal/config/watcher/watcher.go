// Package watcher detects external changes to the persisted configuration
// file so a running session can reload it live.
//
// The watcher monitors the file's parent directory rather than the file
// itself: editors and the registry's own overwrite-in-place save replace
// the file by writing a temporary and renaming it over the target, which
// invalidates a watch on the old inode. Rapid event bursts are coalesced
// through a debounce window, so one save produces one event.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrDirNotExist   = errors.New("directory of watched file does not exist")
)

// Op represents the type of file system operation. Coalesced events carry
// the union of every operation seen inside the debounce window.
type Op uint32

const (
	// OpCreate indicates the file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	if op == 0 {
		return "NONE"
	}
	var parts []string
	if op.Has(OpCreate) {
		parts = append(parts, "CREATE")
	}
	if op.Has(OpWrite) {
		parts = append(parts, "WRITE")
	}
	if op.Has(OpRemove) {
		parts = append(parts, "REMOVE")
	}
	if op.Has(OpRename) {
		parts = append(parts, "RENAME")
	}
	if op.Has(OpChmod) {
		parts = append(parts, "CHMOD")
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a change to the watched configuration file.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Op is the operation that occurred, possibly a union.
	Op Op

	// Timestamp is when the last coalesced change occurred.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	// TotalEvents is the number of events delivered.
	TotalEvents int64

	// Coalesced is the number of raw changes folded into other events.
	Coalesced int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// Handler is a function that handles file change events.
type Handler func(event Event)

// ErrorHandler is a function that handles watcher errors.
type ErrorHandler func(err error)

// Config holds watcher configuration options.
type Config struct {
	// Debounce is the quiet window before an event is delivered.
	// Changes within the window are coalesced. Default: 200ms.
	Debounce time.Duration

	// BufferSize is the size of the event and error channels.
	// Default: 16.
	BufferSize int
}

// DefaultConfig returns a Config with the defaults above.
func DefaultConfig() Config {
	return Config{
		Debounce:   200 * time.Millisecond,
		BufferSize: 16,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Debounce = d
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}

// Watcher monitors one configuration file for external changes.
type Watcher struct {
	mu sync.Mutex

	// fsnotify watcher on the parent directory
	fsw *fsnotify.Watcher

	// Configuration
	config Config

	// Absolute path of the watched file
	path string

	// Pending debounced event, nil when idle
	pending *pendingEvent

	// Output channels
	events chan Event
	errors chan error

	// Stats
	startTime   time.Time
	totalEvents int64
	coalesced   int64
	totalErrors int64
	lastError   error

	// Lifecycle
	closed  bool
	closeCh chan struct{}
	loopWg  sync.WaitGroup
	fireWg  sync.WaitGroup
}

// pendingEvent tracks a debounced event.
type pendingEvent struct {
	event Event
	timer *time.Timer
	ops   Op
}

// New creates a watcher for the given configuration file. The file itself
// may not exist yet, but its directory must; the first event fires when
// the file appears.
func New(path string, opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Debounce <= 0 {
		config.Debounce = 200 * time.Millisecond
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 16
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(absPath)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, ErrDirNotExist
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:       fsw,
		config:    config,
		path:      absPath,
		events:    make(chan Event, config.BufferSize),
		errors:    make(chan error, config.BufferSize),
		startTime: time.Now(),
		closeCh:   make(chan struct{}),
	}

	w.loopWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Events returns the debounced event channel.
// The channel is closed when the watcher is closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the error channel.
// The channel is closed when the watcher is closed.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and releases resources. Safe to call twice.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.pending != nil {
		w.pending.timer.Stop()
		w.pending = nil
	}
	close(w.closeCh)
	w.mu.Unlock()

	// Wait for the process loop and any in-flight delivery, then close
	// the output channels so Run loops terminate.
	w.loopWg.Wait()
	w.fireWg.Wait()
	close(w.events)
	close(w.errors)

	return w.fsw.Close()
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		TotalEvents: atomic.LoadInt64(&w.totalEvents),
		Coalesced:   atomic.LoadInt64(&w.coalesced),
		Errors:      atomic.LoadInt64(&w.totalErrors),
		LastError:   w.lastError,
		StartTime:   w.startTime,
	}
}

// Flush immediately fires the pending event, if any.
func (w *Watcher) Flush() {
	w.fire()
}

// Run delivers events to handler until ctx is cancelled or the watcher is
// closed. Errors go to errHandler when it is non-nil.
func (w *Watcher) Run(ctx context.Context, handler Handler, errHandler ErrorHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.events:
			if !ok {
				return
			}
			handler(event)
		case err, ok := <-w.errors:
			if !ok {
				return
			}
			if errHandler != nil {
				errHandler(err)
			}
		}
	}
}

// processLoop handles incoming fsnotify events.
func (w *Watcher) processLoop() {
	defer w.loopWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.sendError(err)
		}
	}
}

// handleFSEvent filters directory events down to the watched file and
// feeds them into the debounce window.
func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	if filepath.Clean(fsEvent.Name) != w.path {
		return
	}
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	if p := w.pending; p != nil {
		// Coalesce: combine operations and reset the quiet window.
		p.ops |= op
		p.event.Op = p.ops
		p.event.Timestamp = time.Now()
		p.timer.Reset(w.config.Debounce)
		atomic.AddInt64(&w.coalesced, 1)
		return
	}

	w.pending = &pendingEvent{
		event: Event{Path: w.path, Op: op, Timestamp: time.Now()},
		ops:   op,
	}
	w.pending.timer = time.AfterFunc(w.config.Debounce, w.fire)
}

// fire delivers the pending event once its quiet window has elapsed.
func (w *Watcher) fire() {
	w.mu.Lock()
	if w.closed || w.pending == nil {
		w.mu.Unlock()
		return
	}
	event := w.pending.event
	w.pending = nil
	// Registered under the lock so Close cannot finish before the send.
	w.fireWg.Add(1)
	w.mu.Unlock()
	defer w.fireWg.Done()

	select {
	case w.events <- event:
		atomic.AddInt64(&w.totalEvents, 1)
	case <-w.closeCh:
	}
}

// convertOp converts fsnotify.Op to watcher.Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

// sendError sends an error to the output channel, dropping it when full.
func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// recordError records an error in stats.
func (w *Watcher) recordError(err error) {
	atomic.AddInt64(&w.totalErrors, 1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
}
