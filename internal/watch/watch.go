// Package watch reports debounced changes to edit scripts and journals.
//
// Editors save in bursts: a write is often a truncate, a write and a
// chmod, or a rename over the old file. The watcher coalesces every
// operation on one path within the delay window into a single Event.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is the debounce window.
const DefaultDelay = 100 * time.Millisecond

var (
	// ErrClosed is returned by a closed watcher.
	ErrClosed = errors.New("watcher is closed")

	// ErrPathNotExist is returned when watching a missing path.
	ErrPathNotExist = errors.New("path does not exist")
)

// Op is a set of file operations.
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Has reports whether o contains all of other.
func (o Op) Has(other Op) bool {
	return o&other == other
}

func (o Op) String() string {
	var parts []string
	for _, n := range []struct {
		op   Op
		name string
	}{{OpCreate, "create"}, {OpWrite, "write"}, {OpRemove, "remove"}, {OpRename, "rename"}, {OpChmod, "chmod"}} {
		if o.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Event is a coalesced change to one path.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce window.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithExtensions limits events to files with one of exts, e.g. ".lua".
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		for _, e := range exts {
			w.exts = append(w.exts, strings.ToLower(e))
		}
	}
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.buffer = n
		}
	}
}

type pending struct {
	event Event
	timer *time.Timer
}

// Watcher watches files and directories and emits debounced events.
// Hidden files are ignored.
type Watcher struct {
	fsw    *fsnotify.Watcher
	delay  time.Duration
	exts   []string
	buffer int

	mu      sync.Mutex
	paths   map[string]bool
	pending map[string]*pending
	closed  bool

	events  chan Event
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher. Close it to release the underlying descriptors.
func New(opts ...Option) (*Watcher, error) {
	w := &Watcher{
		delay:   DefaultDelay,
		buffer:  64,
		paths:   make(map[string]bool),
		pending: make(map[string]*pending),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsw = fsw
	w.events = make(chan Event, w.buffer)
	w.errors = make(chan error, w.buffer)

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Add watches path, a file or a directory.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.paths[abs] {
		return nil
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	w.paths[abs] = true
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !w.paths[abs] {
		return nil
	}
	delete(w.paths, abs)
	return w.fsw.Remove(abs)
}

// Paths returns the watched paths, sorted.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Events returns the debounced event channel. It is closed by Close.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns watcher errors. It is closed by Close.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// PendingCount returns the number of paths waiting out their delay.
func (w *Watcher) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush emits every pending event immediately.
func (w *Watcher) Flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p, pe := range w.pending {
		pe.timer.Stop()
		paths = append(paths, p)
	}
	w.mu.Unlock()

	slices.Sort(paths)
	for _, p := range paths {
		w.fire(p)
	}
}

// Close stops the watcher. Pending events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for p, pe := range w.pending {
		pe.timer.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	// Hold the lock so a timer already past Stop cannot send on a closed channel.
	w.mu.Lock()
	close(w.events)
	close(w.errors)
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

// handle starts or extends the debounce window of the event's path.
func (w *Watcher) handle(ev fsnotify.Event) {
	op := convertOp(ev.Op)
	if op == 0 || !w.accepts(ev.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	now := time.Now()
	if p, ok := w.pending[ev.Name]; ok {
		p.event.Op |= op
		p.event.Time = now
		p.timer.Reset(w.delay)
		return
	}
	name := ev.Name
	w.pending[name] = &pending{
		event: Event{Path: name, Op: op, Time: now},
		timer: time.AfterFunc(w.delay, func() { w.fire(name) }),
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[path]
	if !ok || w.closed {
		return
	}
	delete(w.pending, path)
	select {
	case w.events <- p.event:
	default:
		// Dropped when the consumer is behind.
	}
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	return slices.Contains(w.exts, strings.ToLower(filepath.Ext(base)))
}

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
