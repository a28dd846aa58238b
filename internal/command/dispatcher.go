package command

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/dshills/cutstorm/internal/timeline"
)

// Handler carries out one kind of command against the dispatcher's model.
type Handler func(d *Dispatcher, args Args) (Result, error)

// Observer is called after every dispatch.
type Observer func(cmd Command, res Result, err error)

// Dispatcher routes commands to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	model    *timeline.Model
	handlers map[Kind]Handler
	flags    timeline.Flags

	recorder  *Recorder
	observers []Observer
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder journals successful commands into r.
func WithRecorder(r *Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithFlags sets the request flags; the default is timeline.Defaults.
func WithFlags(f timeline.Flags) Option {
	return func(d *Dispatcher) { d.flags = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithObserver adds an observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observers = append(d.observers, o) }
}

// NewDispatcher creates a dispatcher for m with the built-in handlers.
func NewDispatcher(m *timeline.Model, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		model:    m,
		handlers: builtinHandlers(),
		flags:    timeline.Defaults,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Model returns the model commands run against.
func (d *Dispatcher) Model() *timeline.Model {
	return d.model
}

// Flags returns the request flags handlers pass to the model.
func (d *Dispatcher) Flags() timeline.Flags {
	return d.flags
}

// Recorder returns the attached recorder, or nil.
func (d *Dispatcher) Recorder() *Recorder {
	return d.recorder
}

// Handle replaces the handler of kind.
func (d *Dispatcher) Handle(kind Kind, h Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(kind))
	}
	if h == nil {
		return fmt.Errorf("%w: nil handler for %s", timeline.ErrInvalidArgument, kind)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
	return nil
}

// Dispatch runs cmd. Commands that succeed and change the timeline are
// recorded when a recorder is attached.
func (d *Dispatcher) Dispatch(cmd Command) (Result, error) {
	d.mu.RLock()
	h, ok := d.handlers[cmd.Kind]
	observers := d.observers
	d.mu.RUnlock()

	var (
		res Result
		err error
	)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownKind, cmd.Kind)
	} else {
		res, err = d.execute(h, cmd)
	}

	if err != nil {
		d.logger.Debug("command failed", "command", cmd.Kind.String(), "error", err)
	} else {
		d.logger.Debug("command applied", "command", cmd.Kind.String(), "id", res.ID)
		if d.recorder != nil && !cmd.Kind.ReadOnly() {
			d.recorder.Record(cmd.Clone())
		}
	}
	for _, o := range observers {
		o(cmd, res, err)
	}
	return res, err
}

// execute runs a handler with panic recovery.
func (d *Dispatcher) execute(h Handler, cmd Command) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)
			d.logger.Error("command handler panic", "command", cmd.Kind.String(), "panic", r, "stack", string(stack[:n]))
			res, err = Result{}, fmt.Errorf("%w: %s: %v", ErrPanic, cmd.Kind, r)
		}
	}()
	args := cmd.Args
	if args == nil {
		args = Args{}
	}
	return h(d, args)
}
