package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single DoString or DoFile call.
const DefaultTimeout = 30 * time.Second

// State wraps a sandboxed gopher-lua state.
//
// The underlying LState is not goroutine-safe; the mutex serializes Go
// callers but a State still runs one script at a time.
type State struct {
	L *lua.LState

	mu      sync.Mutex
	timeout time.Duration
	out     io.Writer
	modules map[string]bool
	closed  bool
}

// Option configures a State.
type Option func(*State)

// WithTimeout bounds each execution. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *State) {
		s.timeout = d
	}
}

// WithOutput redirects print. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *State) {
		s.out = w
	}
}

// NewState creates a sandboxed state.
func NewState(opts ...Option) *State {
	s := &State{
		timeout: DefaultTimeout,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	s.installSandbox()
	return s
}

// openSafeLibraries opens only the libraries without host access.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// DoString runs a chunk of Lua code.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// DoFile runs the Lua file at path.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error {
		return s.L.DoFile(path)
	})
}

func (s *State) run(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := doWithRecovery(fn)
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}
	return err
}

// doWithRecovery turns a panic inside the interpreter into an error.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// Global returns a global variable.
func (s *State) Global(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// Value returns a global converted to a Go value.
func (s *State) Value(name string) any {
	return toGo(s.Global(name))
}

// Register installs a module table as a global and allows it in require.
func (s *State) Register(name string, funcs map[string]lua.LGFunction) *lua.LTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	tbl := s.L.SetFuncs(s.L.NewTable(), funcs)
	s.L.SetGlobal(name, tbl)
	s.modules[name] = true
	return tbl
}

// Close releases the state. Closing twice is a no-op.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.L.Close()
}
