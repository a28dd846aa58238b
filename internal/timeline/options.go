package timeline

import (
	"log/slog"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/notify"
)

// Default configuration values.
const (
	DefaultSnapTolerance = 10
)

// Option configures a Model during creation.
type Option func(*Model)

// WithCatalog sets the bin catalog consulted on clip creation and reload.
func WithCatalog(c Catalog) Option {
	return func(m *Model) {
		if c != nil {
			m.catalog = c
		}
	}
}

// WithCompositor sets the playback graph the model keeps in sync.
func WithCompositor(c Compositor) Option {
	return func(m *Model) {
		if c != nil {
			m.compositor = c
		}
	}
}

// WithUndoStack sets the stack successful requests are pushed to.
// Without one, requests still apply but nothing can be undone.
func WithUndoStack(s *history.Stack) Option {
	return func(m *Model) {
		m.stack = s
	}
}

// WithNotifier sets the notifier that receives change notifications.
func WithNotifier(n *notify.Notifier) Option {
	return func(m *Model) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithSnapTolerance sets the default snap distance in frames used by the
// command layer. Zero disables snapping.
func WithSnapTolerance(frames int) Option {
	return func(m *Model) {
		if frames >= 0 {
			m.snapTolerance = frames
		}
	}
}

// WithAllocator shares an id allocator with other models.
func WithAllocator(a *ident.Allocator) Option {
	return func(m *Model) {
		if a != nil {
			m.alloc = a
		}
	}
}

// WithResizeCoalescing merges consecutive resizes of the same item edge into
// one undo entry.
func WithResizeCoalescing(enabled bool) Option {
	return func(m *Model) {
		m.coalesce = enabled
	}
}
