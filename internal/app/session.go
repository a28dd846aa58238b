package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/dshills/cutstorm/internal/bin"
	"github.com/dshills/cutstorm/internal/command"
	"github.com/dshills/cutstorm/internal/config"
	"github.com/dshills/cutstorm/internal/logging"
	"github.com/dshills/cutstorm/internal/playback"
	"github.com/dshills/cutstorm/internal/script"
	"github.com/dshills/cutstorm/internal/timeline"
	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// JournalName is the recorder journal every session records into.
const JournalName = "session"

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOutput receives print output from scripts. The default discards it.
func WithOutput(w io.Writer) Option {
	return func(s *Session) {
		if w != nil {
			s.output = w
		}
	}
}

// WithoutDefaultTracks starts the session with an empty timeline.
func WithoutDefaultTracks() Option {
	return func(s *Session) {
		s.skipTracks = true
	}
}

// Session is one timeline with its collaborators.
type Session struct {
	cfg    *config.Config
	logger *slog.Logger
	output io.Writer

	catalog    *bin.Catalog
	graph      *playback.Graph
	stack      *history.Stack
	notifier   *notify.Notifier
	model      *timeline.Model
	recorder   *command.Recorder
	dispatcher *command.Dispatcher

	skipTracks bool
	changes    atomic.Int64
}

// New builds a session from cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Load(config.Options{SkipEnv: true}); err != nil {
			return nil, &InitError{Component: "config", Err: err}
		}
	}
	s := &Session{
		cfg:    cfg,
		logger: logging.Discard(),
		output: io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"bin", s.initCatalog},
		{"model", s.initModel},
		{"tracks", s.initTracks},
		{"dispatcher", s.initDispatcher},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			if s.notifier != nil {
				s.notifier.Close()
			}
			return nil, &InitError{Component: step.name, Err: err}
		}
	}
	return s, nil
}

func (s *Session) initCatalog() error {
	c, err := bin.FromConfig(s.cfg.Bin)
	if err != nil {
		return err
	}
	s.catalog = c
	return nil
}

func (s *Session) initModel() error {
	s.graph = playback.NewGraph()
	s.stack = history.NewStack(s.cfg.Timeline.MaxUndoEntries)
	s.notifier = notify.New()
	s.notifier.Subscribe(func(notify.Change) { s.changes.Add(1) })

	s.model = timeline.New(
		timeline.WithCatalog(s.catalog),
		timeline.WithCompositor(s.graph),
		timeline.WithUndoStack(s.stack),
		timeline.WithNotifier(s.notifier),
		timeline.WithSnapTolerance(s.cfg.Timeline.SnapTolerance),
		timeline.WithResizeCoalescing(s.cfg.Timeline.CoalesceResizes),
		timeline.WithLogger(logging.WithComponent(s.logger, "timeline")),
	)
	s.logger = logging.WithSession(s.logger, s.model.SessionID().String())
	return nil
}

// initTracks creates the configured tracks, audio below video, outside
// the undo history.
func (s *Session) initTracks() error {
	if s.skipTracks {
		return nil
	}
	const flags = timeline.UpdateView | timeline.Invalidate
	for i := range s.cfg.Timeline.AudioTracks {
		if _, err := s.model.RequestTrackInsertion(-1, track.Audio, fmt.Sprintf("A%d", i+1), flags); err != nil {
			return err
		}
	}
	for i := range s.cfg.Timeline.VideoTracks {
		if _, err := s.model.RequestTrackInsertion(-1, track.Video, fmt.Sprintf("V%d", i+1), flags); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) initDispatcher() error {
	s.recorder = command.NewRecorder()
	s.dispatcher = command.NewDispatcher(s.model,
		command.WithRecorder(s.recorder),
		command.WithLogger(logging.WithComponent(s.logger, "command")),
	)
	return s.recorder.StartRecording(JournalName)
}

// Config returns the settings the session was built from.
func (s *Session) Config() *config.Config { return s.cfg }

// Model returns the timeline.
func (s *Session) Model() *timeline.Model { return s.model }

// Catalog returns the media bin.
func (s *Session) Catalog() *bin.Catalog { return s.catalog }

// Graph returns the playback graph.
func (s *Session) Graph() *playback.Graph { return s.graph }

// Dispatcher returns the command dispatcher.
func (s *Session) Dispatcher() *command.Dispatcher { return s.dispatcher }

// Changes returns the number of change notifications emitted so far.
func (s *Session) Changes() int64 { return s.changes.Load() }

// Journal returns the commands applied so far.
func (s *Session) Journal() []command.Command {
	if s.recorder.IsRecording() {
		return s.recorder.Pending()
	}
	return s.recorder.Get(JournalName)
}

// Close stops recording and releases the notifier.
func (s *Session) Close() {
	if s.recorder.IsRecording() {
		s.recorder.StopRecording()
	}
	s.notifier.Close()
}

// Check runs the consistency check.
func (s *Session) Check() error {
	if err := s.model.CheckConsistency(); err != nil {
		return fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	return nil
}

// RunScript runs the Lua file at path against the session. Every edit the
// script makes lands in one undo entry, including when it fails partway.
func (s *Session) RunScript(ctx context.Context, path string) error {
	s.logger.Debug("running script", "path", path)
	err := s.stack.Transaction("script "+filepath.Base(path), func() error {
		return script.RunFile(ctx, s.dispatcher, path, script.WithOutput(s.output))
	})
	if err != nil {
		return NewOperationError("run", path, err)
	}
	return nil
}

// PlayJournal replays the journal file at path.
func (s *Session) PlayJournal(ctx context.Context, path string, keepGoing bool) (command.Report, error) {
	j, err := command.Load(path)
	if err != nil {
		return command.Report{}, NewOperationError("load", path, err)
	}
	s.logger.Debug("playing journal", "path", path, "commands", len(j.Commands))
	p := command.NewPlayer(s.dispatcher)
	p.KeepGoing = keepGoing
	report, err := p.Play(ctx, j.Commands)
	if err != nil {
		return report, NewOperationError("play", path, err)
	}
	return report, nil
}

// SaveJournal writes the commands applied so far to path.
func (s *Session) SaveJournal(path string) error {
	j := command.Journal{
		Name:     JournalName,
		Session:  s.model.SessionID().String(),
		Commands: s.Journal(),
	}
	if err := command.Save(j, path); err != nil {
		return NewOperationError("save", path, err)
	}
	return nil
}
