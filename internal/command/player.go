package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrAlreadyPlaying is returned when a player is started twice.
var ErrAlreadyPlaying = errors.New("command: already playing")

// Failure records a command that was rejected during playback.
type Failure struct {
	Index   int
	Command Command
	Err     error
}

// Report summarizes a playback.
type Report struct {
	Applied  int
	Failures []Failure
}

// Player replays command lists through a dispatcher.
type Player struct {
	dispatcher *Dispatcher
	mu         sync.Mutex
	playing    atomic.Bool
	cancel     context.CancelFunc

	// KeepGoing continues after a rejected command instead of stopping.
	KeepGoing bool
}

// NewPlayer creates a player for d.
func NewPlayer(d *Dispatcher) *Player {
	return &Player{dispatcher: d}
}

// Play dispatches cmds in order. It stops at the first rejected command
// unless KeepGoing is set, and at cancellation of ctx.
func (p *Player) Play(ctx context.Context, cmds []Command) (Report, error) {
	childCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.playing.Load() {
		p.mu.Unlock()
		cancel()
		return Report{}, ErrAlreadyPlaying
	}
	p.cancel = cancel
	p.playing.Store(true)
	p.mu.Unlock()

	defer func() {
		cancel()
		p.playing.Store(false)
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
	}()

	var report Report
	for i, cmd := range cmds {
		if err := childCtx.Err(); err != nil {
			return report, err
		}
		if _, err := p.dispatcher.Dispatch(cmd); err != nil {
			report.Failures = append(report.Failures, Failure{Index: i, Command: cmd, Err: err})
			if !p.KeepGoing {
				return report, fmt.Errorf("command %d (%s): %w", i, cmd.Kind, err)
			}
			continue
		}
		report.Applied++
	}
	return report, nil
}

// PlayJournal replays the named journal of the dispatcher's recorder.
func (p *Player) PlayJournal(ctx context.Context, name string) (Report, error) {
	r := p.dispatcher.Recorder()
	if r == nil || !r.Has(name) {
		return Report{}, fmt.Errorf("empty journal %q", name)
	}
	return p.Play(ctx, r.Get(name))
}

// IsPlaying returns true while Play runs.
func (p *Player) IsPlaying() bool {
	return p.playing.Load()
}

// Cancel stops the running playback. It is safe to call at any time.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}
