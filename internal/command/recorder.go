package command

import (
	"fmt"
	"sort"
	"sync"
)

// Recorder journals dispatched commands into named slots.
type Recorder struct {
	mu        sync.Mutex
	recording bool
	name      string
	commands  []Command
	journals  map[string][]Command
}

// NewRecorder creates a recorder with no journals.
func NewRecorder() *Recorder {
	return &Recorder{
		journals: make(map[string][]Command),
	}
}

// StartRecording begins recording into the named journal.
func (r *Recorder) StartRecording(name string) error {
	if name == "" {
		return fmt.Errorf("invalid journal name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("already recording to journal %q", r.name)
	}

	r.recording = true
	r.name = name
	r.commands = nil
	return nil
}

// StopRecording ends the current recording, stores it, and returns the
// recorded commands. It returns nil when not recording.
func (r *Recorder) StopRecording() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return nil
	}

	r.recording = false
	if len(r.commands) > 0 {
		r.journals[r.name] = cloneCommands(r.commands)
	}
	result := r.commands
	r.commands = nil
	return result
}

// IsRecording returns true if currently recording.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Current returns the journal being recorded to, or "".
func (r *Recorder) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return r.name
	}
	return ""
}

// Pending returns a copy of the commands recorded since StartRecording.
func (r *Recorder) Pending() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneCommands(r.commands)
}

// Record appends a command to the current recording. It does nothing when
// not recording.
func (r *Recorder) Record(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		r.commands = append(r.commands, cmd)
	}
}

// Get returns a copy of the named journal.
func (r *Recorder) Get(name string) []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneCommands(r.journals[name])
}

// Set stores commands under name; an empty list deletes the journal.
func (r *Recorder) Set(name string, commands []Command) error {
	if name == "" {
		return fmt.Errorf("invalid journal name %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(commands) == 0 {
		delete(r.journals, name)
		return nil
	}
	r.journals[name] = cloneCommands(commands)
	return nil
}

// Has returns true if the named journal holds commands.
func (r *Recorder) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.journals[name]) > 0
}

// Names returns the journal names in sorted order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.journals))
	for name := range r.journals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes the named journal.
func (r *Recorder) Clear(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.journals, name)
}

func cloneCommands(cmds []Command) []Command {
	if len(cmds) == 0 {
		return []Command{}
	}
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		out[i] = c.Clone()
	}
	return out
}
