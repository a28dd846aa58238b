package app

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

// Dump returns the timeline snapshot as JSON with a meta object
// describing the session.
func (s *Session) Dump() ([]byte, error) {
	data, err := json.Marshal(s.model.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	stack := s.model.UndoStack()
	meta := []struct {
		path  string
		value any
	}{
		{"meta.session", s.model.SessionID().String()},
		{"meta.duration", s.model.Duration()},
		{"meta.undo", stack.UndoCount()},
		{"meta.redo", stack.RedoCount()},
		{"meta.history", stack.UndoInfo()},
		{"meta.undone", stack.RedoInfo()},
		{"meta.commands", len(s.Journal())},
		{"meta.changes", s.Changes()},
	}
	for _, m := range meta {
		if data, err = sjson.SetBytes(data, m.path, m.value); err != nil {
			return nil, fmt.Errorf("annotate %s: %w", m.path, err)
		}
	}
	return data, nil
}

// Annotate sets path in a JSON dump.
func Annotate(dump []byte, path string, value any) ([]byte, error) {
	return sjson.SetBytes(dump, path, value)
}

// Query evaluates a gjson path against a dump. Missing paths yield ok false.
func Query(dump []byte, path string) (string, bool) {
	r := gjson.GetBytes(dump, path)
	if !r.Exists() {
		return "", false
	}
	if r.IsObject() || r.IsArray() {
		return r.Raw, true
	}
	return r.String(), true
}

// ToYAML converts a JSON dump to YAML.
func ToYAML(dump []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(dump, &v); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return yaml.Marshal(v)
}
