// Package config loads cutstorm settings.
//
// Settings are layered: built-in defaults, then an optional TOML or YAML
// file, then CUTSTORM_* environment variables. Each layer is a generic map
// merged over the previous one; the result is decoded into Config.
package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dshills/cutstorm/internal/config/loader"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CUTSTORM_"

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates a setting is out of range.
	ErrValidationFailed = errors.New("validation failed")

	// ErrDecode indicates the merged layers do not fit the settings schema.
	ErrDecode = errors.New("config decode failed")
)

// Config is the complete set of cutstorm settings.
type Config struct {
	Timeline Timeline   `yaml:"timeline"`
	Logging  Logging    `yaml:"logging"`
	Bin      []BinEntry `yaml:"bin"`
}

// Timeline configures the editing model.
type Timeline struct {
	// SnapTolerance is the default snap distance in frames.
	SnapTolerance int `yaml:"snapTolerance"`
	// MaxUndoEntries bounds the undo stack.
	MaxUndoEntries int `yaml:"maxUndoEntries"`
	// CoalesceResizes merges consecutive resizes of one edge into one undo entry.
	CoalesceResizes bool `yaml:"coalesceResizes"`
	// VideoTracks and AudioTracks are created when a session starts.
	VideoTracks int `yaml:"videoTracks"`
	AudioTracks int `yaml:"audioTracks"`
}

// Logging configures the logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BinEntry describes one media source available to clips.
type BinEntry struct {
	Ref      string `yaml:"ref"`
	Duration int    `yaml:"duration"`
	Audio    bool   `yaml:"audio"`
	Video    bool   `yaml:"video"`
	Ready    *bool  `yaml:"ready,omitempty"`
}

// IsReady reports whether the entry is usable. Entries are ready unless
// stated otherwise.
func (e BinEntry) IsReady() bool {
	return e.Ready == nil || *e.Ready
}

// Defaults returns the built-in settings layer.
func Defaults() map[string]any {
	return map[string]any{
		"timeline": map[string]any{
			"snapTolerance":   10,
			"maxUndoEntries":  1000,
			"coalesceResizes": true,
			"videoTracks":     2,
			"audioTracks":     2,
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}

// Options controls Load.
type Options struct {
	// Path is the settings file. Empty means defaults and environment only.
	Path string
	// FS reads the settings file; nil means the OS file system.
	FS loader.FileSystem
	// Env loads environment overrides; nil means CUTSTORM_* variables.
	Env loader.Loader
	// SkipEnv ignores the environment entirely.
	SkipEnv bool
}

// Load builds the settings from defaults, the file, and the environment.
func Load(opts Options) (*Config, error) {
	merged := Defaults()

	if opts.Path != "" {
		fsys := opts.FS
		if fsys == nil {
			fsys = loader.DefaultFS()
		}
		l, err := loader.ForPath(fsys, opts.Path)
		if err != nil {
			return nil, err
		}
		file, err := l.Load()
		if err != nil {
			return nil, err
		}
		if file == nil {
			return nil, fmt.Errorf("config file %s not found", opts.Path)
		}
		merged = loader.DeepMerge(merged, file)
	}

	if !opts.SkipEnv {
		env := opts.Env
		if env == nil {
			env = loader.NewEnvLoader(EnvPrefix)
		}
		vars, err := env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, vars)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode maps the merged layers onto Config by round-tripping through YAML,
// which accepts the value types produced by every loader.
func decode(merged map[string]any) (*Config, error) {
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &cfg, nil
}

// Validate checks every setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeline.SnapTolerance < 0 {
		errs = append(errs, fmt.Errorf("%w: timeline.snapTolerance %d < 0", ErrValidationFailed, c.Timeline.SnapTolerance))
	}
	if c.Timeline.MaxUndoEntries < 0 {
		errs = append(errs, fmt.Errorf("%w: timeline.maxUndoEntries %d < 0", ErrValidationFailed, c.Timeline.MaxUndoEntries))
	}
	if c.Timeline.VideoTracks < 0 || c.Timeline.AudioTracks < 0 {
		errs = append(errs, fmt.Errorf("%w: negative track count", ErrValidationFailed))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: logging.format %q", ErrValidationFailed, c.Logging.Format))
	}
	seen := make(map[string]bool)
	for i, e := range c.Bin {
		switch {
		case e.Ref == "":
			errs = append(errs, fmt.Errorf("%w: bin[%d] has no ref", ErrValidationFailed, i))
		case seen[e.Ref]:
			errs = append(errs, fmt.Errorf("%w: bin ref %q listed twice", ErrValidationFailed, e.Ref))
		case e.Duration < 0:
			errs = append(errs, fmt.Errorf("%w: bin ref %q has negative duration", ErrValidationFailed, e.Ref))
		case !e.Audio && !e.Video:
			errs = append(errs, fmt.Errorf("%w: bin ref %q has no streams", ErrValidationFailed, e.Ref))
		}
		seen[e.Ref] = true
	}
	return errors.Join(errs...)
}
