package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]any

func (e mapEnv) Load() (map[string]any, error) { return e, nil }

type memFS map[string]string

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(data), nil
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(Options{SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, Timeline{
		SnapTolerance:   10,
		MaxUndoEntries:  1000,
		CoalesceResizes: true,
		VideoTracks:     2,
		AudioTracks:     2,
	}, cfg.Timeline)
	assert.Equal(t, Logging{Level: "info", Format: "text"}, cfg.Logging)
	assert.Empty(t, cfg.Bin)
}

func TestLayering(t *testing.T) {
	fsys := memFS{"/c.toml": `
[timeline]
snapTolerance = 4
videoTracks = 3

[logging]
format = "json"

[[bin]]
ref = "intro"
duration = 250
audio = true
video = true

[[bin]]
ref = "render"
duration = 100
video = true
ready = false
`}
	env := mapEnv{"timeline": map[string]any{"snapTolerance": int64(6)}}

	cfg, err := Load(Options{Path: "/c.toml", FS: fsys, Env: env})
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Timeline.SnapTolerance)
	assert.Equal(t, 3, cfg.Timeline.VideoTracks)
	assert.Equal(t, 2, cfg.Timeline.AudioTracks)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.Len(t, cfg.Bin, 2)
	assert.Equal(t, "intro", cfg.Bin[0].Ref)
	assert.True(t, cfg.Bin[0].IsReady())
	assert.False(t, cfg.Bin[1].IsReady())
	assert.False(t, cfg.Bin[1].Audio)
}

func TestLoadYAMLFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutstorm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timeline:
  maxUndoEntries: 50
bin:
  - {ref: voice, duration: 90, audio: true}
`), 0o644))

	cfg, err := Load(Options{Path: path, SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Timeline.MaxUndoEntries)
	require.Len(t, cfg.Bin, 1)
	assert.Equal(t, 90, cfg.Bin[0].Duration)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CUTSTORM_LOG_LEVEL", "debug")
	t.Setenv("CUTSTORM_TIMELINE_AUDIO_TRACKS", "5")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Timeline.AudioTracks)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(Options{Path: "/missing.toml", FS: memFS{}, SkipEnv: true})
	require.Error(t, err)

	_, err = Load(Options{Path: "/c.ini", FS: memFS{}, SkipEnv: true})
	require.Error(t, err)

	fsys := memFS{"/c.yaml": "timeline:\n  snapTolerance: lots\n"}
	_, err = Load(Options{Path: "/c.yaml", FS: fsys, SkipEnv: true})
	require.ErrorIs(t, err, ErrDecode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative snap", func(c *Config) { c.Timeline.SnapTolerance = -1 }},
		{"negative undo", func(c *Config) { c.Timeline.MaxUndoEntries = -1 }},
		{"negative tracks", func(c *Config) { c.Timeline.VideoTracks = -2 }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"empty ref", func(c *Config) { c.Bin = []BinEntry{{Video: true}} }},
		{"duplicate ref", func(c *Config) { c.Bin = []BinEntry{{Ref: "a", Video: true}, {Ref: "a", Audio: true}} }},
		{"no streams", func(c *Config) { c.Bin = []BinEntry{{Ref: "a", Duration: 5}} }},
		{"negative duration", func(c *Config) { c.Bin = []BinEntry{{Ref: "a", Duration: -5, Video: true}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(Options{SkipEnv: true})
			require.NoError(t, err)
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrValidationFailed)
		})
	}
}
