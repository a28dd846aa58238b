package loader

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MemFS is an in-memory file system for testing.
type MemFS map[string]string

func (m MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(data), nil
}

func TestTOMLLoader_Load(t *testing.T) {
	memfs := MemFS{"/cutstorm.toml": `
[timeline]
snapTolerance = 4
coalesceResizes = false

[[bin]]
ref = "intro"
duration = 250
video = true
`}

	config, err := NewTOMLLoaderWithFS(memfs, "/cutstorm.toml").Load()
	require.NoError(t, err)

	v, ok := GetByPath(config, "timeline.snapTolerance")
	require.True(t, ok)
	assert.Equal(t, int64(4), v)
	v, _ = GetByPath(config, "timeline.coalesceResizes")
	assert.Equal(t, false, v)

	bin, ok := config["bin"].([]any)
	require.True(t, ok)
	require.Len(t, bin, 1)
	assert.Equal(t, "intro", bin[0].(map[string]any)["ref"])
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := MemFS{"/bad.toml": "[timeline\nsnap = 1\n"}
	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/bad.toml", perr.Path)
	assert.Positive(t, perr.Line)
}

func TestYAMLLoader_Load(t *testing.T) {
	memfs := MemFS{"/cutstorm.yaml": `
timeline:
  videoTracks: 3
logging:
  format: json
bin:
  - ref: voice
    duration: 90
    audio: true
`}

	config, err := NewYAMLLoaderWithFS(memfs, "/cutstorm.yaml").Load()
	require.NoError(t, err)
	v, _ := GetByPath(config, "timeline.videoTracks")
	assert.Equal(t, 3, v)
	v, _ = GetByPath(config, "logging.format")
	assert.Equal(t, "json", v)
}

func TestLoadFromReader(t *testing.T) {
	config, err := NewYAMLLoader("").LoadFromReader(strings.NewReader("logging: {level: debug}"))
	require.NoError(t, err)
	v, _ := GetByPath(config, "logging.level")
	assert.Equal(t, "debug", v)

	config, err = NewTOMLLoader("").LoadFromReader(strings.NewReader("[logging]\nlevel = \"warn\""))
	require.NoError(t, err)
	v, _ = GetByPath(config, "logging.level")
	assert.Equal(t, "warn", v)
}

func TestMissingFileIsNotAnError(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(MemFS{}, "/nope.toml").Load()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"a.toml", false},
		{"a.yaml", false},
		{"A.YML", false},
		{"a.json", true},
		{"a", true},
	}
	for _, tt := range tests {
		_, err := ForPath(MemFS{}, tt.path)
		if tt.wantErr {
			assert.Error(t, err, tt.path)
		} else {
			assert.NoError(t, err, tt.path)
		}
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("CUTSTORM_")
	l.environ = func() []string {
		return []string{
			"CUTSTORM_LOG_LEVEL=debug",
			"CUTSTORM_SNAP_TOLERANCE=15",
			"CUTSTORM_TIMELINE_VIDEO_TRACKS=4",
			"CUTSTORM_COALESCE_RESIZES=off",
			"OTHER_SETTING=1",
		}
	}

	config, err := l.Load()
	require.NoError(t, err)

	v, _ := GetByPath(config, "logging.level")
	assert.Equal(t, "debug", v)
	v, _ = GetByPath(config, "timeline.snapTolerance")
	assert.Equal(t, int64(15), v)
	v, _ = GetByPath(config, "timeline.videoTracks")
	assert.Equal(t, int64(4), v)
	v, _ = GetByPath(config, "timeline.coalesceResizes")
	assert.Equal(t, false, v)
	_, ok := GetByPath(config, "other")
	assert.False(t, ok)
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader("CUTSTORM_")
	tests := map[string]string{
		"CUTSTORM_LOGGING":                  "logging",
		"CUTSTORM_LOGGING_LEVEL":            "logging.level",
		"CUTSTORM_TIMELINE_MAX_UNDO_ENTRIES": "timeline.maxUndoEntries",
	}
	for in, want := range tests {
		assert.Equal(t, want, l.envToPath(in), in)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"Yes", true},
		{"off", false},
		{"42", int64(42)},
		{"1", int64(1)},
		{"2.5", 2.5},
		{"json", "json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseValue(tt.in), tt.in)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"timeline": map[string]any{"snapTolerance": 10, "videoTracks": 2},
		"logging":  map[string]any{"level": "info"},
	}
	src := map[string]any{
		"timeline": map[string]any{"snapTolerance": 3},
		"bin":      []any{map[string]any{"ref": "a"}},
	}
	got := DeepMerge(dst, src)

	v, _ := GetByPath(got, "timeline.snapTolerance")
	assert.Equal(t, 3, v)
	v, _ = GetByPath(got, "timeline.videoTracks")
	assert.Equal(t, 2, v)
	v, _ = GetByPath(got, "logging.level")
	assert.Equal(t, "info", v)

	// Merged values are copies.
	src["bin"].([]any)[0].(map[string]any)["ref"] = "b"
	assert.Equal(t, "a", got["bin"].([]any)[0].(map[string]any)["ref"])
}

func TestSetByPath(t *testing.T) {
	m := map[string]any{"logging": "flat"}
	SetByPath(m, "logging.level", "warn")
	SetByPath(m, "timeline.snapTolerance", 1)
	v, _ := GetByPath(m, "logging.level")
	assert.Equal(t, "warn", v)
	v, _ = GetByPath(m, "timeline.snapTolerance")
	assert.Equal(t, 1, v)

	c := Clone(m)
	SetByPath(m, "logging.level", "error")
	v, _ = GetByPath(c, "logging.level")
	assert.Equal(t, "warn", v)
	assert.Nil(t, Clone(nil))
}
