package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestKindNames(t *testing.T) {
	kinds := Kinds()
	require.Len(t, kinds, int(kindCount)-1)

	seen := map[string]bool{}
	for _, k := range kinds {
		name := k.String()
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true

		parsed, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("explode")
	require.ErrorIs(t, err, ErrUnknownKind)
	_, err = ParseKind("invalid")
	require.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, "kind(200)", Kind(200).String())
}

func TestKindEveryKindHasHandler(t *testing.T) {
	handlers := builtinHandlers()
	for _, k := range Kinds() {
		assert.Contains(t, handlers, k, k.String())
	}
}

func TestKindReadOnly(t *testing.T) {
	assert.True(t, SuggestMove.ReadOnly())
	assert.True(t, Check.ReadOnly())
	assert.False(t, MoveClip.ReadOnly())
	assert.False(t, Undo.ReadOnly())
}

func TestCommandEncoding(t *testing.T) {
	cmd := New(MoveClip, Args{"id": 3, "track": 1, "position": 40})

	data, err := yaml.Marshal(cmd)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: move_clip")

	var back Command
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, MoveClip, back.Kind)
	pos, err := back.Args.Int("position")
	require.NoError(t, err)
	assert.Equal(t, 40, pos)

	js, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"kind":"move_clip"`)

	require.Error(t, yaml.Unmarshal([]byte("kind: explode"), &back))
	_, err = yaml.Marshal(Command{})
	require.Error(t, err)
}
