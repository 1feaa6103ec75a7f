package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*PermissionPolicy, error)
		wantErr error
	}{
		{
			name: "missing script id",
			build: func() (*PermissionPolicy, error) {
				return NewBuilder().
					WithTimeout(time.Second).
					WithMaxMemory(1 << 20).
					WithLevel(Restricted).
					Build()
			},
			wantErr: ErrMissingScriptID,
		},
		{
			name: "missing timeout",
			build: func() (*PermissionPolicy, error) {
				return NewBuilder().
					WithScriptID("scr_1").
					WithMaxMemory(1 << 20).
					WithLevel(Restricted).
					Build()
			},
			wantErr: ErrMissingTimeout,
		},
		{
			name: "missing memory",
			build: func() (*PermissionPolicy, error) {
				return NewBuilder().
					WithScriptID("scr_1").
					WithTimeout(time.Second).
					WithLevel(Restricted).
					Build()
			},
			wantErr: ErrMissingMemory,
		},
		{
			name: "missing level",
			build: func() (*PermissionPolicy, error) {
				return NewBuilder().
					WithScriptID("scr_1").
					WithTimeout(time.Second).
					WithMaxMemory(1 << 20).
					Build()
			},
			wantErr: ErrMissingLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol, err := tt.build()
			assert.Nil(t, pol)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDenyByDefault(t *testing.T) {
	pol, err := NewBuilder().
		WithScriptID("scr_1").
		WithTimeout(time.Second).
		WithMaxMemory(1 << 20).
		WithLevel(Restricted).
		Build()
	require.NoError(t, err)

	// Restricted seeds only the benign categories.
	assert.True(t, pol.Allows(Core))
	assert.True(t, pol.Allows(Collections))
	assert.True(t, pol.Allows(Logging))

	for _, c := range []ApiCategory{
		FileIO, Network, Reflection, Threading, Unsafe,
		GameStateRead, GameStateWrite, Random, DateTime, Serialization,
	} {
		assert.False(t, pol.Allows(c), "category %s must be denied", c)
	}

	// No namespace is granted unless listed.
	assert.False(t, pol.AllowsNamespace("game.data"))
}

func TestUnsafeNeverSeededByLevel(t *testing.T) {
	for _, level := range []Level{Restricted, Elevated, Unrestricted} {
		pol, err := NewBuilder().
			WithScriptID("scr_1").
			WithTimeout(time.Second).
			WithMaxMemory(1 << 20).
			WithLevel(level).
			Build()
		require.NoError(t, err)
		assert.False(t, pol.Allows(Unsafe), "level %s must not grant unsafe", level)
	}
}

func TestNamespaceGrants(t *testing.T) {
	pol, err := NewBuilder().
		WithScriptID("scr_1").
		WithTimeout(time.Second).
		WithMaxMemory(1 << 20).
		WithLevel(Restricted).
		AllowNamespace("game.data").
		Build()
	require.NoError(t, err)

	assert.True(t, pol.AllowsNamespace("game.data"))
	assert.True(t, pol.AllowsNamespace("game.data.items"))
	assert.False(t, pol.AllowsNamespace("game.database"), "sibling prefix must not match")
	assert.False(t, pol.AllowsNamespace("game.audio"))
	assert.False(t, pol.AllowsNamespace(""))
}

func TestAccessorsReturnCopies(t *testing.T) {
	pol, err := NewBuilder().
		WithScriptID("scr_1").
		WithTimeout(time.Second).
		WithMaxMemory(1 << 20).
		WithLevel(Restricted).
		AllowNamespace("game.data").
		Build()
	require.NoError(t, err)

	apis := pol.AllowedAPIs()
	apis[0] = Unsafe
	assert.False(t, pol.Allows(Unsafe))

	namespaces := pol.AllowedNamespaces()
	namespaces[0] = "game.audio"
	assert.False(t, pol.AllowsNamespace("game.audio"))
}

func TestParsePresets(t *testing.T) {
	doc := []byte(`
presets:
  - name: tier-1
    level: restricted
    timeout: 500ms
    max_memory_bytes: 1048576
    namespaces: [game.data]
    apis: [logging]
  - name: tier-2
    level: elevated
    timeout: 5s
    max_memory_bytes: 67108864
`)
	presets, err := ParsePresets(doc)
	require.NoError(t, err)
	require.Len(t, presets, 2)

	pol, err := presets["tier-1"].Policy("scr_42")
	require.NoError(t, err)
	assert.Equal(t, "scr_42", pol.ScriptID())
	assert.Equal(t, 500*time.Millisecond, pol.Timeout())
	assert.Equal(t, int64(1<<20), pol.MaxMemoryBytes())
	assert.True(t, pol.AllowsNamespace("game.data"))
	assert.True(t, pol.Allows(Logging))
	assert.False(t, pol.Allows(Network))
}

func TestParsePresetsRejectsDuplicates(t *testing.T) {
	doc := []byte(`
presets:
  - name: same
    level: restricted
    timeout: 1s
    max_memory_bytes: 1
  - name: same
    level: elevated
    timeout: 1s
    max_memory_bytes: 1
`)
	_, err := ParsePresets(doc)
	assert.Error(t, err)
}

func TestBuiltinPresetsBuild(t *testing.T) {
	for name, preset := range BuiltinPresets() {
		pol, err := preset.Policy("scr_1")
		require.NoError(t, err, "preset %s", name)
		assert.False(t, pol.Allows(Unsafe), "preset %s must not grant unsafe", name)
	}
}
