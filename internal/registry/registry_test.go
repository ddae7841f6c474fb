package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckymifta/dash-atm-collector/internal/registry"
)

func TestLoadSeedsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal_registry.json")

	reg, err := registry.Load(path)
	require.NoError(t, err)

	assert.Len(t, reg.Known(), len(registry.SeedTerminalIDs))
	for _, id := range registry.SeedTerminalIDs {
		assert.True(t, reg.Has(id), "seed terminal %s should be known", id)
	}
}

func TestLoadIsIdempotentAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal_registry.json")

	first, err := registry.Load(path)
	require.NoError(t, err)
	before := len(first.Known())

	second, err := registry.Load(path)
	require.NoError(t, err)
	assert.Equal(t, before, len(second.Known()))
}

func TestObserveIsMonotone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal_registry.json")
	reg, err := registry.Load(path)
	require.NoError(t, err)

	before := len(reg.Known())

	isNew := reg.Observe("9999", "New Terminal Site")
	assert.True(t, isNew)
	assert.Len(t, reg.Known(), before+1)

	isNewAgain := reg.Observe("9999", "New Terminal Site")
	assert.False(t, isNewAgain)
	assert.Len(t, reg.Known(), before+1)

	require.NoError(t, reg.Save())

	reloaded, err := registry.Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Has("9999"))
	assert.GreaterOrEqual(t, len(reloaded.Known()), before+1)
}

func TestObserveUpdatesLocationWithoutDuplicating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terminal_registry.json")
	reg, err := registry.Load(path)
	require.NoError(t, err)

	reg.Observe("83", "Updated Location")
	assert.Equal(t, "Updated Location", reg.Location("83"))
	assert.Len(t, reg.Known(), len(registry.SeedTerminalIDs))
}
