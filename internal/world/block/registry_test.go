package block

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	id, ok := r.Lookup(GrassName)
	assert.True(t, ok, "Трава должна быть зарегистрирована")
	assert.Equal(t, GrassBlockID, id)

	name, ok := r.Name(OakLeavesBlockID)
	assert.True(t, ok)
	assert.Equal(t, OakLeavesName, name)

	assert.Equal(t, len(builtinBlocks), r.Len())
	assert.True(t, r.IsValidBlockID(AirBlockID))
}

func TestRegistryLookupUnknown(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	id, ok := r.Lookup("unknown_block")
	assert.False(t, ok, "Неизвестное имя не должно находиться")
	assert.Equal(t, AirBlockID, id)
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("stone", 7))

	err := r.Register("stone", 8)
	assert.ErrorIs(t, err, ErrDuplicateName)

	id, _ := r.Lookup("stone")
	assert.Equal(t, BlockID(7), id, "Повторная регистрация не должна менять ID")
}

func TestRegistryEmptyName(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", 3))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryAliasKeepsFirstName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("oak_logs", 4))
	require.NoError(t, r.Register("oak_log", 4))

	name, ok := r.Name(4)
	assert.True(t, ok)
	assert.Equal(t, "oak_logs", name)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "oak_log", defs[0].Name)
	assert.Equal(t, "oak_logs", defs[1].Name)
}

func TestRegistryLoadDefinitions(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "blocks.yaml")
	data := []byte("blocks:\n  - name: stone_block\n    id: 7\n  - name: sand_block\n    id: 8\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	require.NoError(t, r.LoadDefinitions(path))

	id, ok := r.Lookup("sand_block")
	assert.True(t, ok)
	assert.Equal(t, BlockID(8), id)
}

func TestRegistryLoadDefinitionsDuplicate(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "blocks.yaml")
	data := []byte("blocks:\n  - name: grass_block\n    id: 9\n")
	require.NoError(t, os.WriteFile(path, data, 0644))

	err = r.LoadDefinitions(path)
	assert.ErrorIs(t, err, ErrDuplicateName)
}
