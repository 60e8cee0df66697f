package ships

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockRegistry(t *testing.T) {
	r := NewRegistry()

	ship, ok := r.Get("millennium_falcon")
	require.True(t, ok)
	assert.Equal(t, "Freighter", ship.Class)
	assert.Contains(t, ship.Armament, "Quad Laser Cannons")

	_, ok = r.Get("death_star")
	assert.False(t, ok)
}

func TestListIsSorted(t *testing.T) {
	r := NewRegistry()
	ships := r.List()
	require.Len(t, ships, 2)
	assert.Equal(t, "corellian_corvette", ships[0].ID)
	assert.Equal(t, "millennium_falcon", ships[1].ID)
}

func TestLoadFile(t *testing.T) {
	t.Run("merges and overrides by id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ships.json")
		data := `[
			{"id": "tie_fighter", "name": "TIE Fighter", "type": "Starfighter", "shields": 0, "weapons": ["Laser Cannons"]},
			{"id": "millennium_falcon", "name": "Millennium Falcon", "type": "Light Freighter", "shields": 120, "weapons": ["Quad Laser Cannons"]}
		]`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		r := NewRegistry()
		require.NoError(t, r.LoadFile(path))
		assert.Len(t, r.List(), 3)

		falcon, _ := r.Get("millennium_falcon")
		assert.Equal(t, "Light Freighter", falcon.Class)
		assert.Equal(t, 120, falcon.Shields)
	})

	t.Run("rejects entries without an id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ships.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Ghost"}]`), 0o644))

		r := NewRegistry()
		assert.Error(t, r.LoadFile(path))
	})

	t.Run("missing file", func(t *testing.T) {
		r := NewRegistry()
		assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "nope.json")))
	})
}
