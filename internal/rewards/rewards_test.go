package rewards

import (
	"math/rand"
	"testing"

	"habitpet/internal/core"
	"habitpet/internal/inventory"
	"habitpet/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGranter(t *testing.T) (*Granter, *core.Bus, *inventory.Inventory, *store.Store) {
	t.Helper()
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	inv, err := inventory.Load(kv, store.InventoryKey)
	require.NoError(t, err)

	g, err := Load(kv, inv, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	bus := core.NewBus()
	g.Attach(bus)
	return g, bus, inv, kv
}

func TestCoinPerLevelGained(t *testing.T) {
	g, bus, inv, _ := newTestGranter(t)

	bus.Publish(core.LevelChanged{Level: 2, Previous: 1})
	items := inv.Items()
	require.Len(t, items, 1)
	assert.True(t, inventory.IsCoin(items[0].Code))
	assert.Equal(t, 2, items[0].Level)
	assert.Equal(t, 2, g.LastLevel())
}

func TestReplayedLevelNotRepaid(t *testing.T) {
	g, bus, inv, _ := newTestGranter(t)

	bus.Publish(core.LevelChanged{Level: 2, Previous: 1})
	bus.Publish(core.LevelChanged{Level: 2, Previous: 1})
	assert.Len(t, inv.Items(), 1)
	assert.Equal(t, 2, g.LastLevel())
}

func TestMultiLevelJumpPaysEachLevel(t *testing.T) {
	_, bus, inv, _ := newTestGranter(t)

	bus.Publish(core.LevelChanged{Level: 2, Previous: 1})
	bus.Publish(core.LevelChanged{Level: 5, Previous: 2})
	// Levels 2, 3, 4, 5: four coins total.
	assert.Len(t, inv.Items(), 4)
}

func TestLastLevelPersists(t *testing.T) {
	_, bus, inv, kv := newTestGranter(t)
	bus.Publish(core.LevelChanged{Level: 3, Previous: 1})

	reloaded, err := Load(kv, inv, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.LastLevel())

	// A restart replaying the same level must not pay again.
	bus2 := core.NewBus()
	reloaded.Attach(bus2)
	bus2.Publish(core.LevelChanged{Level: 3, Previous: 1})
	assert.Len(t, inv.Items(), 2)
}
