package slot

import (
	"math/rand"
	"testing"

	"habitpet/internal/inventory"
	"habitpet/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T) (*Machine, *inventory.Inventory) {
	t.Helper()
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	inv, err := inventory.Load(kv, store.InventoryKey)
	require.NoError(t, err)
	return New(inv, rand.New(rand.NewSource(42))), inv
}

func TestSpinRejectsNonCoin(t *testing.T) {
	m, _ := newTestMachine(t)
	_, err := m.Spin("egg_corgi")
	assert.Error(t, err)
}

func TestSpinWithoutCoins(t *testing.T) {
	m, _ := newTestMachine(t)
	_, err := m.Spin("coin_corgi")
	assert.ErrorIs(t, err, inventory.ErrInsufficientCoins)
}

func TestSpinConsumesCoinEitherWay(t *testing.T) {
	m, inv := newTestMachine(t)
	_, err := inv.Add("coin_corgi", 0, false)
	require.NoError(t, err)

	res, err := m.Spin("coin_corgi")
	require.NoError(t, err)
	assert.Equal(t, 0, inv.CountByCode("coin_corgi"))
	if res.Jackpot {
		assert.Equal(t, 1, inv.CountByCode("egg_corgi"))
	} else {
		assert.Equal(t, 0, inv.CountByCode("egg_corgi"))
	}
}

func TestSpinOutcomes(t *testing.T) {
	m, inv := newTestMachine(t)
	const spins = 60
	for i := 0; i < spins; i++ {
		_, err := inv.Add("coin_husky", 0, false)
		require.NoError(t, err)
	}

	wins, losses := 0, 0
	for i := 0; i < spins; i++ {
		res, err := m.Spin("coin_husky")
		require.NoError(t, err)
		if res.Jackpot {
			wins++
			assert.Equal(t, res.Symbols[0], res.Symbols[1])
			assert.Equal(t, res.Symbols[1], res.Symbols[2])
			require.NotNil(t, res.Prize)
			assert.Equal(t, "egg_husky", res.Prize.Code)
		} else {
			losses++
			assert.NotEqual(t, res.Symbols[0], res.Symbols[1])
			assert.NotEqual(t, res.Symbols[1], res.Symbols[2])
			assert.NotEqual(t, res.Symbols[0], res.Symbols[2])
			assert.Nil(t, res.Prize)
		}
	}

	assert.Equal(t, 0, inv.CountByCode("coin_husky"))
	assert.Equal(t, wins, inv.CountByCode("egg_husky"))
	// With a fair 50% jackpot both outcomes show up across 60 spins.
	assert.Greater(t, wins, 0)
	assert.Greater(t, losses, 0)
}
