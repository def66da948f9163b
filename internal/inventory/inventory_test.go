package inventory

import (
	"math/rand"
	"testing"
	"time"

	"habitpet/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventory(t *testing.T) (*Inventory, *store.Store) {
	t.Helper()
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	inv, err := Load(kv, store.InventoryKey)
	require.NoError(t, err)
	return inv, kv
}

func TestCodeHelpers(t *testing.T) {
	assert.True(t, IsCoin("coin_corgi"))
	assert.True(t, IsEgg("egg_husky"))
	assert.True(t, IsPet("pet_hamster"))
	assert.False(t, IsCoin("egg_corgi"))
	assert.Equal(t, "corgi", PetOf("coin_corgi"))
	assert.Equal(t, "husky", PetOf("egg_husky"))
	assert.Equal(t, "Golden Retriever", PetName("golden"))
}

func TestAddAndCount(t *testing.T) {
	inv, _ := newTestInventory(t)

	it, err := inv.Add("coin_corgi", 0, false)
	require.NoError(t, err)
	assert.Equal(t, "Corgi Coin", it.Name)
	assert.NotEmpty(t, it.UID)

	_, err = inv.Add("coin_corgi", 0, false)
	require.NoError(t, err)
	_, err = inv.Add("coin_husky", 0, false)
	require.NoError(t, err)

	assert.Equal(t, 2, inv.CountByCode("coin_corgi"))
	assert.Equal(t, 1, inv.CountByCode("coin_husky"))
	assert.Equal(t, 0, inv.CountByCode("coin_golden"))
}

func TestConsumeCoinsOldestFirst(t *testing.T) {
	inv, _ := newTestInventory(t)
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)
	step := 0
	inv.SetClock(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	})

	first, _ := inv.Add("coin_corgi", 0, false)
	second, _ := inv.Add("coin_corgi", 0, false)

	require.NoError(t, inv.ConsumeCoins("coin_corgi", 1))
	assert.Nil(t, inv.FindByUID(first.UID))
	assert.NotNil(t, inv.FindByUID(second.UID))
}

func TestConsumeCoinsInsufficient(t *testing.T) {
	inv, _ := newTestInventory(t)
	_, err := inv.Add("coin_corgi", 0, false)
	require.NoError(t, err)

	assert.ErrorIs(t, inv.ConsumeCoins("coin_corgi", 2), ErrInsufficientCoins)
	assert.Equal(t, 1, inv.CountByCode("coin_corgi"))

	assert.Error(t, inv.ConsumeCoins("egg_corgi", 1))
}

func TestRemoveByUID(t *testing.T) {
	inv, _ := newTestInventory(t)
	it, _ := inv.Add("egg_husky", 0, false)

	require.NoError(t, inv.RemoveByUID(it.UID))
	assert.Nil(t, inv.FindByUID(it.UID))
	assert.Error(t, inv.RemoveByUID(it.UID))
}

func TestPersistenceAcrossLoads(t *testing.T) {
	inv, kv := newTestInventory(t)
	_, err := inv.Add("pet_tartaruga", 3, true)
	require.NoError(t, err)

	reloaded, err := Load(kv, store.InventoryKey)
	require.NoError(t, err)
	items := reloaded.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "pet_tartaruga", items[0].Code)
	assert.True(t, items[0].Hatched)
	assert.Equal(t, 3, items[0].Level)
}

func TestRandomCoinCode(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		code := RandomCoinCode(rng)
		assert.True(t, IsCoin(code))
		assert.Contains(t, Pets, PetOf(code))
	}
}
