package missions

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"habitpet/internal/core"
	"habitpet/internal/inventory"
	"habitpet/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)

func newTestTracker(t *testing.T) (*Tracker, *core.Bus, *inventory.Inventory) {
	t.Helper()
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	inv, err := inventory.Load(kv, store.InventoryKey)
	require.NoError(t, err)

	tracker, err := Load(kv, inv, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	tracker.SetClock(func() time.Time { return day1 })

	bus := core.NewBus()
	tracker.Attach(bus)
	return tracker, bus, inv
}

func toggleDone(bus *core.Bus, taskID string) {
	bus.Publish(core.TaskToggled{ListID: "l1", TaskID: taskID, Done: true, At: day1})
}

func completeList(bus *core.Bus, listID string, at time.Time) {
	bus.Publish(core.ListCompleted{ListID: listID, Repeat: core.RepeatOnce, CompletedAt: at})
}

func TestTaskMissionCountsEachTaskOnce(t *testing.T) {
	tracker, bus, _ := newTestTracker(t)

	toggleDone(bus, "t1")
	toggleDone(bus, "t1")
	assert.Equal(t, 1, tracker.Status().TasksDone)

	// Un-checking never refunds progress.
	bus.Publish(core.TaskToggled{ListID: "l1", TaskID: "t1", Done: false, At: day1})
	assert.Equal(t, 1, tracker.Status().TasksDone)

	toggleDone(bus, "t2")
	toggleDone(bus, "t3")
	toggleDone(bus, "t4")
	assert.Equal(t, 4, tracker.Status().TasksDone)
	assert.Equal(t, CombinedTarget, tracker.Status().CombinedDone)
}

func TestCompletedListsCountTowardCombined(t *testing.T) {
	tracker, bus, _ := newTestTracker(t)

	toggleDone(bus, "t1")
	completeList(bus, "l1", day1)
	completeList(bus, "l2", day1)
	tracker.MarkLogin()

	st := tracker.Status()
	assert.Equal(t, 1, st.TasksDone)
	assert.Equal(t, 2, st.ListsDone)
	assert.Equal(t, CombinedTarget, st.CombinedDone)
	assert.True(t, st.Claimable)
}

func TestListCompletedOnAnotherDayIgnored(t *testing.T) {
	tracker, bus, _ := newTestTracker(t)

	completeList(bus, "l1", day1.AddDate(0, 0, -1))
	assert.Equal(t, 0, tracker.Status().ListsDone)
}

func TestClaimRequiresBothMissions(t *testing.T) {
	tracker, bus, _ := newTestTracker(t)

	_, err := tracker.ClaimCombined()
	assert.ErrorIs(t, err, ErrNotReady)

	toggleDone(bus, "t1")
	toggleDone(bus, "t2")
	toggleDone(bus, "t3")
	_, err = tracker.ClaimCombined()
	assert.ErrorIs(t, err, ErrNotReady)

	tracker.MarkLogin()
	assert.True(t, tracker.Status().Claimable)
}

func TestClaimPaysOneCoinPerDay(t *testing.T) {
	tracker, bus, inv := newTestTracker(t)
	toggleDone(bus, "t1")
	toggleDone(bus, "t2")
	toggleDone(bus, "t3")
	tracker.MarkLogin()

	item, err := tracker.ClaimCombined()
	require.NoError(t, err)
	assert.True(t, inventory.IsCoin(item.Code))
	assert.Len(t, inv.Items(), 1)

	_, err = tracker.ClaimCombined()
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.True(t, tracker.Status().Claimed)
}

func TestFailedAwardLeavesClaimRetryable(t *testing.T) {
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	defer kv.Close()

	broken := &failingKV{}
	inv, err := inventory.Load(broken, store.InventoryKey)
	require.NoError(t, err)

	tracker, err := Load(kv, inv, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	tracker.SetClock(func() time.Time { return day1 })
	bus := core.NewBus()
	tracker.Attach(bus)

	toggleDone(bus, "t1")
	toggleDone(bus, "t2")
	toggleDone(bus, "t3")
	tracker.MarkLogin()

	_, err = tracker.ClaimCombined()
	require.Error(t, err)
	assert.False(t, tracker.Status().Claimed)
	assert.True(t, tracker.Status().Claimable)
}

func TestDayRolloverResetsProgress(t *testing.T) {
	tracker, bus, _ := newTestTracker(t)
	toggleDone(bus, "t1")
	completeList(bus, "l1", day1)
	tracker.MarkLogin()
	require.Equal(t, 1, tracker.Status().TasksDone)
	require.Equal(t, 1, tracker.Status().ListsDone)
	require.True(t, tracker.Status().DailyLogin)

	day2 := day1.AddDate(0, 0, 1)
	tracker.SetClock(func() time.Time { return day2 })
	bus.Publish(core.DayRolledOver{Day: core.StartOfDay(day2)})

	st := tracker.Status()
	assert.Equal(t, 0, st.TasksDone)
	assert.Equal(t, 0, st.ListsDone)
	assert.False(t, st.DailyLogin)

	// Yesterday's counted set is gone, so the same task counts again today.
	toggleDone(bus, "t1")
	assert.Equal(t, 1, tracker.Status().TasksDone)
	toggleDone(bus, "t1")
	assert.Equal(t, 1, tracker.Status().TasksDone)
}

func TestTrackerStatePersists(t *testing.T) {
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	defer kv.Close()
	inv, err := inventory.Load(kv, store.InventoryKey)
	require.NoError(t, err)

	tracker, err := Load(kv, inv, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	tracker.SetClock(func() time.Time { return day1 })
	bus := core.NewBus()
	tracker.Attach(bus)
	toggleDone(bus, "t1")
	completeList(bus, "l1", day1)
	tracker.MarkLogin()

	reloaded, err := Load(kv, inv, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	reloaded.SetClock(func() time.Time { return day1 })
	st := reloaded.Status()
	assert.Equal(t, 1, st.TasksDone)
	assert.Equal(t, 1, st.ListsDone)
	assert.True(t, st.DailyLogin)

	// The reloaded counted set still dedupes today's tasks.
	bus2 := core.NewBus()
	reloaded.Attach(bus2)
	bus2.Publish(core.TaskToggled{ListID: "l1", TaskID: "t1", Done: true, At: day1})
	assert.Equal(t, 1, reloaded.Status().TasksDone)
}

// failingKV rejects every write.
type failingKV struct{}

func (f *failingKV) Get(string) ([]byte, bool, error) { return nil, false, nil }

func (f *failingKV) Put(string, []byte) error { return errors.New("disk full") }
