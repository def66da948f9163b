package web

import (
	"math/rand"
	"testing"
	"time"

	"habitpet/internal/core"
	"habitpet/internal/incubator"
	"habitpet/internal/inventory"
	"habitpet/internal/missions"
	"habitpet/internal/slot"
	"habitpet/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPersister struct{}

func (memPersister) SaveState(*core.State) error { return nil }

func newTestServer(t *testing.T) (*Server, *core.Service, *core.Page) {
	t.Helper()
	kv, err := store.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	p := &core.Page{ID: "p1", Title: "Main", Lists: []*core.List{}, ViewMode: core.ViewActive}
	st := &core.State{Pages: []*core.Page{p}, CurrentPageID: p.ID}
	svc := core.NewService(st, memPersister{}, core.NewBus())
	svc.SetClock(func() time.Time {
		return time.Date(2026, 3, 4, 10, 0, 0, 0, time.Local)
	})

	inv, err := inventory.Load(kv, store.InventoryKey)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))
	tracker, err := missions.Load(kv, inv, rng)
	require.NoError(t, err)
	inc, err := incubator.Load(kv, inv)
	require.NoError(t, err)

	srv, err := NewServer(Deps{
		Service:   svc,
		Inventory: inv,
		Missions:  tracker,
		Slot:      slot.New(inv, rng),
		Incubator: inc,
	}, "secret", "missing-locales", "missing-templates", "en")
	require.NoError(t, err)
	return srv, svc, p
}

func TestIndexViewSnapshotsState(t *testing.T) {
	srv, svc, p := newTestServer(t)
	l, err := svc.AddList(p.ID, "Chores", core.RepeatOnce, time.Time{}, nil, 0)
	require.NoError(t, err)
	task, err := svc.AddTask(l.ID, "dishes")
	require.NoError(t, err)
	_, err = svc.AddTask(l.ID, "laundry")
	require.NoError(t, err)

	data := srv.indexView("en", "")
	require.Len(t, data.Lists, 1)
	require.Len(t, data.Lists[0].Tasks, 2)
	assert.Equal(t, "p1", data.CurrentPageID)
	assert.Equal(t, "Chores", data.Lists[0].Title)
	assert.False(t, data.Lists[0].Tasks[0].Done)

	// The view holds copies: mutating the service afterwards must not
	// change an already-built snapshot.
	require.NoError(t, svc.ToggleTask(l.ID, task.ID))
	assert.False(t, data.Lists[0].Tasks[0].Done)
	assert.Equal(t, 0, data.Lists[0].Progress)

	fresh := srv.indexView("en", "")
	assert.True(t, fresh.Lists[0].Tasks[0].Done)
	assert.Equal(t, 50, fresh.Lists[0].Progress)
}

func TestIndexViewHistoryDates(t *testing.T) {
	srv, svc, p := newTestServer(t)
	l, err := svc.AddList(p.ID, "Daily", core.RepeatDaily, time.Time{}, nil, 0)
	require.NoError(t, err)
	task, err := svc.AddTask(l.ID, "stretch")
	require.NoError(t, err)
	// Completing the only task finishes the cycle and files it as history.
	require.NoError(t, svc.ToggleTask(l.ID, task.ID))
	require.NoError(t, svc.SetViewMode(p.ID, core.ViewCompleted))

	data := srv.indexView("en", "")
	require.Len(t, data.Lists, 1)
	require.NotEmpty(t, data.Lists[0].History)
	assert.Equal(t, "2026-03-04", data.Lists[0].History[0].CompletedOn)
}
