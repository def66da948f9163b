// Package missions tracks the daily missions: a combined progress goal fed
// by completed tasks and completed lists, plus the daily login, with a
// once-per-day coin claim.
package missions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"habitpet/internal/core"
	"habitpet/internal/inventory"
	"habitpet/internal/store"
)

// CombinedTarget is the combined number of completed tasks plus completed
// lists required for the day's progress mission.
const CombinedTarget = 3

var (
	// ErrNotReady means one of the two missions is still incomplete.
	ErrNotReady = errors.New("missions not all complete")
	// ErrAlreadyClaimed means the combined reward was claimed today.
	ErrAlreadyClaimed = errors.New("reward already claimed today")
)

// KV is the slice of the store the tracker needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// state is the persisted per-day document.
type state struct {
	Date              string `json:"date"`
	TasksDone         int    `json:"tasksDone"`
	ListsDone         int    `json:"listsDone"`
	DailyLogin        bool   `json:"dailyLogin"`
	CombinedClaimedOn string `json:"combinedClaimedOn,omitempty"`
}

// Status is a read-only snapshot for rendering.
type Status struct {
	TasksDone      int
	ListsDone      int
	CombinedDone   int
	CombinedTarget int
	DailyLogin     bool
	Claimable      bool
	Claimed        bool
}

// Tracker owns mission progress. A task counts once per day: unchecking
// never refunds progress, and re-completing a task already counted today
// does not count again, but a fresh day starts a fresh set.
type Tracker struct {
	mu      sync.Mutex
	kv      KV
	inv     *inventory.Inventory
	rng     *rand.Rand
	now     func() time.Time
	st      state
	counted map[string][]string // day key -> task ids counted that day
}

// Load restores tracker state. A stale date resets the day's progress on
// first access.
func Load(kv KV, inv *inventory.Inventory, rng *rand.Rand) (*Tracker, error) {
	t := &Tracker{kv: kv, inv: inv, rng: rng, now: time.Now, counted: map[string][]string{}}
	raw, ok, err := kv.Get(store.MissionsKey)
	if err != nil {
		return nil, fmt.Errorf("load missions: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &t.st); err != nil {
			t.st = state{}
		}
	}
	raw, ok, err = kv.Get(store.CountedTasksKey)
	if err != nil {
		return nil, fmt.Errorf("load counted tasks: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &t.counted); err != nil {
			t.counted = map[string][]string{}
		}
	}
	return t, nil
}

// SetClock overrides the time source, for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// Attach subscribes the tracker to the service event bus. Task completions
// and list completions both feed the combined progress.
func (t *Tracker) Attach(bus *core.Bus) {
	bus.Subscribe(func(ev any) {
		switch e := ev.(type) {
		case core.TaskToggled:
			if e.Done {
				t.taskCompleted(e.TaskID)
			}
		case core.ListCompleted:
			t.listCompleted(e.CompletedAt)
		case core.DayRolledOver:
			t.mu.Lock()
			t.resetIfStaleLocked()
			t.saveLocked()
			t.mu.Unlock()
		}
	})
}

// MarkLogin records the daily-login mission for today.
func (t *Tracker) MarkLogin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	if !t.st.DailyLogin {
		t.st.DailyLogin = true
		t.saveLocked()
	}
}

// Status reports today's progress.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	claimed := t.st.CombinedClaimedOn == t.st.Date
	combined := t.st.TasksDone + t.st.ListsDone
	if combined > CombinedTarget {
		combined = CombinedTarget
	}
	return Status{
		TasksDone:      t.st.TasksDone,
		ListsDone:      t.st.ListsDone,
		CombinedDone:   combined,
		CombinedTarget: CombinedTarget,
		DailyLogin:     t.st.DailyLogin,
		Claimable:      combined >= CombinedTarget && t.st.DailyLogin && !claimed,
		Claimed:        claimed,
	}
}

// ClaimCombined pays out one random pet coin once both missions are done.
// The coin is awarded before the claim is marked, so a failed inventory
// write leaves the claim available for retry.
func (t *Tracker) ClaimCombined() (*inventory.Item, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	if t.st.CombinedClaimedOn == t.st.Date {
		return nil, ErrAlreadyClaimed
	}
	if t.st.TasksDone+t.st.ListsDone < CombinedTarget || !t.st.DailyLogin {
		return nil, ErrNotReady
	}

	item, err := t.inv.Add(inventory.RandomCoinCode(t.rng), 0, false)
	if err != nil {
		return nil, fmt.Errorf("award mission coin: %w", err)
	}
	t.st.CombinedClaimedOn = t.st.Date
	t.saveLocked()
	return item, nil
}

func (t *Tracker) taskCompleted(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	day := t.st.Date
	for _, id := range t.counted[day] {
		if id == taskID {
			return
		}
	}
	t.counted[day] = append(t.counted[day], taskID)
	t.st.TasksDone++
	t.saveLocked()
}

func (t *Tracker) listCompleted(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfStaleLocked()
	if core.DayKey(at) != t.st.Date {
		return
	}
	t.st.ListsDone++
	t.saveLocked()
}

func (t *Tracker) resetIfStaleLocked() {
	today := core.DayKey(t.now())
	if t.st.Date != today {
		t.st = state{Date: today, CombinedClaimedOn: t.st.CombinedClaimedOn}
	}
}

// saveLocked persists the day state and today's counted-task set, pruning
// sets from past days.
func (t *Tracker) saveLocked() {
	for day := range t.counted {
		if day != t.st.Date {
			delete(t.counted, day)
		}
	}
	if data, err := json.Marshal(t.st); err == nil {
		if err := t.kv.Put(store.MissionsKey, data); err != nil {
			log.Printf("Warning: failed to save missions: %v", err)
		}
	}
	if data, err := json.Marshal(t.counted); err == nil {
		if err := t.kv.Put(store.CountedTasksKey, data); err != nil {
			log.Printf("Warning: failed to save counted tasks: %v", err)
		}
	}
}
