// Package rewards pays a pet coin for every level the player gains.
package rewards

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"

	"habitpet/internal/core"
	"habitpet/internal/inventory"
	"habitpet/internal/store"
)

// KV is the slice of the store the granter needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Granter watches level changes and awards one random coin per level
// crossed. The last rewarded level is persisted so restarts and replays
// never double-pay.
type Granter struct {
	mu        sync.Mutex
	kv        KV
	inv       *inventory.Inventory
	rng       *rand.Rand
	lastLevel int
}

// Load restores the high-water mark; a fresh install starts at level 1.
func Load(kv KV, inv *inventory.Inventory, rng *rand.Rand) (*Granter, error) {
	g := &Granter{kv: kv, inv: inv, rng: rng, lastLevel: 1}
	raw, ok, err := kv.Get(store.LastLevelKey)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}
	if ok {
		if n, err := strconv.Atoi(string(raw)); err == nil && n > 1 {
			g.lastLevel = n
		}
	}
	return g, nil
}

// Attach subscribes the granter to the service event bus.
func (g *Granter) Attach(bus *core.Bus) {
	bus.Subscribe(func(ev any) {
		if e, ok := ev.(core.LevelChanged); ok {
			g.onLevel(e.Level)
		}
	})
}

// LastLevel reports the highest level already rewarded.
func (g *Granter) LastLevel() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastLevel
}

func (g *Granter) onLevel(level int) {
	g.mu.Lock()
	if level <= g.lastLevel {
		g.mu.Unlock()
		return
	}
	gained := level - g.lastLevel
	g.lastLevel = level
	if err := g.kv.Put(store.LastLevelKey, []byte(strconv.Itoa(level))); err != nil {
		log.Printf("Warning: failed to save reward level: %v", err)
	}
	codes := make([]string, 0, gained)
	for i := 0; i < gained; i++ {
		codes = append(codes, inventory.RandomCoinCode(g.rng))
	}
	g.mu.Unlock()

	for _, code := range codes {
		if _, err := g.inv.Add(code, level, false); err != nil {
			log.Printf("Warning: failed to award level coin: %v", err)
		}
	}
}
