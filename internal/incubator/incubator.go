// Package incubator hatches a selected egg once the current page reaches
// full completion.
package incubator

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"habitpet/internal/core"
	"habitpet/internal/inventory"
	"habitpet/internal/store"
)

var (
	// ErrNotAnEgg rejects selecting coins, pets or unknown items.
	ErrNotAnEgg = errors.New("only eggs can be incubated")
	// ErrNothingSelected means Hatch ran without an egg in the incubator.
	ErrNothingSelected = errors.New("no egg selected")
)

// KV is the slice of the store the incubator needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Incubator holds at most one selected egg, persisted by item uid.
type Incubator struct {
	mu          sync.Mutex
	kv          KV
	inv         *inventory.Inventory
	selectedUID string
}

// Load restores the selection; a uid pointing at a consumed item is dropped.
func Load(kv KV, inv *inventory.Inventory) (*Incubator, error) {
	inc := &Incubator{kv: kv, inv: inv}
	raw, ok, err := kv.Get(store.IncubatorKey)
	if err != nil {
		return nil, fmt.Errorf("load incubator: %w", err)
	}
	if ok {
		uid := string(raw)
		if inv.FindByUID(uid) != nil {
			inc.selectedUID = uid
		}
	}
	return inc, nil
}

// Attach subscribes the incubator to page-progress events; hitting 100%
// hatches the selected egg.
func (inc *Incubator) Attach(bus *core.Bus) {
	bus.Subscribe(func(ev any) {
		if e, ok := ev.(core.ProgressChanged); ok && e.Percent >= 100 {
			if _, err := inc.Hatch(); err != nil && !errors.Is(err, ErrNothingSelected) {
				log.Printf("Warning: incubator hatch failed: %v", err)
			}
		}
	})
}

// Select places an egg in the incubator, replacing any previous selection.
func (inc *Incubator) Select(uid string) error {
	it := inc.inv.FindByUID(uid)
	if it == nil {
		return fmt.Errorf("select %s: item not found", uid)
	}
	if !inventory.IsEgg(it.Code) {
		return ErrNotAnEgg
	}
	inc.mu.Lock()
	defer inc.mu.Unlock()
	inc.selectedUID = uid
	return inc.kv.Put(store.IncubatorKey, []byte(uid))
}

// Selected returns the incubating egg, or nil.
func (inc *Incubator) Selected() *inventory.Item {
	inc.mu.Lock()
	uid := inc.selectedUID
	inc.mu.Unlock()
	if uid == "" {
		return nil
	}
	return inc.inv.FindByUID(uid)
}

// Hatch converts the selected egg into its pet and clears the selection.
func (inc *Incubator) Hatch() (*inventory.Item, error) {
	inc.mu.Lock()
	uid := inc.selectedUID
	inc.mu.Unlock()
	if uid == "" {
		return nil, ErrNothingSelected
	}
	egg := inc.inv.FindByUID(uid)
	if egg == nil {
		inc.clear()
		return nil, ErrNothingSelected
	}
	if err := inc.inv.RemoveByUID(uid); err != nil {
		return nil, fmt.Errorf("hatch: %w", err)
	}
	pet, err := inc.inv.Add("pet_"+inventory.PetOf(egg.Code), 0, true)
	if err != nil {
		return nil, fmt.Errorf("hatch: %w", err)
	}
	inc.clear()
	return pet, nil
}

func (inc *Incubator) clear() {
	inc.mu.Lock()
	inc.selectedUID = ""
	inc.mu.Unlock()
	if err := inc.kv.Delete(store.IncubatorKey); err != nil {
		log.Printf("Warning: failed to clear incubator selection: %v", err)
	}
}
