// Package inventory holds the reward items a player has earned: pet coins,
// eggs won at the slot machine, and hatched pets.
package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrInsufficientCoins is returned when a spend exceeds the held count of a
// coin code.
var ErrInsufficientCoins = errors.New("not enough coins")

// KV is the slice of the store the inventory needs.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
}

// Item is a single owned reward. Code encodes kind and pet, e.g.
// "coin_corgi", "egg_husky", "pet_husky".
type Item struct {
	UID       string    `json:"uid"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Emoji     string    `json:"emoji"`
	Desc      string    `json:"desc,omitempty"`
	AwardedAt time.Time `json:"awardedAt"`
	Level     int       `json:"level,omitempty"`
	Hatched   bool      `json:"hatched,omitempty"`
}

// Pets is the canonical roster every coin, egg and pet code derives from.
var Pets = []string{
	"bulldog", "calopsita", "coelho", "collie", "corgi",
	"gato_angora", "gato_bombay", "gato_cinza", "gato_laranja", "golden",
	"hamster", "husky", "macaco", "rotweiller", "tartaruga",
}

var petNames = map[string]string{
	"bulldog":      "Bulldog",
	"calopsita":    "Cockatiel",
	"coelho":       "Rabbit",
	"collie":       "Collie",
	"corgi":        "Corgi",
	"gato_angora":  "Angora Cat",
	"gato_bombay":  "Bombay Cat",
	"gato_cinza":   "Gray Cat",
	"gato_laranja": "Orange Cat",
	"golden":       "Golden Retriever",
	"hamster":      "Hamster",
	"husky":        "Husky",
	"macaco":       "Monkey",
	"rotweiller":   "Rottweiler",
	"tartaruga":    "Turtle",
}

// PetName resolves a pet slug to its display name.
func PetName(pet string) string {
	if n, ok := petNames[pet]; ok {
		return n
	}
	return pet
}

func IsCoin(code string) bool { return strings.HasPrefix(code, "coin_") }
func IsEgg(code string) bool  { return strings.HasPrefix(code, "egg_") }
func IsPet(code string) bool  { return strings.HasPrefix(code, "pet_") }

// PetOf strips the kind prefix off a code.
func PetOf(code string) string {
	for _, p := range []string{"coin_", "egg_", "pet_"} {
		if strings.HasPrefix(code, p) {
			return strings.TrimPrefix(code, p)
		}
	}
	return code
}

// Inventory is the persisted item collection. All methods are safe for
// concurrent use.
type Inventory struct {
	mu    sync.Mutex
	kv    KV
	key   string
	items []*Item
	now   func() time.Time
}

// Load reads the item collection from the store; missing or corrupt data
// starts an empty inventory.
func Load(kv KV, key string) (*Inventory, error) {
	inv := &Inventory{kv: kv, key: key, now: time.Now}
	raw, ok, err := kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &inv.items); err != nil {
			inv.items = nil
		}
	}
	return inv, nil
}

// SetClock overrides the time source, for tests.
func (inv *Inventory) SetClock(now func() time.Time) {
	inv.mu.Lock()
	inv.now = now
	inv.mu.Unlock()
}

// Items returns a copy of the collection, oldest first.
func (inv *Inventory) Items() []*Item {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	out := make([]*Item, len(inv.items))
	copy(out, inv.items)
	return out
}

// Add appends an item with the given code, filling name and timestamp.
func (inv *Inventory) Add(code string, level int, hatched bool) (*Item, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	it := &Item{
		UID:       uuid.NewString(),
		Code:      code,
		Name:      displayName(code),
		Emoji:     emojiFor(code),
		AwardedAt: inv.now(),
		Level:     level,
		Hatched:   hatched,
	}
	inv.items = append(inv.items, it)
	return it, inv.save()
}

// CountByCode counts held items with the exact code.
func (inv *Inventory) CountByCode(code string) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.countLocked(code)
}

func (inv *Inventory) countLocked(code string) int {
	n := 0
	for _, it := range inv.items {
		if it.Code == code {
			n++
		}
	}
	return n
}

// ConsumeCoins removes n coins of the given code, oldest first.
func (inv *Inventory) ConsumeCoins(code string, n int) error {
	if !IsCoin(code) {
		return fmt.Errorf("consume %s: not a coin code", code)
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.countLocked(code) < n {
		return ErrInsufficientCoins
	}
	sort.SliceStable(inv.items, func(i, j int) bool {
		return inv.items[i].AwardedAt.Before(inv.items[j].AwardedAt)
	})
	kept := inv.items[:0]
	for _, it := range inv.items {
		if n > 0 && it.Code == code {
			n--
			continue
		}
		kept = append(kept, it)
	}
	inv.items = kept
	return inv.save()
}

// RemoveByUID deletes a single item.
func (inv *Inventory) RemoveByUID(uid string) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for i, it := range inv.items {
		if it.UID == uid {
			inv.items = append(inv.items[:i], inv.items[i+1:]...)
			return inv.save()
		}
	}
	return fmt.Errorf("remove item %s: not found", uid)
}

// FindByUID returns the item with the given uid, or nil.
func (inv *Inventory) FindByUID(uid string) *Item {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for _, it := range inv.items {
		if it.UID == uid {
			return it
		}
	}
	return nil
}

// RandomCoinCode picks one coin code from the roster.
func RandomCoinCode(rng *rand.Rand) string {
	return "coin_" + Pets[rng.Intn(len(Pets))]
}

func displayName(code string) string {
	name := PetName(PetOf(code))
	switch {
	case IsCoin(code):
		return name + " Coin"
	case IsEgg(code):
		return name + " Egg"
	default:
		return name
	}
}

func emojiFor(code string) string {
	switch {
	case IsCoin(code):
		return "🪙"
	case IsEgg(code):
		return "🥚"
	default:
		return "🐾"
	}
}

func (inv *Inventory) save() error {
	data, err := json.Marshal(inv.items)
	if err != nil {
		return fmt.Errorf("marshal inventory: %w", err)
	}
	return inv.kv.Put(inv.key, data)
}
