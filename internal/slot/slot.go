// Package slot implements the coin-fed slot machine that pays out pet eggs.
package slot

import (
	"fmt"
	"math/rand"
	"sync"

	"habitpet/internal/inventory"
)

// Reels are the symbols a spin can land on.
var Reels = []string{"🍒", "🍋", "🔔", "💎", "🍀", "7️⃣", "⭐", "🍊"}

// Result describes one finished spin.
type Result struct {
	Symbols [3]string
	Jackpot bool
	Prize   *inventory.Item
}

// Machine spins against the shared inventory. Bets are one coin, consumed
// up front whether or not the spin wins; a jackpot pays an egg of the same
// pet as the coin played.
type Machine struct {
	mu  sync.Mutex
	inv *inventory.Inventory
	rng *rand.Rand
}

func New(inv *inventory.Inventory, rng *rand.Rand) *Machine {
	return &Machine{inv: inv, rng: rng}
}

// Spin plays one coin of the given code. Half the spins hit the jackpot.
func (m *Machine) Spin(coinCode string) (*Result, error) {
	if !inventory.IsCoin(coinCode) {
		return nil, fmt.Errorf("spin with %s: not a coin code", coinCode)
	}
	if err := m.inv.ConsumeCoins(coinCode, 1); err != nil {
		return nil, err
	}

	m.mu.Lock()
	win := m.rng.Intn(2) == 0
	res := &Result{Jackpot: win}
	if win {
		sym := Reels[m.rng.Intn(len(Reels))]
		res.Symbols = [3]string{sym, sym, sym}
	} else {
		res.Symbols = m.losingSymbols()
	}
	m.mu.Unlock()

	if win {
		prize, err := m.inv.Add("egg_"+inventory.PetOf(coinCode), 0, false)
		if err != nil {
			return nil, fmt.Errorf("award egg: %w", err)
		}
		res.Prize = prize
	}
	return res, nil
}

// losingSymbols draws three pairwise-distinct reels so a loss never looks
// like a win.
func (m *Machine) losingSymbols() [3]string {
	idx := m.rng.Perm(len(Reels))
	return [3]string{Reels[idx[0]], Reels[idx[1]], Reels[idx[2]]}
}
