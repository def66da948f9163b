// Package pets summarizes which canonical pets the player has collected.
package pets

import "habitpet/internal/inventory"

// Summary is the ownership state for one roster pet.
type Summary struct {
	Slug  string
	Name  string
	Owned bool
	Eggs  int
	Coins int
}

// Roster reports every canonical pet in roster order with owned/egg/coin
// counts taken from the inventory.
func Roster(inv *inventory.Inventory) []Summary {
	coins := map[string]int{}
	eggs := map[string]int{}
	owned := map[string]bool{}
	for _, it := range inv.Items() {
		pet := inventory.PetOf(it.Code)
		switch {
		case inventory.IsCoin(it.Code):
			coins[pet]++
		case inventory.IsEgg(it.Code):
			eggs[pet]++
		case inventory.IsPet(it.Code):
			owned[pet] = true
		}
	}

	out := make([]Summary, 0, len(inventory.Pets))
	for _, slug := range inventory.Pets {
		out = append(out, Summary{
			Slug:  slug,
			Name:  inventory.PetName(slug),
			Owned: owned[slug],
			Eggs:  eggs[slug],
			Coins: coins[slug],
		})
	}
	return out
}
