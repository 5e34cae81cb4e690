package game

// NoDevilFruit is the sentinel label for characters without a devil fruit
const NoDevilFruit = "None"

// Character represents one crew member's sheet
type Character struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	HP         int      `json:"hp" yaml:"hp"`
	MaxHP      int      `json:"maxHp" yaml:"max_hp"`
	Energy     int      `json:"energy" yaml:"energy"`
	MaxEnergy  int      `json:"maxEnergy" yaml:"max_energy"`
	Bounty     int64    `json:"bounty" yaml:"bounty"`
	DevilFruit string   `json:"devilFruit" yaml:"devil_fruit"`
	Haki       []string `json:"haki" yaml:"haki"`
	Location   string   `json:"location" yaml:"location"`
	Inventory  []string `json:"inventory" yaml:"inventory"`
}

// Clone returns a deep copy of the character
func (c Character) Clone() Character {
	out := c
	out.Haki = append(make([]string, 0, len(c.Haki)), c.Haki...)
	out.Inventory = append(make([]string, 0, len(c.Inventory)), c.Inventory...)
	return out
}

// Normalize enforces the sheet invariants: non-negative maximums, current
// values clamped to [0, max], non-negative bounty, deduplicated haki and
// non-nil lists.
func (c *Character) Normalize() {
	if c.MaxHP < 0 {
		c.MaxHP = 0
	}
	if c.MaxEnergy < 0 {
		c.MaxEnergy = 0
	}
	c.HP = clamp(c.HP, 0, c.MaxHP)
	c.Energy = clamp(c.Energy, 0, c.MaxEnergy)
	if c.Bounty < 0 {
		c.Bounty = 0
	}
	if c.DevilFruit == "" {
		c.DevilFruit = NoDevilFruit
	}
	c.Haki = dedupe(c.Haki)
	if c.Inventory == nil {
		c.Inventory = []string{}
	}
}

// HasHaki reports whether the character holds the given haki label
func (c *Character) HasHaki(label string) bool {
	for _, h := range c.Haki {
		if h == label {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// dedupe drops blank and repeated labels, keeping first-seen order
func dedupe(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// sameSet compares two label lists ignoring order and repetition
func sameSet(a, b []string) bool {
	a, b = dedupe(a), dedupe(b)
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if !set[l] {
			return false
		}
	}
	return true
}

// Equal reports value equality; haki compares as a set, inventory as a list
func (c Character) Equal(o Character) bool {
	if c.ID != o.ID || c.Name != o.Name || c.HP != o.HP || c.MaxHP != o.MaxHP ||
		c.Energy != o.Energy || c.MaxEnergy != o.MaxEnergy || c.Bounty != o.Bounty ||
		c.DevilFruit != o.DevilFruit || c.Location != o.Location {
		return false
	}
	if !sameSet(c.Haki, o.Haki) {
		return false
	}
	if len(c.Inventory) != len(o.Inventory) {
		return false
	}
	for i := range c.Inventory {
		if c.Inventory[i] != o.Inventory[i] {
			return false
		}
	}
	return true
}
