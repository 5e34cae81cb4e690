package game

// CharacterPatch is a partial update for one character. A nil field means
// "not mentioned"; a non-nil pointer to a zero value (including an empty
// list) is an explicit overwrite.
type CharacterPatch struct {
	PlayerID   string    `json:"playerId"`
	Name       *string   `json:"name,omitempty"`
	HP         *int      `json:"hp,omitempty"`
	MaxHP      *int      `json:"maxHp,omitempty"`
	Energy     *int      `json:"energy,omitempty"`
	MaxEnergy  *int      `json:"maxEnergy,omitempty"`
	Bounty     *int64    `json:"bounty,omitempty"`
	DevilFruit *string   `json:"devilFruit,omitempty"`
	Haki       *[]string `json:"haki,omitempty"`
	Location   *string   `json:"location,omitempty"`
	Inventory  *[]string `json:"inventory,omitempty"`
}

// IsEmpty reports whether the patch names no attribute at all
func (p *CharacterPatch) IsEmpty() bool {
	return p.Name == nil && p.HP == nil && p.MaxHP == nil && p.Energy == nil &&
		p.MaxEnergy == nil && p.Bounty == nil && p.DevilFruit == nil &&
		p.Haki == nil && p.Location == nil && p.Inventory == nil
}

// ApplyTo returns a copy of c with every present field overwritten. The
// bounty only ever grows: a lower value is ignored. Invariants are restored
// after the overwrite.
func (p *CharacterPatch) ApplyTo(c Character) Character {
	out := c.Clone()
	if p.IsEmpty() {
		return out
	}
	if p.Name != nil && *p.Name != "" {
		out.Name = *p.Name
	}
	if p.MaxHP != nil {
		out.MaxHP = *p.MaxHP
	}
	if p.HP != nil {
		out.HP = *p.HP
	}
	if p.MaxEnergy != nil {
		out.MaxEnergy = *p.MaxEnergy
	}
	if p.Energy != nil {
		out.Energy = *p.Energy
	}
	if p.Bounty != nil && *p.Bounty > out.Bounty {
		out.Bounty = *p.Bounty
	}
	if p.DevilFruit != nil {
		out.DevilFruit = *p.DevilFruit
	}
	if p.Haki != nil {
		out.Haki = append([]string{}, (*p.Haki)...)
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Inventory != nil {
		out.Inventory = append([]string{}, (*p.Inventory)...)
	}
	out.Normalize()
	return out
}
