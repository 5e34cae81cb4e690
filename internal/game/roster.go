package game

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var defaultRosterYAML []byte

// Roster is the canonical crew a session starts from
type Roster struct {
	Opening    string      `yaml:"opening"`
	Characters []Character `yaml:"characters"`
}

// DefaultRoster returns the embedded six-slot crew
func DefaultRoster() *Roster {
	r, err := ParseRoster(defaultRosterYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded roster: %v", err))
	}
	return r
}

// LoadRoster reads a roster file, or the embedded default when path is empty
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return DefaultRoster(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(b)
}

// ParseRoster decodes and validates a YAML roster
func ParseRoster(b []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(r.Characters) == 0 {
		return nil, fmt.Errorf("roster has no characters")
	}
	seen := make(map[string]bool, len(r.Characters))
	for i := range r.Characters {
		c := &r.Characters[i]
		if c.ID == "" {
			return nil, fmt.Errorf("roster slot %d has no id", i+1)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate character id %q", c.ID)
		}
		seen[c.ID] = true
		c.Normalize()
	}
	return &r, nil
}

// Size is the canonical number of slots
func (r *Roster) Size() int {
	return len(r.Characters)
}

// NewState builds a fresh session state from the roster
func (r *Roster) NewState() *GameState {
	s := &GameState{
		Characters:        make([]Character, len(r.Characters)),
		Log:               NewTurnLog(),
		ActiveCharacterID: r.Characters[0].ID,
		Choices:           []string{},
		UpdatedAt:         time.Now(),
	}
	for i, c := range r.Characters {
		s.Characters[i] = c.Clone()
	}
	if r.Opening != "" {
		s.Log.Append(NewNarration(r.Opening))
	}
	return s
}

// RestoreState decodes a snapshot blob. A missing, corrupt or empty blob
// yields a fresh state and restored=false. A short roster is extended with
// the canonical slots it lacks.
func (r *Roster) RestoreState(blob []byte) (state *GameState, restored bool, err error) {
	if len(blob) == 0 {
		return r.NewState(), false, nil
	}

	var s GameState
	if err := json.Unmarshal(blob, &s); err != nil {
		return r.NewState(), false, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(s.Characters) == 0 {
		return r.NewState(), false, fmt.Errorf("snapshot has no characters")
	}

	seen := make(map[string]bool, len(s.Characters))
	for i := range s.Characters {
		if s.Characters[i].ID == "" || seen[s.Characters[i].ID] {
			return r.NewState(), false, fmt.Errorf("snapshot character %d has a missing or duplicate id", i+1)
		}
		seen[s.Characters[i].ID] = true
		s.Characters[i].Normalize()
	}

	for i := len(s.Characters); i < r.Size(); i++ {
		slot := r.Characters[i]
		if seen[slot.ID] {
			continue
		}
		s.Characters = append(s.Characters, slot.Clone())
	}

	if s.Log == nil {
		s.Log = NewTurnLog()
	}
	if s.Choices == nil {
		s.Choices = []string{}
	}
	// nothing can be in flight in a freshly loaded process
	s.Loading = false
	if _, ok := s.Character(s.ActiveCharacterID); !ok {
		s.ActiveCharacterID = s.Characters[0].ID
	}
	return &s, true, nil
}
