package game

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrUnknownCharacter is returned when an id does not match the roster
var ErrUnknownCharacter = errors.New("unknown character")

// MaxChoices caps the suggested actions kept from a turn
const MaxChoices = 3

// GameState is the aggregate root of a session
type GameState struct {
	Characters        []Character `json:"players"`
	Log               *TurnLog    `json:"gameLog"`
	Loading           bool        `json:"isLoading"`
	GameOver          bool        `json:"gameOver"`
	ActiveCharacterID string      `json:"activePlayerId"`
	Choices           []string    `json:"choices"`
	Turn              int         `json:"turn"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy of the state
func (s *GameState) Clone() *GameState {
	out := *s
	out.Characters = make([]Character, len(s.Characters))
	for i, c := range s.Characters {
		out.Characters[i] = c.Clone()
	}
	if s.Log != nil {
		out.Log = s.Log.Clone()
	} else {
		out.Log = NewTurnLog()
	}
	out.Choices = append([]string{}, s.Choices...)
	return &out
}

// Character returns the character with the given id
func (s *GameState) Character(id string) (*Character, bool) {
	for i := range s.Characters {
		if s.Characters[i].ID == id {
			return &s.Characters[i], true
		}
	}
	return nil, false
}

// ActiveCharacter returns the character whose turn is open
func (s *GameState) ActiveCharacter() (*Character, bool) {
	if s.ActiveCharacterID == "" {
		return nil, false
	}
	return s.Character(s.ActiveCharacterID)
}

// TotalBounty sums the crew's bounties
func (s *GameState) TotalBounty() int64 {
	var total int64
	for _, c := range s.Characters {
		total += c.Bounty
	}
	return total
}

// Encode serializes the state as an opaque snapshot blob
func (s *GameState) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// AbilityKind names a haki activation shown as a visual effect
type AbilityKind string

const (
	AbilityArmament    AbilityKind = "Armament"
	AbilityObservation AbilityKind = "Observation"
	AbilityConqueror   AbilityKind = "Conqueror"
)

// AbilityKinds lists the accepted kinds in display order
var AbilityKinds = []AbilityKind{AbilityArmament, AbilityObservation, AbilityConqueror}

// Valid reports whether k is a known kind
func (k AbilityKind) Valid() bool {
	for _, known := range AbilityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// AbilityActivation tags a character's prominent use of an ability
type AbilityActivation struct {
	PlayerID string      `json:"playerId"`
	Kind     AbilityKind `json:"hakiType"`
}

// TurnResult is what the narration oracle hands back for one turn
type TurnResult struct {
	Narrative     string             `json:"narrative"`
	PlayerUpdates []CharacterPatch   `json:"playerUpdates"`
	Choices       []string           `json:"choices"`
	GameOver      bool               `json:"gameOver"`
	Activation    *AbilityActivation `json:"hakiActivation,omitempty"`

	// Degraded marks a fallback produced after an oracle failure
	Degraded bool `json:"-"`
}

// TurnRequest is the context the resolver turns into an oracle request
type TurnRequest struct {
	Directive      string
	Roster         []Character
	Active         Character
	Tail           []LogEntry
	LastPlayerMove *LogEntry
}

// TailSize is how many log entries travel with a turn request
const TailSize = 5

// BuildTurnRequest extracts the resolver input from a state
func BuildTurnRequest(s *GameState, directive string) (TurnRequest, error) {
	active, ok := s.ActiveCharacter()
	if !ok {
		return TurnRequest{}, ErrUnknownCharacter
	}

	req := TurnRequest{
		Directive: directive,
		Active:    active.Clone(),
		Roster:    make([]Character, len(s.Characters)),
		Tail:      s.Log.Tail(TailSize),
	}
	for i, c := range s.Characters {
		req.Roster[i] = c.Clone()
	}
	if last, ok := s.Log.LastWhere(IsPlayerMessage); ok {
		req.LastPlayerMove = &last
	}
	return req, nil
}
