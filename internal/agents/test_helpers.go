package agents

import (
	"context"
	"sync"

	"github.com/qninhdt/grandline-rpg/server/internal/game"
)

// fakeOracle returns a canned answer or error and records requests
type fakeOracle struct {
	mu         sync.Mutex
	configured bool
	answer     string
	err        error
	block      bool
	requests   []OracleRequest
}

func (f *fakeOracle) Configured() bool {
	return f.configured
}

func (f *fakeOracle) Generate(ctx context.Context, req OracleRequest) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.answer), nil
}

func (f *fakeOracle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// createTestRequest builds a turn request for a two-character crew
func createTestRequest() game.TurnRequest {
	luffy := game.Character{
		ID: "player1", Name: "Luffy", HP: 100, MaxHP: 100, Energy: 80, MaxEnergy: 80,
		Bounty: 3000000000, DevilFruit: "Gomu Gomu no Mi", Haki: []string{"Armament", "Conqueror"},
		Location: "Thousand Sunny", Inventory: []string{"Straw Hat"},
	}
	nami := game.Character{
		ID: "player3", Name: "Nami", HP: 80, MaxHP: 80, Energy: 60, MaxEnergy: 60,
		Bounty: 366000000, DevilFruit: game.NoDevilFruit, Haki: []string{},
		Location: "Chart room", Inventory: []string{"Clima-Tact"},
	}
	move := game.NewPlayerMessage("Luffy", "I jump onto the Marine ship")
	return game.TurnRequest{
		Directive:      "A Marine warship appears",
		Roster:         []game.Character{luffy, nami},
		Active:         luffy,
		Tail:           []game.LogEntry{game.NewNarration("The sea is calm."), move},
		LastPlayerMove: &move,
	}
}

const validAnswer = `{
  "narrative": "Luffy's fist turns black as he smashes the Marine deck.",
  "playerUpdates": [
    {"playerId": "player1", "stats": {"energy": 65.7, "bounty": 3100000000, "inventory": []}},
    {"playerId": "", "stats": {"hp": 1}}
  ],
  "choices": ["Punch the captain", "Grab the flag", "Retreat", "Nap"],
  "gameOver": false,
  "hakiActivation": {"playerId": "player1", "hakiType": "Armament"}
}`
