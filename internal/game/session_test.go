package game

import (
	"context"
	"testing"
	"time"
)

func newTestSession(resolver TurnResolver, store SnapshotStore) *Session {
	return NewSession("test-session", SessionOptions{
		Roster:   createTestRoster(),
		Resolver: resolver,
		Store:    store,
	})
}

// TestResolveTurn tests a complete GM turn
func TestResolveTurn(t *testing.T) {
	resolver := &stubResolver{result: TurnResult{
		Narrative:     "Luffy stretches.",
		PlayerUpdates: []CharacterPatch{{PlayerID: "p1", Energy: intPtr(70)}},
		Choices:       []string{"Punch", "Run"},
	}}
	store := newMemStore()
	s := newTestSession(resolver, store)

	outcome, state := s.ResolveTurn(context.Background(), "Introduce a Marine ship")

	if outcome != OutcomeAccepted {
		t.Fatalf("Expected accepted, got %s", outcome)
	}
	if resolver.Calls() != 1 {
		t.Errorf("Expected one resolver call, got %d", resolver.Calls())
	}
	if resolver.last.Directive != "Introduce a Marine ship" || resolver.last.Active.ID != "p1" {
		t.Errorf("Unexpected request %+v", resolver.last)
	}
	if luffy, _ := state.Character("p1"); luffy.Energy != 70 {
		t.Errorf("Expected energy 70, got %d", luffy.Energy)
	}
	if state.Loading {
		t.Error("Expected loading false after the turn")
	}
	if len(state.Choices) != 2 {
		t.Errorf("Expected 2 choices, got %v", state.Choices)
	}
	if store.saves < 2 {
		t.Errorf("Expected a save when the turn opened and closed, got %d", store.saves)
	}
}

// TestResolveTurnAtMostOneInFlight tests that a second turn request is rejected
func TestResolveTurnAtMostOneInFlight(t *testing.T) {
	resolver := newBlockingResolver(TurnResult{Narrative: "Done."})
	s := newTestSession(resolver, nil)

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := s.ResolveTurn(context.Background(), "first")
		done <- outcome
	}()

	select {
	case <-resolver.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Resolver never started")
	}

	before := s.Snapshot()
	if !before.Loading {
		t.Fatal("Expected loading while the turn is in flight")
	}

	outcome, during := s.ResolveTurn(context.Background(), "second")
	if outcome != OutcomeBusy {
		t.Errorf("Expected busy, got %s", outcome)
	}
	if during.Log.Len() != before.Log.Len() || during.Turn != before.Turn {
		t.Error("Expected rejected turn to leave state untouched")
	}

	if outcome, _ := s.SubmitAction(context.Background(), "p1", "I wait"); outcome != OutcomeBusy {
		t.Errorf("Expected player action to be rejected while loading, got %s", outcome)
	}

	close(resolver.release)
	if got := <-done; got != OutcomeAccepted {
		t.Errorf("Expected first turn accepted, got %s", got)
	}
	if s.Snapshot().Loading {
		t.Error("Expected loading false after the turn finished")
	}
}

// TestResolveTurnAfterGameOver tests that a finished game takes no more turns
func TestResolveTurnAfterGameOver(t *testing.T) {
	resolver := &stubResolver{result: TurnResult{Narrative: "The One Piece is found.", GameOver: true}}
	s := newTestSession(resolver, nil)

	if outcome, _ := s.ResolveTurn(context.Background(), ""); outcome != OutcomeAccepted {
		t.Fatalf("Expected accepted, got %s", outcome)
	}

	outcome, state := s.ResolveTurn(context.Background(), "")
	if outcome != OutcomeOver {
		t.Errorf("Expected game over outcome, got %s", outcome)
	}
	if !state.GameOver {
		t.Error("Expected state to stay over")
	}
	if resolver.Calls() != 1 {
		t.Errorf("Expected no further resolver calls, got %d", resolver.Calls())
	}
}

// TestRestartDropsInFlightTurn tests that a result arriving after restart is discarded
func TestRestartDropsInFlightTurn(t *testing.T) {
	resolver := newBlockingResolver(TurnResult{
		Narrative:     "Stale.",
		PlayerUpdates: []CharacterPatch{{PlayerID: "p1", HP: intPtr(1)}},
	})
	s := newTestSession(resolver, nil)

	done := make(chan Outcome, 1)
	go func() {
		outcome, _ := s.ResolveTurn(context.Background(), "")
		done <- outcome
	}()
	<-resolver.started

	fresh := s.Restart(context.Background())
	if fresh.Loading {
		t.Error("Expected restart to reopen the gate")
	}

	close(resolver.release)
	if got := <-done; got != OutcomeStale {
		t.Errorf("Expected stale outcome, got %s", got)
	}
	if luffy, _ := s.Snapshot().Character("p1"); luffy.HP != 100 {
		t.Errorf("Expected stale patch to be dropped, got hp %d", luffy.HP)
	}
}

// TestSubmitAction tests the player intent and its silent rejections
func TestSubmitAction(t *testing.T) {
	s := newTestSession(&stubResolver{}, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		character string
		text      string
		want      Outcome
	}{
		{name: "not active", character: "p2", text: "I slash", want: OutcomeNotYourTurn},
		{name: "blank", character: "p1", text: "   ", want: OutcomeEmpty},
		{name: "active", character: "p1", text: "Gomu Gomu no Pistol!", want: OutcomeAccepted},
	}

	for _, tt := range tests {
		before := s.Snapshot().Log.Len()
		outcome, state := s.SubmitAction(ctx, tt.character, tt.text)
		if outcome != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, outcome)
		}
		grew := state.Log.Len() - before
		if tt.want.Accepted() && grew != 1 {
			t.Errorf("%s: expected one new entry, got %d", tt.name, grew)
		}
		if !tt.want.Accepted() && grew != 0 {
			t.Errorf("%s: expected no change, got %d new entries", tt.name, grew)
		}
	}

	last, ok := s.Snapshot().Log.LastWhere(IsPlayerMessage)
	if !ok || last.CharacterName != "Luffy" {
		t.Errorf("Expected Luffy's action in the log, got %+v", last)
	}
}

// TestSetActiveCharacter tests explicit actor advancement
func TestSetActiveCharacter(t *testing.T) {
	resolver := &stubResolver{result: TurnResult{Narrative: "Next.", Choices: []string{"A"}}}
	s := newTestSession(resolver, nil)
	ctx := context.Background()

	s.ResolveTurn(ctx, "")
	if got := s.Snapshot().ActiveCharacterID; got != "p1" {
		t.Errorf("Expected merge not to advance the actor, got %s", got)
	}

	outcome, state := s.SetActiveCharacter(ctx, "p3")
	if outcome != OutcomeAccepted || state.ActiveCharacterID != "p3" {
		t.Errorf("Expected p3 active, got %s (%s)", state.ActiveCharacterID, outcome)
	}
	if len(state.Choices) != 0 {
		t.Errorf("Expected stale choices cleared, got %v", state.Choices)
	}

	if outcome, _ := s.SetActiveCharacter(ctx, "nobody"); outcome != OutcomeUnknownCharacter {
		t.Errorf("Expected unknown character, got %s", outcome)
	}
}

// TestSessionActivations tests that valid ability activations reach the queue
func TestSessionActivations(t *testing.T) {
	resolver := &stubResolver{result: TurnResult{
		Narrative:  "Zoro's blades turn black.",
		Activation: &AbilityActivation{PlayerID: "p2", Kind: AbilityArmament},
	}}
	s := newTestSession(resolver, nil)

	s.ResolveTurn(context.Background(), "")

	got := s.DrainActivations()
	if len(got) != 1 || got[0].PlayerID != "p2" {
		t.Fatalf("Expected Zoro's activation, got %+v", got)
	}
	if len(s.DrainActivations()) != 0 {
		t.Error("Expected queue empty after drain")
	}

	resolver.result.Activation = &AbilityActivation{PlayerID: "ghost", Kind: AbilityConqueror}
	s.ResolveTurn(context.Background(), "")
	if len(s.DrainActivations()) != 0 {
		t.Error("Expected activation for unknown character to be dropped")
	}
}

// TestSessionObservers tests change notification
func TestSessionObservers(t *testing.T) {
	s := newTestSession(&stubResolver{result: TurnResult{Narrative: "ok"}}, nil)
	var seen []int

	cancel := s.Subscribe(func(id string, state *GameState) {
		if id != "test-session" {
			t.Errorf("Expected session id, got %s", id)
		}
		seen = append(seen, state.Log.Len())
	})

	s.SubmitAction(context.Background(), "p1", "hello")
	cancel()
	s.SubmitAction(context.Background(), "p1", "again")

	if len(seen) != 1 {
		t.Errorf("Expected one notification before cancel, got %d", len(seen))
	}
}

// TestOpenSession tests restore, fresh start and corrupt snapshot handling
func TestOpenSession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	opts := SessionOptions{Roster: createTestRoster(), Resolver: &stubResolver{}, Store: store}

	first, err := OpenSession(ctx, "s1", opts)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	first.SubmitAction(ctx, "p1", "remember me")

	second, err := OpenSession(ctx, "s1", opts)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	if _, ok := second.Snapshot().Log.LastWhere(IsPlayerMessage); !ok {
		t.Error("Expected persisted action after reopen")
	}

	store.Save(ctx, "broken", []byte("garbage"))
	broken, err := OpenSession(ctx, "broken", opts)
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	if broken.Snapshot().Log.Len() != 1 {
		t.Error("Expected fresh state for corrupt snapshot")
	}
	if blob, ok, _ := store.Load(ctx, "broken"); !ok || string(blob) == "garbage" {
		t.Error("Expected corrupt snapshot to be replaced")
	}
}
