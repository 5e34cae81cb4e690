package game

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// TurnResolver turns a request into a result. Implementations absorb their
// own failures and always return a usable result.
type TurnResolver interface {
	Resolve(ctx context.Context, req TurnRequest) TurnResult
}

// SnapshotStore persists sessions as opaque blobs
type SnapshotStore interface {
	Load(ctx context.Context, id string) ([]byte, bool, error)
	Save(ctx context.Context, id string, blob []byte) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// Outcome reports what happened to a submitted intent. Rejections are
// silent no-ops: the state is untouched and no error is raised.
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeBusy             Outcome = "turn_in_flight"
	OutcomeOver             Outcome = "game_over"
	OutcomeNotYourTurn      Outcome = "not_your_turn"
	OutcomeEmpty            Outcome = "empty_input"
	OutcomeUnknownCharacter Outcome = "unknown_character"
	OutcomeStale            Outcome = "stale_turn"
)

// Accepted reports whether the intent changed the state
func (o Outcome) Accepted() bool {
	return o == OutcomeAccepted
}

// Observer is told about every committed state. It runs under the session
// lock and must not block or call back into the session.
type Observer func(sessionID string, state *GameState)

// SessionOptions carries a session's collaborators
type SessionOptions struct {
	Roster   *Roster
	Resolver TurnResolver
	Store    SnapshotStore // optional
	EndRule  EndRule       // optional
}

// Session owns one game's state and is its single writer
type Session struct {
	ID          string
	roster      *Roster
	resolver    TurnResolver
	store       SnapshotStore
	end         EndRule
	activations *ActivationQueue

	mu        sync.Mutex
	state     *GameState
	epoch     uint64
	observers map[int]Observer
	nextObs   int
}

// NewSession creates a session with a fresh canonical state
func NewSession(id string, opts SessionOptions) *Session {
	return newSession(id, opts, opts.Roster.NewState())
}

func newSession(id string, opts SessionOptions, state *GameState) *Session {
	return &Session{
		ID:          id,
		roster:      opts.Roster,
		resolver:    opts.Resolver,
		store:       opts.Store,
		end:         opts.EndRule,
		activations: NewActivationQueue(),
		state:       state,
		observers:   make(map[int]Observer),
	}
}

// OpenSession restores a session from the store. Corrupt snapshots are
// discarded and replaced by a fresh state; only store I/O errors fail.
func OpenSession(ctx context.Context, id string, opts SessionOptions) (*Session, error) {
	if opts.Store == nil {
		return NewSession(id, opts), nil
	}

	blob, ok, err := opts.Store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !ok {
		s := NewSession(id, opts)
		s.mu.Lock()
		s.commitLocked(ctx)
		s.mu.Unlock()
		return s, nil
	}

	state, restored, err := opts.Roster.RestoreState(blob)
	if err != nil {
		log.Printf("session %s: discarding corrupt snapshot: %v", id, err)
		if delErr := opts.Store.Delete(ctx, id); delErr != nil {
			log.Printf("session %s: delete corrupt snapshot: %v", id, delErr)
		}
	}

	s := newSession(id, opts, state)
	if !restored {
		s.mu.Lock()
		s.commitLocked(ctx)
		s.mu.Unlock()
	}
	return s, nil
}

// Snapshot returns a deep copy of the current state
func (s *Session) Snapshot() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers an observer and returns its cancel function
func (s *Session) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// DrainActivations returns ability activations produced since the last drain
func (s *Session) DrainActivations() []AbilityActivation {
	return s.activations.Drain()
}

// ResolveTurn runs one GM-driven turn: it closes the gate, awaits the
// resolver without holding the lock, then merges the result. A second call
// while a turn is in flight is rejected without touching the state.
func (s *Session) ResolveTurn(ctx context.Context, directive string) (Outcome, *GameState) {
	s.mu.Lock()
	if s.state.GameOver {
		defer s.mu.Unlock()
		return OutcomeOver, s.state.Clone()
	}
	if s.state.Loading {
		defer s.mu.Unlock()
		return OutcomeBusy, s.state.Clone()
	}
	req, err := BuildTurnRequest(s.state, directive)
	if err != nil {
		defer s.mu.Unlock()
		return OutcomeUnknownCharacter, s.state.Clone()
	}
	s.state.Loading = true
	epoch := s.epoch
	s.commitLocked(ctx)
	s.mu.Unlock()

	// the turn runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)
	result := s.resolver.Resolve(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		log.Printf("session %s: dropping result of a turn started before restart", s.ID)
		return OutcomeStale, s.state.Clone()
	}

	s.state = Merge(s.state, directive, result, s.end)
	if a := result.Activation; a != nil && a.Kind.Valid() {
		if _, ok := s.state.Character(a.PlayerID); ok {
			s.activations.Enqueue(*a)
		}
	}
	s.commitLocked(ctx)
	return OutcomeAccepted, s.state.Clone()
}

// SubmitAction records a player's move. Only the active character may act,
// and only while no turn is in flight.
func (s *Session) SubmitAction(ctx context.Context, characterID, text string) (Outcome, *GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)
	switch {
	case s.state.GameOver:
		return OutcomeOver, s.state.Clone()
	case s.state.Loading:
		return OutcomeBusy, s.state.Clone()
	case characterID != s.state.ActiveCharacterID:
		return OutcomeNotYourTurn, s.state.Clone()
	case text == "":
		return OutcomeEmpty, s.state.Clone()
	}

	c, ok := s.state.Character(characterID)
	if !ok {
		return OutcomeUnknownCharacter, s.state.Clone()
	}
	s.state.Log.Append(NewPlayerMessage(c.Name, text))
	s.state.UpdatedAt = time.Now()
	s.commitLocked(ctx)
	return OutcomeAccepted, s.state.Clone()
}

// SetActiveCharacter opens the turn of another character
func (s *Session) SetActiveCharacter(ctx context.Context, characterID string) (Outcome, *GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.Character(characterID); !ok {
		return OutcomeUnknownCharacter, s.state.Clone()
	}
	if s.state.ActiveCharacterID != characterID {
		s.state.ActiveCharacterID = characterID
		// suggestions were written for the previous actor
		s.state.Choices = []string{}
		s.state.UpdatedAt = time.Now()
		s.commitLocked(ctx)
	}
	return OutcomeAccepted, s.state.Clone()
}

// Restart discards the session and starts over from the canonical roster.
// A turn still in flight is abandoned.
func (s *Session) Restart(ctx context.Context) *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.state = s.roster.NewState()
	s.activations.Clear()
	s.commitLocked(ctx)
	return s.state.Clone()
}

// commitLocked persists and publishes the current state. Store failures are
// logged; the in-memory state stays authoritative.
func (s *Session) commitLocked(ctx context.Context) {
	if s.store != nil {
		blob, err := s.state.Encode()
		if err != nil {
			log.Printf("session %s: encode snapshot: %v", s.ID, err)
		} else if err := s.store.Save(ctx, s.ID, blob); err != nil {
			log.Printf("session %s: save snapshot: %v", s.ID, err)
		}
	}
	if len(s.observers) == 0 {
		return
	}
	snap := s.state.Clone()
	for _, fn := range s.observers {
		fn(s.ID, snap)
	}
}
