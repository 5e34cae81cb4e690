package agents

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qninhdt/grandline-rpg/server/internal/game"
)

// DefaultOracleTimeout bounds one narration call
const DefaultOracleTimeout = 45 * time.Second

const (
	criticalNarrative = "CRITICAL ERROR: the Game Master oracle has no API key. The story cannot reach the AI until the human GM configures the oracle credential for this server."
	stormNarrative    = "A sudden storm throws the world into chaos! The thread of the story was lost. Please try your action again."
)

// recoveryChoices are offered whenever a turn falls back
var recoveryChoices = []string{"Wait out the storm", "Check the ship for damage", "Look at the map"}

// Narrator resolves turns by asking an oracle for the next story beat
type Narrator struct {
	oracle   Oracle
	language string
	timeout  time.Duration
}

// NarratorOptions configures a Narrator
type NarratorOptions struct {
	Language string
	Timeout  time.Duration
}

// NewNarrator creates a narrator backed by the given oracle
func NewNarrator(oracle Oracle, opts NarratorOptions) *Narrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOracleTimeout
	}
	return &Narrator{
		oracle:   oracle,
		language: opts.Language,
		timeout:  opts.Timeout,
	}
}

// Resolve produces a turn result. Oracle failures are absorbed into a
// degraded in-fiction result; this never fails and never retries.
func (n *Narrator) Resolve(ctx context.Context, req game.TurnRequest) game.TurnResult {
	ctx, span := otel.Tracer("grandline/agents").Start(ctx, "narrator.resolve", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("narrator.active_character", req.Active.ID),
		attribute.Bool("narrator.has_directive", req.Directive != ""),
	)

	result, err := n.resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("narrator.outcome", outcomeLabel(err)))
		log.Printf("narrator: falling back: %v", err)
		return fallback(err)
	}

	span.SetAttributes(
		attribute.String("narrator.outcome", "ok"),
		attribute.Int("narrator.updates", len(result.PlayerUpdates)),
	)
	return result
}

func (n *Narrator) resolve(ctx context.Context, req game.TurnRequest) (game.TurnResult, error) {
	if n.oracle == nil || !n.oracle.Configured() {
		return game.TurnResult{}, ErrMissingCredential
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	raw, err := n.oracle.Generate(ctx, OracleRequest{
		System: systemInstruction(n.language),
		Prompt: composePrompt(req),
		Shape:  turnResultShape,
	})
	if err != nil {
		return game.TurnResult{}, err
	}
	return decodeTurnResult(raw)
}

func fallback(err error) game.TurnResult {
	narrative := stormNarrative
	if errors.Is(err, ErrMissingCredential) {
		narrative = criticalNarrative
	}
	return game.TurnResult{
		Narrative:     narrative,
		PlayerUpdates: []game.CharacterPatch{},
		Choices:       append([]string{}, recoveryChoices...),
		GameOver:      false,
		Degraded:      true,
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "oracle_error"
	}
}
