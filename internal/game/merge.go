package game

import (
	"strings"
	"time"
)

// EndRule decides whether a merged state has reached an ending on its own
type EndRule func(*GameState) bool

// ConditionSet is satisfied by compiled rule sets evaluated over RuleEnv
type ConditionSet interface {
	Any(env map[string]interface{}) bool
}

// EndRuleFrom adapts a condition set into an EndRule
func EndRuleFrom(set ConditionSet) EndRule {
	if set == nil {
		return nil
	}
	return func(s *GameState) bool {
		return set.Any(s.RuleEnv())
	}
}

// RuleEnv exposes the state to end-of-game conditions
func (s *GameState) RuleEnv() map[string]interface{} {
	chars := make([]interface{}, 0, len(s.Characters))
	for _, c := range s.Characters {
		chars = append(chars, map[string]interface{}{
			"id":          c.ID,
			"name":        c.Name,
			"hp":          c.HP,
			"max_hp":      c.MaxHP,
			"energy":      c.Energy,
			"max_energy":  c.MaxEnergy,
			"bounty":      c.Bounty,
			"devil_fruit": c.DevilFruit,
			"location":    c.Location,
			"haki":        append([]string{}, c.Haki...),
			"inventory":   append([]string{}, c.Inventory...),
		})
	}
	return map[string]interface{}{
		"characters":   chars,
		"turn":         s.Turn,
		"total_bounty": s.TotalBounty(),
	}
}

// Merge folds a turn result into prev and returns the next state. prev is
// not modified. Only attributes present in a patch change; patches for
// unknown characters are ignored; the active character is left alone.
func Merge(prev *GameState, directive string, result TurnResult, end EndRule) *GameState {
	next := prev.Clone()

	for _, patch := range result.PlayerUpdates {
		c, ok := next.Character(patch.PlayerID)
		if !ok {
			continue
		}
		*c = patch.ApplyTo(*c)
	}

	if d := strings.TrimSpace(directive); d != "" {
		next.Log.Append(NewDirective(d))
	}
	if result.Degraded {
		next.Log.Append(NewErrorMessage(result.Narrative))
	} else {
		next.Log.Append(NewNarration(result.Narrative))
	}

	next.Choices = trimChoices(result.Choices)
	next.Loading = false
	next.Turn++

	// one-way: nothing here can clear a game over
	if result.GameOver {
		next.GameOver = true
	}
	if !next.GameOver && end != nil && end(next) {
		next.GameOver = true
	}

	next.UpdatedAt = time.Now()
	return next
}

func trimChoices(choices []string) []string {
	out := make([]string, 0, MaxChoices)
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, c)
		if len(out) == MaxChoices {
			break
		}
	}
	return out
}
