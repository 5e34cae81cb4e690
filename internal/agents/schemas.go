package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/qninhdt/grandline-rpg/server/internal/game"
)

// turnResultShape is the answer every narration call must produce
var turnResultShape = &Shape{
	Type: ShapeObject,
	Properties: map[string]*Shape{
		"narrative": {
			Type:        ShapeString,
			Description: "Your narration of the story for this turn.",
		},
		"playerUpdates": {
			Type:        ShapeArray,
			Description: "Updates for one or more players. Include only the attributes that change.",
			Items: &Shape{
				Type: ShapeObject,
				Properties: map[string]*Shape{
					"playerId": {Type: ShapeString},
					"stats": {
						Type: ShapeObject,
						Properties: map[string]*Shape{
							"name":       {Type: ShapeString},
							"hp":         {Type: ShapeNumber},
							"maxHp":      {Type: ShapeNumber},
							"energy":     {Type: ShapeNumber},
							"maxEnergy":  {Type: ShapeNumber},
							"bounty":     {Type: ShapeNumber},
							"devilFruit": {Type: ShapeString},
							"haki":       {Type: ShapeArray, Items: &Shape{Type: ShapeString}},
							"location":   {Type: ShapeString},
							"inventory":  {Type: ShapeArray, Items: &Shape{Type: ShapeString}},
						},
					},
				},
				Required: []string{"playerId", "stats"},
			},
		},
		"choices": {
			Type:        ShapeArray,
			Description: "Three suggested actions for the active player.",
			Items:       &Shape{Type: ShapeString},
		},
		"gameOver": {
			Type:        ShapeBoolean,
			Description: "True only when the whole game has reached a definitive ending.",
		},
		"hakiActivation": {
			Type:        ShapeObject,
			Description: "Fill when a player uses Haki prominently, to trigger a visual effect.",
			Nullable:    true,
			Properties: map[string]*Shape{
				"playerId": {Type: ShapeString},
				"hakiType": {Type: ShapeString, Enum: abilityKindNames()},
			},
		},
	},
	Required: []string{"narrative", "playerUpdates", "choices", "gameOver"},
}

func abilityKindNames() []string {
	names := make([]string, len(game.AbilityKinds))
	for i, k := range game.AbilityKinds {
		names[i] = string(k)
	}
	return names
}

// wireStats carries numbers as floats since models do not reliably emit integers
type wireStats struct {
	Name       *string   `json:"name"`
	HP         *float64  `json:"hp"`
	MaxHP      *float64  `json:"maxHp"`
	Energy     *float64  `json:"energy"`
	MaxEnergy  *float64  `json:"maxEnergy"`
	Bounty     *float64  `json:"bounty"`
	DevilFruit *string   `json:"devilFruit"`
	Haki       *[]string `json:"haki"`
	Location   *string   `json:"location"`
	Inventory  *[]string `json:"inventory"`
}

// wirePatch accepts both the nested stats form and flat attributes
type wirePatch struct {
	PlayerID string     `json:"playerId"`
	Stats    *wireStats `json:"stats"`
	wireStats
}

type wireActivation struct {
	PlayerID string `json:"playerId"`
	HakiType string `json:"hakiType"`
}

type wireTurnResult struct {
	Narrative      *string         `json:"narrative"`
	PlayerUpdates  *[]wirePatch    `json:"playerUpdates"`
	Choices        *[]string       `json:"choices"`
	GameOver       *bool           `json:"gameOver"`
	HakiActivation *wireActivation `json:"hakiActivation"`
}

// decodeTurnResult validates and normalizes a raw oracle answer
func decodeTurnResult(raw []byte) (game.TurnResult, error) {
	var w wireTurnResult
	if err := json.Unmarshal(extractJSON(raw), &w); err != nil {
		return game.TurnResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	switch {
	case w.Narrative == nil || strings.TrimSpace(*w.Narrative) == "":
		return game.TurnResult{}, fmt.Errorf("%w: missing narrative", ErrMalformedResponse)
	case w.PlayerUpdates == nil:
		return game.TurnResult{}, fmt.Errorf("%w: missing playerUpdates", ErrMalformedResponse)
	case w.Choices == nil:
		return game.TurnResult{}, fmt.Errorf("%w: missing choices", ErrMalformedResponse)
	case w.GameOver == nil:
		return game.TurnResult{}, fmt.Errorf("%w: missing gameOver", ErrMalformedResponse)
	}

	result := game.TurnResult{
		Narrative:     strings.TrimSpace(*w.Narrative),
		PlayerUpdates: make([]game.CharacterPatch, 0, len(*w.PlayerUpdates)),
		GameOver:      *w.GameOver,
	}
	for _, p := range *w.PlayerUpdates {
		if p.PlayerID == "" {
			continue
		}
		result.PlayerUpdates = append(result.PlayerUpdates, p.toPatch())
	}

	choices := *w.Choices
	if len(choices) > game.MaxChoices {
		choices = choices[:game.MaxChoices]
	}
	result.Choices = append([]string{}, choices...)

	if a := w.HakiActivation; a != nil && a.PlayerID != "" {
		if kind := game.AbilityKind(a.HakiType); kind.Valid() {
			result.Activation = &game.AbilityActivation{PlayerID: a.PlayerID, Kind: kind}
		}
	}
	return result, nil
}

func (p wirePatch) toPatch() game.CharacterPatch {
	s := p.wireStats
	if p.Stats != nil {
		s = *p.Stats
	}
	return game.CharacterPatch{
		PlayerID:   p.PlayerID,
		Name:       s.Name,
		HP:         toInt(s.HP),
		MaxHP:      toInt(s.MaxHP),
		Energy:     toInt(s.Energy),
		MaxEnergy:  toInt(s.MaxEnergy),
		Bounty:     toInt64(s.Bounty),
		DevilFruit: s.DevilFruit,
		Haki:       s.Haki,
		Location:   s.Location,
		Inventory:  s.Inventory,
	}
}

// toInt64 truncates toward zero and saturates at the int64 range
func toInt64(f *float64) *int64 {
	if f == nil {
		return nil
	}
	var v int64
	switch {
	case math.IsNaN(*f):
		v = 0
	case *f >= math.MaxInt64:
		v = math.MaxInt64
	case *f <= math.MinInt64:
		v = math.MinInt64
	default:
		v = int64(*f)
	}
	return &v
}

func toInt(f *float64) *int {
	v := toInt64(f)
	if v == nil {
		return nil
	}
	n := *v
	if n > math.MaxInt32 {
		n = math.MaxInt32
	} else if n < math.MinInt32 {
		n = math.MinInt32
	}
	out := int(n)
	return &out
}

// extractJSON strips markdown fences and prose around a JSON object
func extractJSON(raw []byte) []byte {
	b := bytes.TrimSpace(raw)
	if bytes.HasPrefix(b, []byte("```")) {
		b = bytes.TrimPrefix(b, []byte("```json"))
		b = bytes.TrimPrefix(b, []byte("```"))
		b = bytes.TrimSuffix(bytes.TrimSpace(b), []byte("```"))
		b = bytes.TrimSpace(b)
	}
	if len(b) > 0 && b[0] == '{' {
		return b
	}
	start := bytes.IndexByte(b, '{')
	end := bytes.LastIndexByte(b, '}')
	if start >= 0 && end > start {
		return b[start : end+1]
	}
	return b
}
