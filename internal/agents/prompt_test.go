package agents

import (
	"strings"
	"testing"
)

// TestComposePrompt tests that the prompt carries the whole turn context
func TestComposePrompt(t *testing.T) {
	req := createTestRequest()
	prompt := composePrompt(req)

	for _, want := range []string{
		"GM directive for this turn: A Marine warship appears",
		"- ID: player3",
		"HP: 100/100",
		"Bounty: 3000000000",
		"Haki: None",
		"Inventory: [Clima-Tact]",
		"Active player: Luffy (ID: player1)",
		"last action: I jump onto the Marine ship",
		"Narrator: The sea is calm.",
		"Luffy: I jump onto the Marine ship",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Expected prompt to contain %q", want)
		}
	}

	if composePrompt(req) != prompt {
		t.Error("Expected identical requests to give identical prompts")
	}
}

// TestComposePromptDefaults tests the no-directive and no-action wording
func TestComposePromptDefaults(t *testing.T) {
	req := createTestRequest()
	req.Directive = "   "
	req.LastPlayerMove = nil

	prompt := composePrompt(req)

	if !strings.Contains(prompt, "Continue the story from the active player's last action") {
		t.Error("Expected default directive")
	}
	if !strings.Contains(prompt, "none (start of turn)") {
		t.Error("Expected start-of-turn marker")
	}
}

// TestSystemInstruction tests language and ability kind rendering
func TestSystemInstruction(t *testing.T) {
	s := systemInstruction("")
	if !strings.Contains(s, "in English") {
		t.Error("Expected English by default")
	}
	if !strings.Contains(s, "Armament, Observation, Conqueror") {
		t.Error("Expected ability kinds listed")
	}
}
