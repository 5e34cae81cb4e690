package agents

import (
	"fmt"
	"strings"

	"github.com/qninhdt/grandline-rpg/server/internal/game"
)

const systemTemplate = `You are a Game Master assistant for a text RPG set in the One Piece universe. You collaborate with a human GM to tell an epic story for a crew of players.

COLLABORATION RULES:
1. The human GM has final authority. The GM gives directives, commands and plot decisions; turn them into rich, detailed narration for the players.
2. You narrate the world: the NPCs, the places and the results of actions. Draw on the One Piece setting to bring the story to life.
3. The input contains the state of EVERY player. Update several players at once when the story calls for it (an area attack, a reward for the crew).
4. When the GM gives no directive, continue the story from the active player's last action. Always put the GM's direction first when it is given.
5. Players may find items. Add them to the matching player's 'inventory' list.
6. WHEN a character uses Haki prominently, fill 'hakiActivation' with the player's id and the Haki type (%s). Describe the Haki epically in the narrative.
7. Your answer MUST ALWAYS be a single valid JSON object that follows the provided schema. Only include attributes that change in 'playerUpdates'.

GAME SYSTEMS:
- Devil Fruits and Haki follow the rules set by the human GM. When the GM decides a player finds a fruit or awakens Haki, describe the moment and apply the changes. Using abilities consumes 'energy'.

Write the narrative and the choices in %s.`

// systemInstruction renders the standing instructions for the oracle
func systemInstruction(language string) string {
	if language == "" {
		language = "English"
	}
	return fmt.Sprintf(systemTemplate, strings.Join(abilityKindNames(), ", "), language)
}

// composePrompt renders a turn request. Equal requests give equal prompts.
func composePrompt(req game.TurnRequest) string {
	var b strings.Builder

	directive := strings.TrimSpace(req.Directive)
	if directive == "" {
		directive = "None. Continue the story from the active player's last action."
	}
	fmt.Fprintf(&b, "GM directive for this turn: %s\n\n", directive)

	b.WriteString("State of all players:\n")
	for _, c := range req.Roster {
		writeCharacter(&b, c)
	}

	fmt.Fprintf(&b, "\nActive player: %s (ID: %s)\n", req.Active.Name, req.Active.ID)

	lastAction := "none (start of turn)"
	if req.LastPlayerMove != nil {
		lastAction = req.LastPlayerMove.Text
	}
	fmt.Fprintf(&b, "Active player's last action: %s\n\n", lastAction)

	b.WriteString("Recent history:\n")
	for _, e := range req.Tail {
		fmt.Fprintf(&b, "%s: %s\n", e.Speaker(), e.Text)
	}

	b.WriteString("\nBased on the GM directive, the players' state and the active player's last action, generate the next turn of the story. Remember to fill 'hakiActivation' if Haki is used visibly.\n")
	return b.String()
}

func writeCharacter(b *strings.Builder, c game.Character) {
	haki := strings.Join(c.Haki, ", ")
	if haki == "" {
		haki = "None"
	}
	fmt.Fprintf(b, "- ID: %s\n", c.ID)
	fmt.Fprintf(b, "  Name: %s\n", c.Name)
	fmt.Fprintf(b, "  HP: %d/%d\n", c.HP, c.MaxHP)
	fmt.Fprintf(b, "  Energy: %d/%d\n", c.Energy, c.MaxEnergy)
	fmt.Fprintf(b, "  Bounty: %d\n", c.Bounty)
	fmt.Fprintf(b, "  Devil Fruit: %s\n", c.DevilFruit)
	fmt.Fprintf(b, "  Haki: %s\n", haki)
	fmt.Fprintf(b, "  Location: %s\n", c.Location)
	fmt.Fprintf(b, "  Inventory: [%s]\n", strings.Join(c.Inventory, ", "))
}
