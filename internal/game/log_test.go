package game

import (
	"encoding/json"
	"testing"
)

// TestTurnLogTail tests bounded tail extraction
func TestTurnLogTail(t *testing.T) {
	log := NewTurnLog()
	for _, text := range []string{"a", "b", "c", "d"} {
		log.Append(NewNarration(text))
	}

	tests := []struct {
		n    int
		want []string
	}{
		{n: 2, want: []string{"c", "d"}},
		{n: 4, want: []string{"a", "b", "c", "d"}},
		{n: 10, want: []string{"a", "b", "c", "d"}},
		{n: 0, want: []string{}},
		{n: -1, want: []string{}},
	}

	for _, tt := range tests {
		got := log.Tail(tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("Tail(%d): expected %d entries, got %d", tt.n, len(tt.want), len(got))
			continue
		}
		for i := range got {
			if got[i].Text != tt.want[i] {
				t.Errorf("Tail(%d)[%d]: expected %q, got %q", tt.n, i, tt.want[i], got[i].Text)
			}
		}
	}

	if log.Len() != 4 {
		t.Errorf("Expected tail not to mutate the log, got length %d", log.Len())
	}
}

// TestTurnLogTailIsACopy tests that callers cannot rewrite history
func TestTurnLogTailIsACopy(t *testing.T) {
	log := NewTurnLog(NewNarration("original"))

	tail := log.Tail(1)
	tail[0].Text = "rewritten"

	if log.Entries()[0].Text != "original" {
		t.Error("Expected log entry to be immutable through Tail")
	}
}

// TestTurnLogLastWhere tests finding the latest player message
func TestTurnLogLastWhere(t *testing.T) {
	log := NewTurnLog()

	if _, ok := log.LastWhere(IsPlayerMessage); ok {
		t.Error("Expected no match on empty log")
	}

	log.Append(NewPlayerMessage("Luffy", "I punch it"))
	log.Append(NewNarration("It flies away"))
	log.Append(NewPlayerMessage("Zoro", "I get lost"))
	log.Append(NewDirective("Make it rain"))

	got, ok := log.LastWhere(IsPlayerMessage)
	if !ok {
		t.Fatal("Expected a player message")
	}
	if got.CharacterName != "Zoro" || got.Text != "I get lost" {
		t.Errorf("Expected Zoro's message, got %+v", got)
	}
}

// TestLogEntryRejectsUnknownKind tests snapshot validation of entry kinds
func TestLogEntryRejectsUnknownKind(t *testing.T) {
	var e LogEntry
	if err := json.Unmarshal([]byte(`{"type":"gossip","text":"hi"}`), &e); err == nil {
		t.Error("Expected error for unknown kind")
	}

	if err := json.Unmarshal([]byte(`{"type":"player","text":"hi","playerName":"Nami"}`), &e); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if e.Speaker() != "Nami" {
		t.Errorf("Expected speaker Nami, got %s", e.Speaker())
	}
}

// TestTurnLogJSON tests that the log encodes as a plain array
func TestTurnLogJSON(t *testing.T) {
	log := NewTurnLog(NewDirective("Go north"), NewNarration("They go north"))

	data, err := json.Marshal(log)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded TurnLog
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Len() != 2 || decoded.Entries()[0].Kind != EntryDirective {
		t.Errorf("Expected directive then narration, got %+v", decoded.Entries())
	}
}
