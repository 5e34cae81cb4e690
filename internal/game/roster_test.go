package game

import (
	"encoding/json"
	"testing"
)

// TestDefaultRoster tests the embedded canonical crew
func TestDefaultRoster(t *testing.T) {
	r := DefaultRoster()

	if r.Size() != 6 {
		t.Fatalf("Expected 6 slots, got %d", r.Size())
	}
	if r.Characters[0].ID != "player1" {
		t.Errorf("Expected first slot player1, got %s", r.Characters[0].ID)
	}
	if r.Opening == "" {
		t.Error("Expected an opening narration")
	}
}

// TestNewState tests the initial session state
func TestNewState(t *testing.T) {
	r := createTestRoster()
	s := r.NewState()

	if s.ActiveCharacterID != "p1" {
		t.Errorf("Expected active p1, got %s", s.ActiveCharacterID)
	}
	if s.Log.Len() != 1 || s.Log.Entries()[0].Kind != EntryNarrator {
		t.Errorf("Expected opening narration, got %+v", s.Log.Entries())
	}
	if s.Loading || s.GameOver {
		t.Error("Expected idle, running state")
	}

	s.Characters[0].Inventory[0] = "changed"
	if r.Characters[0].Inventory[0] != "Straw Hat" {
		t.Error("Expected roster to be isolated from the state")
	}
}

// TestParseRosterErrors tests roster validation
func TestParseRosterErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "characters: []"},
		{name: "missing id", yaml: "characters:\n  - name: Nobody"},
		{name: "duplicate id", yaml: "characters:\n  - id: a\n  - id: a"},
		{name: "invalid yaml", yaml: "characters: [: :"},
	}

	for _, tt := range tests {
		if _, err := ParseRoster([]byte(tt.yaml)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

// TestRestoreBackfill tests that a short roster is extended from canonical slots
func TestRestoreBackfill(t *testing.T) {
	r := DefaultRoster()
	saved := r.NewState()
	saved.Characters = saved.Characters[:3]
	saved.Characters[0].HP = 42
	saved.Characters[1].Inventory = []string{}
	saved.Characters[2].Location = "Wano"
	blob, err := saved.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	restored, ok, err := r.RestoreState(blob)
	if err != nil || !ok {
		t.Fatalf("Expected restore, got ok=%v err=%v", ok, err)
	}

	if len(restored.Characters) != 6 {
		t.Fatalf("Expected 6 characters, got %d", len(restored.Characters))
	}
	for i := 0; i < 3; i++ {
		if !restored.Characters[i].Equal(saved.Characters[i]) {
			t.Errorf("Slot %d: expected persisted values, got %+v", i+1, restored.Characters[i])
		}
	}
	for i := 3; i < 6; i++ {
		if !restored.Characters[i].Equal(r.Characters[i]) {
			t.Errorf("Slot %d: expected canonical default, got %+v", i+1, restored.Characters[i])
		}
	}
}

// TestRestoreFallbacks tests missing, corrupt and empty snapshots
func TestRestoreFallbacks(t *testing.T) {
	r := createTestRoster()

	tests := []struct {
		name    string
		blob    []byte
		wantErr bool
	}{
		{name: "missing", blob: nil},
		{name: "corrupt", blob: []byte("{not json"), wantErr: true},
		{name: "no characters", blob: []byte(`{"players":[]}`), wantErr: true},
		{name: "bad log entry", blob: []byte(`{"players":[{"id":"p1"}],"gameLog":[{"type":"??"}]}`), wantErr: true},
	}

	for _, tt := range tests {
		s, ok, err := r.RestoreState(tt.blob)
		if ok {
			t.Errorf("%s: expected fresh state", tt.name)
		}
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: expected error=%v, got %v", tt.name, tt.wantErr, err)
		}
		if s == nil || len(s.Characters) != r.Size() || s.Log.Len() != 1 {
			t.Errorf("%s: expected canonical state, got %+v", tt.name, s)
		}
	}
}

// TestRestoreResetsTransientFields tests loading reset and active id repair
func TestRestoreResetsTransientFields(t *testing.T) {
	r := createTestRoster()
	saved := r.NewState()
	saved.Loading = true
	saved.GameOver = true
	saved.ActiveCharacterID = "gone"

	blob, _ := json.Marshal(saved)
	restored, ok, err := r.RestoreState(blob)
	if err != nil || !ok {
		t.Fatalf("Expected restore, got ok=%v err=%v", ok, err)
	}

	if restored.Loading {
		t.Error("Expected loading to be reset")
	}
	if !restored.GameOver {
		t.Error("Expected game over to survive a reload")
	}
	if restored.ActiveCharacterID != "p1" {
		t.Errorf("Expected active id repaired to p1, got %s", restored.ActiveCharacterID)
	}
}
