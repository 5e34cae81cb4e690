package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntryKind tags a log entry
type EntryKind string

const (
	EntryNarrator  EntryKind = "narrator"
	EntryDirective EntryKind = "gm-directive"
	EntryPlayer    EntryKind = "player"
	EntryError     EntryKind = "error"
)

// Valid reports whether k is one of the known kinds
func (k EntryKind) Valid() bool {
	switch k {
	case EntryNarrator, EntryDirective, EntryPlayer, EntryError:
		return true
	}
	return false
}

// LogEntry is one immutable line of the turn log
type LogEntry struct {
	Kind          EntryKind `json:"type"`
	Text          string    `json:"text"`
	CharacterName string    `json:"playerName,omitempty"` // player entries only
	At            time.Time `json:"at"`
}

func NewNarration(text string) LogEntry {
	return LogEntry{Kind: EntryNarrator, Text: text, At: time.Now()}
}

func NewDirective(text string) LogEntry {
	return LogEntry{Kind: EntryDirective, Text: text, At: time.Now()}
}

func NewPlayerMessage(characterName, text string) LogEntry {
	return LogEntry{Kind: EntryPlayer, Text: text, CharacterName: characterName, At: time.Now()}
}

func NewErrorMessage(text string) LogEntry {
	return LogEntry{Kind: EntryError, Text: text, At: time.Now()}
}

// Speaker returns the label used when the entry is rendered as context
func (e LogEntry) Speaker() string {
	switch e.Kind {
	case EntryNarrator:
		return "Narrator"
	case EntryPlayer:
		if e.CharacterName != "" {
			return e.CharacterName
		}
		return "Player"
	case EntryError:
		return "System"
	default:
		return "Game Master"
	}
}

// UnmarshalJSON rejects unknown kinds so corrupt snapshots are detected
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	type Alias LogEntry
	aux := (*Alias)(e)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("unknown log entry type %q", e.Kind)
	}
	if e.Kind != EntryPlayer {
		e.CharacterName = ""
	}
	return nil
}

// TurnLog is an append-only, insertion-ordered record of the session
type TurnLog struct {
	entries []LogEntry
}

// NewTurnLog creates a log seeded with the given entries
func NewTurnLog(seed ...LogEntry) *TurnLog {
	return &TurnLog{entries: append([]LogEntry{}, seed...)}
}

// Append adds an entry at the end; it is the only mutator
func (l *TurnLog) Append(entry LogEntry) {
	l.entries = append(l.entries, entry)
}

// Len returns the number of entries
func (l *TurnLog) Len() int {
	return len(l.entries)
}

// Tail returns a copy of the last n entries (all of them when n exceeds the length)
func (l *TurnLog) Tail(n int) []LogEntry {
	if n <= 0 {
		return []LogEntry{}
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return append([]LogEntry{}, l.entries[len(l.entries)-n:]...)
}

// LastWhere returns the most recent entry matching pred
func (l *TurnLog) LastWhere(pred func(LogEntry) bool) (LogEntry, bool) {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if pred(l.entries[i]) {
			return l.entries[i], true
		}
	}
	return LogEntry{}, false
}

// Entries returns a copy of the full log
func (l *TurnLog) Entries() []LogEntry {
	return append([]LogEntry{}, l.entries...)
}

// Clone returns an independent copy of the log
func (l *TurnLog) Clone() *TurnLog {
	return &TurnLog{entries: l.Entries()}
}

func (l *TurnLog) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

func (l *TurnLog) UnmarshalJSON(data []byte) error {
	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}

// IsPlayerMessage matches entries written by players
func IsPlayerMessage(e LogEntry) bool {
	return e.Kind == EntryPlayer
}
