package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	supa "github.com/supabase-community/supabase-go"
)

// sessionTable must exist in the Supabase project:
//
//	create table game_sessions (
//	  id text primary key,
//	  state jsonb not null,
//	  turn integer not null default 0,
//	  game_over boolean not null default false,
//	  updated_at timestamptz not null default now()
//	);
const sessionTable = "game_sessions"

// sessionRow matches the 'game_sessions' table in Supabase
type sessionRow struct {
	ID        string          `json:"id"`
	State     json.RawMessage `json:"state"`
	Turn      int             `json:"turn"`
	GameOver  bool            `json:"game_over"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SupabaseStore keeps one row per session in a Supabase table. The
// client has no context support, so ctx is not propagated.
type SupabaseStore struct {
	client *supa.Client
}

// NewSupabaseStore connects to a Supabase project
func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to supabase: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) Load(_ context.Context, id string) ([]byte, bool, error) {
	var rows []sessionRow
	_, err := s.client.From(sessionTable).Select("*", "exact", false).Eq("id", id).ExecuteTo(&rows)
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return []byte(rows[0].State), true, nil
}

func (s *SupabaseStore) Save(_ context.Context, id string, blob []byte) error {
	var summary snapshotSummary
	_ = json.Unmarshal(blob, &summary)

	row := sessionRow{
		ID:        id,
		State:     json.RawMessage(blob),
		Turn:      summary.Turn,
		GameOver:  summary.GameOver,
		UpdatedAt: time.Now().UTC(),
	}
	if !json.Valid(blob) {
		// jsonb rejects invalid documents; keep the bytes as a JSON string
		quoted, _ := json.Marshal(string(blob))
		row.State = quoted
	}

	_, _, err := s.client.From(sessionTable).Insert(row, true, "id", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *SupabaseStore) List(_ context.Context) ([]string, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	_, err := s.client.From(sessionTable).Select("id", "exact", false).ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *SupabaseStore) Delete(_ context.Context, id string) error {
	_, _, err := s.client.From(sessionTable).Delete("minimal", "").Eq("id", id).Execute()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
