package game

import (
	"context"
	"sync"
)

// createTestRoster creates a small three-slot roster for unit tests
func createTestRoster() *Roster {
	r, err := ParseRoster([]byte(`
opening: The sea is calm.
characters:
  - id: p1
    name: Luffy
    hp: 100
    max_hp: 100
    energy: 80
    max_energy: 80
    bounty: 1000
    devil_fruit: Gomu Gomu no Mi
    haki: [Armament, Observation]
    location: Sunny
    inventory: [Straw Hat]
  - id: p2
    name: Zoro
    hp: 120
    max_hp: 120
    energy: 70
    max_energy: 70
    bounty: 500
    haki: [Armament]
    location: Deck
    inventory: [Wado Ichimonji, Enma]
  - id: p3
    name: Nami
    hp: 80
    max_hp: 80
    energy: 60
    max_energy: 60
    bounty: 300
    location: Chart room
    inventory: [Clima-Tact]
`))
	if err != nil {
		panic(err)
	}
	return r
}

func intPtr(v int) *int             { return &v }
func int64Ptr(v int64) *int64       { return &v }
func strPtr(v string) *string       { return &v }
func listPtr(v ...string) *[]string { return &v }

// stubResolver returns a fixed result and counts calls
type stubResolver struct {
	mu     sync.Mutex
	result TurnResult
	calls  int
	last   TurnRequest
}

func (r *stubResolver) Resolve(_ context.Context, req TurnRequest) TurnResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = req
	return r.result
}

func (r *stubResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// blockingResolver parks every call until release is closed
type blockingResolver struct {
	started chan struct{}
	release chan struct{}
	result  TurnResult
}

func newBlockingResolver(result TurnResult) *blockingResolver {
	return &blockingResolver{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
		result:  result,
	}
}

func (r *blockingResolver) Resolve(_ context.Context, _ TurnRequest) TurnResult {
	r.started <- struct{}{}
	<-r.release
	return r.result
}

// memStore is a minimal SnapshotStore for session tests
type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) Load(_ context.Context, id string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[id]
	return b, ok, nil
}

func (m *memStore) Save(_ context.Context, id string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = append([]byte{}, blob...)
	m.saves++
	return nil
}

func (m *memStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.blobs))
	for id := range m.blobs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}
