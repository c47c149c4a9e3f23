package capture

import (
	"context"
	"sync"
)

// CheckpointKey addresses one question's saved countdown.
type CheckpointKey struct {
	DeckID        string
	QuestionIndex int
}

// CheckpointStore persists remaining seconds for the current question so a
// reload mid-question can resume where it left off. Best-effort: losing a
// checkpoint never breaks the protocol.
type CheckpointStore interface {
	Save(ctx context.Context, key CheckpointKey, remainingSeconds int) error
	Load(ctx context.Context, key CheckpointKey) (int, bool, error)
	Clear(ctx context.Context, key CheckpointKey) error
}

// MemoryCheckpointStore keeps checkpoints in process memory.
type MemoryCheckpointStore struct {
	mu    sync.Mutex
	slots map[CheckpointKey]int
}

// NewMemoryCheckpointStore builds an empty in-memory checkpoint store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{slots: make(map[CheckpointKey]int)}
}

func (s *MemoryCheckpointStore) Save(_ context.Context, key CheckpointKey, remainingSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = remainingSeconds
	return nil
}

func (s *MemoryCheckpointStore) Load(_ context.Context, key CheckpointKey) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining, ok := s.slots[key]
	return remaining, ok, nil
}

func (s *MemoryCheckpointStore) Clear(_ context.Context, key CheckpointKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, key)
	return nil
}
