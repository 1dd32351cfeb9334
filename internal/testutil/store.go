package testutil

import (
	"context"
	"sync"

	"github.com/starford/blocknote/internal/models"
	"github.com/starford/blocknote/internal/storage"
)

// RecordingStore wraps a storage.Provider, recording each call by name and
// letting tests inject failures or block inside a call.
type RecordingStore struct {
	storage.Provider

	mu    sync.Mutex
	calls []string
	fail  map[string]error

	// Hook, if set, runs before every call with the operation name.
	Hook func(op string)
}

// NewRecordingStore wraps p.
func NewRecordingStore(p storage.Provider) *RecordingStore {
	return &RecordingStore{Provider: p, fail: map[string]error{}}
}

// FailOn makes every subsequent call to op return err. A nil err clears it.
func (s *RecordingStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the operation names recorded so far.
func (s *RecordingStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many times op was called.
func (s *RecordingStore) Count(op string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls.
func (s *RecordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *RecordingStore) enter(op string) error {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	err := s.fail[op]
	hook := s.Hook
	s.mu.Unlock()
	if hook != nil {
		hook(op)
	}
	return err
}

func (s *RecordingStore) ListBlocks(ctx context.Context, noteID string) ([]models.Block, error) {
	if err := s.enter("ListBlocks"); err != nil {
		return nil, err
	}
	return s.Provider.ListBlocks(ctx, noteID)
}

func (s *RecordingStore) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	if err := s.enter("CreateNote"); err != nil {
		return models.Note{}, err
	}
	return s.Provider.CreateNote(ctx, title, content)
}

func (s *RecordingStore) UpdateNote(ctx context.Context, noteID, title, content string) (models.Note, error) {
	if err := s.enter("UpdateNote"); err != nil {
		return models.Note{}, err
	}
	return s.Provider.UpdateNote(ctx, noteID, title, content)
}

func (s *RecordingStore) CreateBlock(ctx context.Context, noteID string, in storage.BlockInput) (models.Block, error) {
	if err := s.enter("CreateBlock"); err != nil {
		return models.Block{}, err
	}
	return s.Provider.CreateBlock(ctx, noteID, in)
}

func (s *RecordingStore) UpdateBlock(ctx context.Context, blockID string, in storage.BlockInput) (models.Block, error) {
	if err := s.enter("UpdateBlock"); err != nil {
		return models.Block{}, err
	}
	return s.Provider.UpdateBlock(ctx, blockID, in)
}

func (s *RecordingStore) DeleteBlock(ctx context.Context, blockID string) error {
	if err := s.enter("DeleteBlock"); err != nil {
		return err
	}
	return s.Provider.DeleteBlock(ctx, blockID)
}

func (s *RecordingStore) DeleteNote(ctx context.Context, noteID string) error {
	if err := s.enter("DeleteNote"); err != nil {
		return err
	}
	return s.Provider.DeleteNote(ctx, noteID)
}
