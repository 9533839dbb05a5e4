package store

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/google/uuid"
)

type memoryEntry struct {
	id      uuid.UUID
	data    *cryptii.PipeData
	created time.Time
}

// Memory keeps pipes in process. Used by tests and the CLI without a
// configured store.
type Memory struct {
	mu      sync.RWMutex
	entries []*memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: []*memoryEntry{}}
}

func (s *Memory) Store(ctx context.Context, data *cryptii.PipeData) (uuid.UUID, error) {
	if err := data.Validate(); err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &memoryEntry{id: uuid.New(), data: clonePipeData(data), created: time.Now()}
	s.entries = append(s.entries, entry)
	return entry.id, nil
}

func (s *Memory) Load(ctx context.Context, id uuid.UUID) (*cryptii.PipeData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.id == id {
			return clonePipeData(e.data), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Memory) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, len(s.entries))
	for i, e := range s.entries {
		result[i] = recordOf(e.id, e.data, e.created)
	}
	return result, nil
}

func (s *Memory) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// clonePipeData copies the parts a caller could mutate.
func clonePipeData(data *cryptii.PipeData) *cryptii.PipeData {
	c := *data
	c.Content = append([]byte(nil), data.Content...)
	c.Items = make([]cryptii.BrickData, len(data.Items))
	for i, item := range data.Items {
		c.Items[i] = item
		c.Items[i].Settings = maps.Clone(item.Settings)
	}
	if data.ContentIndex != nil {
		index := *data.ContentIndex
		c.ContentIndex = &index
	}
	return &c
}
