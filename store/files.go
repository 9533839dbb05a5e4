package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const fileExt = ".cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: failed to create encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("cbor: failed to create decoder: " + err.Error())
	}
}

// fileEntry is the on-disk document. Content keeps its JSON bytes.
type fileEntry struct {
	ID      string            `cbor:"id"`
	Created int64             `cbor:"created"`
	Data    *cryptii.PipeData `cbor:"data"`
}

// Files keeps one deterministic CBOR document per pipe in a directory.
type Files struct {
	dir string
	mu  sync.RWMutex
}

// NewFiles creates dir when missing.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Files{dir: dir}, nil
}

func (s *Files) path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+fileExt)
}

func (s *Files) read(path string) (*fileEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry fileEntry
	if err := decMode.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	if entry.Data == nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), cryptii.ErrInvalidPipeData)
	}
	return &entry, nil
}

func (s *Files) Store(ctx context.Context, data *cryptii.PipeData) (uuid.UUID, error) {
	if err := data.Validate(); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	raw, err := encMode.Marshal(&fileEntry{ID: id.String(), Created: time.Now().UnixNano(), Data: data})
	if err != nil {
		return uuid.Nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return uuid.Nil, err
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		os.Remove(tmp)
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Files) Load(ctx context.Context, id uuid.UUID) (*cryptii.PipeData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := s.read(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if err := entry.Data.Validate(); err != nil {
		return nil, err
	}
	return entry.Data, nil
}

func (s *Files) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := s.read(filepath.Join(s.dir, de.Name()))
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			return nil, fmt.Errorf("pipe id %q: %w", entry.ID, err)
		}
		records = append(records, recordOf(id, entry.Data, time.Unix(0, entry.Created)))
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (s *Files) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}
