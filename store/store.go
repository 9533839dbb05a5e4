// Package store persists shared pipes.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/google/uuid"
)

// ErrNotFound is returned for ids with no stored pipe.
var ErrNotFound = errors.New("pipe not found")

// Record describes a stored pipe.
type Record struct {
	ID        uuid.UUID
	URL       string
	Bricks    []string
	CreatedAt time.Time
}

// Service stores and loads pipe data.
type Service interface {
	Store(ctx context.Context, data *cryptii.PipeData) (uuid.UUID, error)
	Load(ctx context.Context, id uuid.UUID) (*cryptii.PipeData, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func recordOf(id uuid.UUID, data *cryptii.PipeData, created time.Time) Record {
	names := make([]string, len(data.Items))
	for i, item := range data.Items {
		names[i] = item.Name
	}
	return Record{ID: id, URL: data.URL, Bricks: names, CreatedAt: created}
}

// Open creates the service for driver. The returned close function
// releases its resources.
func Open(driver, path string) (Service, func() error, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), func() error { return nil }, nil
	case "sqlite":
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case "files":
		files, err := NewFiles(path)
		if err != nil {
			return nil, nil, err
		}
		return files, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
