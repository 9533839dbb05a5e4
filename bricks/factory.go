// Package bricks provides the built-in bricks and the factory that creates
// them by name.
package bricks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	cryptii "github.com/cryptii/cryptii-sub001"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownBrick is returned for names no constructor or loader is
// registered for.
var ErrUnknownBrick = errors.New("unknown brick")

// Constructor creates a brick with default settings.
type Constructor func() cryptii.Brick

// Loader resolves the constructor of a brick type that is expensive to set
// up, e.g. one backed by a remote service or a large table.
type Loader func(ctx context.Context) (Constructor, error)

// Factory is a registry of brick types. It implements cryptii.Factory.
type Factory struct {
	mu      sync.RWMutex
	ctors   map[string]Constructor
	loaders map[string]Loader
	group   singleflight.Group
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{
		ctors:   make(map[string]Constructor),
		loaders: make(map[string]Loader),
	}
}

// DefaultFactory creates a factory with all built-in bricks registered.
func DefaultFactory() *Factory {
	f := NewFactory()
	f.Register(TextViewerName, func() cryptii.Brick { return NewTextViewer() })
	f.Register(BytesViewerName, func() cryptii.Brick { return NewBytesViewer() })
	f.Register(CaesarCipherName, func() cryptii.Brick { return NewCaesarCipher() })
	f.Register(Base64Name, func() cryptii.Brick { return NewBase64() })
	f.Register(CaseTransformName, func() cryptii.Brick { return NewCaseTransform() })
	f.Register(HashName, func() cryptii.Brick { return NewHash() })
	f.Register(CompressName, func() cryptii.Brick { return NewCompress() })
	f.Register(ReverseName, func() cryptii.Brick { return NewReverse() })
	return f
}

// Register makes a brick type available under name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctors[name] = ctor
	delete(f.loaders, name)
}

// RegisterLazy makes a brick type available under name whose constructor
// is resolved on first use.
func (f *Factory) RegisterLazy(name string, loader Loader) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, loaded := f.ctors[name]; loaded {
		return
	}
	f.loaders[name] = loader
}

// Names returns the registered brick names, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.ctors)+len(f.loaders))
	for name := range f.ctors {
		names = append(names, name)
	}
	for name := range f.loaders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsLoaded reports whether the constructor of name is available.
func (f *Factory) IsLoaded(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.ctors[name]
	return ok
}

// CreateByName creates a brick with default settings.
func (f *Factory) CreateByName(name string) (cryptii.Brick, error) {
	return f.Create(cryptii.BrickData{Name: name})
}

// Create builds a brick from serialized data. A brick type that is not
// loaded yet is returned as a Placeholder that replaces itself once
// loading completes.
func (f *Factory) Create(data cryptii.BrickData) (cryptii.Brick, error) {
	f.mu.RLock()
	ctor, ok := f.ctors[data.Name]
	_, lazy := f.loaders[data.Name]
	f.mu.RUnlock()

	switch {
	case ok:
		b := ctor()
		if err := b.Extract(data); err != nil {
			return nil, err
		}
		return b, nil
	case lazy:
		p := newPlaceholder(f, data)
		go p.load(context.Background())
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBrick, data.Name)
	}
}

// LoadAndCreate resolves the constructor of a lazily registered brick type
// and creates the brick. Concurrent loads of the same type share one call
// of the loader.
func (f *Factory) LoadAndCreate(ctx context.Context, data cryptii.BrickData) (cryptii.Brick, error) {
	if !f.IsLoaded(data.Name) {
		if err := f.load(ctx, data.Name); err != nil {
			return nil, err
		}
	}
	return f.Create(data)
}

func (f *Factory) load(ctx context.Context, name string) error {
	_, err, _ := f.group.Do(name, func() (any, error) {
		f.mu.RLock()
		loader, ok := f.loaders[name]
		f.mu.RUnlock()
		if !ok {
			if f.IsLoaded(name) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: %q", ErrUnknownBrick, name)
		}

		ctor, err := loader(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading brick %q: %w", name, err)
		}
		f.Register(name, ctor)
		return nil, nil
	})
	return err
}

// Duplicate creates a new brick with the same data as b.
func (f *Factory) Duplicate(b cryptii.Brick) (cryptii.Brick, error) {
	return f.Create(b.Serialize())
}
