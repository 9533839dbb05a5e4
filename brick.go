package cryptii

import (
	"fmt"
	"sync"

	"github.com/cryptii/cryptii-sub001/form"
	"github.com/google/uuid"
)

// Kind tells the pipe how a brick takes part in propagation. It is
// resolved once when the brick is spliced in.
type Kind int

const (
	KindTransform Kind = iota + 1
	KindDisplay
)

func (k Kind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindDisplay:
		return "display"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Form is the settings collection of a brick. *form.Form implements it.
type Form interface {
	IsValid() bool
	InvalidFields() []string
	SerializeValues() map[string]any
	Extract(values map[string]any) error
	OnChange(fn func(name string, value any))
}

// BrickData is the serialized form of a brick.
type BrickData struct {
	Name     string         `json:"name" validate:"required"`
	Title    string         `json:"title,omitempty"`
	Hidden   bool           `json:"hidden,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
	Reverse  bool           `json:"reverse,omitempty"`
}

// Brick is an element of a pipe. Bricks are built by embedding
// *TransformBase or *DisplayBase; the interface cannot be implemented
// otherwise.
type Brick interface {
	ID() uuid.UUID
	Name() string
	Kind() Kind
	Title() string
	SetTitle(title string)
	Hidden() bool
	SetHidden(hidden bool)
	Settings() Form
	IsValid() bool
	Serialize() BrickData
	Extract(data BrickData) error
	// Handle returns the back reference to the pipe the brick is part of,
	// or nil.
	Handle() *Handle

	base() *Base
}

// BrickOption configures a brick base.
type BrickOption func(*Base)

// WithTitle sets a user facing title.
func WithTitle(title string) BrickOption {
	return func(b *Base) {
		b.title = title
	}
}

// WithSettingObserver registers fn to run on every settings value change
// before the pipe is notified. Bricks use it to adjust dependent settings,
// e.g. the bounds of another field.
func WithSettingObserver(fn func(name string, value any)) BrickOption {
	return func(b *Base) {
		b.observer = fn
	}
}

// WithEncodeOnly marks a transform that cannot decode.
func WithEncodeOnly() BrickOption {
	return func(b *Base) {
		b.encodeOnly = true
	}
}

// WithAttachObserver registers fn to run whenever the brick is spliced into
// a pipe (h is the new handle) or out of it (h is nil).
func WithAttachObserver(fn func(h *Handle)) BrickOption {
	return func(b *Base) {
		b.attachObserver = fn
	}
}

// Base carries the state shared by all bricks.
type Base struct {
	id       uuid.UUID
	name     string
	kind     Kind
	settings Form

	observer       func(name string, value any)
	attachObserver func(h *Handle)
	encodeOnly     bool

	mu     sync.Mutex
	title  string
	hidden bool
	handle *Handle
}

func newBase(name string, kind Kind, settings Form, opts []BrickOption) *Base {
	if settings == nil {
		settings = form.New()
	}
	b := &Base{
		id:       uuid.New(),
		name:     name,
		kind:     kind,
		settings: settings,
	}
	for _, opt := range opts {
		opt(b)
	}
	settings.OnChange(b.settingChanged)
	return b
}

func (b *Base) base() *Base {
	return b
}

// ID returns the identity of the brick instance.
func (b *Base) ID() uuid.UUID {
	return b.id
}

// Name returns the brick type name used by factories.
func (b *Base) Name() string {
	return b.name
}

// Kind returns whether the brick is a transform or a display.
func (b *Base) Kind() Kind {
	return b.kind
}

func (b *Base) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.title
}

func (b *Base) SetTitle(title string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.title = title
}

func (b *Base) Hidden() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hidden
}

func (b *Base) SetHidden(hidden bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hidden = hidden
}

func (b *Base) Settings() Form {
	return b.settings
}

// IsValid reports whether all visible settings are valid.
func (b *Base) IsValid() bool {
	return b.settings.IsValid()
}

func (b *Base) Handle() *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

func (b *Base) setHandle(h *Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handle = h
}

func (b *Base) serialize() BrickData {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BrickData{
		Name:     b.name,
		Title:    b.title,
		Hidden:   b.hidden,
		Settings: b.settings.SerializeValues(),
	}
}

func (b *Base) extract(data BrickData) error {
	if data.Name != "" && data.Name != b.name {
		return fmt.Errorf("%w: data of brick %q applied to %q", ErrInvalidBrickData, data.Name, b.name)
	}
	b.mu.Lock()
	b.title = data.Title
	b.hidden = data.Hidden
	b.mu.Unlock()

	if data.Settings != nil {
		if err := b.settings.Extract(data.Settings); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidBrickData, b.name, err)
		}
	}
	return nil
}

func (b *Base) settingChanged(name string, value any) {
	if b.observer != nil {
		b.observer(name, value)
	}
	b.notifySettingsChanged()
}

func (b *Base) notifySettingsChanged() {
	if h := b.Handle(); h != nil {
		h.SettingsChanged()
	}
}
