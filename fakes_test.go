package cryptii

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/cryptii/cryptii-sub001/form"
	"github.com/stretchr/testify/require"
)

// fakeTransform maps text through encode/decode functions. Calls can be
// held at a gate to simulate slow bricks.
type fakeTransform struct {
	*TransformBase
	settings       *form.Form
	encode, decode func(s string, shift int) string

	mu     sync.Mutex
	runs   []bool
	gate   chan struct{}
	err    error
	panics bool
}

func newShift(shift int) *fakeTransform {
	return newFakeTransform("shift", shift, shiftText, func(s string, n int) string { return shiftText(s, -n) })
}

// newConst returns a transform whose output is always out.
func newConst(out string) *fakeTransform {
	fn := func(string, int) string { return out }
	return newFakeTransform("const", 0, fn, fn)
}

func newFakeTransform(name string, shift int, encode, decode func(string, int) string) *fakeTransform {
	t := &fakeTransform{
		settings: form.New(form.Field{Name: "shift", Kind: form.KindNumber, Default: shift, Rules: "min=0,max=25"}),
		encode:   encode,
		decode:   decode,
	}
	t.TransformBase = NewTransformBase(name, t.settings, t)
	return t
}

func shiftText(s string, n int) string {
	return strings.Map(func(r rune) rune {
		if r < 'a' || r > 'z' {
			return r
		}
		return 'a' + ((r-'a'+rune(n))%26+26)%26
	}, s)
}

func (t *fakeTransform) PerformEncode(ctx context.Context, content *chain.Chain) (*chain.Chain, error) {
	return t.run(ctx, content, true)
}

func (t *fakeTransform) PerformDecode(ctx context.Context, content *chain.Chain) (*chain.Chain, error) {
	return t.run(ctx, content, false)
}

func (t *fakeTransform) run(ctx context.Context, content *chain.Chain, isEncode bool) (*chain.Chain, error) {
	t.mu.Lock()
	t.runs = append(t.runs, isEncode)
	gate, err, panics := t.gate, t.err, t.panics
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if panics {
		panic("codec exploded")
	}
	if err != nil {
		return nil, err
	}
	s, err := content.Text()
	if err != nil {
		return nil, err
	}
	fn := t.decode
	if isEncode {
		fn = t.encode
	}
	return chain.FromString(fn(s, t.settings.Int("shift"))), nil
}

// hold makes subsequent calls block until the returned func is called.
func (t *fakeTransform) hold() (release func()) {
	gate := make(chan struct{})
	t.mu.Lock()
	t.gate = gate
	t.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			t.gate = nil
			t.mu.Unlock()
			close(gate)
		})
	}
}

func (t *fakeTransform) failWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

func (t *fakeTransform) explode() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.panics = true
}

// calls returns the directions of all calls so far and forgets them.
func (t *fakeTransform) calls() []bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	runs := t.runs
	t.runs = nil
	return runs
}

// fakeDisplay records the text of every view.
type fakeDisplay struct {
	*DisplayBase

	mu    sync.Mutex
	views []string
}

func newDisplay() *fakeDisplay {
	d := &fakeDisplay{}
	d.DisplayBase = NewDisplayBase("display", nil, d)
	return d
}

func (d *fakeDisplay) Render(_ context.Context, content *chain.Chain) error {
	s, err := content.Text()
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.views = append(d.views, s)
	d.mu.Unlock()
	return nil
}

func (d *fakeDisplay) edit(t *testing.T, s string) {
	t.Helper()
	require.NoError(t, d.Edit(chain.FromString(s)))
}

func (d *fakeDisplay) text() string {
	s, _ := d.Content().Text()
	return s
}

func (d *fakeDisplay) viewCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.views)
}

type fakeFactory struct{}

func (fakeFactory) Create(data BrickData) (Brick, error) {
	var b Brick
	switch data.Name {
	case "shift":
		b = newShift(0)
	case "display":
		b = newDisplay()
	default:
		return nil, ErrUnknownBrickKind
	}
	if err := b.Extract(data); err != nil {
		return nil, err
	}
	return b, nil
}

func (f fakeFactory) Duplicate(b Brick) (Brick, error) {
	return f.Create(b.Serialize())
}

func newTestPipe(t *testing.T, opts ...PipeOption) *Pipe {
	t.Helper()
	p := New(append([]PipeOption{WithFactory(fakeFactory{})}, opts...)...)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func waitIdle(t *testing.T, p *Pipe) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.WaitIdle(ctx))
}

func await(t *testing.T, p *Pipe, bucket int) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := p.Await(ctx, bucket)
	require.NoError(t, err)
	s, err := c.Text()
	require.NoError(t, err)
	return s
}

// contentOf returns the text of a bucket without waiting.
func contentOf(t *testing.T, p *Pipe, bucket int) string {
	t.Helper()
	c, err := p.Content(bucket)
	require.NoError(t, err)
	s, err := c.Text()
	require.NoError(t, err)
	return s
}
