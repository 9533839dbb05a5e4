package cryptii

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExtension struct {
	BaseExtension
	order int

	mu       sync.Mutex
	trace    *[]string
	wrapped  []OperationKind
	changes  []int
	splices  int
	errors   []error
	finished int
	disposed bool
}

func newRecordingExtension(name string, order int, trace *[]string) *recordingExtension {
	return &recordingExtension{BaseExtension: NewBaseExtension(name), order: order, trace: trace}
}

func (e *recordingExtension) Order() int {
	return e.order
}

func (e *recordingExtension) Wrap(ctx context.Context, next func() (*chain.Chain, error), op *Operation) (*chain.Chain, error) {
	e.mu.Lock()
	e.wrapped = append(e.wrapped, op.Kind)
	if e.trace != nil && op.Kind == OpTranslate {
		*e.trace = append(*e.trace, e.Name())
	}
	e.mu.Unlock()
	return next()
}

func (e *recordingExtension) OnError(err error, op *Operation, p *Pipe) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errors = append(e.errors, err)
}

func (e *recordingExtension) OnBrickFinished(op *Operation, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finished++
}

func (e *recordingExtension) OnContentChange(bucket int, content *chain.Chain, sender Brick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changes = append(e.changes, bucket)
}

func (e *recordingExtension) OnSplice(index int, removed, inserted []Brick) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.splices++
}

func (e *recordingExtension) Dispose(p *Pipe) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disposed = true
	return nil
}

func TestExtensionHooks(t *testing.T) {
	ext := newRecordingExtension("recorder", 100, nil)
	p := New(WithExtension(ext))

	lower, s := newDisplay(), newShift(3)
	require.NoError(t, p.AddBricks(lower, s))
	lower.edit(t, "abc")
	waitIdle(t, p)
	require.NoError(t, p.Close())

	ext.mu.Lock()
	defer ext.mu.Unlock()
	assert.Equal(t, 1, ext.splices)
	assert.Equal(t, []int{0, 1}, ext.changes)
	assert.Contains(t, ext.wrapped, OpTranslate)
	assert.Contains(t, ext.wrapped, OpView)
	assert.Equal(t, len(ext.wrapped), ext.finished)
	assert.Empty(t, ext.errors)
	assert.True(t, ext.disposed)
}

func TestExtensionsWrapInOrder(t *testing.T) {
	var trace []string
	p := newTestPipe(t,
		WithExtension(newRecordingExtension("late", 200, &trace)),
		WithExtension(newRecordingExtension("early", 10, &trace)),
	)
	require.NoError(t, p.AddBricks(newShift(1)))
	waitIdle(t, p)

	assert.Equal(t, []string{"early", "late"}, trace)
}

func TestExtensionSeesUnexpectedErrorsOnly(t *testing.T) {
	ext := newRecordingExtension("recorder", 100, nil)
	p, lower, s, _ := threeBrickPipe(t, 3, WithExtension(ext))

	s.failWith(chain.InvalidInput("rejected"))
	lower.edit(t, "abc")
	waitIdle(t, p)

	down := errors.New("down")
	s.failWith(down)
	lower.edit(t, "abcd")
	assert.ErrorIs(t, p.WaitIdle(context.Background()), down)

	// hooks run after the pipe lock is released, possibly after the waiter
	require.Eventually(t, func() bool {
		ext.mu.Lock()
		defer ext.mu.Unlock()
		return len(ext.errors) > 0
	}, time.Second, 5*time.Millisecond)
	ext.mu.Lock()
	defer ext.mu.Unlock()
	require.Len(t, ext.errors, 1)
	assert.ErrorIs(t, ext.errors[0], down)
}

type failingInit struct {
	BaseExtension
}

func (failingInit) Init(*Pipe) error {
	return errors.New("no")
}

func TestWithExtensionPanicsOnInitError(t *testing.T) {
	assert.Panics(t, func() {
		New(WithExtension(&failingInit{BaseExtension: NewBaseExtension("failing")}))
	})
}

func TestRunLogLimit(t *testing.T) {
	p, lower, _, _ := threeBrickPipe(t, 1, WithRunLogLimit(3))
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		lower.edit(t, s)
		waitIdle(t, p)
	}

	records := p.Runs().Records()
	require.Len(t, records, 3)
	assert.Less(t, records[0].Seq, records[1].Seq)
	assert.Less(t, records[1].Seq, records[2].Seq)
	assert.Equal(t, 3, p.Runs().Len())
}

func TestRunLogDisabled(t *testing.T) {
	p, lower, _, _ := threeBrickPipe(t, 1, WithRunLogLimit(0))
	lower.edit(t, "a")
	waitIdle(t, p)
	assert.Equal(t, 0, p.Runs().Len())
}
