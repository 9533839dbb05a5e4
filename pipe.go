package cryptii

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cryptii/cryptii-sub001/chain"
	"github.com/google/uuid"
)

const DefaultRunLogLimit = 1000

// Factory creates bricks from serialized data.
type Factory interface {
	Create(data BrickData) (Brick, error)
	Duplicate(b Brick) (Brick, error)
}

// Pipe owns an ordered sequence of bricks and the content of the buckets
// between them, and keeps that content consistent as bricks, settings or
// content change.
//
// All state is guarded by one mutex. Brick operations run on their own
// goroutines without the lock; their results are checked against the live
// state when they return.
type Pipe struct {
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	bricks   []*brickState
	states   map[uuid.UUID]*brickState
	buckets  []bucketSlot
	content  []*chain.Chain
	selected int

	waiters  []*waiter
	failures []error

	history          *History
	historySuspended int

	url     string
	factory Factory
	logger  *slog.Logger
	strict  bool
	runs    *RunLog

	// outbox holds callbacks queued under the lock; unlock runs them.
	outbox []func()

	extMu      sync.RWMutex
	extensions []Extension
}

// PipeOption is a modifier for pipes
type PipeOption func(*Pipe)

// WithExtension returns an option that registers an extension to a pipe
func WithExtension(ext Extension) PipeOption {
	return func(p *Pipe) {
		if err := p.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithLogger sets the logger for propagation events.
func WithLogger(logger *slog.Logger) PipeOption {
	return func(p *Pipe) {
		p.logger = logger
	}
}

// WithFactory sets the factory used by Extract and DuplicateBrick.
func WithFactory(f Factory) PipeOption {
	return func(p *Pipe) {
		p.factory = f
	}
}

// WithHistory configures the undo history. A depth below zero disables it.
func WithHistory(depth, actionLimit int) PipeOption {
	return func(p *Pipe) {
		if depth < 0 {
			p.history = nil
			return
		}
		p.history = NewHistory(depth, actionLimit)
	}
}

// WithStrictErrors makes WaitIdle and Await return InvalidInput failures
// too.
func WithStrictErrors() PipeOption {
	return func(p *Pipe) {
		p.strict = true
	}
}

// WithContext sets the parent of the context brick operations run with.
func WithContext(ctx context.Context) PipeOption {
	return func(p *Pipe) {
		p.cancel()
		p.ctx, p.cancel = context.WithCancel(ctx)
	}
}

// WithRunLogLimit sets how many run records are kept.
func WithRunLogLimit(limit int) PipeOption {
	return func(p *Pipe) {
		p.runs = newRunLog(limit)
	}
}

// New creates an empty pipe with a single empty bucket.
func New(opts ...PipeOption) *Pipe {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipe{
		ctx:     ctx,
		cancel:  cancel,
		states:  make(map[uuid.UUID]*brickState),
		buckets: make([]bucketSlot, 1),
		content: []*chain.Chain{chain.Empty()},
		history: NewHistory(DefaultHistoryDepth, DefaultHistoryActionLimit),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		runs:    newRunLog(DefaultRunLogLimit),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// UseExtension registers an extension to the pipe
func (p *Pipe) UseExtension(ext Extension) error {
	p.extMu.Lock()
	p.extensions = append(p.extensions, ext)
	sort.SliceStable(p.extensions, func(i, j int) bool {
		return p.extensions[i].Order() < p.extensions[j].Order()
	})
	p.extMu.Unlock()

	return ext.Init(p)
}

func (p *Pipe) extensionsSnapshot() []Extension {
	p.extMu.RLock()
	defer p.extMu.RUnlock()
	exts := make([]Extension, len(p.extensions))
	copy(exts, p.extensions)
	return exts
}

// emit queues fn for every extension; it runs after the lock is released.
func (p *Pipe) emit(fn func(Extension)) {
	exts := p.extensionsSnapshot()
	if len(exts) == 0 {
		return
	}
	p.outbox = append(p.outbox, func() {
		for _, ext := range exts {
			fn(ext)
		}
	})
}

// unlock releases the pipe lock and runs the queued callbacks.
func (p *Pipe) unlock() {
	queued := p.outbox
	p.outbox = nil
	p.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

// Bricks returns the bricks in order.
func (p *Pipe) Bricks() []Brick {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Brick, len(p.bricks))
	for i, st := range p.bricks {
		out[i] = st.brick
	}
	return out
}

func (p *Pipe) BrickCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.bricks)
}

// Brick returns the brick at index.
func (p *Pipe) Brick(index int) (Brick, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.bricks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(p.bricks))
	}
	return p.bricks[index].brick, nil
}

// IndexOf returns the index of b, or -1.
func (p *Pipe) IndexOf(b Brick) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexOf(b)
}

func (p *Pipe) indexOf(b Brick) int {
	if b == nil {
		return -1
	}
	return slices.IndexFunc(p.bricks, func(st *brickState) bool {
		return st.brick.ID() == b.ID()
	})
}

// BucketCount returns the number of buckets, always one more than the
// number of transform bricks.
func (p *Pipe) BucketCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.content)
}

// Content returns the content of a bucket.
func (p *Pipe) Content(bucket int) (*chain.Chain, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkBucket(bucket); err != nil {
		return nil, err
	}
	return p.content[bucket], nil
}

// SelectedBucket returns the bucket most recently edited from outside.
func (p *Pipe) SelectedBucket() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selected
}

// BucketIndexForBrick returns the bucket of a display brick or the lower
// bucket of a transform brick.
func (p *Pipe) BucketIndexForBrick(b Brick) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, err := p.stateOf(b)
	if err != nil {
		return 0, err
	}
	return st.bucket, nil
}

// IsBusy reports whether any brick operation is in flight.
func (p *Pipe) IsBusy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy()
}

func (p *Pipe) busy() bool {
	for _, st := range p.bricks {
		if st.busy {
			return true
		}
	}
	return false
}

// IsBrickBusy reports whether an operation of b is in flight.
func (p *Pipe) IsBrickBusy(b Brick) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, err := p.stateOf(b)
	if err != nil {
		return false, err
	}
	return st.busy, nil
}

// SettingsVersion returns how often the settings of b changed while it was
// part of the pipe.
func (p *Pipe) SettingsVersion(b Brick) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, err := p.stateOf(b)
	if err != nil {
		return 0, err
	}
	return st.version, nil
}

// SetDragging flags a brick being dragged by the user interface.
func (p *Pipe) SetDragging(b Brick, dragging bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, err := p.stateOf(b)
	if err != nil {
		return err
	}
	st.dragging = dragging
	return nil
}

// IsDragging reports the dragging flag of b.
func (p *Pipe) IsDragging(b Brick) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, err := p.stateOf(b)
	if err != nil {
		return false, err
	}
	return st.dragging, nil
}

// URL returns the share URL recorded with the pipe.
func (p *Pipe) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Pipe) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// Runs returns the run log.
func (p *Pipe) Runs() *RunLog {
	return p.runs
}

// History returns the undo history, or nil if disabled.
func (p *Pipe) History() *History {
	return p.history
}

func (p *Pipe) stateOf(b Brick) (*brickState, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil brick", ErrBrickNotFound)
	}
	st, ok := p.states[b.ID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrBrickNotFound, b.Name(), b.ID())
	}
	return st, nil
}

func (p *Pipe) stateOfHandle(h *Handle) (*brickState, error) {
	st, err := p.stateOf(h.brick)
	if err != nil {
		return nil, err
	}
	if st.handle != h {
		return nil, fmt.Errorf("%w: stale handle of %s", ErrBrickNotFound, h.brick.Name())
	}
	return st, nil
}

func (p *Pipe) checkBucket(bucket int) error {
	if bucket < 0 || bucket >= len(p.content) {
		return fmt.Errorf("%w: %d of %d", ErrBucketOutOfRange, bucket, len(p.content))
	}
	return nil
}

type waitResult struct {
	content *chain.Chain
	err     error
}

type waiter struct {
	// bucket is the content to deliver, or -1.
	bucket int
	ch     chan waitResult
}

// WaitIdle blocks until no brick operation is in flight. It returns the
// unexpected brick failures collected since the last wait, joined.
func (p *Pipe) WaitIdle(ctx context.Context) error {
	_, err := p.wait(ctx, -1)
	return err
}

// Await blocks until the pipe is idle and returns the content of bucket.
func (p *Pipe) Await(ctx context.Context, bucket int) (*chain.Chain, error) {
	return p.wait(ctx, bucket)
}

func (p *Pipe) wait(ctx context.Context, bucket int) (*chain.Chain, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPipeClosed
	}
	if bucket >= 0 {
		if err := p.checkBucket(bucket); err != nil {
			p.mu.Unlock()
			return nil, err
		}
	}
	if !p.busy() {
		res := p.idleResult(bucket)
		p.mu.Unlock()
		return res.content, res.err
	}
	w := &waiter{bucket: bucket, ch: make(chan waitResult, 1)}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	select {
	case res := <-w.ch:
		return res.content, res.err
	case <-ctx.Done():
		p.mu.Lock()
		p.waiters = removeElement(p.waiters, w)
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (p *Pipe) idleResult(bucket int) waitResult {
	res := waitResult{err: errors.Join(p.failures...)}
	p.failures = nil
	if bucket >= 0 {
		res.content = p.content[bucket]
	}
	return res
}

// settle resolves the waiters once the pipe went idle.
func (p *Pipe) settle() {
	if len(p.waiters) == 0 || p.busy() {
		return
	}
	waiters := p.waiters
	p.waiters = nil
	err := errors.Join(p.failures...)
	p.failures = nil
	for _, w := range waiters {
		res := waitResult{err: err}
		if w.bucket >= 0 {
			res.content = p.content[w.bucket]
		}
		w.ch <- res
	}
}

func (p *Pipe) rejectWaiters(err error) {
	for _, w := range p.waiters {
		w.ch <- waitResult{err: err}
	}
	p.waiters = nil
}

// Close stops accepting work, waits for in-flight brick operations and
// disposes the extensions. Results arriving after Close are discarded.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cancel()
	p.rejectWaiters(ErrPipeClosed)
	p.unlock()

	p.wg.Wait()

	for _, ext := range p.extensionsSnapshot() {
		if err := ext.Dispose(p); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}
	return nil
}

// Describe renders the bucket layout for logs: bucket contents, attached
// bricks, the selection and busy bricks.
func (p *Pipe) Describe() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var sb strings.Builder
	for k, slot := range p.buckets {
		marker := " "
		if k == p.selected {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s[%d] %s\n", marker, k, p.content[k].Describe())
		for i, d := range slot.displays {
			branch := "├─"
			if i == len(slot.displays)-1 && slot.above == nil {
				branch = "└─"
			}
			fmt.Fprintf(&sb, "    %s %s\n", branch, describeState(d))
		}
		if slot.above != nil {
			fmt.Fprintf(&sb, "    └─> %s\n", describeState(slot.above))
		}
	}
	return sb.String()
}

func describeState(st *brickState) string {
	var flags []string
	if st.busy {
		flags = append(flags, "busy")
	}
	if st.transform != nil {
		if st.transform.Reversed() {
			flags = append(flags, "reversed")
		}
		if err := st.transform.LastError(); err != nil {
			flags = append(flags, "error: "+err.Error())
		}
	}
	s := st.brick.Name()
	if title := st.brick.Title(); title != "" {
		s += " \"" + title + "\""
	}
	if len(flags) > 0 {
		s += " (" + strings.Join(flags, ", ") + ")"
	}
	return s
}
