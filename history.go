package cryptii

import "sync"

const (
	DefaultHistoryDepth       = 50
	DefaultHistoryActionLimit = 2
)

type historyEntry struct {
	action string
	state  string
}

// History is a bounded linear undo stack of serialized pipe states.
// Consecutive pushes of the same action beyond the action limit replace
// the top entry, so a burst of typing becomes a single undo step.
type History struct {
	mu          sync.Mutex
	entries     []historyEntry
	index       int
	repeat      int
	depth       int
	actionLimit int
}

// NewHistory creates a history holding at most depth entries.
func NewHistory(depth, actionLimit int) *History {
	if depth < 1 {
		depth = DefaultHistoryDepth
	}
	if actionLimit < 1 {
		actionLimit = DefaultHistoryActionLimit
	}
	return &History{index: -1, depth: depth, actionLimit: actionLimit}
}

// Push records a state. Any redo tail is dropped.
func (h *History) Push(action, state string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = h.entries[:h.index+1]

	if h.index >= 0 && h.entries[h.index].action == action {
		if h.repeat >= h.actionLimit {
			h.entries[h.index].state = state
			return
		}
		h.repeat++
	} else {
		h.repeat = 1
	}

	h.entries = append(h.entries, historyEntry{action: action, state: state})
	if len(h.entries) > h.depth {
		h.entries = h.entries[len(h.entries)-h.depth:]
	}
	h.index = len(h.entries) - 1
}

// Undo moves the cursor back and returns the state there. It returns
// false at the oldest entry.
func (h *History) Undo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index <= 0 {
		return "", false
	}
	h.index--
	h.repeat = 0
	return h.entries[h.index].state, true
}

// Redo moves the cursor forward and returns the state there. It returns
// false at the newest entry.
func (h *History) Redo() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return "", false
	}
	h.index++
	h.repeat = 0
	return h.entries[h.index].state, true
}

// CanUndo reports whether Undo would move the cursor.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index > 0
}

// CanRedo reports whether Redo would move the cursor.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.index < len(h.entries)-1
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.index = -1
	h.repeat = 0
}
