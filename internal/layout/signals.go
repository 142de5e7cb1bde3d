package layout

import (
	"errors"
	"sync"
)

// ErrNoListener is returned by Publish when nothing is subscribed.
var ErrNoListener = errors.New("layout: no listener for signal")

// Signal names a cross-component request.
type Signal string

// SignalToggleSidebar asks the shell to flip the desktop sidebar.
const SignalToggleSidebar Signal = "toggle-sidebar"

// Signals is a typed publish/subscribe hub replacing ambient global events.
type Signals struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Signal]map[int]func()
}

// NewSignals returns an empty hub.
func NewSignals() *Signals {
	return &Signals{subs: make(map[Signal]map[int]func())}
}

// Subscribe registers fn for sig and returns its unsubscribe function, which
// is safe to call more than once.
func (h *Signals) Subscribe(sig Signal, fn func()) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	if h.subs[sig] == nil {
		h.subs[sig] = make(map[int]func())
	}
	h.subs[sig][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sig], id)
		})
	}
}

// Publish calls every listener of sig outside the hub lock.
func (h *Signals) Publish(sig Signal) error {
	h.mu.RLock()
	fns := make([]func(), 0, len(h.subs[sig]))
	for _, fn := range h.subs[sig] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	if len(fns) == 0 {
		return ErrNoListener
	}
	for _, fn := range fns {
		fn()
	}
	return nil
}

// Bind routes SignalToggleSidebar to c.DesktopToggle.
func (h *Signals) Bind(c *Controller) func() {
	return h.Subscribe(SignalToggleSidebar, func() { c.DesktopToggle() })
}
