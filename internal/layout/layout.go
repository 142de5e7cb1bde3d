// Package layout owns the responsive shell state: whether the viewport is
// narrow and whether the sidebar is shown.
package layout

import "sync"

// DefaultBreakpoint is the width below which the shell is in mobile mode.
const DefaultBreakpoint = 768

// State is a snapshot of the shell.
type State struct {
	SidebarVisible bool
	IsMobile       bool
	Width          int
}

// Controller is safe for concurrent use. The console drives it from the UI
// loop while desktop toggles may arrive from the signal hub.
type Controller struct {
	mu         sync.Mutex
	breakpoint int
	state      State
	mounted    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithBreakpoint overrides DefaultBreakpoint. Non-positive values are ignored.
func WithBreakpoint(px int) Option {
	return func(c *Controller) {
		if px > 0 {
			c.breakpoint = px
		}
	}
}

// New returns a controller in the initial desktop state with the sidebar shown.
func New(opts ...Option) *Controller {
	c := &Controller{
		breakpoint: DefaultBreakpoint,
		state:      State{SidebarVisible: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breakpoint reports the configured mobile threshold.
func (c *Controller) Breakpoint() int {
	return c.breakpoint
}

// Mount evaluates the initial width. It behaves like Resize except that it
// is idempotent with respect to the first measurement.
func (c *Controller) Mount(width int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = true
	c.resize(width)
	return c.state
}

// Mounted reports whether Mount has been called.
func (c *Controller) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// Resize records a new viewport width. Entering mobile mode hides the
// sidebar; leaving it keeps whatever visibility the sidebar had.
func (c *Controller) Resize(width int) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resize(width)
	return c.state
}

func (c *Controller) resize(width int) {
	c.state.Width = width
	mobile := width < c.breakpoint
	if mobile && !c.state.IsMobile {
		c.state.SidebarVisible = false
	}
	c.state.IsMobile = mobile
}

// Toggle is the hamburger control. It only has an effect in mobile mode.
func (c *Controller) Toggle() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsMobile {
		c.state.SidebarVisible = !c.state.SidebarVisible
	}
	return c.state
}

// DesktopToggle is the external toggle signal. It only has an effect outside
// mobile mode.
func (c *Controller) DesktopToggle() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.IsMobile {
		c.state.SidebarVisible = !c.state.SidebarVisible
	}
	return c.state
}

// Navigate closes an open sidebar in mobile mode after a menu choice.
func (c *Controller) Navigate() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.IsMobile && c.state.SidebarVisible {
		c.state.SidebarVisible = false
	}
	return c.state
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
