// Package console is the terminal admin console: sign-in, the guarded
// screens of each role, and the responsive chrome around them.
//
// The bubbletea loop is the only goroutine that touches Model. Backend calls
// run as tea.Cmds and come back as messages; session changes made elsewhere
// (a rejected credential, for instance) arrive through a subscription.
package console

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"coopconsole/internal/api"
	"coopconsole/internal/fetch"
	"coopconsole/internal/guard"
	"coopconsole/internal/layout"
	"coopconsole/internal/models"
	"coopconsole/internal/session"
)

// SignInClient exchanges credentials for a session. *api.Client satisfies it.
type SignInClient interface {
	SignIn(ctx context.Context, creds api.Credentials) (models.Identity, models.Credential, error)
}

// Deps wires the console to the rest of the process.
type Deps struct {
	Context context.Context
	Session *session.Store
	SignIn  SignInClient
	Screens *fetch.Screens
	Layout  *layout.Controller
	Signals *layout.Signals
	Routes  guard.Routes
	Logger  *slog.Logger

	// StartPath is the first view requested. Empty means the role's home.
	StartPath string
}

// restoredMsg reports that session restoration settled.
type restoredMsg struct{}

// sessionChangedMsg reports a login or logout, from any goroutine.
type sessionChangedMsg struct{}

// signInResultMsg carries the outcome of a sign-in request.
type signInResultMsg struct {
	identity   models.Identity
	credential models.Credential
	err        error
}

// loadedMsg reports that a screen resource resolved (or was discarded).
type loadedMsg struct {
	path    string
	applied bool
}

// loadable is the part of fetch.Resource the model drives.
type loadable interface {
	Begin() fetch.Ticket
	Run(ctx context.Context, t fetch.Ticket) bool
	Close()
}

// screen is the view currently rendered together with its data resource.
// Static views have no resource.
type screen struct {
	path string
	res  loadable
}

// Model is the top-level bubbletea model.
type Model struct {
	deps   Deps
	keys   KeyMap
	styles styles
	help   help.Model

	spinner spinner.Model
	form    signInForm

	width  int
	height int

	// requested is what the operator (or startup) asked for; the guard
	// decides what is actually shown.
	requested string
	returnTo  string
	waiting   bool
	current   *screen

	menuCursor int
	notice     string

	events      chan tea.Msg
	unsubscribe func()
	unbind      func()
}

// New builds the console model. Call Close when the program exits.
func New(deps Deps) Model {
	if deps.Context == nil {
		deps.Context = context.Background()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Routes == nil {
		deps.Routes = guard.ConsoleRoutes()
	}
	if deps.Layout == nil {
		deps.Layout = layout.New()
	}
	if deps.Signals == nil {
		deps.Signals = layout.NewSignals()
	}

	model := Model{
		deps:      deps,
		keys:      DefaultKeyMap,
		styles:    newStyles(DefaultTheme),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		form:      newSignInForm(),
		requested: deps.StartPath,
		waiting:   true,
		events:    make(chan tea.Msg, 1),
	}

	// The chrome owns the sidebar signal for as long as it is mounted.
	model.unbind = deps.Signals.Bind(deps.Layout)

	events := model.events
	model.unsubscribe = deps.Session.Subscribe(func(session.Snapshot) {
		// One pending notice is enough: the handler re-reads the store.
		select {
		case events <- sessionChangedMsg{}:
		default:
		}
	})
	return model
}

// Close drops the session subscription and the sidebar signal binding.
func (model Model) Close() {
	if model.unsubscribe != nil {
		model.unsubscribe()
	}
	if model.unbind != nil {
		model.unbind()
	}
}

// Init implements tea.Model. It starts session restoration, the spinner
// and the session event listener.
func (model Model) Init() tea.Cmd {
	return tea.Batch(
		model.restore(),
		model.spinner.Tick,
		listenForEvent(model.events),
	)
}

func (model Model) restore() tea.Cmd {
	store, ctx := model.deps.Session, model.deps.Context
	return func() tea.Msg {
		store.Restore(ctx)
		return restoredMsg{}
	}
}

func listenForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.help.Width = message.Width
		if model.deps.Layout.Mounted() {
			model.deps.Layout.Resize(message.Width)
		} else {
			model.deps.Layout.Mount(message.Width)
		}
		return model, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(message)
		return model, cmd

	case restoredMsg:
		return model.navigate(model.requested)

	case sessionChangedMsg:
		next, cmd := model.navigate(model.requested)
		return next, tea.Batch(cmd, listenForEvent(model.events))

	case signInResultMsg:
		return model.handleSignInResult(message)

	case loadedMsg:
		// The resource already holds the result; the message only
		// triggers a re-render.
		return model, nil

	case tea.KeyMsg:
		if key.Matches(message, quitOnly) {
			return model, tea.Quit
		}
		if model.onSignIn() {
			return model.handleSignInKeys(message)
		}
		return model.handleKeys(message)
	}
	return model, nil
}

func (model Model) onSignIn() bool {
	return !model.waiting && model.current != nil && model.current.path == guard.PathSignIn
}

// guardState reads the session the way the guard consumes it.
func (model Model) guardState() guard.State {
	snap := model.deps.Session.Current()
	return guard.State{
		Loading:       snap.Loading,
		Identity:      snap.Identity,
		HasCredential: snap.HasCredential,
	}
}

// navigate asks the guard about path and acts on its decision.
func (model Model) navigate(path string) (Model, tea.Cmd) {
	model.requested = path
	state := model.guardState()
	if state.Identity != nil && (path == "" || path == guard.PathSignIn) {
		path = guard.HomePath(state.Identity.Role)
	}

	// A redirect lands on a guarded path too, so follow a bounded chain.
	for range 3 {
		decision := guard.Decide(state, model.deps.Routes.Request(path))
		switch decision.Kind {
		case guard.Wait:
			model.waiting = true
			return model, nil

		case guard.Redirect:
			if decision.Path == guard.PathSignIn {
				if decision.ReturnTo != "" {
					model.returnTo = decision.ReturnTo
				}
				model.waiting = false
				return model.show(guard.PathSignIn)
			}
			path = decision.Path
			model.requested = path

		case guard.Render:
			model.waiting = false
			return model.show(decision.Path)
		}
	}
	model.deps.Logger.Warn("navigation did not settle", "path", path)
	model.waiting = false
	return model.show(guard.PathSignIn)
}

// show switches the rendered view, tearing down the previous screen's
// resource. Showing the current view again is a no-op.
func (model Model) show(path string) (Model, tea.Cmd) {
	if model.current != nil && model.current.path == path {
		return model, nil
	}
	if model.current != nil && model.current.res != nil {
		model.current.res.Close()
	}
	model.current = &screen{path: path, res: model.openResource(path)}
	model.notice = ""
	model.menuCursor = model.menuIndex(path)
	if path == guard.PathSignIn {
		model.form = newSignInForm()
		cmd := model.form.focus()
		return model, cmd
	}
	return model, model.load()
}

func (model Model) openResource(path string) loadable {
	screens := model.deps.Screens
	if screens == nil {
		return nil
	}
	switch path {
	case guard.PathCooperativeDashboard:
		return screens.CooperativeDashboard()
	case guard.PathAssociationDashboard:
		return screens.AssociationDashboard()
	case guard.PathAssociations:
		return screens.Associations()
	case guard.PathMembers:
		return screens.Members()
	case guard.PathNotifications:
		return screens.NotificationLog()
	default:
		return nil
	}
}

// load starts a load of the current screen. Begin runs here, on the UI
// goroutine, so the loading state renders before the request leaves.
func (model Model) load() tea.Cmd {
	if model.current == nil || model.current.res == nil {
		return nil
	}
	res, path, ctx := model.current.res, model.current.path, model.deps.Context
	ticket := res.Begin()
	return func() tea.Msg {
		return loadedMsg{path: path, applied: res.Run(ctx, ticket)}
	}
}

func (model Model) handleKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	lay := model.deps.Layout
	menu := model.menu()

	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Help):
		model.help.ShowAll = !model.help.ShowAll

	case key.Matches(message, model.keys.Hamburger):
		lay.Toggle()

	case key.Matches(message, model.keys.Sidebar):
		if err := model.deps.Signals.Publish(layout.SignalToggleSidebar); err != nil {
			if errors.Is(err, layout.ErrNoListener) {
				model.deps.Logger.Warn("sidebar toggle dropped", "error", err)
				model.notice = "Sidebar toggle is not connected."
			}
		}

	case key.Matches(message, model.keys.Retry):
		return model, model.load()

	case key.Matches(message, model.keys.Logout):
		if err := model.deps.Session.Logout(); err != nil {
			model.deps.Logger.Warn("logout left a stored credential behind", "error", err)
		}
		model.returnTo = ""
		return model.navigate(guard.PathSignIn)

	case key.Matches(message, model.keys.Up):
		if model.menuCursor > 0 {
			model.menuCursor--
		}

	case key.Matches(message, model.keys.Down):
		if model.menuCursor < len(menu)-1 {
			model.menuCursor++
		}

	case key.Matches(message, model.keys.Select):
		if model.menuCursor < len(menu) {
			return model.choose(menu[model.menuCursor].Path)
		}

	case key.Matches(message, model.keys.Jump):
		idx := int(message.String()[0] - '1')
		if idx >= 0 && idx < len(menu) {
			return model.choose(menu[idx].Path)
		}
	}
	return model, nil
}

// choose is a menu selection: navigate, then let the layout dismiss the
// menu on narrow terminals.
func (model Model) choose(path string) (tea.Model, tea.Cmd) {
	next, cmd := model.navigate(path)
	next.deps.Layout.Navigate()
	return next, cmd
}

func (model Model) handleSignInResult(message signInResultMsg) (tea.Model, tea.Cmd) {
	model.form.submitting = false
	if message.err != nil {
		model.form.fail(message.err)
		return model, nil
	}
	if err := model.deps.Session.Login(message.identity, message.credential); err != nil {
		model.form.fail(err)
		return model, nil
	}
	dest := guard.PostLogin(message.identity, model.returnTo, model.deps.Routes)
	model.returnTo = ""
	return model.navigate(dest)
}

// menuItem is a sidebar entry.
type menuItem struct {
	Label string
	Path  string
}

func menuFor(role models.Role) []menuItem {
	switch role {
	case models.RoleCooperativeAdmin:
		return []menuItem{
			{"Dashboard", guard.PathCooperativeDashboard},
			{"Associations", guard.PathAssociations},
			{"Notifications", guard.PathNotifications},
			{"Profile", guard.PathProfile},
		}
	case models.RoleAssociationAdmin:
		return []menuItem{
			{"Dashboard", guard.PathAssociationDashboard},
			{"Members", guard.PathMembers},
			{"Notifications", guard.PathNotifications},
			{"Profile", guard.PathProfile},
		}
	default:
		return nil
	}
}

func (model Model) menu() []menuItem {
	if user := model.deps.Session.CurrentUser(); user != nil {
		return menuFor(user.Role)
	}
	return nil
}

func (model Model) menuIndex(path string) int {
	for i, item := range model.menu() {
		if item.Path == path {
			return i
		}
	}
	return 0
}
