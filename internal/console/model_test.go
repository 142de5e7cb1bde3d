package console

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"coopconsole/internal/api"
	"coopconsole/internal/fetch"
	"coopconsole/internal/guard"
	jwttoken "coopconsole/internal/jwt_token"
	"coopconsole/internal/layout"
	"coopconsole/internal/models"
	"coopconsole/internal/platform/metrics"
	"coopconsole/internal/session"
	"coopconsole/internal/storage"
	dErrors "coopconsole/pkg/domain-errors"
)

const testKey = "console-test-key"

type mockSignIn struct {
	mock.Mock
}

func (m *mockSignIn) SignIn(ctx context.Context, creds api.Credentials) (models.Identity, models.Credential, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(models.Identity), args.Get(1).(models.Credential), args.Error(2)
}

type stubBackend struct {
	mu            sync.Mutex
	summary       models.DashboardSummary
	associations  []models.Association
	members       []models.Member
	membersErr    error
	notifications []models.NotificationLogEntry
	lastScope     string
}

func (b *stubBackend) CooperativeDashboard(_ context.Context, cooperativeID string) (models.DashboardSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastScope = cooperativeID
	return b.summary, nil
}

func (b *stubBackend) AssociationDashboard(_ context.Context, associationID string) (models.DashboardSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastScope = associationID
	return b.summary, nil
}

func (b *stubBackend) Associations(_ context.Context, cooperativeID string) ([]models.Association, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastScope = cooperativeID
	return b.associations, nil
}

func (b *stubBackend) Members(_ context.Context, associationID string) ([]models.Member, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastScope = associationID
	return b.members, b.membersErr
}

func (b *stubBackend) NotificationLog(context.Context) ([]models.NotificationLogEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notifications, nil
}

func (b *stubBackend) failMembers(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.membersErr = err
}

type ConsoleSuite struct {
	suite.Suite
	storage *storage.Memory
	store   *session.Store
	signer  *jwttoken.Signer
	signIn  *mockSignIn
	backend *stubBackend
	metrics *metrics.Metrics
	layout  *layout.Controller
	signals *layout.Signals
	models  []Model
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.storage = storage.NewMemory()
	s.store = session.New(s.storage, jwttoken.NewDecoder(jwttoken.WithVerifyKey(testKey)), session.WithLogger(logger))
	s.signer = jwttoken.NewSigner(testKey, nil)
	s.signIn = new(mockSignIn)
	s.backend = &stubBackend{
		summary: models.DashboardSummary{TotalAssociations: 7, TotalMembers: 42, RepaymentRate: 93.5},
		members: []models.Member{{ID: "m-1", Name: "Ama Owusu", PhoneNumber: "+233200000001"}},
		associations: []models.Association{
			{ID: "a-1", Name: "Kumasi Weavers", Location: "Kumasi", MemberCount: 12},
		},
		notifications: []models.NotificationLogEntry{{ID: "n-1", Recipient: "Ama Owusu", Subject: "Repayment due"}},
	}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.layout = layout.New(layout.WithBreakpoint(80))
	s.signals = layout.NewSignals()
	s.models = nil
}

func (s *ConsoleSuite) TearDownTest() {
	for _, m := range s.models {
		m.Close()
	}
}

func (s *ConsoleSuite) newModel(start string) Model {
	m := New(Deps{
		Session: s.store,
		SignIn:  s.signIn,
		Screens: fetch.NewScreens(s.backend, s.store, fetch.WithMetrics(s.metrics)),
		Layout:  s.layout,
		Signals: s.signals,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),

		StartPath: start,
	})
	s.models = append(s.models, m)
	return m
}

// start builds a model on a wide terminal and settles restoration.
func (s *ConsoleSuite) start(path string) (Model, tea.Cmd) {
	m := s.newModel(path)
	m, _ = s.update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	s.store.Restore(context.Background())
	return s.update(m, restoredMsg{})
}

func (s *ConsoleSuite) update(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	s.Require().True(ok)
	return out, cmd
}

// settle runs a load command and feeds its result back.
func (s *ConsoleSuite) settle(m Model, cmd tea.Cmd) Model {
	s.Require().NotNil(cmd)
	msg := cmd()
	loaded, ok := msg.(loadedMsg)
	s.Require().True(ok, "expected a load result, got %T", msg)
	s.True(loaded.applied)
	m, _ = s.update(m, msg)
	return m
}

func (s *ConsoleSuite) persist(claims map[string]any) {
	token, err := s.signer.Issue(claims, time.Hour)
	s.Require().NoError(err)
	s.Require().NoError(s.storage.Set(storage.KeyAuthToken, token))
}

func coopClaims() map[string]any {
	return map[string]any{
		"id": "u-1", "role": "COOPERATIVE_ADMIN",
		"firstName": "Kwame", "lastName": "Asante", "cooperativeId": "coop-1",
	}
}

func associationClaims() map[string]any {
	return map[string]any{
		"id": "u-2", "role": "ASSOCIATION_ADMIN",
		"firstName": "Amina", "email": "amina@example.org", "associationId": "assoc-9",
	}
}

func associationIdentity() models.Identity {
	return models.Identity{
		ID: "u-2", Role: models.RoleAssociationAdmin,
		FirstName: "Amina", Email: "amina@example.org", AssociationID: "assoc-9",
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (s *ConsoleSuite) TestWaitsWhileRestoring() {
	m := s.newModel(guard.PathMembers)
	s.Contains(m.View(), "Restoring session")

	m, cmd := s.update(m, sessionChangedMsg{})
	s.True(m.waiting)
	s.Nil(m.current, "nothing is shown, not even sign-in, before restoration settles")
	s.NotNil(cmd)
}

func (s *ConsoleSuite) TestRestoredSessionLandsOnHome() {
	s.persist(coopClaims())

	m, cmd := s.start("")
	s.False(m.waiting)
	s.Equal(guard.PathCooperativeDashboard, m.current.path)

	m = s.settle(m, cmd)
	view := m.View()
	s.Contains(view, "Kwame Asante")
	s.Contains(view, "42")
	s.Contains(view, "Repayment due")
	s.Equal("coop-1", s.backend.lastScope)
}

func (s *ConsoleSuite) TestSignedInOperatorAskingForSignInGoesHome() {
	s.persist(associationClaims())

	m, _ := s.start(guard.PathSignIn)
	s.Equal(guard.PathAssociationDashboard, m.current.path)
}

func (s *ConsoleSuite) TestWrongRoleGoesToOwnHome() {
	s.persist(associationClaims())

	m, _ := s.start(guard.PathAssociations)
	s.Equal(guard.PathAssociationDashboard, m.current.path)
}

func (s *ConsoleSuite) TestSignInReturnsToRequestedView() {
	m, _ := s.start(guard.PathMembers)
	s.Equal(guard.PathSignIn, m.current.path)
	s.Equal(guard.PathMembers, m.returnTo)

	creds := api.Credentials{Identifier: "amina@example.org", Password: "secret"}
	credential := models.Credential{Token: "tok-assoc", AssociationID: "assoc-9"}
	s.signIn.On("SignIn", mock.Anything, creds).Return(associationIdentity(), credential, nil).Once()

	m, _ = s.update(m, runes("amina@example.org"))
	m, _ = s.update(m, tea.KeyMsg{Type: tea.KeyEnter})
	s.Equal(fieldPassword, m.form.focused)
	m, _ = s.update(m, runes("secret"))
	m, cmd := s.update(m, tea.KeyMsg{Type: tea.KeyEnter})
	s.True(m.form.submitting)
	s.Require().NotNil(cmd)

	m, cmd = s.update(m, cmd())
	s.Equal(guard.PathMembers, m.current.path)
	s.Empty(m.returnTo)
	s.Equal("tok-assoc", s.store.Token())

	m = s.settle(m, cmd)
	s.Contains(m.View(), "Ama Owusu")
	s.Equal("assoc-9", s.backend.lastScope)
	s.signIn.AssertExpectations(s.T())
}

func (s *ConsoleSuite) TestRejectedSignInStaysOnForm() {
	m, _ := s.start("")
	const message = "Invalid credentials. Check your phone number or email and password."
	rejection := dErrors.New(dErrors.CodeBadCredentials, message)
	s.signIn.On("SignIn", mock.Anything, mock.Anything).
		Return(models.Identity{}, models.Credential{}, rejection).Once()

	m, _ = s.update(m, runes("0240000000"))
	m, _ = s.update(m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = s.update(m, runes("wrong"))
	m, cmd := s.update(m, tea.KeyMsg{Type: tea.KeyEnter})
	s.Require().NotNil(cmd)
	m, _ = s.update(m, cmd())

	s.Equal(guard.PathSignIn, m.current.path)
	s.False(m.form.submitting)
	s.Equal(message, m.form.err)
	s.Empty(m.form.inputs[fieldPassword].Value())
	s.Equal("0240000000", m.form.inputs[fieldIdentifier].Value())
	s.Nil(s.store.CurrentUser())
	s.Contains(m.View(), "Invalid credentials")
}

func (s *ConsoleSuite) TestBlankFormIsNotSent() {
	m, _ := s.start("")
	m, _ = s.update(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, cmd := s.update(m, tea.KeyMsg{Type: tea.KeyEnter})

	s.Nil(cmd)
	s.NotEmpty(m.form.err)
	s.signIn.AssertNotCalled(s.T(), "SignIn", mock.Anything, mock.Anything)
}

func (s *ConsoleSuite) TestLogout() {
	s.persist(coopClaims())
	m, _ := s.start(guard.PathAssociations)
	s.Equal(guard.PathAssociations, m.current.path)

	m, _ = s.update(m, runes("L"))
	s.Equal(guard.PathSignIn, m.current.path)
	s.Empty(m.returnTo, "an explicit logout does not remember the view")
	s.Nil(s.store.CurrentUser())
	_, ok, err := s.storage.Get(storage.KeyAuthToken)
	s.NoError(err)
	s.False(ok)
}

func (s *ConsoleSuite) TestForcedLogoutRemembersView() {
	s.persist(associationClaims())
	m, _ := s.start(guard.PathMembers)
	s.Equal(guard.PathMembers, m.current.path)
	res := m.current.res

	s.Require().NoError(s.store.Logout())
	m, _ = s.update(m, sessionChangedMsg{})

	s.Equal(guard.PathSignIn, m.current.path)
	s.Equal(guard.PathMembers, m.returnTo)
	members, ok := res.(*fetch.Resource[[]models.Member])
	s.Require().True(ok)
	s.True(members.Closed())
}

func (s *ConsoleSuite) TestFailedLoadOffersRetry() {
	s.persist(associationClaims())
	s.backend.failMembers(dErrors.New(dErrors.CodeUnavailable, "The service is unavailable."))

	m, cmd := s.start(guard.PathMembers)
	m = s.settle(m, cmd)
	view := m.View()
	s.Contains(view, "The service is unavailable.")
	s.Contains(view, "Press r to retry")
	s.NotContains(view, "Ama Owusu")

	s.backend.failMembers(nil)
	m, cmd = s.update(m, runes("r"))
	m = s.settle(m, cmd)
	s.Contains(m.View(), "Ama Owusu")
}

func (s *ConsoleSuite) TestLateLoadIsDiscarded() {
	s.persist(associationClaims())
	m, dashboardLoad := s.start("")
	s.Equal(guard.PathAssociationDashboard, m.current.path)

	m, membersLoad := s.update(m, runes("2"))
	s.Equal(guard.PathMembers, m.current.path)

	late, ok := dashboardLoad().(loadedMsg)
	s.Require().True(ok)
	s.False(late.applied)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.DiscardedLoads))

	m = s.settle(m, membersLoad)
	s.Contains(m.View(), "Ama Owusu")
}

func (s *ConsoleSuite) TestNarrowTerminalCollapsesSidebar() {
	s.persist(associationClaims())
	m, _ := s.start("")
	s.True(s.layout.State().SidebarVisible)

	m, _ = s.update(m, tea.WindowSizeMsg{Width: 60, Height: 30})
	state := s.layout.State()
	s.True(state.IsMobile)
	s.False(state.SidebarVisible)
	s.Contains(m.View(), "☰")

	m, _ = s.update(m, runes("m"))
	s.True(s.layout.State().SidebarVisible)
	s.Contains(m.View(), "Members")

	m, _ = s.update(m, runes("2"))
	s.Equal(guard.PathMembers, m.current.path)
	s.False(s.layout.State().SidebarVisible, "choosing a view closes the menu")

	m, _ = s.update(m, tea.WindowSizeMsg{Width: 120, Height: 30})
	s.False(s.layout.State().SidebarVisible, "widening does not reopen it")
}

func (s *ConsoleSuite) TestHamburgerIgnoredOnWideTerminal() {
	s.persist(coopClaims())
	m, _ := s.start("")

	s.update(m, runes("m"))
	s.True(s.layout.State().SidebarVisible)
}

func (s *ConsoleSuite) TestSidebarKeyUsesSignal() {
	s.persist(coopClaims())
	m, _ := s.start("")

	m, _ = s.update(m, runes("b"))
	s.False(s.layout.State().SidebarVisible)
	m, _ = s.update(m, tea.KeyMsg{Type: tea.KeyCtrlB})
	s.True(s.layout.State().SidebarVisible)
	s.Empty(m.notice)
}

func (s *ConsoleSuite) TestSidebarSignalFollowsChromeLifetime() {
	s.persist(coopClaims())
	m, _ := s.start("")
	s.Require().NoError(s.signals.Publish(layout.SignalToggleSidebar))
	s.False(s.layout.State().SidebarVisible)

	m.Close()
	s.ErrorIs(s.signals.Publish(layout.SignalToggleSidebar), layout.ErrNoListener)

	m, _ = s.update(m, runes("b"))
	s.False(s.layout.State().SidebarVisible)
	s.NotEmpty(m.notice)
	s.Contains(m.View(), m.notice)
}

func (s *ConsoleSuite) TestProfileAndUnknownViews() {
	s.persist(coopClaims())
	m, cmd := s.start(guard.PathProfile)
	s.Nil(cmd)
	view := m.View()
	s.Contains(view, "coop-1")
	s.Contains(view, "Session ends")

	next, _ := m.navigate("/nowhere")
	s.Contains(next.View(), "Not found")
}

func (s *ConsoleSuite) TestQuit() {
	m := s.newModel("")
	_, cmd := s.update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	s.Require().NotNil(cmd)
	s.Equal(tea.Quit(), cmd())
}

func TestSessionEventsCoalesce(t *testing.T) {
	store := session.New(storage.NewMemory(), jwttoken.NewDecoder())
	m := New(Deps{Session: store})
	defer m.Close()

	store.Restore(context.Background())
	_ = store.Logout()

	msg := listenForEvent(m.events)()
	if _, ok := msg.(sessionChangedMsg); !ok {
		t.Fatalf("expected sessionChangedMsg, got %T", msg)
	}
	select {
	case extra := <-m.events:
		t.Fatalf("expected a single pending event, got %v", extra)
	default:
	}
}
