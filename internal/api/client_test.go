package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	jwttoken "coopconsole/internal/jwt_token"
	"coopconsole/internal/models"
	"coopconsole/internal/platform/metrics"
	"coopconsole/internal/session"
	"coopconsole/internal/storage"
	dErrors "coopconsole/pkg/domain-errors"
	"coopconsole/pkg/platform/circuit"
	"coopconsole/pkg/testutil/fakebackend"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

var (
	coopAdmin = map[string]any{
		"id":            "u-1",
		"role":          "cooperative_admin",
		"firstName":     "Jane",
		"lastName":      "Mwangi",
		"email":         "jane@coop.test",
		"cooperativeId": "c-1",
	}
	assocAdmin = map[string]any{
		"_id":           "u-2",
		"userRole":      "Association Admin",
		"first_name":    "Omar",
		"phone_number":  "+254700000002",
		"associationId": "a-1",
	}
)

type ClientSuite struct {
	suite.Suite
	backend *fakebackend.Backend
	metrics *metrics.Metrics
	ctx     context.Context
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.backend = fakebackend.New(s.T())
	s.backend.AddAccount(fakebackend.Account{Identifier: "jane@coop.test", Password: "pw", User: coopAdmin})
	s.backend.AddAccount(fakebackend.Account{Identifier: "+254700000002", Password: "pw", User: assocAdmin})
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.ctx = context.Background()
}

func (s *ClientSuite) client(tokens TokenSource, opts ...Option) *Client {
	base := []Option{
		WithMetrics(s.metrics),
		WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	}
	c, err := New(s.backend.URL(), tokens, append(base, opts...)...)
	s.Require().NoError(err)
	return c
}

func (s *ClientSuite) token(claims map[string]any) staticToken {
	return staticToken(s.backend.Token(claims, time.Hour))
}

func (s *ClientSuite) TestSignInByEmail() {
	identity, credential, err := s.client(nil).SignIn(s.ctx, Credentials{Identifier: "jane@coop.test", Password: "pw"})
	s.Require().NoError(err)

	s.Equal(models.RoleCooperativeAdmin, identity.Role)
	s.Equal("Jane Mwangi", identity.DisplayName())
	s.Equal("c-1", identity.CooperativeID)
	s.NotEmpty(credential.Token)
	s.Equal("c-1", credential.CooperativeID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SignIns))
	s.Empty(s.backend.LastHeader("/auth/login").Get("Authorization"), "sign-in is unauthenticated")
}

func (s *ClientSuite) TestSignInByPhoneWithDriftedRole() {
	identity, credential, err := s.client(nil).SignIn(s.ctx, Credentials{Identifier: " +254700000002 ", Password: "pw"})
	s.Require().NoError(err)

	s.Equal(models.RoleAssociationAdmin, identity.Role)
	s.Equal("u-2", identity.ID)
	s.Equal("a-1", credential.AssociationID)
}

func (s *ClientSuite) TestSignInRejected() {
	c := s.client(nil)

	for name, creds := range map[string]Credentials{
		"wrong password": {Identifier: "jane@coop.test", Password: "nope"},
		"unknown user":   {Identifier: "who@coop.test", Password: "pw"},
	} {
		s.Run(name, func() {
			_, _, err := c.SignIn(s.ctx, creds)
			s.True(dErrors.HasCode(err, dErrors.CodeBadCredentials), "got %v", err)
			s.Contains(dErrors.UserMessage(err), "Invalid credentials")
		})
	}
	s.Equal(2.0, testutil.ToFloat64(s.metrics.SignInFailure))

	s.Run("blank form never reaches the backend", func() {
		calls := s.backend.Calls("/auth/login")
		_, _, err := c.SignIn(s.ctx, Credentials{Identifier: "  ", Password: "pw"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadCredentials))
		s.Equal(calls, s.backend.Calls("/auth/login"))
	})

	s.Run("forbidden is a credential problem too", func() {
		s.backend.Fail("/auth/login", http.StatusForbidden)
		defer s.backend.Recover("/auth/login")
		_, _, err := c.SignIn(s.ctx, Credentials{Identifier: "jane@coop.test", Password: "pw"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadCredentials))
	})

	s.Run("outage is not a credential problem", func() {
		s.backend.Fail("/auth/login", http.StatusServiceUnavailable)
		defer s.backend.Recover("/auth/login")
		_, _, err := c.SignIn(s.ctx, Credentials{Identifier: "jane@coop.test", Password: "pw"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ClientSuite) TestSignInWithoutConsoleRole() {
	s.backend.AddAccount(fakebackend.Account{
		Identifier: "member@coop.test",
		Password:   "pw",
		User:       map[string]any{"id": "u-9", "role": "MEMBER"},
	})
	_, _, err := s.client(nil).SignIn(s.ctx, Credentials{Identifier: "member@coop.test", Password: "pw"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *ClientSuite) TestAuthenticatedCallsCarryBearerAndRequestID() {
	tok := s.token(coopAdmin)
	_, err := s.client(tok).CooperativeDashboard(s.ctx, "c-1")
	s.Require().NoError(err)

	h := s.backend.LastHeader("/cooperatives/c-1/dashboard")
	s.Equal("Bearer "+string(tok), h.Get("Authorization"))
	s.Len(h.Get(HeaderRequestID), 36)
}

func (s *ClientSuite) TestCooperativeDashboardNormalized() {
	got, err := s.client(s.token(coopAdmin)).CooperativeDashboard(s.ctx, "c-1")
	s.Require().NoError(err)

	s.Equal(3, got.TotalAssociations)
	s.Equal(42, got.TotalMembers)
	s.Equal(7, got.ActiveLoans)
	s.Equal(2, got.PendingLoans)
	s.InDelta(12345.0, got.TotalSavings, 1e-9)
	s.InDelta(15000.5, got.TotalLoanAmount, 1e-9)
	s.InDelta(95.0, got.RepaymentRate, 1e-9)
	s.Equal([]models.MonthlyPoint{{Month: "Jan", Value: 10}, {Month: "Feb", Value: 14}, {Month: "Mar", Value: 18}}, got.MonthlyGrowth)
}

func (s *ClientSuite) TestAssociationScreens() {
	c := s.client(s.token(assocAdmin))

	dash, err := c.AssociationDashboard(s.ctx, "a-1")
	s.Require().NoError(err)
	s.Equal(12, dash.TotalMembers)
	s.InDelta(88.5, dash.RepaymentRate, 1e-9)

	members, err := c.Members(s.ctx, "a-1")
	s.Require().NoError(err)
	s.Require().Len(members, 4)
	s.Equal("Peter Otieno", members[1].Name)
	s.InDelta(350.75, members[1].Savings, 1e-9)
	s.Equal("Grace Wanjiru", members[2].Name)
	s.Equal("Secretary", members[2].Role)
	s.Equal(models.Member{Role: "Member", LoanStatus: "No Loan"}, members[3])

	logs, err := c.NotificationLog(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(logs, 3)
	s.Equal("+254700000001", logs[1].Recipient)
	s.Equal("EMAIL", logs[1].Channel)
}

func (s *ClientSuite) TestAssociationsList() {
	list, err := s.client(s.token(coopAdmin)).Associations(s.ctx, "c-1")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("a-2", list[1].ID)
	s.Equal(3, list[1].MemberCount)
	s.Equal(5, list[2].MemberCount)
}

func (s *ClientSuite) TestNonArrayListIsEmpty() {
	s.backend.SetPayload("/associations/a-1/members", `{"data":{"members":"none"}}`)
	members, err := s.client(s.token(assocAdmin)).Members(s.ctx, "a-1")
	s.Require().NoError(err)
	s.NotNil(members)
	s.Empty(members)
}

func (s *ClientSuite) TestTenantScope() {
	c := s.client(s.token(assocAdmin))

	_, err := c.Members(s.ctx, "a-2")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = c.CooperativeDashboard(s.ctx, "c-1")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	calls := s.backend.Calls("/associations//members")
	_, err = c.Members(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(calls, s.backend.Calls("/associations//members"))
}

func (s *ClientSuite) TestRejectedCredentialTriggersHook() {
	var rejected []string
	expired := staticToken(s.backend.Token(coopAdmin, -time.Minute))
	c := s.client(expired, OnUnauthorized(func(token string) { rejected = append(rejected, token) }))

	_, err := c.Associations(s.ctx, "c-1")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal([]string{string(expired)}, rejected)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.FetchFailures.WithLabelValues(EndpointAssociations, string(dErrors.CodeUnauthorized))))
}

func (s *ClientSuite) TestRejectionEndsOnlyTheSessionThatSentIt() {
	store := session.New(storage.NewMemory(), jwttoken.NewDecoder(),
		session.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	store.Restore(s.ctx)
	c := s.client(store, OnUnauthorized(func(token string) {
		_, err := store.LogoutIfToken(token)
		s.NoError(err)
	}))

	tokenA := s.backend.Token(coopAdmin, -time.Minute)
	s.Require().NoError(store.Login(
		models.Identity{ID: "u-1", Role: models.RoleCooperativeAdmin, CooperativeID: "c-1"},
		models.Credential{Token: tokenA, CooperativeID: "c-1"},
	))

	const path = "/cooperatives/c-1/associations"
	release := s.backend.Hold(path)
	defer release()
	done := make(chan error, 1)
	go func() {
		_, err := c.Associations(s.ctx, "c-1")
		done <- err
	}()
	s.Require().Eventually(func() bool { return s.backend.Calls(path) == 1 }, 2*time.Second, 5*time.Millisecond)

	s.Require().NoError(store.Logout())
	tokenB := s.backend.Token(assocAdmin, time.Hour)
	s.Require().NoError(store.Login(
		models.Identity{ID: "u-2", Role: models.RoleAssociationAdmin, AssociationID: "a-1"},
		models.Credential{Token: tokenB, AssociationID: "a-1"},
	))

	release()
	err := <-done
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	user := store.CurrentUser()
	s.Require().NotNil(user, "a late rejection of token A leaves the newer session alone")
	s.Equal("u-2", user.ID)
	s.Equal(tokenB, store.Token())

	_, err = c.Members(s.ctx, "a-1")
	s.Require().NoError(err)
}

func (s *ClientSuite) TestNoCredentialShortCircuits() {
	_, err := s.client(staticToken("")).NotificationLog(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Zero(s.backend.Calls("/notifications/logs"))
}

func (s *ClientSuite) TestBreakerFailsFast() {
	c := s.client(s.token(coopAdmin), WithBreaker(circuit.New("backend", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))
	s.backend.Fail("/cooperatives/c-1/dashboard", http.StatusBadGateway)

	for range 2 {
		_, err := c.CooperativeDashboard(s.ctx, "c-1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	}
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BreakerOpen))

	_, err := c.CooperativeDashboard(s.ctx, "c-1")
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(2, s.backend.Calls("/cooperatives/c-1/dashboard"), "open circuit does not reach the backend")
}

func (s *ClientSuite) TestClientErrorsDoNotTripBreaker() {
	c := s.client(s.token(coopAdmin), WithBreaker(circuit.New("backend", circuit.WithFailureThreshold(1))))
	s.backend.Fail("/notifications/logs", http.StatusNotFound)

	_, err := c.NotificationLog(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal("injected failure", dErrors.UserMessage(err))

	s.backend.Recover("/notifications/logs")
	_, err = c.NotificationLog(s.ctx)
	s.NoError(err)
}

func (s *ClientSuite) TestTimeout() {
	release := s.backend.Hold("/notifications/logs")
	defer release()

	c := s.client(s.token(coopAdmin), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.NotificationLog(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "://nope"} {
		_, err := New(raw, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), raw)
	}
}

func TestStatusCode(t *testing.T) {
	cases := map[int]dErrors.Code{
		http.StatusBadRequest:          dErrors.CodeInvalidInput,
		http.StatusUnauthorized:        dErrors.CodeUnauthorized,
		http.StatusForbidden:           dErrors.CodeForbidden,
		http.StatusNotFound:            dErrors.CodeNotFound,
		http.StatusGatewayTimeout:      dErrors.CodeTimeout,
		http.StatusServiceUnavailable:  dErrors.CodeUnavailable,
		http.StatusInternalServerError: dErrors.CodeInternal,
		http.StatusTeapot:              dErrors.CodeInternal,
	}
	for status, want := range cases {
		assert.Equal(t, want, StatusCode(status), status)
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := statusError(http.StatusConflict, []byte(`{"error":{"message":"already exists"}}`))
	require.Error(t, err)
	assert.Equal(t, "already exists", err.Error())

	err = statusError(http.StatusBadGateway, []byte(`<html>`))
	assert.Equal(t, "Bad Gateway", err.Error())
}

func TestJoinSegmentsEscapes(t *testing.T) {
	assert.Equal(t, "/associations/a%2F1/members", joinSegments([]string{"/associations", "a/1", "members"}))
	assert.True(t, strings.HasPrefix(joinSegments([]string{"/notifications", "logs"}), "/notifications/logs"))
}
