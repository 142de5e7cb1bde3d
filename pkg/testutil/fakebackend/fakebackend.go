// Package fakebackend is an in-process stand-in for the cooperative platform
// REST backend. It issues real signed tokens, enforces bearer auth and tenant
// scope, and serves the drifting payload shapes the normalizer must absorb.
package fakebackend

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "coopconsole/internal/jwt_token"
	"coopconsole/internal/models"
	"coopconsole/internal/normalize"
	"coopconsole/internal/platform/middleware"
	dErrors "coopconsole/pkg/domain-errors"
	"coopconsole/pkg/platform/httputil"
)

// SigningKey is the HS256 key the fake backend signs tokens with.
const SigningKey = "fakebackend-signing-key"

// Account is a user the backend accepts at sign-in. User is the raw user
// record returned alongside the token, in whatever shape the test wants.
type Account struct {
	Identifier string
	Password   string
	User       map[string]any
}

// Backend is the running fake.
type Backend struct {
	server  *httptest.Server
	signer  *jwttoken.Signer
	decoder *jwttoken.Decoder
	logger  *slog.Logger

	mu       sync.Mutex
	accounts map[string]Account
	payloads map[string]string
	failures map[string]int
	holds    map[string]chan struct{}
	calls    map[string]int
	headers  map[string]http.Header
	tokenTTL time.Duration
}

// New starts a backend and stops it when t finishes.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		signer:   jwttoken.NewSigner(SigningKey, nil),
		decoder:  jwttoken.NewDecoder(jwttoken.WithVerifyKey(SigningKey)),
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		accounts: make(map[string]Account),
		payloads: make(map[string]string),
		failures: make(map[string]int),
		holds:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
		headers:  make(map[string]http.Header),
		tokenTTL: time.Hour,
	}
	b.server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)
	return b
}

// URL is the API base URL to hand to api.New.
func (b *Backend) URL() string {
	return b.server.URL + "/api"
}

// Close releases held requests and stops the server.
func (b *Backend) Close() {
	b.mu.Lock()
	for path, ch := range b.holds {
		close(ch)
		delete(b.holds, path)
	}
	b.mu.Unlock()
	b.server.Close()
}

// AddAccount registers a sign-in.
func (b *Backend) AddAccount(acct Account) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[acct.Identifier] = acct
}

// SetPayload overrides the body served for path, e.g.
// "/associations/a-1/members". The body is sent verbatim.
func (b *Backend) SetPayload(path, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads[path] = body
}

// Fail makes path answer with status until Recover is called. Sign-in is
// path "/auth/login".
func (b *Backend) Fail(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[path] = status
}

// Recover clears a failure set by Fail.
func (b *Backend) Recover(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, path)
}

// Hold blocks requests to path until the returned release func is called.
func (b *Backend) Hold(path string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.holds[path] = ch
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.holds[path] == ch {
				delete(b.holds, path)
				close(ch)
			}
			b.mu.Unlock()
		})
	}
}

// Calls reports how many requests reached path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// LastHeader returns the headers of the latest request to path.
func (b *Backend) LastHeader(path string) http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.headers[path].Clone()
}

// Token issues a token for the given claims with the backend's key.
func (b *Backend) Token(claims map[string]any, ttl time.Duration) string {
	token, err := b.signer.Issue(claims, ttl)
	if err != nil {
		panic(fmt.Sprintf("fakebackend: signing token: %v", err))
	}
	return token
}

// ValidateToken implements middleware.TokenValidator.
func (b *Backend) ValidateToken(token string) (*middleware.Claims, error) {
	doc, err := b.decoder.Decode(token)
	if err != nil {
		return nil, err
	}
	id := normalize.Identity(normalize.Parse(doc))
	return &middleware.Claims{
		Subject:       id.ID,
		Role:          string(id.Role),
		AssociationID: id.AssociationID,
		CooperativeID: id.CooperativeID,
	}, nil
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(b.logger))
	r.Use(b.track)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireBearer(b, b.logger))
			r.With(b.cooperativeScope).Get("/cooperatives/{id}/dashboard", b.serve(defaultCooperativeDashboard))
			r.With(b.cooperativeScope).Get("/cooperatives/{id}/associations", b.serve(defaultAssociations))
			r.With(b.associationScope).Get("/associations/{id}/dashboard", b.serve(defaultAssociationDashboard))
			r.With(b.associationScope).Get("/associations/{id}/members", b.serve(defaultMembers))
			r.Get("/notifications/logs", b.serve(defaultNotificationLog))
		})
	})
	return r
}

// track counts calls, records headers, applies holds and injected failures.
func (b *Backend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		b.mu.Lock()
		b.calls[path]++
		b.headers[path] = r.Header.Clone()
		status := b.failures[path]
		hold := b.holds[path]
		b.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			httputil.WriteJSON(w, status, httputil.ErrorResponse{
				Error:   strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_")),
				Message: "injected failure",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type signInRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

func (s *signInRequest) Validate() error {
	if s.Password == "" || (s.Email == "" && s.PhoneNumber == "") {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier and password are required")
	}
	return nil
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[signInRequest](w, r, b.logger)
	if !ok {
		return
	}
	identifier := req.Email
	if identifier == "" {
		identifier = req.PhoneNumber
	}

	b.mu.Lock()
	acct, found := b.accounts[identifier]
	b.mu.Unlock()
	if !found || acct.Password != req.Password {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials"))
		return
	}

	token := b.Token(acct.User, b.tokenTTL)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"token": token,
			"user":  acct.User,
		},
	})
}

func (b *Backend) cooperativeScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.GetClaims(r.Context())
		if claims.Role != string(models.RoleCooperativeAdmin) || claims.CooperativeID != chi.URLParam(r, "id") {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "outside your cooperative"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) associationScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.GetClaims(r.Context())
		switch {
		case claims.Role == string(models.RoleCooperativeAdmin):
		case claims.Role == string(models.RoleAssociationAdmin) && claims.AssociationID == chi.URLParam(r, "id"):
		default:
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "outside your association"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// serve answers with the override for the path or the default body.
func (b *Backend) serve(def string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		b.mu.Lock()
		body, ok := b.payloads[path]
		b.mu.Unlock()
		if !ok {
			body = def
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}
}
