// Package session owns the single source of truth for who is signed in.
//
// The Store holds the active Identity in memory and the matching Credential in
// durable storage. The two are written and cleared together under one lock so
// no reader ever observes one without the other.
package session

//go:generate mockgen -source=session.go -destination=mocks/mocks.go -package=mocks TokenDecoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"coopconsole/internal/models"
	"coopconsole/internal/normalize"
	"coopconsole/internal/platform/metrics"
	"coopconsole/internal/sentinel"
	"coopconsole/internal/storage"
	dErrors "coopconsole/pkg/domain-errors"
)

// TokenDecoder recovers token claims as a JSON document.
type TokenDecoder interface {
	Decode(token string) ([]byte, error)
}

// Phase is the store lifecycle: init → restoring → ready.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRestoring
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseRestoring:
		return "restoring"
	default:
		return "ready"
	}
}

// Snapshot is an immutable view of the session at one instant.
type Snapshot struct {
	Identity      *models.Identity
	HasCredential bool
	Loading       bool
	Phase         Phase
}

// Authenticated reports whether both halves of the session are present.
func (s Snapshot) Authenticated() bool {
	return s.Identity != nil && s.HasCredential
}

// Restoration outcomes recorded in metrics.
const (
	OutcomeRestored     = "restored"
	OutcomeNone         = "none"
	OutcomeInvalid      = "invalid"
	OutcomeExpired      = "expired"
	OutcomeStorageError = "storage_error"
)

// Store is the process-wide session store. Construct one and pass it by
// reference to everything that needs the session.
type Store struct {
	mu         sync.RWMutex
	storage    storage.Store
	decoder    TokenDecoder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	phase      Phase
	identity   *models.Identity
	credential models.Credential

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records session metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New constructs a store in PhaseInit. Current reports Loading until Restore
// completes.
func New(st storage.Store, decoder TokenDecoder, opts ...Option) *Store {
	s := &Store{
		storage:     st,
		decoder:     decoder,
		logger:      slog.Default(),
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open constructs a store and restores the persisted session before
// returning it.
func Open(ctx context.Context, st storage.Store, decoder TokenDecoder, opts ...Option) *Store {
	s := New(st, decoder, opts...)
	s.Restore(ctx)
	return s
}

// Current returns the session snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// CurrentUser returns the active identity, or nil when signed out.
func (s *Store) CurrentUser() *models.Identity {
	return s.Current().Identity
}

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential.Token
}

// Scope returns the tenant scope of the active credential.
func (s *Store) Scope() (associationID, cooperativeID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential.AssociationID, s.credential.CooperativeID
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		HasCredential: !s.credential.Empty(),
		Loading:       s.phase != PhaseReady,
		Phase:         s.phase,
	}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// Restore attempts to rebuild the session from the durable credential. It
// runs once; later calls return the current snapshot. Failures are never
// surfaced: the store settles to "no session" and clears whatever stale
// credential it found.
func (s *Store) Restore(ctx context.Context) Snapshot {
	s.mu.Lock()
	if s.phase != PhaseInit {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.phase = PhaseRestoring
	s.mu.Unlock()
	s.notify()

	identity, credential, outcome := s.restore(ctx)
	s.metrics.RecordRestoration(outcome)

	s.mu.Lock()
	if s.phase != PhaseRestoring {
		// A Login or Logout landed while restoring; it is newer than anything on disk.
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	if identity != nil {
		s.identity = identity
		s.credential = credential
	}
	s.phase = PhaseReady
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify()
	return snap
}

func (s *Store) restore(ctx context.Context) (*models.Identity, models.Credential, string) {
	token, ok, err := s.storage.Get(storage.KeyAuthToken)
	if err != nil {
		s.logger.WarnContext(ctx, "session restoration: credential unreadable", "error", err)
		s.discardCredential(ctx)
		return nil, models.Credential{}, OutcomeStorageError
	}
	if !ok || token == "" {
		return nil, models.Credential{}, OutcomeNone
	}

	claims, err := s.decoder.Decode(token)
	if err != nil {
		outcome := OutcomeInvalid
		if errors.Is(err, sentinel.ErrExpired) {
			outcome = OutcomeExpired
		}
		s.logger.InfoContext(ctx, "session restoration: stored token rejected", "outcome", outcome, "error", err)
		s.discardCredential(ctx)
		return nil, models.Credential{}, outcome
	}

	identity := normalize.Identity(normalize.Parse(claims))
	if !identity.Role.Valid() {
		s.logger.InfoContext(ctx, "session restoration: token carries no known role")
		s.discardCredential(ctx)
		return nil, models.Credential{}, OutcomeInvalid
	}

	associationID := s.optional(storage.KeyAssociationID)
	cooperativeID := s.optional(storage.KeyCooperativeID)
	if identity.AssociationID == "" {
		identity.AssociationID = associationID
	}
	if identity.CooperativeID == "" {
		identity.CooperativeID = cooperativeID
	}
	credential := models.Credential{
		Token:         token,
		AssociationID: identity.AssociationID,
		CooperativeID: identity.CooperativeID,
	}
	s.logger.InfoContext(ctx, "session restored", "user_id", identity.ID, "role", identity.Role.String())
	return &identity, credential, OutcomeRestored
}

func (s *Store) optional(key storage.Key) string {
	v, ok, err := s.storage.Get(key)
	if err != nil || !ok {
		return ""
	}
	return v
}

// discardCredential clears a rejected stored credential. Once a Login or
// Logout has moved the store out of PhaseRestoring the durable credential
// belongs to that call and is left alone.
func (s *Store) discardCredential(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRestoring {
		return
	}
	if err := s.storage.Clear(); err != nil {
		s.logger.WarnContext(ctx, "failed to clear stale credential", "error", err)
	}
}

// Login makes identity the active session and persists credential. Both are
// visible to any reader as soon as Login returns. On a storage failure
// nothing changes.
func (s *Store) Login(identity models.Identity, credential models.Credential) error {
	if credential.Empty() {
		return dErrors.New(dErrors.CodeInvalidInput, "credential token is required")
	}
	if !identity.Role.Valid() {
		return dErrors.New(dErrors.CodeForbidden, "this account has no console role")
	}

	s.mu.Lock()
	err := s.storage.SetMany(map[storage.Key]string{
		storage.KeyAuthToken:     credential.Token,
		storage.KeyAssociationID: credential.AssociationID,
		storage.KeyCooperativeID: credential.CooperativeID,
	})
	if err != nil {
		s.mu.Unlock()
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not save the session")
	}
	id := identity
	s.identity = &id
	s.credential = credential
	s.phase = PhaseReady
	s.mu.Unlock()

	s.metrics.IncSignIn(true)
	s.logger.Info("session started", "user_id", identity.ID, "role", identity.Role.String())
	s.notify()
	return nil
}

// Logout ends the session. The in-memory session is always cleared; a
// storage failure is returned after falling back to deleting the token key
// so the next start cannot restore it.
func (s *Store) Logout() error {
	s.mu.Lock()
	err := s.clearLocked()
	s.mu.Unlock()

	s.ended(err)
	return err
}

// LogoutIfToken ends the session only while token is still its credential.
// It reports whether the session was ended. A backend rejection of a token
// the operator has already replaced is ignored.
func (s *Store) LogoutIfToken(token string) (bool, error) {
	s.mu.Lock()
	if token == "" || s.credential.Token != token {
		s.mu.Unlock()
		s.logger.Debug("ignoring rejection of a superseded credential")
		return false, nil
	}
	err := s.clearLocked()
	s.mu.Unlock()

	s.ended(err)
	return true, err
}

// clearLocked drops both halves of the session. Callers hold s.mu.
func (s *Store) clearLocked() error {
	var err error
	if clearErr := s.storage.Clear(); clearErr != nil {
		err = fmt.Errorf("clearing credential: %w", clearErr)
		if delErr := s.storage.Delete(storage.KeyAuthToken); delErr != nil {
			err = errors.Join(err, fmt.Errorf("deleting token: %w", delErr))
		}
	}
	s.identity = nil
	s.credential = models.Credential{}
	s.phase = PhaseReady
	return err
}

func (s *Store) ended(err error) {
	s.metrics.IncLogout()
	if err != nil {
		s.logger.Warn("logout could not clear durable credential", "error", err)
	} else {
		s.logger.Info("session ended")
	}
	s.notify()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function unsubscribes; calling it more than once is safe.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	snap := s.Current()
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
