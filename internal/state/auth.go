package state

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// SessionStore persists the signed session token between runs.
type SessionStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Authenticator is the auth service surface.
type Authenticator interface {
	LoginWithPin(ctx context.Context, pin string) (utils.Session, error)
	Logout(ctx context.Context, session utils.Session)
}

// Auth holds the signed-in staff member. The session survives restarts
// through the SessionStore until its token expires.
type Auth struct {
	tracker
	api     Authenticator
	store   SessionStore
	secret  string
	ttl     time.Duration
	session *utils.Session
}

func NewAuth(api Authenticator, store SessionStore, secret string, ttl time.Duration) *Auth {
	return &Auth{api: api, store: store, secret: secret, ttl: ttl}
}

// Restore loads a saved session. An expired or tampered token is cleared
// from the store and leaves the user signed out.
func (a *Auth) Restore() error {
	token, err := a.store.Load()
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}
	session, err := utils.ParseSessionToken(a.secret, token)
	if err != nil {
		utils.InfoLogger.WithError(err).Info("discarding saved session")
		return a.store.Clear()
	}
	a.read(func() { a.session = &session })
	return nil
}

// Login verifies pin, signs the session and saves it.
func (a *Auth) Login(ctx context.Context, pin string) (utils.Session, error) {
	return track(&a.tracker, func() (utils.Session, error) {
		session, err := a.api.LoginWithPin(ctx, pin)
		if err != nil {
			return session, err
		}
		token, err := utils.GenerateSessionToken(a.secret, session, a.ttl)
		if err != nil {
			return utils.Session{}, err
		}
		if err := a.store.Save(token); err != nil {
			return utils.Session{}, err
		}
		return session, nil
	}, func(s utils.Session) { a.session = &s })
}

// Logout records the logout and forgets the session.
func (a *Auth) Logout(ctx context.Context) error {
	session, ok := a.Session()
	if ok {
		a.api.Logout(services.WithSession(ctx, session), session)
	}
	a.read(func() { a.session = nil })
	return a.store.Clear()
}

func (a *Auth) Session() (utils.Session, bool) {
	var (
		s  utils.Session
		ok bool
	)
	a.read(func() {
		if a.session != nil {
			s, ok = *a.session, true
		}
	})
	return s, ok
}

func (a *Auth) IsAuthenticated() bool {
	_, ok := a.Session()
	return ok
}

// Context attaches the signed-in staff member to ctx so service writes are
// attributed to them.
func (a *Auth) Context(ctx context.Context) context.Context {
	if s, ok := a.Session(); ok {
		return services.WithSession(ctx, s)
	}
	return ctx
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save("")
}

// FileStore keeps the token in a file readable only by the owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (f FileStore) Save(token string) error {
	return os.WriteFile(f.Path, []byte(token), 0o600)
}

func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
