package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sarathss100/eve-client/internal/models"
	"github.com/sarathss100/eve-client/pkg/api"
	"github.com/sarathss100/eve-client/pkg/jwt"
	"github.com/sarathss100/eve-client/pkg/localstore"
	"github.com/sarathss100/eve-client/pkg/utils"
)

const sessionKey = "auth-storage"

// Session holds the active identity and bearer credential. It is constructed
// once at startup and injected into everything that needs credentials; logout
// resets its contents, never its identity.
type Session struct {
	api      *api.Client
	mirror   *localstore.Store
	validate *utils.Validator
	logger   *zap.Logger

	mu              sync.Mutex
	user            *models.User
	token           string
	isAuthenticated bool
	isLoading       bool

	onLogout []func()
}

type sessionSnapshot struct {
	User            *models.User `json:"user"`
	Token           string       `json:"token"`
	IsAuthenticated bool         `json:"isAuthenticated"`
}

func NewSession(client *api.Client, mirror *localstore.Store, validate *utils.Validator, logger *zap.Logger) *Session {
	return &Session{
		api:      client,
		mirror:   mirror,
		validate: validate,
		logger:   logger.Named("session"),
	}
}

// OnLogout registers a callback fired after logout has cleared the session.
// Caches subscribe here instead of being called by name, so the session
// never imports its consumers.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// Restore loads the persisted session, discarding it when the stored token
// has expired.
func (s *Session) Restore(ctx context.Context) {
	var snapshot sessionSnapshot
	ok, err := s.mirror.GetJSON(ctx, sessionKey, &snapshot)
	if err != nil {
		s.logger.Warn("failed to load persisted session", zap.Error(err))
		return
	}
	if !ok || snapshot.Token == "" || snapshot.User == nil {
		return
	}

	if jwt.Expired(snapshot.Token, time.Now()) {
		s.logger.Info("persisted session expired, discarding")
		if err := s.mirror.Delete(ctx, sessionKey); err != nil {
			s.logger.Warn("failed to purge expired session", zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	s.user = snapshot.User
	s.token = snapshot.Token
	s.isAuthenticated = true
	s.mu.Unlock()
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	req := models.LoginRequest{Email: email, Password: password}
	if err := s.validate.Struct(req); err != nil {
		return &api.ValidationError{Message: "email and password are required"}
	}

	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.api.SignIn(ctx, req)
	if err != nil {
		s.logger.Debug("login failed", zap.String("email", email), zap.Error(err))
		return err
	}

	s.adopt(ctx, resp)
	return nil
}

func (s *Session) Register(ctx context.Context, req models.RegisterRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return &api.ValidationError{Message: "invalid registration details: " + err.Error()}
	}

	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.api.Register(ctx, req)
	if err != nil {
		s.logger.Debug("registration failed", zap.String("email", req.Email), zap.Error(err))
		return err
	}

	s.adopt(ctx, resp)
	return nil
}

// Logout notifies the backend best-effort, then unconditionally clears local
// state, purges the persisted snapshot, and fires the logged-out signal. A
// failed signout call never leaves authenticated-looking state behind.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.token
	s.isLoading = true
	s.mu.Unlock()

	if token != "" {
		if err := s.api.SignOut(ctx, token); err != nil {
			s.logger.Warn("server signout failed, clearing local session anyway", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.isAuthenticated = false
	s.isLoading = false
	subscribers := append([]func(){}, s.onLogout...)
	s.mu.Unlock()

	if err := s.mirror.Delete(ctx, sessionKey); err != nil {
		s.logger.Warn("failed to purge persisted session", zap.Error(err))
	}

	for _, fn := range subscribers {
		fn()
	}
}

// UpdateUser replaces the cached identity record without touching the
// credential. Used after role changes.
func (s *Session) UpdateUser(user models.User) {
	s.mu.Lock()
	s.user = &user
	token := s.token
	authenticated := s.isAuthenticated
	s.mu.Unlock()

	if authenticated {
		s.persist(context.Background(), &user, token)
	}
}

func (s *Session) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAuthenticated
}

// IsLoading reports whether a login or register call is in flight. Consumers
// must not read credential state while it is set.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLoading
}

func (s *Session) adopt(ctx context.Context, resp *models.AuthResponse) {
	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.token = resp.Token
	s.isAuthenticated = true
	s.mu.Unlock()

	s.persist(ctx, &user, resp.Token)
}

func (s *Session) persist(ctx context.Context, user *models.User, token string) {
	snapshot := sessionSnapshot{User: user, Token: token, IsAuthenticated: true}
	if err := s.mirror.PutJSON(ctx, sessionKey, snapshot); err != nil {
		s.logger.Warn("failed to persist session", zap.Error(err))
	}
}

func (s *Session) setLoading(loading bool) {
	s.mu.Lock()
	s.isLoading = loading
	s.mu.Unlock()
}
