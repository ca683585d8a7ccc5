// Package admin authenticates the store owner with a shared password and
// opaque session tokens.
package admin

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"tienda-barrio/internal/domain"
	sessionrepo "tienda-barrio/internal/repository/session"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNotConfigured      = errors.New("admin password not configured")
)

const DefaultSessionTTL = 12 * time.Hour

type Service struct {
	sessions     sessionrepo.Repository
	passwordHash []byte
	ttl          time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// New builds a Service. passwordHash is a bcrypt hash; when empty every login
// fails with ErrNotConfigured.
func New(sessions sessionrepo.Repository, passwordHash string, ttl time.Duration, logger zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		sessions:     sessions,
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		now:          time.Now,
		logger:       logger.With().Str("component", "admin").Logger(),
	}
}

// Login checks password and issues a new session.
func (s *Service) Login(ctx context.Context, password string) (*sessionrepo.Session, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		s.logger.Warn().Msg("admin.login_rejected")
		return nil, ErrInvalidCredentials
	}

	expiresAt := s.now().Add(s.ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return nil, err
		}
		sess := sessionrepo.Session{Token: token, ExpiresAt: expiresAt, CreatedAt: s.now()}
		err = s.sessions.Create(ctx, sess)
		if err == nil {
			s.logger.Info().Time("expires_at", expiresAt).Msg("admin.login")
			return &sess, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return nil, fmt.Errorf("create session: %w", err)
	}
	return nil, errors.New("token collision")
}

// Validate accepts a token that exists and has not expired. Expired tokens
// are deleted.
func (s *Service) Validate(ctx context.Context, token string) (*sessionrepo.Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrInvalidToken
	}
	return sess, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.sessions.Delete(ctx, token)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpired removes expired sessions and reports how many were dropped.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug().Int64("count", n).Msg("admin.sessions_purged")
	}
	return n, nil
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
