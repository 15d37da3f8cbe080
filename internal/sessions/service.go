package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const refreshTokenBytes = 32

// Service issues, validates, rotates and revokes refresh sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(r Repository, opts ...Option) *Service {
	s := &Service{repo: r, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateSession opens a session for username and returns its refresh token.
func (s *Service) CreateSession(ctx context.Context, username string, ttl time.Duration) (string, error) {
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	sess := &Session{RefreshToken: token, Username: username, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// ValidateRefresh returns the live session for refresh, or nil when it is
// unknown or expired. Expired sessions are removed on sight.
func (s *Service) ValidateRefresh(ctx context.Context, refresh string) (*Session, error) {
	sess, err := s.repo.GetByRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now().UTC()) {
		_ = s.repo.DeleteByRefresh(ctx, refresh)
		return nil, nil
	}
	return sess, nil
}

// Rotate trades a valid refresh token for a new one. The old token stops
// working. A nil session means refresh was not valid.
func (s *Service) Rotate(ctx context.Context, refresh string, ttl time.Duration) (string, *Session, error) {
	sess, err := s.ValidateRefresh(ctx, refresh)
	if err != nil || sess == nil {
		return "", nil, err
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return "", nil, fmt.Errorf("drop rotated session: %w", err)
	}
	next, err := s.CreateSession(ctx, sess.Username, ttl)
	if err != nil {
		return "", nil, err
	}
	return next, sess, nil
}

func (s *Service) DeleteRefresh(ctx context.Context, refresh string) error {
	return s.repo.DeleteByRefresh(ctx, refresh)
}

// Revoke ends a login: the access token is blacklisted until accessExpiry
// and the refresh session is deleted. An empty accessToken skips the
// blacklist step.
func (s *Service) Revoke(ctx context.Context, refresh, accessToken string, accessExpiry time.Time) error {
	if accessToken != "" {
		if err := BlacklistAccessToken(ctx, accessToken, accessExpiry.Sub(s.now())); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	if err := s.repo.DeleteByRefresh(ctx, refresh); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
