package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/devink/campusconnect/internal/logging"
	"github.com/devink/campusconnect/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid or expired session token")
	ErrSessionRevoked = errors.New("session has been signed out")
)

// Session is a verified session token.
type Session struct {
	ID        string
	UID       string
	ExpiresAt time.Time
}

// TokenIssuer issues and verifies HS256 session tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	now      func() time.Time
	sessions *SessionRegistry
}

// NewTokenIssuer returns an issuer backed by its own session registry.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		issuer:   issuer,
		ttl:      ttl,
		now:      time.Now,
		sessions: NewSessionRegistry(),
	}
}

// Issue starts a session for uid and returns its signed token.
func (t *TokenIssuer) Issue(uid string) (string, Session, error) {
	now := t.now()
	sess := Session{
		ID:        uuid.NewString(),
		UID:       uid,
		ExpiresAt: now.Add(t.ttl),
	}
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   uid,
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		logging.ErrorLog("Session token signing failed uid=[%s]: %v", utils.HashID(uid), err)
		return "", Session{}, fmt.Errorf("sign session token: %w", err)
	}
	t.sessions.Start(sess.ID, uid, sess.ExpiresAt)
	logging.DebugLog("Session token issued uid=[%s] session=[%s]", utils.HashID(uid), utils.HashID(sess.ID))
	return tokenStr, sess, nil
}

// Verify validates tokenStr and checks that its session was not revoked.
func (t *TokenIssuer) Verify(tokenStr string) (Session, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		logging.DebugLog("Session token rejected: %v", err)
		return Session{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return Session{}, ErrInvalidToken
	}
	if !t.sessions.IsActive(claims.ID, t.now()) {
		return Session{}, ErrSessionRevoked
	}
	return Session{ID: claims.ID, UID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Revoke ends one session.
func (t *TokenIssuer) Revoke(sessionID string) {
	t.sessions.End(sessionID)
}

// RevokeAll ends every session of uid.
func (t *TokenIssuer) RevokeAll(uid string) int {
	return t.sessions.EndAll(uid)
}
