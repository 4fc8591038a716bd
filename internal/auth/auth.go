// Package auth guards the review dashboard.
//
// There is a single operator account taken from configuration. A successful
// login yields a signed session token; handlers turn a valid token into a
// Session stored in the request context, and operations that need an
// operator read it back with FromContext.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired session")
)

const DefaultSessionTTL = 24 * time.Hour

// Session is the request-scoped login state.
type Session struct {
	Authenticated bool
	Username      string
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	username     string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
}

// New builds an Authenticator. password may be a plain password, which is
// hashed here, or a bcrypt hash.
func New(username, password, secret string) (*Authenticator, error) {
	if username == "" || password == "" {
		return nil, errors.New("admin username and password are required")
	}
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	hash := []byte(password)
	if _, err := bcrypt.Cost(hash); err != nil {
		hash, err = HashPassword(password)
		if err != nil {
			return nil, err
		}
	}
	return &Authenticator{
		username:     username,
		passwordHash: hash,
		secret:       []byte(secret),
		ttl:          DefaultSessionTTL,
		now:          time.Now,
	}, nil
}

func HashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Login checks the pair and returns a session token.
func (a *Authenticator) Login(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return a.issue()
}

func (a *Authenticator) issue() (string, error) {
	now := a.now()
	claims := Claims{
		Username: a.username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses a token produced by Login.
func (a *Authenticator) Verify(tokenStr string) (Session, error) {
	if tokenStr == "" {
		return Session{}, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Username != a.username {
		return Session{}, ErrInvalidToken
	}
	return Session{Authenticated: true, Username: claims.Username}, nil
}

func (a *Authenticator) TTL() time.Duration { return a.ttl }

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or the zero Session.
func FromContext(ctx context.Context) Session {
	s, _ := ctx.Value(contextKey{}).(Session)
	return s
}

// Authenticated reports whether ctx carries a logged-in operator.
func Authenticated(ctx context.Context) bool {
	return FromContext(ctx).Authenticated
}
