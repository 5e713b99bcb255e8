// Package auth issues and verifies session tokens carrying a display identity.
package auth

import (
	"errors"
	"time"

	"github.com/adwski/groupchat/backend/model"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CookieName = "chat_session"

	defaultTTL = 24 * time.Hour
	issuer     = "groupchat"
)

var (
	ErrNoSecret     = errors.New("token secret is empty")
	ErrInvalidToken = errors.New("invalid session token")
)

type Claims struct {
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Config struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

func (is *Issuer) TTL() time.Duration {
	return is.ttl
}

// Issue signs an HS256 token with identity as the subject.
func (is *Issuer) Issue(identity string) (string, error) {
	now := is.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(is.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(is.secret)
}

// Verify checks signature and expiry and returns the identity the token was issued for.
func (is *Issuer) Verify(token string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return is.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(is.now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	identity, err := model.NormalizeIdentity(claims.Subject)
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	return identity, nil
}
