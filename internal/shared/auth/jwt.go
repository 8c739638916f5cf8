package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the recruiter identity contained in a JWT.
type Claims struct {
	Sub   string
	Email string
	Name  string
}

var (
	ErrMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

const devSecret = "dev-secret"

// Keys signs and verifies HS256 tokens.
type Keys struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewKeys builds Keys for the environment. Outside dev-like environments a secret is mandatory.
func NewKeys(secret string, devLike bool) (*Keys, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if !devLike {
			return nil, fmt.Errorf("%w: JWT_SECRET required", ErrMissingSecret)
		}
		secret = devSecret
	}
	return &Keys{secret: []byte(secret), ttl: 24 * time.Hour, now: time.Now}, nil
}

// Sign issues a token for the claims.
func (k *Keys) Sign(claims Claims) (string, error) {
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}
	now := k.now().UTC()
	mc := jwt.MapClaims{
		"sub": claims.Sub,
		"iat": now.Unix(),
		"exp": now.Add(k.ttl).Unix(),
	}
	if claims.Email != "" {
		mc["email"] = claims.Email
	}
	if claims.Name != "" {
		mc["name"] = claims.Name
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(k.secret)
}

// Verify parses and validates a token and returns its claims.
func (k *Keys) Verify(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return k.secret, nil
	}, jwt.WithTimeFunc(k.now))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mc.GetSubject()
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}
	claims := Claims{Sub: sub}
	if email, ok := mc["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := mc["name"].(string); ok {
		claims.Name = name
	}
	return claims, nil
}
