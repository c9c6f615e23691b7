package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AudienceSession is the audience claim carried by session tokens.
const AudienceSession = "blinks:session"

// ErrInvalidToken is returned when a session token fails validation.
var ErrInvalidToken = errors.New("invalid session token")

// Session is the authenticated identity carried by a session token.
type Session struct {
	UserID    string    `json:"id"`
	PublicKey string    `json:"publicKey"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expires"`
}

// SessionClaims combines standard claims with the user's profile.
type SessionClaims struct {
	jwt.RegisteredClaims
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
	Picture   string `json:"picture,omitempty"`
}

// TokenIssuer signs and parses stateless session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer using HMAC-SHA256 with the given secret.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue creates a signed token for the given identity.
func (t *TokenIssuer) Issue(userID, publicKey, name, image string) (string, *Session, error) {
	now := t.now().Truncate(time.Second)
	session := &Session{
		UserID:    userID,
		PublicKey: publicKey,
		Name:      name,
		Image:     image,
		IssuedAt:  now,
		ExpiresAt: now.Add(t.ttl),
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		PublicKey: publicKey,
		Name:      name,
		Picture:   image,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, session, nil
}

// Parse validates a token and returns the session it carries.
func (t *TokenIssuer) Parse(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithAudience(AudienceSession), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Session{
		UserID:    claims.Subject,
		PublicKey: claims.PublicKey,
		Name:      claims.Name,
		Image:     claims.Picture,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
