package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/db"
	"github.com/brojonat/blinks/service/events"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/gagliardetto/solana-go"
)

// UserStore persists wallet owners.
type UserStore interface {
	UpsertUser(ctx context.Context, publicKey, name, image string) (*db.User, error)
}

// Credentials are what a client submits to sign in.
// Message is the JSON form of a SigninMessage; Signature is base58.
type Credentials struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Authenticator verifies wallet signatures and issues sessions.
type Authenticator struct {
	users     UserStore
	tokens    *TokenIssuer
	nonces    NonceGuard
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator.
// nonces, publisher and m may be nil.
func NewAuthenticator(users UserStore, tokens *TokenIssuer, nonces NonceGuard, publisher events.Publisher, m *metrics.Metrics, logger *slog.Logger) *Authenticator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Authenticator{
		users:     users,
		tokens:    tokens,
		nonces:    nonces,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// DefaultAvatar is the image assigned to users created on first sign-in.
func DefaultAvatar(publicKey string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(publicKey) + "&background=random"
}

// SignIn verifies the credentials and returns a session and its signed token.
// Nothing is persisted unless the signature verifies.
func (a *Authenticator) SignIn(ctx context.Context, creds Credentials) (*Session, string, error) {
	session, token, err := a.signIn(ctx, creds)
	if a.metrics != nil {
		status := "success"
		if err != nil {
			status = apperr.CodeOf(err)
		}
		a.metrics.RecordSignIn(status)
	}
	return session, token, err
}

func (a *Authenticator) signIn(ctx context.Context, creds Credentials) (*Session, string, error) {
	if creds.Message == "" || creds.Signature == "" {
		return nil, "", apperr.Auth(apperr.CodeMissingCredentials, "missing credentials", nil)
	}

	var msg SigninMessage
	if err := json.Unmarshal([]byte(creds.Message), &msg); err != nil {
		return nil, "", apperr.Auth(apperr.CodeInvalidMessageFormat, "invalid message format", err)
	}

	text := msg.Text()

	pubkey, err := solana.PublicKeyFromBase58(msg.PublicKey)
	if err != nil {
		return nil, "", apperr.Auth(apperr.CodeInvalidPublicKey, "invalid public key", err)
	}

	sig, err := solana.SignatureFromBase58(creds.Signature)
	if err != nil {
		return nil, "", apperr.Auth(apperr.CodeInvalidSignature, "invalid signature", err)
	}

	if !sig.Verify(pubkey, []byte(text)) {
		return nil, "", apperr.Auth(apperr.CodeInvalidSignature, "invalid signature", nil)
	}

	if a.nonces != nil {
		fresh, err := a.nonces.Claim(ctx, pubkey.String(), msg.Nonce)
		if err != nil {
			return nil, "", apperr.Storage("failed to check nonce", err)
		}
		if !fresh {
			return nil, "", apperr.Auth(apperr.CodeNonceReused, "nonce already used", nil)
		}
	}

	user, err := a.users.UpsertUser(ctx, pubkey.String(), pubkey.String(), DefaultAvatar(pubkey.String()))
	if err != nil {
		return nil, "", apperr.Storage("failed to store user", err)
	}

	token, session, err := a.tokens.Issue(user.ID, user.PublicKey, user.Name, user.Image)
	if err != nil {
		return nil, "", apperr.Unknown(err)
	}

	a.publishSignedIn(ctx, user, msg.Nonce)

	a.logger.Info("wallet signed in",
		"user_id", user.ID,
		"public_key", user.PublicKey,
	)

	return session, token, nil
}

func (a *Authenticator) publishSignedIn(ctx context.Context, user *db.User, nonce string) {
	start := time.Now()
	err := a.publisher.PublishSignedIn(ctx, &events.SignedInEvent{
		UserID:      user.ID,
		PublicKey:   user.PublicKey,
		Nonce:       nonce,
		SignedInAt:  start.UTC(),
		PublishedAt: time.Now().UTC(),
	})

	status := "success"
	if err != nil {
		status = "error"
		a.logger.Warn("failed to publish sign-in event", "public_key", user.PublicKey, "error", err)
	}
	if a.metrics != nil {
		a.metrics.RecordNATSPublish(events.SubjectSignedIn, status, time.Since(start).Seconds())
	}
}

// Session validates a session token.
func (a *Authenticator) Session(token string) (*Session, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Session not found")
	}
	session, err := a.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Auth(apperr.CodeUnauthorized, "Session not found", fmt.Errorf("parse session: %w", err))
	}
	return session, nil
}

// TTL returns the lifetime of issued sessions.
func (a *Authenticator) TTL() time.Duration {
	return a.tokens.TTL()
}
