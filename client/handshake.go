package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brojonat/blinks/service/auth"
	"github.com/gagliardetto/solana-go"
)

// State is a step of the wallet sign-in handshake.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateChallengeIssued
	StateVerifying
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateChallengeIssued:
		return "challenge_issued"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// AuthState records whether this device has signed a challenge and when.
type AuthState struct {
	LastSignIn time.Time `json:"lastSignIn"`
	HasSigned  bool      `json:"hasSigned"`
}

// StateStore persists AuthState between runs.
type StateStore interface {
	Load() (AuthState, error)
	Save(AuthState) error
}

// MemoryStateStore keeps AuthState in memory.
type MemoryStateStore struct {
	mu    sync.Mutex
	state AuthState
}

func (s *MemoryStateStore) Load() (AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *MemoryStateStore) Save(state AuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

// FileStateStore keeps AuthState in a JSON file.
// A missing file loads as the zero state.
type FileStateStore struct {
	Path string
}

func (s FileStateStore) Load() (AuthState, error) {
	var state AuthState
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("failed to read auth state: %w", err)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to parse auth state %s: %w", s.Path, err)
	}
	return state, nil
}

func (s FileStateStore) Save(state AuthState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal auth state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write auth state: %w", err)
	}
	return nil
}

// Wallet is a connected signer.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignMessage(ctx context.Context, message []byte) (solana.Signature, error)
	Disconnect(ctx context.Context) error
}

// KeypairWallet signs with a local private key.
type KeypairWallet struct {
	key solana.PrivateKey
}

// NewKeypairWallet wraps key as a Wallet.
func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// LoadKeypairWallet reads a solana-keygen JSON keypair file.
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return NewKeypairWallet(key), nil
}

func (w *KeypairWallet) PublicKey() solana.PublicKey { return w.key.PublicKey() }

func (w *KeypairWallet) SignMessage(ctx context.Context, message []byte) (solana.Signature, error) {
	return w.key.Sign(message)
}

// SignTransaction fills the payer signature of tx.
func (w *KeypairWallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(w.key.PublicKey()) {
			return &w.key
		}
		return nil
	})
	return err
}

func (w *KeypairWallet) Disconnect(ctx context.Context) error { return nil }

// SessionClient is the server side of the handshake.
type SessionClient interface {
	SignIn(ctx context.Context, creds auth.Credentials) (*auth.Session, error)
	SignOut(ctx context.Context) error
	Session(ctx context.Context) (*auth.Session, error)
}

// Handshake drives a wallet through challenge signing to an authenticated session.
type Handshake struct {
	sessions    SessionClient
	store       StateStore
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger

	mu      sync.Mutex
	state   State
	auth    AuthState
	wallet  Wallet
	session *auth.Session
	err     error
}

// NewHandshake creates a Handshake and loads the persisted AuthState.
// A signer whose last sign-in is within idleTimeout is not challenged again.
func NewHandshake(sessions SessionClient, store StateStore, idleTimeout time.Duration, logger *slog.Logger) (*Handshake, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Handshake{
		sessions:    sessions,
		store:       store,
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger,
		state:       StateDisconnected,
		auth:        state,
	}, nil
}

// State returns the current handshake state.
func (h *Handshake) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// AuthState returns the persisted sign-in flags.
func (h *Handshake) AuthState() AuthState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.auth
}

// Session returns the authenticated session, nil before authentication.
func (h *Handshake) Session() *auth.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Err returns the error that moved the handshake to StateFailed.
func (h *Handshake) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Connect connects wallet and authenticates it.
// A recent signer with a live session is authenticated without a challenge;
// everyone else signs a fresh one. There are no retries: any failure leaves
// the handshake in StateFailed with the wallet still connected.
func (h *Handshake) Connect(ctx context.Context, wallet Wallet) (*auth.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.wallet = wallet
	h.session = nil
	h.err = nil
	h.state = StateConnected
	publicKey := wallet.PublicKey().String()

	if h.auth.HasSigned && h.now().Sub(h.auth.LastSignIn) <= h.idleTimeout {
		session, err := h.sessions.Session(ctx)
		if err == nil && session != nil && session.PublicKey == publicKey {
			h.session = session
			h.state = StateAuthenticated
			h.logger.Debug("reusing recent session", "public_key", publicKey)
			return session, nil
		}
		h.logger.Debug("no live session for recent signer, challenging", "public_key", publicKey, "error", err)
	}

	nonce, err := auth.NewNonce()
	if err != nil {
		return nil, h.fail(fmt.Errorf("failed to generate nonce: %w", err))
	}
	msg := auth.SigninMessage{PublicKey: publicKey, Nonce: nonce}
	h.state = StateChallengeIssued

	sig, err := wallet.SignMessage(ctx, []byte(msg.Text()))
	if err != nil {
		return nil, h.fail(fmt.Errorf("wallet refused to sign: %w", err))
	}

	h.state = StateVerifying
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, h.fail(fmt.Errorf("failed to marshal challenge: %w", err))
	}
	session, err := h.sessions.SignIn(ctx, auth.Credentials{Message: string(raw), Signature: sig.String()})
	if err != nil {
		return nil, h.fail(err)
	}

	h.session = session
	h.state = StateAuthenticated
	h.auth = AuthState{HasSigned: true, LastSignIn: h.now()}
	if err := h.store.Save(h.auth); err != nil {
		h.logger.Warn("failed to persist auth state", "error", err)
	}
	h.logger.Info("wallet authenticated", "public_key", publicKey)
	return session, nil
}

func (h *Handshake) fail(err error) error {
	h.state = StateFailed
	h.err = err
	return err
}

// SignOut ends the session and clears the sign-in flags.
// The wallet stays connected.
func (h *Handshake) SignOut(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signOut(ctx)
}

func (h *Handshake) signOut(ctx context.Context) error {
	if err := h.sessions.SignOut(ctx); err != nil {
		return err
	}
	h.session = nil
	h.auth = AuthState{}
	if err := h.store.Save(h.auth); err != nil {
		h.logger.Warn("failed to persist auth state", "error", err)
	}
	if h.wallet != nil {
		h.state = StateConnected
	} else {
		h.state = StateDisconnected
	}
	return nil
}

// Disconnect signs out when a session exists, then disconnects the wallet.
func (h *Handshake) Disconnect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session != nil {
		if err := h.signOut(ctx); err != nil {
			return err
		}
	}

	h.state = StateDisconnected
	wallet := h.wallet
	h.wallet = nil
	if wallet != nil {
		return wallet.Disconnect(ctx)
	}
	return nil
}
