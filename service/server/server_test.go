package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brojonat/blinks/service/apperr"
	"github.com/brojonat/blinks/service/auth"
	"github.com/brojonat/blinks/service/config"
	"github.com/brojonat/blinks/service/db"
	"github.com/brojonat/blinks/service/events"
	"github.com/brojonat/blinks/service/metrics"
	"github.com/brojonat/blinks/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fakeStore is an in-memory BlinkStore and auth.UserStore.
type fakeStore struct {
	mu      sync.Mutex
	blinks  map[string]*db.Blink
	users   map[string]*db.User // by public key
	calls   int
	created []db.CreateBlinkParams
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{blinks: make(map[string]*db.Blink), users: make(map[string]*db.User)}
}

func (f *fakeStore) GetBlink(ctx context.Context, id string) (*db.Blink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.blinks[id]
	if !ok {
		return nil, db.ErrBlinkNotFound
	}
	return b, nil
}

func (f *fakeStore) CreateBlink(ctx context.Context, params db.CreateBlinkParams) (*db.Blink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, params)

	b := &db.Blink{
		ID:            fmt.Sprintf("blink-%d", len(f.created)),
		Title:         params.Title,
		Description:   params.Description,
		Label:         params.Label,
		ImageURL:      params.ImageURL,
		IsCustomInput: params.IsCustomInput,
		UserID:        params.UserID,
		CreatedAt:     time.Now(),
	}
	for _, u := range f.users {
		if u.ID == params.UserID {
			b.User = u
		}
	}
	for _, v := range params.Amounts {
		b.Amounts = append(b.Amounts, db.Amount{BlinkID: b.ID, Value: v})
	}
	f.blinks[b.ID] = b
	return b, nil
}

func (f *fakeStore) ListBlinksByUser(ctx context.Context, userID string) ([]*db.Blink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := []*db.Blink{}
	for _, b := range f.blinks {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertUser(ctx context.Context, publicKey, name, image string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[publicKey]; ok {
		return u, nil
	}
	u := &db.User{ID: fmt.Sprintf("user-%d", len(f.users)+1), PublicKey: publicKey, Name: name, Image: image}
	f.users[publicKey] = u
	return u, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// addBlink stores a blink owned by owner with the given preset amounts.
func (f *fakeStore) addBlink(id string, owner *db.User, custom bool, values ...string) *db.Blink {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[owner.PublicKey] = owner
	b := &db.Blink{
		ID:            id,
		Title:         "Shelter",
		Description:   "Food for cats",
		Label:         "Donate",
		ImageURL:      "https://cdn.example.com/cat.png",
		IsCustomInput: custom,
		UserID:        owner.ID,
		User:          owner,
		CreatedAt:     time.Now(),
	}
	for _, v := range values {
		b.Amounts = append(b.Amounts, db.Amount{BlinkID: id, Value: decimal.RequireFromString(v)})
	}
	f.blinks[id] = b
	return b
}

// fakeAssembler builds real donation transactions without touching an RPC node.
type fakeAssembler struct {
	mu        sync.Mutex
	rentFloor uint64
	err       error
	params    []solana.DonationParams
}

func (a *fakeAssembler) AssembleDonation(ctx context.Context, params solana.DonationParams) (*solana.Donation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.params = append(a.params, params)
	if a.err != nil {
		return nil, a.err
	}

	lamports, err := solana.ToLamports(params.Amount)
	if err != nil {
		return nil, apperr.InvalidAmount(params.Amount.String())
	}
	if lamports < a.rentFloor {
		return nil, apperr.RentExempt(params.Recipient.String())
	}

	blockhash := solanago.MustHashFromBase58("EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N")
	tx, err := solana.BuildDonationTransaction(params.Payer, params.Recipient, params.FeeAccount, lamports, params.FeeLamports, blockhash)
	if err != nil {
		return nil, err
	}
	encoded, err := solana.EncodeTransaction(tx)
	if err != nil {
		return nil, err
	}
	return &solana.Donation{Transaction: tx, Encoded: encoded, Lamports: lamports, FeeLamports: params.FeeLamports}, nil
}

func (a *fakeAssembler) calls() []solana.DonationParams {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]solana.DonationParams(nil), a.params...)
}

type testEnv struct {
	handler   http.Handler
	store     *fakeStore
	assembler *fakeAssembler
	publisher *events.MockPublisher
	issuer    *auth.TokenIssuer
	cfg       *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		ServerAddr:         ":0",
		DatabaseURL:        "postgres://unused",
		SolanaRPCURL:       "http://unused",
		SolanaCluster:      "devnet",
		SessionSecret:      testSecret,
		SessionTTL:         720 * time.Hour,
		PlatformFeeAccount: "GkgDke8NYrdw7H8HFRyouwSzJ1Nxu3LTnpYu83SEJWDn",
		PlatformFeeSOL:     decimal.RequireFromString("0.001"),
		MinAmountSOL:       decimal.RequireFromString("0.1"),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := discardLogger()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	cfg := testConfig()
	store := newFakeStore()
	assembler := &fakeAssembler{rentFloor: 890_880}
	publisher := events.NewMockPublisher()
	issuer := auth.NewTokenIssuer([]byte(testSecret), cfg.SessionTTL)
	authn := auth.NewAuthenticator(store, issuer, nil, publisher, m, logger)

	srv, err := New(cfg, store, authn, assembler, publisher, m, logger)
	require.NoError(t, err)

	return &testEnv{
		handler:   srv.Router(),
		store:     store,
		assembler: assembler,
		publisher: publisher,
		issuer:    issuer,
		cfg:       cfg,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// bearer issues a session token for user.
func (e *testEnv) bearer(t *testing.T, user *db.User) string {
	t.Helper()
	token, _, err := e.issuer.Issue(user.ID, user.PublicKey, user.Name, user.Image)
	require.NoError(t, err)
	return "Bearer " + token
}

func newWallet(t *testing.T) solanago.PrivateKey {
	t.Helper()
	key, err := solanago.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

func newOwner(t *testing.T) *db.User {
	t.Helper()
	pk := newWallet(t).PublicKey().String()
	return &db.User{ID: "owner-1", PublicKey: pk, Name: pk}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var errDatabaseDown = errors.New("connection refused")
