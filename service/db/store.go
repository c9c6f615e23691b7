package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brojonat/blinks/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrBlinkNotFound is returned when no blink matches the given ID.
	ErrBlinkNotFound = errors.New("blink not found")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// Store provides database operations for the service.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithMetrics records query durations on m.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

func (s *Store) observe(operation, table string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), *err)
}

// NewPool parses the database URL and opens a verified connection pool.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// User is a wallet owner known to the service.
type User struct {
	ID        string    `json:"id"`
	PublicKey string    `json:"publicKey"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

// AmountScale and MaxAmount mirror the amounts.value column, NUMERIC(20, 9).
// Stored values are below MaxAmount and carry at most AmountScale decimals.
const AmountScale = 9

var MaxAmount = decimal.New(1, 20-AmountScale)

// Amount is one preset donation value of a blink, in SOL.
type Amount struct {
	ID      string          `json:"id"`
	BlinkID string          `json:"blinkId"`
	Value   decimal.Decimal `json:"value"`
}

// MarshalJSON writes Value as a JSON number, matching the form blinks are
// created with.
func (a Amount) MarshalJSON() ([]byte, error) {
	type plain Amount
	return json.Marshal(struct {
		plain
		Value json.RawMessage `json:"value"`
	}{plain: plain(a), Value: json.RawMessage(a.Value.String())})
}

// Blink is a shareable donation link owned by exactly one user.
type Blink struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Label         string    `json:"label"`
	ImageURL      string    `json:"image_url"`
	IsCustomInput bool      `json:"isCustomInput"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
	Amounts       []Amount  `json:"amounts"`
	User          *User     `json:"user,omitempty"`
}

// CreateBlinkParams contains the parameters for creating a blink.
type CreateBlinkParams struct {
	Title         string
	Description   string
	Label         string
	ImageURL      string
	IsCustomInput bool
	UserID        string
	Amounts       []decimal.Decimal
}

// rollback is deferred after Begin; it is a no-op once the tx is committed.
func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}
