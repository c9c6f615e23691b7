package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// CreateBlink inserts a blink and all of its amounts in a single transaction.
// Either every row is written or none is.
func (s *Store) CreateBlink(ctx context.Context, params CreateBlinkParams) (_ *Blink, err error) {
	defer s.observe("insert", "blinks", time.Now(), &err)

	if len(params.Amounts) == 0 {
		return nil, errors.New("blink requires at least one amount")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	blink := &Blink{
		ID:            ulid.Make().String(),
		Title:         params.Title,
		Description:   params.Description,
		Label:         params.Label,
		ImageURL:      params.ImageURL,
		IsCustomInput: params.IsCustomInput,
		UserID:        params.UserID,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO blinks (id, title, description, label, image_url, is_custom_input, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, blink.ID, blink.Title, blink.Description, blink.Label, blink.ImageURL, blink.IsCustomInput, blink.UserID,
	).Scan(&blink.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create blink: %w", err)
	}

	blink.Amounts = make([]Amount, len(params.Amounts))
	for i, value := range params.Amounts {
		amount := Amount{ID: uuid.NewString(), BlinkID: blink.ID, Value: value}
		_, err := tx.Exec(ctx, `
			INSERT INTO amounts (id, blink_id, position, value)
			VALUES ($1, $2, $3, $4)
		`, amount.ID, amount.BlinkID, i, value.String())
		if err != nil {
			return nil, fmt.Errorf("failed to create amount: %w", err)
		}
		blink.Amounts[i] = amount
	}

	owner, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, blink.UserID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blink owner: %w", err)
	}
	blink.User = owner

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit blink: %w", err)
	}

	return blink, nil
}

// GetBlink retrieves a blink with its owner and amounts in stored order.
func (s *Store) GetBlink(ctx context.Context, id string) (_ *Blink, err error) {
	defer s.observe("select", "blinks", time.Now(), &err)

	query := `
		SELECT b.id, b.title, b.description, b.label, b.image_url, b.is_custom_input, b.user_id::text, b.created_at,
		       u.id::text, u.public_key, u.name, u.image, u.created_at
		FROM blinks b
		JOIN users u ON u.id = b.user_id
		WHERE b.id = $1
	`

	var b Blink
	var u User
	err = s.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.Title, &b.Description, &b.Label, &b.ImageURL, &b.IsCustomInput, &b.UserID, &b.CreatedAt,
		&u.ID, &u.PublicKey, &u.Name, &u.Image, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBlinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blink: %w", err)
	}
	b.User = &u

	amounts, err := s.listAmounts(ctx, []string{b.ID})
	if err != nil {
		return nil, err
	}
	b.Amounts = amounts[b.ID]

	return &b, nil
}

// ListBlinksByUser retrieves every blink owned by the user, newest first.
func (s *Store) ListBlinksByUser(ctx context.Context, userID string) (_ []*Blink, err error) {
	defer s.observe("list", "blinks", time.Now(), &err)

	query := `
		SELECT id, title, description, label, image_url, is_custom_input, user_id::text, created_at
		FROM blinks
		WHERE user_id::text = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blinks: %w", err)
	}
	defer rows.Close()

	blinks := []*Blink{}
	var ids []string
	for rows.Next() {
		var b Blink
		if err := rows.Scan(&b.ID, &b.Title, &b.Description, &b.Label, &b.ImageURL, &b.IsCustomInput, &b.UserID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blink: %w", err)
		}
		blinks = append(blinks, &b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blinks: %w", err)
	}

	if len(ids) == 0 {
		return blinks, nil
	}

	amounts, err := s.listAmounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, b := range blinks {
		b.Amounts = amounts[b.ID]
	}

	return blinks, nil
}

// CountBlinks returns the number of blinks created since the given time.
func (s *Store) CountBlinks(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM blinks WHERE created_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count blinks: %w", err)
	}
	return n, nil
}

func (s *Store) listAmounts(ctx context.Context, blinkIDs []string) (map[string][]Amount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, blink_id, value::text
		FROM amounts
		WHERE blink_id = ANY($1)
		ORDER BY blink_id, position
	`, blinkIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list amounts: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]Amount, len(blinkIDs))
	for rows.Next() {
		var a Amount
		var value string
		if err := rows.Scan(&a.ID, &a.BlinkID, &value); err != nil {
			return nil, fmt.Errorf("failed to scan amount: %w", err)
		}
		a.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", value, err)
		}
		result[a.BlinkID] = append(result[a.BlinkID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating amounts: %w", err)
	}

	return result, nil
}
