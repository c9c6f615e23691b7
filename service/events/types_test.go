package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brojonat/blinks/service/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDBBlink(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	b := &db.Blink{
		ID:            "01HX",
		Title:         "Shelter",
		UserID:        "user-1",
		IsCustomInput: true,
		CreatedAt:     created,
		Amounts: []db.Amount{
			{Value: decimal.RequireFromString("1.50")},
			{Value: decimal.RequireFromString("0.1")},
		},
		User: &db.User{ID: "user-1", PublicKey: "owner-key"},
	}

	event := FromDBBlink(b)
	assert.Equal(t, "01HX", event.BlinkID)
	assert.Equal(t, "owner-key", event.OwnerPublicKey)
	assert.Equal(t, []string{"1.5", "0.1"}, event.Amounts)
	assert.True(t, event.IsCustomInput)
	assert.Equal(t, created, event.CreatedAt)
	assert.False(t, event.PublishedAt.IsZero())
}

func TestMockPublisher(t *testing.T) {
	ctx := context.Background()
	m := NewMockPublisher()

	require.NoError(t, m.PublishBlinkCreated(ctx, &BlinkCreatedEvent{BlinkID: "a"}))
	require.NoError(t, m.PublishSignedIn(ctx, &SignedInEvent{PublicKey: "pk"}))
	assert.Len(t, m.BlinkEvents(), 1)
	assert.Len(t, m.SignInEvents(), 1)

	m.SetPublishError(errors.New("nats down"))
	assert.Error(t, m.PublishSignedIn(ctx, &SignedInEvent{}))
	assert.Len(t, m.SignInEvents(), 1)

	require.NoError(t, m.Close())
	assert.True(t, m.IsClosed())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishBlinkCreated(context.Background(), &BlinkCreatedEvent{}))
	assert.NoError(t, p.PublishSignedIn(context.Background(), &SignedInEvent{}))
	assert.NoError(t, p.Close())
}
