package events

import (
	"time"

	"github.com/brojonat/blinks/service/db"
)

const (
	// SubjectBlinkCreated receives one message per created blink.
	SubjectBlinkCreated = "blinks.created"

	// SubjectSignedIn receives one message per successful wallet sign-in.
	SubjectSignedIn = "auth.signed_in"
)

// BlinkCreatedEvent is published after a blink and its amounts are stored.
type BlinkCreatedEvent struct {
	BlinkID        string    `json:"blink_id"`
	Title          string    `json:"title"`
	OwnerID        string    `json:"owner_id"`
	OwnerPublicKey string    `json:"owner_public_key"`
	Amounts        []string  `json:"amounts"`
	IsCustomInput  bool      `json:"is_custom_input"`
	CreatedAt      time.Time `json:"created_at"`

	PublishedAt time.Time `json:"published_at"`
}

// SignedInEvent is published after a wallet signature is accepted.
type SignedInEvent struct {
	UserID    string `json:"user_id"`
	PublicKey string `json:"public_key"`
	Nonce     string `json:"nonce"`

	SignedInAt  time.Time `json:"signed_in_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromDBBlink converts a stored blink to a BlinkCreatedEvent for publishing.
func FromDBBlink(b *db.Blink) *BlinkCreatedEvent {
	event := &BlinkCreatedEvent{
		BlinkID:       b.ID,
		Title:         b.Title,
		OwnerID:       b.UserID,
		IsCustomInput: b.IsCustomInput,
		CreatedAt:     b.CreatedAt,
		Amounts:       make([]string, len(b.Amounts)),
		PublishedAt:   time.Now().UTC(),
	}

	for i, a := range b.Amounts {
		event.Amounts[i] = a.Value.String()
	}
	if b.User != nil {
		event.OwnerPublicKey = b.User.PublicKey
	}

	return event
}
