package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	event, err := Decode(SubjectBlinkCreated, []byte(`{"blink_id":"b1","amounts":["0.1"],"is_custom_input":true}`))
	require.NoError(t, err)
	created, ok := event.(*BlinkCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, "b1", created.BlinkID)
	assert.Equal(t, []string{"0.1"}, created.Amounts)
	assert.True(t, created.IsCustomInput)

	event, err = Decode(SubjectSignedIn, []byte(`{"user_id":"u1","public_key":"pk","nonce":"abcd1234"}`))
	require.NoError(t, err)
	signedIn, ok := event.(*SignedInEvent)
	require.True(t, ok)
	assert.Equal(t, "pk", signedIn.PublicKey)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("txns.abc", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event subject")

	_, err = Decode(SubjectSignedIn, []byte(`{`))
	assert.ErrorContains(t, err, "failed to decode auth.signed_in event")
}
