// Package auth implements wallet-signature sign-in: the challenge message a
// wallet signs, verification of that signature, the session token issued on
// success, and an optional one-time-use guard for nonces.
package auth

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const (
	messageGreeting    = "Welcome to Blinks!"
	messageInstruction = "Please sign this message to login."
	nonceMarker        = "Nonce: "

	nonceAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	nonceLength   = 8
)

// SigninMessage binds a wallet public key and a nonce.
// The JSON form is what clients submit as the "message" credential.
type SigninMessage struct {
	PublicKey string `json:"publicKey"`
	Nonce     string `json:"nonce"`
}

// Text renders the exact bytes a wallet signs.
// Only the nonce is recoverable from the text; the public key travels out of band.
func (m SigninMessage) Text() string {
	return messageGreeting + "\n\n" + messageInstruction + "\n\n" + nonceMarker + m.Nonce
}

// DecodeSigninMessage recovers the nonce from rendered text: everything after
// the marker that opens the last line, or after the final marker when the line
// does not start with one. The returned message never carries a public key.
func DecodeSigninMessage(text string) SigninMessage {
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	if nonce, ok := strings.CutPrefix(last, nonceMarker); ok {
		return SigninMessage{Nonce: nonce}
	}
	if i := strings.LastIndex(last, nonceMarker); i >= 0 {
		last = last[i+len(nonceMarker):]
	}
	return SigninMessage{Nonce: last}
}

var (
	nonceSource       io.Reader = rand.Reader
	nonceAlphabetSize           = big.NewInt(int64(len(nonceAlphabet)))
)

// NewNonce returns a short random lowercase alphanumeric token.
// Every character is drawn uniformly from the alphabet.
func NewNonce() (string, error) {
	buf := make([]byte, nonceLength)
	for i := range buf {
		n, err := rand.Int(nonceSource, nonceAlphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate nonce: %w", err)
		}
		buf[i] = nonceAlphabet[n.Int64()]
	}
	return string(buf), nil
}
