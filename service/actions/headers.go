package actions

import (
	"fmt"
	"net/http"
)

// Version is the Solana Actions specification version advertised in responses.
const Version = "2.1.3"

// Blockchain IDs in CAIP-2 form.
const (
	BlockchainIDMainnet = "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp"
	BlockchainIDDevnet  = "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"
	BlockchainIDTestnet = "solana:4uhcVJyU9pJkvQyS88uRDiswHXSCkY3z"
)

// BlockchainID returns the CAIP-2 identifier for a cluster name.
func BlockchainID(cluster string) (string, error) {
	switch cluster {
	case "mainnet":
		return BlockchainIDMainnet, nil
	case "devnet":
		return BlockchainIDDevnet, nil
	case "testnet":
		return BlockchainIDTestnet, nil
	default:
		return "", fmt.Errorf("unknown cluster %q", cluster)
	}
}

// Headers sets the CORS and action headers on every action response.
func Headers(blockchainID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			SetHeaders(w.Header(), blockchainID)
			next.ServeHTTP(w, r)
		})
	}
}

// SetHeaders writes the action headers into h.
func SetHeaders(h http.Header, blockchainID string) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Content-Encoding, Accept-Encoding, X-Action-Version, X-Blockchain-Ids")
	h.Set("Access-Control-Expose-Headers", "X-Action-Version, X-Blockchain-Ids")
	h.Set("Content-Type", "application/json")
	h.Set("X-Action-Version", Version)
	if blockchainID != "" {
		h.Set("X-Blockchain-Ids", blockchainID)
	}
}
