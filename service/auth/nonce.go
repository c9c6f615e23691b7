package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceGuard records nonces that have already been used to sign in.
type NonceGuard interface {
	// Claim marks the nonce as used for the public key.
	// It returns false when the pair was claimed before.
	Claim(ctx context.Context, publicKey, nonce string) (bool, error)
}

// RedisNonceGuard is a Redis implementation of NonceGuard.
// Claimed nonces expire after ttl, so a captured signature is replayable only
// once the key has been evicted.
type RedisNonceGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisNonceGuard creates a new Redis-backed nonce guard.
func NewRedisNonceGuard(client *redis.Client, ttl time.Duration) *RedisNonceGuard {
	return &RedisNonceGuard{
		client: client,
		prefix: "blink:nonce:",
		ttl:    ttl,
	}
}

// Claim sets the nonce key only if it does not exist.
func (g *RedisNonceGuard) Claim(ctx context.Context, publicKey, nonce string) (bool, error) {
	key := g.prefix + publicKey + ":" + nonce

	ok, err := g.client.SetNX(ctx, key, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim nonce: %w", err)
	}

	return ok, nil
}
