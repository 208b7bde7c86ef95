package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// VerdictTTL bounds how long a classifier verdict is reused before the
// backend is consulted again.
const VerdictTTL = 6 * time.Hour

// TextVerdictKey returns the cache key for a text classification verdict.
func TextVerdictKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "verdict:text:" + hex.EncodeToString(sum[:])
}

// ImageVerdictKey returns the cache key for an image classification verdict.
func ImageVerdictKey(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return "verdict:image:" + hex.EncodeToString(sum[:])
}

// GetJSON loads a cached value into dest. Returns false on miss, decode
// failure, or when no cache is configured; callers always fall through to
// the backend.
func GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if client == nil {
		return false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// SetJSON stores a value under key with the given TTL. Failures are
// ignored; the cache is best-effort.
func SetJSON(ctx context.Context, key string, val interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// Invalidate removes a cached entry.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	client.Del(ctx, key)
}
