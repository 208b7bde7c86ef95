package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerdict struct {
	Safe    bool     `json:"safe"`
	Reasons []string `json:"reasons"`
}

func setupMiniredis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
}

func TestVerdictRoundTrip(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	in := fakeVerdict{Safe: false, Reasons: []string{"Category: /Adult"}}
	SetJSON(ctx, TextVerdictKey("some text"), in, VerdictTTL)

	var out fakeVerdict
	require.True(t, GetJSON(ctx, TextVerdictKey("some text"), &out))
	assert.Equal(t, in, out)
}

func TestGetJSONMiss(t *testing.T) {
	setupMiniredis(t)

	var out fakeVerdict
	assert.False(t, GetJSON(context.Background(), TextVerdictKey("never stored"), &out))
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	SetJSON(ctx, "k", fakeVerdict{}, time.Minute)
	var out fakeVerdict
	assert.False(t, GetJSON(ctx, "k", &out))
	Invalidate(ctx, "k")
}

func TestKeysDifferByInputAndKind(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, TextVerdictKey("a"), TextVerdictKey("b"))
	assert.NotEqual(t, TextVerdictKey("a"), ImageVerdictKey("a"))
}
