package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldStateDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)
	var zero time.Time

	tests := []struct {
		name  string
		state FieldState
		want  bool
	}{
		{"not processed", FieldState{Status: FieldNotProcessed}, true},
		{"empty status treated as not processed", FieldState{}, true},
		{"unknown status fails open", FieldState{Status: "garbage"}, true},
		{"done safe", DoneState(true), false},
		{"done unsafe", DoneState(false), false},
		{"cooldown expired", CooldownState(past), true},
		{"cooldown at boundary", CooldownState(now), true},
		{"cooldown pending", CooldownState(future), false},
		{"cooldown missing timestamp", FieldState{Status: FieldCooldown}, true},
		{"cooldown zero timestamp", FieldState{Status: FieldCooldown, CooldownUntil: &zero}, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.state.Due(now))
		})
	}
}

func TestPostAnyFieldDue(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC()

	t.Run("text due", func(t *testing.T) {
		t.Parallel()
		p := &Post{}
		assert.True(t, p.AnyFieldDue(now))
	})

	t.Run("all done no image", func(t *testing.T) {
		t.Parallel()
		p := &Post{TextSafe: DoneState(true)}
		assert.False(t, p.AnyFieldDue(now))
	})

	t.Run("image state ignored without image url", func(t *testing.T) {
		t.Parallel()
		p := &Post{TextSafe: DoneState(true), ImageSafe: FieldState{Status: FieldNotProcessed}}
		assert.False(t, p.AnyFieldDue(now))
	})

	t.Run("image due when url present", func(t *testing.T) {
		t.Parallel()
		p := &Post{TextSafe: DoneState(true), ImageURL: "https://cdn.example.com/a.jpg"}
		assert.True(t, p.AnyFieldDue(now))
	})
}

func TestReasonListRoundTrip(t *testing.T) {
	t.Parallel()

	reasons := ReasonList{"Category: /Adult", "Negative sentiment (-0.80)"}
	v, err := reasons.Value()
	require.NoError(t, err)

	var decoded ReasonList
	require.NoError(t, decoded.Scan(v))
	assert.Equal(t, reasons, decoded)

	t.Run("empty list serializes as empty array", func(t *testing.T) {
		t.Parallel()
		v, err := ReasonList(nil).Value()
		require.NoError(t, err)
		assert.Equal(t, "[]", v)
	})

	t.Run("nil column scans to nil", func(t *testing.T) {
		t.Parallel()
		var r ReasonList
		require.NoError(t, r.Scan(nil))
		assert.Nil(t, r)
	})
}

func TestCombinedText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Sunset at the lake\nso peaceful", (&Post{Title: "Sunset at the lake", Caption: "so peaceful"}).CombinedText())
	assert.Equal(t, "only title", (&Post{Title: "only title"}).CombinedText())
	assert.Equal(t, "", (&Post{}).CombinedText())
}
