package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSessions() []Session {
	return []Session{
		{
			ID:        "s-2",
			Title:     "Rent or buy",
			CreatedAt: time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC),
			Messages: []Message{
				{Role: RoleUser, Text: "Rent or buy?", Attachment: &Attachment{Name: "plan.png", MediaType: "image/png", Path: "/tmp/plan.png"}},
				{Role: RoleAssistant, Text: "Consider your timeline..."},
			},
		},
		{
			ID:        "s-1",
			Title:     DefaultTitle,
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			Messages:  []Message{},
		},
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleSessions()

	data, err := Encode(in)
	require.NoError(t, err)
	out, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, in, out)
}

func TestEncode_WritesVersionTag(t *testing.T) {
	data, err := Encode(sampleSessions())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":2`)
}

func TestDecode_NoState(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace", "   \n"},
		{"garbage", "not json at all"},
		{"truncated", `{"version":2,"sessions":[{"id":"a"`},
		{"scalar", `42`},
		{"string", `"sessions"`},
		{"empty array", `[]`},
		{"empty envelope", `{"version":2,"sessions":[]}`},
		{"object instead of array", `{"version":2,"sessions":{"id":"a"}}`},
		{"only records without id", `[{"title":"x"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Decode([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoState), "got %v", err)
			assert.Nil(t, out)
		})
	}
}

func TestDecode_FutureVersionRejected(t *testing.T) {
	_, err := Decode([]byte(`{"version":99,"sessions":[{"id":"a"}]}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecode_MigratesLegacyArray(t *testing.T) {
	legacy := `[
		{"id":"abc","title":"Should I move to Berlin","createdAt":1735689600000,
		 "messages":[{"role":"user","text":"Should I move to Berlin?"},{"role":"assistant","text":"Depends."}]},
		{"id":"def","title":"","createdAt":"2025-01-02T00:00:00Z","messages":[]}
	]`

	out, err := Decode([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "abc", out[0].ID)
	assert.True(t, out[0].CreatedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Len(t, out[0].Messages, 2)
	assert.Equal(t, RoleAssistant, out[0].Messages[1].Role)

	assert.Equal(t, DefaultTitle, out[1].Title, "blank legacy titles fall back to the default")
	assert.True(t, out[1].CreatedAt.Equal(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func TestDecode_UnversionedEnvelopeIsLegacy(t *testing.T) {
	out, err := Decode([]byte(`{"sessions":[{"id":"x","title":"t","createdAt":0,"messages":[]}]}`))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "x", out[0].ID)
}

func TestDecode_SanitizesRecords(t *testing.T) {
	data := `{"version":2,"sessions":[
		{"id":"a","title":"A","messages":[{"role":"user","text":"ok"},{"role":"robot","text":"drop me"}]},
		{"id":"a","title":"duplicate"},
		{"id":"","title":"no id"}
	]}`

	out, err := Decode([]byte(data))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].Title)
	require.Len(t, out[0].Messages, 1)
	assert.Equal(t, "ok", out[0].Messages[0].Text)
}
