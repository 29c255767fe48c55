package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "5551234567", DigitsOnly("(555) 123-4567"))
	assert.Equal(t, "15551234567", DigitsOnly("+1 555.123.4567"))
	assert.Equal(t, "", DigitsOnly("n/a"))
}

func TestResolveMatch_DigitNormalizedEquality(t *testing.T) {
	candidates := []Record{
		{"Id": "003A", "Phone": "555-123-4567"},
		{"Id": "003B", "Phone": "5551234568"},
	}

	got, ok := ResolveMatch(candidates, "Phone", "5551234567")
	require.True(t, ok)
	assert.Equal(t, "003A", got.ID())
}

func TestResolveMatch_FirstInRemoteOrderWins(t *testing.T) {
	candidates := []Record{
		{"Id": "003A", "Phone": "555 123 4567"},
		{"Id": "003B", "Phone": "(555) 123-4567"},
	}

	got, ok := ResolveMatch(candidates, "Phone", "555.123.4567")
	require.True(t, ok)
	assert.Equal(t, "003A", got.ID())
}

func TestResolveMatch_NoMatch(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Record
		input      string
	}{
		{name: "no candidates", candidates: nil, input: "5551234567"},
		{name: "different number", candidates: []Record{{"Id": "1", "Phone": "5550000000"}}, input: "5551234567"},
		{name: "missing phone skipped", candidates: []Record{{"Id": "1"}, {"Id": "2", "Phone": nil}}, input: "5551234567"},
		{name: "input without digits", candidates: []Record{{"Id": "1", "Phone": "--"}}, input: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ResolveMatch(tt.candidates, "Phone", tt.input)
			assert.False(t, ok)
		})
	}
}

func TestNormalizeFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", NormalizeFullName("  Jane   Doe  "))
	assert.Equal(t, "", NormalizeFullName(" \t "))
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{in: "Carlos TEST API", first: "Carlos", last: "TEST API"},
		{in: "  Jane  Doe ", first: "Jane", last: "Doe"},
		{in: "Madonna", first: "Madonna", last: ""},
		{in: "", first: "", last: ""},
	}
	for _, tt := range tests {
		first, last := SplitFullName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestRecord_SetDefault(t *testing.T) {
	r := Record{"FirstName": "Ana", "Nick": nil}
	r.SetDefault("FirstName", "Other")
	r.SetDefault("Nick", "x")
	r.SetDefault("LastName", "Ruiz")

	assert.Equal(t, "Ana", r["FirstName"])
	assert.Nil(t, r["Nick"])
	assert.Equal(t, "Ruiz", r["LastName"])
}
