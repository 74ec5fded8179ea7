package moderation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCensor(t *testing.T) {
	mod, err := New([]string{"badger", "weasel"}, '*')
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple word",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "case insensitive",
			input:    "BADGER alert",
			expected: "****** alert",
		},
		{
			name:     "leet speak digits",
			input:    "that b4dg3r again",
			expected: "that ****** again",
		},
		{
			name:     "multiple words",
			input:    "badger meets weasel",
			expected: "****** meets ******",
		},
		{
			name:     "nothing to censor",
			input:    "a perfectly fine sentence",
			expected: "a perfectly fine sentence",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, mod.Censor(tt.input))
		})
	}
}

func TestCensorPreservesSurroundingText(t *testing.T) {
	mod, err := New([]string{"badger"}, '#')
	require.NoError(t, err)

	got := mod.Censor("hello, badger! bye")
	require.Equal(t, "hello, ######! bye", got)
}

func TestCensorDisabledWithoutWords(t *testing.T) {
	mod, err := New(nil, '*')
	require.NoError(t, err)

	input := "badger badger badger"
	require.Equal(t, input, mod.Censor(input))
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	err := os.WriteFile(path, []byte("# comment\nbadger\n\nweasel\n"), 0o644)
	require.NoError(t, err)

	mod, err := NewFromFile(path, '*')
	require.NoError(t, err)

	require.Equal(t, "****** and ******", mod.Censor("badger and weasel"))
}
