package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("TELLER_TEST_DIR", "/var/data")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain path untouched", "/etc/teller.yaml", "/etc/teller.yaml"},
		{"tilde alone", "~", home},
		{"tilde prefix", "~/teller/db", filepath.Join(home, "teller", "db")},
		{"env var", "$TELLER_TEST_DIR/teller.db", "/var/data/teller.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}
