package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "valid oauth config",
			config: Config{
				ClientID:      "id",
				ClientSecret:  "secret",
				RefreshToken:  "token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
		},
		{
			name: "valid service account config",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
		},
		{
			name:    "no authentication",
			config:  Config{BatchSize: 100},
			wantErr: "no authentication method configured",
		},
		{
			name: "both authentication methods",
			config: Config{
				ClientID:           "id",
				ClientSecret:       "secret",
				RefreshToken:       "token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: "multiple authentication methods configured",
		},
		{
			name: "zero batch size",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
			},
			wantErr: "batch size must be positive",
		},
		{
			name: "negative retry attempts",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      -1,
			},
			wantErr: "retry attempts cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Conversation Audit Log", cfg.SpreadsheetName)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.True(t, cfg.EnableFormatting)
}
