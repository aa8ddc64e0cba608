package plaid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		ClientID:    "client",
		Secret:      "secret",
		Environment: "sandbox",
		AccessToken: "access-token",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid sandbox", mutate: func(_ *Config) {}},
		{name: "valid production", mutate: func(c *Config) { c.Environment = "production" }},
		{name: "missing client ID", mutate: func(c *Config) { c.ClientID = "" }, wantErr: "client ID"},
		{name: "missing secret", mutate: func(c *Config) { c.Secret = "" }, wantErr: "secret"},
		{name: "missing access token", mutate: func(c *Config) { c.AccessToken = "" }, wantErr: "access token"},
		{name: "bad environment", mutate: func(c *Config) { c.Environment = "staging" }, wantErr: "environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestNewClientBuildsForSandbox(t *testing.T) {
	client, err := NewClient(Config{
		ClientID:    "client",
		Secret:      "secret",
		Environment: "sandbox",
		AccessToken: "access-token",
	})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
