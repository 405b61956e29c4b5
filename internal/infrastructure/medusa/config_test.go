package medusa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name:   "valid config",
			config: &Config{BaseURL: "http://localhost:9000/", APIKey: "sk_test"},
		},
		{
			name:    "missing base URL",
			config:  &Config{APIKey: "sk_test"},
			wantErr: ErrConfigMissingBaseURL,
		},
		{
			name:    "relative base URL",
			config:  &Config{BaseURL: "localhost:9000", APIKey: "sk_test"},
			wantErr: ErrConfigInvalidBaseURL,
		},
		{
			name:    "missing API key",
			config:  &Config{BaseURL: "http://localhost:9000"},
			wantErr: ErrConfigMissingAPIKey,
		},
		{
			name:    "negative rate",
			config:  &Config{BaseURL: "http://localhost:9000", APIKey: "sk_test", RateLimit: -1},
			wantErr: ErrConfigInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:9000", tt.config.BaseURL)
			assert.Equal(t, 30*time.Second, tt.config.Timeout)
			assert.Equal(t, 1, tt.config.RateBurst)
		})
	}
}
