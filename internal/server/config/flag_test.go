package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "short and long flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-g", ":6000", "-k", "enc", "-s", "sess", "-t", "24",
				"-admin", "boss@example.com", "-legacy-sessions=true", "-public-links=true",
				"-storage", "postgres", "-d", "db", "-u", "user", "-p", "password", "-b", "bucket",
				"-r", "eu-west-1", "-e", "http://endpoint",
				"-google-id", "gid", "-google-secret", "gsecret", "-google-redirect", "http://x/cb",
				"-turnstile=true", "-turnstile-secret", "ts",
				"-log-level", "debug", "-log-format", "text", "-health-interval", "5s",
			},
			expected: &Config{
				HTTPAddr:           "127.0.0.1:9090",
				GRPCAddr:           ":6000",
				EncryptionSecret:   "enc",
				SessionSecret:      "sess",
				SessionTTL:         24 * time.Hour,
				AdminEmail:         "boss@example.com",
				LegacySessions:     true,
				PublicFileLinks:    true,
				StorageBackend:     "postgres",
				DatabaseDSN:        "db",
				S3User:             "user",
				S3Password:         "password",
				S3Bucket:           "bucket",
				S3Region:           "eu-west-1",
				S3Endpoint:         "http://endpoint",
				GoogleClientID:     "gid",
				GoogleClientSecret: "gsecret",
				GoogleRedirectURL:  "http://x/cb",
				TurnstileEnabled:   true,
				TurnstileSecret:    "ts",
				LogLevel:           "debug",
				LogFormat:          "text",
				HealthInterval:     5 * time.Second,
			},
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-t", "week"},
			expectPanic: true,
		},
		{
			name: "foreign flags are ignored",
			args: []string{"cmd", "-c", "conf.json", "-x", "1", "-a", ":1"},
			expected: &Config{
				HTTPAddr: ":1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origArgs := os.Args
			t.Cleanup(func() { os.Args = origArgs })
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(config, tt.expected))
		})
	}
}
