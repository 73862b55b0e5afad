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
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	tests := []struct {
		name        string
		args        []string
		start       Config
		expected    *Config
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-m", "global", "-s", "secret", "-t", "15",
				"-l", "/var/log/sic/audit.log", "-b", "audit", "-g", "eu-west-1", "-e", "http://minio:9000",
				"-r", "redis:6379", "-f", "console",
			},
			expected: &Config{
				EndpointAddrGRPC:            "127.0.0.1:9090",
				DatabaseDSN:                 "db",
				SigningMode:                 SigningModeGlobal,
				SecretKey:                   "secret",
				AccessTokenValidityDuration: 15 * time.Minute,
				AuditLogPath:                "/var/log/sic/audit.log",
				S3AuditBucket:               "audit",
				S3Region:                    "eu-west-1",
				S3BaseEndpoint:              "http://minio:9000",
				RedisAddr:                   "redis:6379",
				LogFormat:                   "console",
			},
		},
		{
			name:  "unset ttl keeps sub-minute value",
			args:  []string{"cmd", "-a", ":1"},
			start: Config{AccessTokenValidityDuration: 30 * time.Second, SigningMode: SigningModePerUser},
			expected: &Config{
				EndpointAddrGRPC:            ":1",
				AccessTokenValidityDuration: 30 * time.Second,
				SigningMode:                 SigningModePerUser,
			},
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := tt.start

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(&config) })
				return
			}

			require.NotPanics(t, func() { parseFlags(&config) })
			assert.Empty(t, cmp.Diff(tt.expected, &config))
		})
	}
}
