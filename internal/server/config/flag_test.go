package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
	}{
		{
			name: "all flags set",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret", "-t", "60",
				"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1",
				"-e", "http://endpoint", "-o", "https://app.example.com",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:9090",
				DatabaseDSN:                  "db",
				SecretKey:                    "secret",
				SessionTokenValidityDuration: 60 * time.Minute,
				S3RootUser:                   "user",
				S3RootPassword:               "password",
				S3Bucket:                     "bucket",
				S3Region:                     "us-west-1",
				S3BaseEndpoint:               "http://endpoint",
				TrustedOrigins:               []string{"https://app.example.com"},
			},
		},
		{
			name: "multiple origins",
			args: []string{"cmd", "-o", "https://a.example.com,https://b.example.com"},
			expected: &Config{
				SessionTokenValidityDuration: 0,
				TrustedOrigins:               []string{"https://a.example.com", "https://b.example.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origArgs := os.Args
			t.Cleanup(func() { os.Args = origArgs })
			os.Args = tt.args

			cfg := &Config{}
			parseFlags(cfg)

			assert.Equal(t, tt.expected.EndpointAddrHTTP, cfg.EndpointAddrHTTP)
			assert.Equal(t, tt.expected.DatabaseDSN, cfg.DatabaseDSN)
			assert.Equal(t, tt.expected.SecretKey, cfg.SecretKey)
			assert.Equal(t, tt.expected.SessionTokenValidityDuration, cfg.SessionTokenValidityDuration)
			assert.Equal(t, tt.expected.S3RootUser, cfg.S3RootUser)
			assert.Equal(t, tt.expected.S3RootPassword, cfg.S3RootPassword)
			assert.Equal(t, tt.expected.S3Bucket, cfg.S3Bucket)
			assert.Equal(t, tt.expected.S3Region, cfg.S3Region)
			assert.Equal(t, tt.expected.S3BaseEndpoint, cfg.S3BaseEndpoint)
			assert.Equal(t, tt.expected.TrustedOrigins, cfg.TrustedOrigins)
		})
	}
}

func TestParseFlags_KeepsDefaultsWhenUnset(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, ":4000", cfg.EndpointAddrHTTP)
	assert.Equal(t, 24*time.Hour, cfg.SessionTokenValidityDuration)
	assert.Equal(t, []string{"*"}, cfg.TrustedOrigins)
}
