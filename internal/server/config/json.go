package config

import (
	"encoding/json"
	"os"

	"github.com/avolkovs/taskdeck/internal/flagx"
	"github.com/avolkovs/taskdeck/internal/timex"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
// Interval fields use timex.Duration, which accepts both string values such
// as "24h" and integer nanoseconds. After unmarshalling, the values are
// copied into the runtime Config, which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	RateLimitEnabled             *bool          `json:"rate_limit_enabled"`
	RateLimitRPS                 float64        `json:"rate_limit_rps"`
	RateLimitBurst               int            `json:"rate_limit_burst"`
	TrustedOrigins               []string       `json:"trusted_origins"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. If the file cannot be
// read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = c.SessionTokenValidityDuration.Duration
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.RateLimitEnabled != nil {
		config.RateLimitEnabled = *c.RateLimitEnabled
	}
	if c.RateLimitRPS != 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst != 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	if len(c.TrustedOrigins) > 0 {
		config.TrustedOrigins = c.TrustedOrigins
	}
}
