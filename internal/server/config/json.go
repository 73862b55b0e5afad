package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sic/internal/flagx"
	"github.com/dmitrijs2005/sic/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Pointer fields distinguish
// "absent" from a zero value so a partial file only overrides what it sets.
type JsonConfig struct {
	Environment                 *string         `json:"environment"`
	LogFormat                   *string         `json:"log_format"`
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SigningMode                 *string         `json:"signing_mode"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	UserSecretLength            *int            `json:"user_secret_length"`
	BcryptCost                  *int            `json:"bcrypt_cost"`
	AuditLogPath                *string         `json:"audit_log_path"`
	S3AuditBucket               *string         `json:"s3_audit_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	RedisAddr                   *string         `json:"redis_addr"`
	RedisPassword               *string         `json:"redis_password"`
	RedisDB                     *int            `json:"redis_db"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing happens; an unreadable or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.Environment, c.Environment)
	setIf(&config.LogFormat, c.LogFormat)
	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	if c.SigningMode != nil {
		config.SigningMode = SigningMode(*c.SigningMode)
	}
	setIf(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setIf(&config.UserSecretLength, c.UserSecretLength)
	setIf(&config.BcryptCost, c.BcryptCost)
	setIf(&config.AuditLogPath, c.AuditLogPath)
	setIf(&config.S3AuditBucket, c.S3AuditBucket)
	setIf(&config.S3Region, c.S3Region)
	setIf(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setIf(&config.S3RootUser, c.S3RootUser)
	setIf(&config.S3RootPassword, c.S3RootPassword)
	setIf(&config.RedisAddr, c.RedisAddr)
	setIf(&config.RedisPassword, c.RedisPassword)
	setIf(&config.RedisDB, c.RedisDB)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
