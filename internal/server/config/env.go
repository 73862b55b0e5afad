package config

import (
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. SIC_DATABASE_DSN.
const EnvPrefix = "SIC"

// parseEnv overlays SIC_* environment variables onto config. Keys use the
// same names as the JSON file.
func parseEnv(config *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("environment", &config.Environment)
	str("log_format", &config.LogFormat)
	str("endpoint_addr_grpc", &config.EndpointAddrGRPC)
	str("database_dsn", &config.DatabaseDSN)
	if v.IsSet("signing_mode") {
		config.SigningMode = SigningMode(v.GetString("signing_mode"))
	}
	str("secret_key", &config.SecretKey)
	if v.IsSet("access_token_validity_duration") {
		config.AccessTokenValidityDuration = v.GetDuration("access_token_validity_duration")
	}
	num("user_secret_length", &config.UserSecretLength)
	num("bcrypt_cost", &config.BcryptCost)
	str("audit_log_path", &config.AuditLogPath)
	str("s3_audit_bucket", &config.S3AuditBucket)
	str("s3_region", &config.S3Region)
	str("s3_base_endpoint", &config.S3BaseEndpoint)
	str("s3_root_user", &config.S3RootUser)
	str("s3_root_password", &config.S3RootPassword)
	str("redis_addr", &config.RedisAddr)
	str("redis_password", &config.RedisPassword)
	num("redis_db", &config.RedisDB)
}
