package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sic/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-m string   token signing mode: per_user | global
//	-s string   global JWT HMAC secret
//	-t int      access token validity, minutes
//	-l string   audit log path
//	-b string   S3 audit bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-r string   Redis address for the site state store
//	-f string   log format: json | console
//
// Only these flags are read from os.Args (see flagx.FilterArgs) so the
// -c/-config flag and unrelated arguments pass through untouched.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-s", "-t", "-l", "-b", "-g", "-e", "-r", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	signingMode := fs.String("m", string(config.SigningMode), "token signing mode (per_user|global)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "global secret key")
	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&config.AuditLogPath, "l", config.AuditLogPath, "audit log path")
	fs.StringVar(&config.S3AuditBucket, "b", config.S3AuditBucket, "S3 audit bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format (json|console)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Converted values are applied only when given explicitly, so a
	// sub-minute TTL from JSON or env is not truncated.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "m":
			config.SigningMode = SigningMode(*signingMode)
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		}
	})
}
