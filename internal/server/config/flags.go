package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/flagx"
)

var serverFlags = []string{
	"-a", "-g", "-k", "-s", "-t", "-admin",
	"-legacy-sessions", "-public-links", "-cookie-secure", "-max-upload",
	"-storage", "-d", "-bolt", "-u", "-p", "-b", "-r", "-e",
	"-google-id", "-google-secret", "-google-redirect",
	"-turnstile", "-turnstile-secret",
	"-log-level", "-log-format", "-health-interval",
}

// parseFlags populates server Config fields from command-line flags.
//
// Short forms cover the common settings:
//
//	-a string   HTTP listen address (":8080")
//	-g string   gRPC health listen address (":50051")
//	-k string   path encryption secret
//	-s string   session signing secret
//	-t int      session lifetime, hours
//	-d string   PostgreSQL DSN
//	-u/-p/-b/-r/-e  S3 user, password, bucket, region, endpoint
//
// Boolean flags must use the -flag=value form when a value is given.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to serve HTTP")
	fs.StringVar(&config.GRPCAddr, "g", config.GRPCAddr, "address and port to serve gRPC health")
	fs.StringVar(&config.EncryptionSecret, "k", config.EncryptionSecret, "path encryption secret")
	fs.StringVar(&config.SessionSecret, "s", config.SessionSecret, "session signing secret")
	sessionTTL := fs.Int("t", int(config.SessionTTL.Hours()), "session lifetime (in hours)")
	fs.StringVar(&config.AdminEmail, "admin", config.AdminEmail, "administrator email")
	fs.BoolVar(&config.LegacySessions, "legacy-sessions", config.LegacySessions, "accept unsigned legacy session cookies")
	fs.BoolVar(&config.PublicFileLinks, "public-links", config.PublicFileLinks, "serve /api/file tokens without a session")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "mark cookies Secure")
	fs.Int64Var(&config.MaxUploadBytes, "max-upload", config.MaxUploadBytes, "maximum upload size in bytes")

	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend: s3, postgres, bolt or memory")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BoltPath, "bolt", config.BoltPath, "bolt database file")
	fs.StringVar(&config.S3User, "u", config.S3User, "S3 access key")
	fs.StringVar(&config.S3Password, "p", config.S3Password, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "e", config.S3Endpoint, "S3 base endpoint")

	fs.StringVar(&config.GoogleClientID, "google-id", config.GoogleClientID, "Google OAuth client id")
	fs.StringVar(&config.GoogleClientSecret, "google-secret", config.GoogleClientSecret, "Google OAuth client secret")
	fs.StringVar(&config.GoogleRedirectURL, "google-redirect", config.GoogleRedirectURL, "Google OAuth callback URL")

	fs.BoolVar(&config.TurnstileEnabled, "turnstile", config.TurnstileEnabled, "require Turnstile verification")
	fs.StringVar(&config.TurnstileSecret, "turnstile-secret", config.TurnstileSecret, "Turnstile secret key")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format: json or text")
	fs.DurationVar(&config.HealthInterval, "health-interval", config.HealthInterval, "storage health probe interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Hour
}
