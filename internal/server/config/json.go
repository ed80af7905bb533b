package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gemdeck/internal/flagx"
	"github.com/dmitrijs2005/gemdeck/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration so
// the file may say "168h" instead of nanoseconds. Booleans are pointers so an
// absent key leaves the default alone.
type JsonConfig struct {
	HTTPAddr         string         `json:"http_addr"`
	GRPCAddr         string         `json:"grpc_addr"`
	EncryptionSecret string         `json:"encryption_secret"`
	SessionSecret    string         `json:"session_secret"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	AdminEmail       string         `json:"admin_email"`
	LegacySessions   *bool          `json:"legacy_sessions"`
	PublicFileLinks  *bool          `json:"public_file_links"`
	CookieSecure     *bool          `json:"cookie_secure"`
	MaxUploadBytes   int64          `json:"max_upload_bytes"`

	StorageBackend string `json:"storage_backend"`
	DatabaseDSN    string `json:"database_dsn"`
	BoltPath       string `json:"bolt_path"`
	S3User         string `json:"s3_user"`
	S3Password     string `json:"s3_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3Endpoint     string `json:"s3_endpoint"`

	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleRedirectURL  string `json:"google_redirect_url"`

	TurnstileEnabled *bool  `json:"turnstile_enabled"`
	TurnstileSecret  string `json:"turnstile_secret"`

	LogLevel       string         `json:"log_level"`
	LogFormat      string         `json:"log_format"`
	HealthInterval timex.Duration `json:"health_interval"`
}

// parseJson overlays values from the JSON file named by -c/-config (or
// GEMDECK_CONFIG). Keys missing from the file keep their current value.
// An unreadable or malformed file panics, like a bad flag does.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.EncryptionSecret, c.EncryptionSecret)
	setString(&config.SessionSecret, c.SessionSecret)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BoltPath, c.BoltPath)
	setString(&config.S3User, c.S3User)
	setString(&config.S3Password, c.S3Password)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&config.TurnstileSecret, c.TurnstileSecret)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	setBool(&config.LegacySessions, c.LegacySessions)
	setBool(&config.PublicFileLinks, c.PublicFileLinks)
	setBool(&config.CookieSecure, c.CookieSecure)
	setBool(&config.TurnstileEnabled, c.TurnstileEnabled)

	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.HealthInterval.Duration > 0 {
		config.HealthInterval = c.HealthInterval.Duration
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
