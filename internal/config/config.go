// Package config loads server settings from COMMUNITYCONNECT_* environment
// variables.
package config

import (
	"communityconnect/internal/blob"
	"communityconnect/internal/core"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Environment variable prefix.
const envPrefix = "COMMUNITYCONNECT_"

// PasswordHashing selects the credential verifier.
type PasswordHashing string

// Password hashing modes. Plaintext keeps seed passwords usable as stored.
const (
	PasswordPlaintext PasswordHashing = "plaintext"
	PasswordBcrypt    PasswordHashing = "bcrypt"
)

// Defaults applied when the matching variable is unset.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultSQLitePath      = "communityconnect.db"
	DefaultBlobRoot        = "./blobdata"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config is the resolved server configuration.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	Storage core.StorageConfig
	// Media is the blob store for uploaded images. It shares driver settings
	// with the blob state backend.
	Media        blob.Config
	MediaBaseURL string

	GoogleMapsAPIKey string
	GeocodeEndpoint  string
	GeocodeTimeout   time.Duration

	PasswordHashing PasswordHashing
	BcryptCost      int

	LogLevel  zapcore.Level
	LogFormat string
	SeedFile  string
}

// FromEnv builds a Config from getenv, usually os.Getenv.
//
//	COMMUNITYCONNECT_HTTP_ADDR          listen address (default :8080)
//	COMMUNITYCONNECT_SHUTDOWN_TIMEOUT   graceful shutdown bound (default 10s)
//	COMMUNITYCONNECT_STORAGE_DRIVER     memory|sqlite|postgres|blob|redis (default sqlite)
//	COMMUNITYCONNECT_SQLITE_PATH        sqlite file (default communityconnect.db)
//	COMMUNITYCONNECT_POSTGRES_DSN       required when driver=postgres
//	COMMUNITYCONNECT_REDIS_ADDR         required when driver=redis
//	COMMUNITYCONNECT_REDIS_PASSWORD     optional
//	COMMUNITYCONNECT_REDIS_DB           database number (default 0)
//	COMMUNITYCONNECT_STATE_PREFIX       object prefix when driver=blob (default state/)
//	COMMUNITYCONNECT_BLOB_DRIVER        fs|s3|memory (default fs)
//	COMMUNITYCONNECT_BLOB_FS_ROOT       fs root (default ./blobdata)
//	COMMUNITYCONNECT_BLOB_PUBLIC_URL    public prefix for fs objects
//	COMMUNITYCONNECT_BLOB_S3_BUCKET     required when blob driver=s3
//	COMMUNITYCONNECT_BLOB_S3_REGION, _ENDPOINT, _PATH_STYLE
//	COMMUNITYCONNECT_MEDIA_BASE_URL     prefix written into records (default /media/)
//	COMMUNITYCONNECT_GOOGLE_MAPS_API_KEY enables geocoding
//	COMMUNITYCONNECT_GEOCODE_ENDPOINT   overrides the geocoding endpoint
//	COMMUNITYCONNECT_GEOCODE_TIMEOUT    lookup bound (default 5s)
//	COMMUNITYCONNECT_PASSWORD_HASHING   plaintext|bcrypt (default plaintext)
//	COMMUNITYCONNECT_BCRYPT_COST        bcrypt cost (default library default)
//	COMMUNITYCONNECT_LOG_LEVEL          debug|info|warn|error (default info)
//	COMMUNITYCONNECT_LOG_FORMAT         json|console (default json)
//	COMMUNITYCONNECT_SEED_FILE          JSON or YAML seed replacing the built-in dataset
func FromEnv(getenv func(string) string) (Config, error) {
	env := func(name string) string { return strings.TrimSpace(getenv(envPrefix + name)) }
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	cfg := Config{
		HTTPAddr:         or(env("HTTP_ADDR"), DefaultHTTPAddr),
		MediaBaseURL:     or(env("MEDIA_BASE_URL"), core.DefaultMediaBaseURL),
		GoogleMapsAPIKey: env("GOOGLE_MAPS_API_KEY"),
		GeocodeEndpoint:  env("GEOCODE_ENDPOINT"),
		PasswordHashing:  PasswordHashing(strings.ToLower(or(env("PASSWORD_HASHING"), string(PasswordPlaintext)))),
		LogFormat:        strings.ToLower(or(env("LOG_FORMAT"), "json")),
		SeedFile:         env("SEED_FILE"),
	}

	var err error
	if cfg.ShutdownTimeout, err = duration(env("SHUTDOWN_TIMEOUT"), DefaultShutdownTimeout); err != nil {
		return Config{}, fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", envPrefix, err)
	}
	if cfg.GeocodeTimeout, err = duration(env("GEOCODE_TIMEOUT"), core.DefaultGeocodeTimeout); err != nil {
		return Config{}, fmt.Errorf("%sGEOCODE_TIMEOUT: %w", envPrefix, err)
	}

	cfg.Media = blob.Config{
		Driver:        blob.Driver(or(env("BLOB_DRIVER"), string(blob.DriverFilesystem))),
		FSRoot:        or(env("BLOB_FS_ROOT"), DefaultBlobRoot),
		PublicBaseURL: env("BLOB_PUBLIC_URL"),
		S3: blob.S3Config{
			Bucket:    env("BLOB_S3_BUCKET"),
			Region:    env("BLOB_S3_REGION"),
			Endpoint:  env("BLOB_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(env("BLOB_S3_PATH_STYLE"), "true"),
		},
	}

	cfg.Storage = core.StorageConfig{
		Driver:        core.StorageDriver(strings.ToLower(or(env("STORAGE_DRIVER"), string(core.StorageSQLite)))),
		SQLitePath:    or(env("SQLITE_PATH"), DefaultSQLitePath),
		PostgresDSN:   env("POSTGRES_DSN"),
		RedisAddr:     env("REDIS_ADDR"),
		RedisPassword: env("REDIS_PASSWORD"),
		BlobPrefix:    env("STATE_PREFIX"),
		Blob:          cfg.Media,
	}
	if v := env("REDIS_DB"); v != "" {
		if cfg.Storage.RedisDB, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%sREDIS_DB: %w", envPrefix, err)
		}
	}
	if v := env("BCRYPT_COST"); v != "" {
		if cfg.BcryptCost, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%sBCRYPT_COST: %w", envPrefix, err)
		}
	}
	if cfg.LogLevel, err = zapcore.ParseLevel(or(env("LOG_LEVEL"), "info")); err != nil {
		return Config{}, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the combinations FromEnv cannot express on its own.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StorageBlob:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%sPOSTGRES_DSN required for postgres storage", envPrefix)
		}
	case core.StorageRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("%sREDIS_ADDR required for redis storage", envPrefix)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Media.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Media.S3.Bucket == "" {
			return fmt.Errorf("%sBLOB_S3_BUCKET required for s3 blob driver", envPrefix)
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Media.Driver)
	}
	switch c.PasswordHashing {
	case PasswordPlaintext, PasswordBcrypt:
	default:
		return fmt.Errorf("unknown password hashing %q", c.PasswordHashing)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Credentials returns the verifier selected by PasswordHashing.
func (c Config) Credentials() core.CredentialVerifier {
	if c.PasswordHashing == PasswordBcrypt {
		return core.BcryptCredentials{Cost: c.BcryptCost}
	}
	return core.PlaintextCredentials{}
}

func duration(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}
