// Package config loads server configuration from an optional YAML file,
// an optional .env file and environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Record store backends.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendMongo      = "mongo"
	BackendPDS        = "pds"
	BackendCloudinary = "cloudinary"
)

// Config validation errors
var (
	// ErrUnknownRecordBackend is returned for a RECORD_BACKEND outside the supported set
	ErrUnknownRecordBackend = errors.New("unknown record backend")
	// ErrUnknownBlobBackend is returned for a BLOB_BACKEND outside the supported set
	ErrUnknownBlobBackend = errors.New("unknown blob backend")
	// ErrMissingDatabaseURL is returned when a postgres backend has no DATABASE_URL
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres backend")
	// ErrMissingMongoURI is returned when the mongo backend has no MONGO_URI
	ErrMissingMongoURI = errors.New("MONGO_URI is required for the mongo backend")
	// ErrMissingPDSCredentials is returned when a pds backend cannot authenticate
	ErrMissingPDSCredentials = errors.New("PDS_HOST plus PDS_HANDLE/PDS_PASSWORD or PDS_DID/PDS_ACCESS_TOKEN are required for the pds backend")
	// ErrMissingCloudinaryURL is returned when the cloudinary backend has no CLOUDINARY_URL
	ErrMissingCloudinaryURL = errors.New("CLOUDINARY_URL is required for the cloudinary backend")
	// ErrInvalidDuration is returned when a TTL or window is not positive
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrInvalidRateLimit is returned when RATE_LIMIT_REQUESTS is not positive
	ErrInvalidRateLimit = errors.New("rate limit must be positive")

	// ErrInvalidTrustedProxy is returned when TRUSTED_PROXIES has an entry
	// that is neither an IP nor a CIDR
	ErrInvalidTrustedProxy = errors.New("trusted proxy must be an IP or CIDR")
)

// Config holds everything cmd/server needs to wire the stores and routes.
type Config struct {
	Port          string `yaml:"port"`
	PublicBaseURL string `yaml:"publicBaseURL"`

	RecordBackend string `yaml:"recordBackend"`
	BlobBackend   string `yaml:"blobBackend"`

	DatabaseURL   string `yaml:"databaseURL"`
	MongoURI      string `yaml:"mongoURI"`
	MongoDatabase string `yaml:"mongoDatabase"`

	PDSHost        string `yaml:"pdsHost"`
	PDSHandle      string `yaml:"pdsHandle"`
	PDSPassword    string `yaml:"pdsPassword"`
	PDSDID         string `yaml:"pdsDID"`
	PDSAccessToken string `yaml:"pdsAccessToken"`

	CloudinaryURL    string `yaml:"cloudinaryURL"`
	CloudinaryFolder string `yaml:"cloudinaryFolder"`

	// BlobSigningJWK is an oct JWK (JSON). Empty means a random key per process.
	BlobSigningJWK string        `yaml:"blobSigningJWK"`
	BlobURLTTL     time.Duration `yaml:"blobURLTTL"`

	NotifyTTL time.Duration `yaml:"notifyTTL"`

	RateLimitRequests int           `yaml:"rateLimitRequests"`
	RateLimitWindow   time.Duration `yaml:"rateLimitWindow"`

	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers name
	// the client for rate limiting. Empty means the headers are ignored.
	TrustedProxies []string `yaml:"trustedProxies"`
}

// DefaultConfig returns development defaults: everything in memory.
func DefaultConfig() Config {
	return Config{
		Port:               "8080",
		PublicBaseURL:      "http://localhost:8080",
		RecordBackend:      BackendMemory,
		BlobBackend:        BackendMemory,
		MongoDatabase:      "memories",
		CloudinaryFolder:   "memories",
		BlobURLTTL:         15 * time.Minute,
		NotifyTTL:          3 * time.Second,
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
		CORSAllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Load reads .env (if present), then the YAML file named by MEMORIES_CONFIG
// (if set), then environment variables, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[CONFIG] failed to load .env file", "error", err)
	}

	cfg := DefaultConfig()
	if path := os.Getenv("MEMORIES_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables. Invalid numbers
// are logged and ignored.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("APP_PORT", &c.Port)
	setString("PUBLIC_BASE_URL", &c.PublicBaseURL)
	setString("RECORD_BACKEND", &c.RecordBackend)
	setString("BLOB_BACKEND", &c.BlobBackend)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("MONGO_URI", &c.MongoURI)
	setString("MONGO_DATABASE", &c.MongoDatabase)
	setString("PDS_HOST", &c.PDSHost)
	setString("PDS_HANDLE", &c.PDSHandle)
	setString("PDS_PASSWORD", &c.PDSPassword)
	setString("PDS_DID", &c.PDSDID)
	setString("PDS_ACCESS_TOKEN", &c.PDSAccessToken)
	setString("CLOUDINARY_URL", &c.CloudinaryURL)
	setString("CLOUDINARY_FOLDER", &c.CloudinaryFolder)
	setString("BLOB_SIGNING_JWK", &c.BlobSigningJWK)

	setInt("BLOB_URL_TTL_SECONDS", func(n int) { c.BlobURLTTL = time.Duration(n) * time.Second })
	setInt("NOTIFY_TTL_MS", func(n int) { c.NotifyTTL = time.Duration(n) * time.Millisecond })
	setInt("RATE_LIMIT_REQUESTS", func(n int) { c.RateLimitRequests = n })
	setInt("RATE_LIMIT_WINDOW_SECONDS", func(n int) { c.RateLimitWindow = time.Duration(n) * time.Second })

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitList(v)
	}

	c.RecordBackend = strings.ToLower(c.RecordBackend)
	c.BlobBackend = strings.ToLower(c.BlobBackend)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func setInt(key string, apply func(int)) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("[CONFIG] invalid integer value, using default",
			"key", key,
			"value", v,
			"error", err,
		)
		return
	}
	apply(n)
}

// Validate checks backend selection and the settings each backend needs.
func (c Config) Validate() error {
	switch c.RecordBackend {
	case BackendMemory, BackendPostgres, BackendMongo, BackendPDS:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRecordBackend, c.RecordBackend)
	}
	switch c.BlobBackend {
	case BackendMemory, BackendPostgres, BackendPDS, BackendCloudinary:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBlobBackend, c.BlobBackend)
	}

	if c.uses(BackendPostgres) && c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.RecordBackend == BackendMongo && c.MongoURI == "" {
		return ErrMissingMongoURI
	}
	if c.uses(BackendPDS) && !c.hasPDSCredentials() {
		return ErrMissingPDSCredentials
	}
	if c.BlobBackend == BackendCloudinary && c.CloudinaryURL == "" {
		return ErrMissingCloudinaryURL
	}

	if c.BlobURLTTL <= 0 {
		return fmt.Errorf("%w: BlobURLTTL got %v", ErrInvalidDuration, c.BlobURLTTL)
	}
	if c.NotifyTTL <= 0 {
		return fmt.Errorf("%w: NotifyTTL got %v", ErrInvalidDuration, c.NotifyTTL)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: RateLimitWindow got %v", ErrInvalidDuration, c.RateLimitWindow)
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRateLimit, c.RateLimitRequests)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a
// single-address prefix.
func (c Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, entry)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// UsesPostgres reports whether either store lives in Postgres.
func (c Config) UsesPostgres() bool { return c.uses(BackendPostgres) }

// UsesPDS reports whether either store lives on a PDS.
func (c Config) UsesPDS() bool { return c.uses(BackendPDS) }

// PDSUsesPassword reports whether PDS auth should use createSession.
func (c Config) PDSUsesPassword() bool {
	return c.PDSHandle != "" && c.PDSPassword != ""
}

func (c Config) uses(backend string) bool {
	return c.RecordBackend == backend || c.BlobBackend == backend
}

func (c Config) hasPDSCredentials() bool {
	if c.PDSHost == "" {
		return false
	}
	return c.PDSUsesPassword() || (c.PDSDID != "" && c.PDSAccessToken != "")
}
