// internal/config/model.go
//
// Typed configuration model for the Superset runtime.
//
// Context
// -------
// These structs define the snapshot that `internal/config/loader.go`
// builds from three overlay layers:
//
//   • optional `.env`                 – dotenv values,
//   • optional YAML overlay           – operator defaults,
//   • the process environment         – highest precedence.
//
// The snapshot is what the external runtime imports.  Its exported view
// (`Exports`) carries the four names Superset reads from
// `superset_config.py`: SQLALCHEMY_DATABASE_URI, CACHE_CONFIG, SECRET_KEY,
// and WTF_CSRF_ENABLED.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"` on the raw input model; the published
//     Snapshot is never unmarshalled directly.
//   • Oxford commas, two spaces after periods.

package config

import "time"

//
// Fixed cache descriptor values
//

const (
	CacheType           = "RedisCache"
	CacheDefaultTimeout = 300 // seconds
	CacheKeyPrefix      = "superset_"
	CacheRedisDB        = 1

	DefaultRedisHost = "localhost"
	DefaultRedisPort = "6379"

	// MissingPlaceholder is what an unset database variable renders as
	// inside the connection URI.
	MissingPlaceholder = "None"
)

//
// Raw input section
//

// rawInput mirrors the merged koanf tree.  Pointer fields distinguish an
// unset variable (nil) from one set to the empty string.
type rawInput struct {
	Database struct {
		User     *string `koanf:"user"`
		Password *string `koanf:"password"`
		Host     *string `koanf:"host"`
		Port     *string `koanf:"port"`
		DB       *string `koanf:"db"`
	} `koanf:"database"`
	Cache struct {
		RedisHost *string `koanf:"redis_host"`
		RedisPort *string `koanf:"redis_port"`
	} `koanf:"cache"`
	SecretKey *string `koanf:"secret_key"`
}

//
// Database section
//

// Part is one environment-sourced value plus whether it was present.
type Part struct {
	Value string
	Set   bool
}

// String renders the part the way the URI template sees it.
func (p Part) String() string {
	if !p.Set {
		return MissingPlaceholder
	}
	return p.Value
}

// DatabaseParts holds the five URI components.
type DatabaseParts struct {
	User     Part
	Password Part
	Host     Part
	Port     Part
	DB       Part
}

//
// Cache section
//

// Cache is the cache-backend descriptor handed to the runtime.
type Cache struct {
	Type           string
	DefaultTimeout int
	KeyPrefix      string
	RedisHost      string
	RedisPort      string
	RedisDB        int
}

// Addr joins host and port for Redis clients.
func (c Cache) Addr() string { return c.RedisHost + ":" + c.RedisPort }

//
// Source section (runtime only)
//

// Source records which optional layers were actually read.
type Source struct {
	EnvFile     string // empty when no dotenv file was found
	OverlayFile string // empty when no overlay was configured
}

//
// Root aggregate
//

// Snapshot is the immutable aggregate returned by Load and cached in an
// atomic.Pointer for lock-free reads throughout the process lifetime.
type Snapshot struct {
	DatabaseURI string
	Database    DatabaseParts
	Cache       Cache
	SecretKey   Part
	CSRFEnabled bool

	Missing  []string // unset variable names, sorted
	Source   Source
	LoadedAt time.Time
}

// HasSecretKey reports whether SUPERSET_SECRET_KEY produced a non-empty
// value.
func (s *Snapshot) HasSecretKey() bool { return s.SecretKey.Value != "" }
