// internal/config/exports.go
//
// Exported view of a Snapshot.
//
// Context
// -------
// Superset imports four module-level names from its config file.  Exports
// carries exactly those names, in the same shape, so renderers and the
// HTTP surface never reach into Snapshot internals.  Field order matches
// the order the names are written in a rendered `superset_config.py`.

package config

const redactMask = "********"

// CacheConfig is the CACHE_CONFIG mapping.  It always has six keys.
type CacheConfig struct {
	Type           string `json:"CACHE_TYPE"            yaml:"CACHE_TYPE"`
	DefaultTimeout int    `json:"CACHE_DEFAULT_TIMEOUT" yaml:"CACHE_DEFAULT_TIMEOUT"`
	KeyPrefix      string `json:"CACHE_KEY_PREFIX"      yaml:"CACHE_KEY_PREFIX"`
	RedisHost      string `json:"CACHE_REDIS_HOST"      yaml:"CACHE_REDIS_HOST"`
	RedisPort      string `json:"CACHE_REDIS_PORT"      yaml:"CACHE_REDIS_PORT"`
	RedisDB        int    `json:"CACHE_REDIS_DB"        yaml:"CACHE_REDIS_DB"`
}

// Entry is one key/value pair of CACHE_CONFIG.
type Entry struct {
	Key   string
	Value any
}

// Entries returns the mapping in declaration order.
func (c CacheConfig) Entries() []Entry {
	return []Entry{
		{"CACHE_TYPE", c.Type},
		{"CACHE_DEFAULT_TIMEOUT", c.DefaultTimeout},
		{"CACHE_KEY_PREFIX", c.KeyPrefix},
		{"CACHE_REDIS_HOST", c.RedisHost},
		{"CACHE_REDIS_PORT", c.RedisPort},
		{"CACHE_REDIS_DB", c.RedisDB},
	}
}

// Map returns the mapping as an unordered map.
func (c CacheConfig) Map() map[string]any {
	m := make(map[string]any, 6)
	for _, e := range c.Entries() {
		m[e.Key] = e.Value
	}
	return m
}

// Exports is the set of values the external runtime imports.
type Exports struct {
	DatabaseURI string      `json:"SQLALCHEMY_DATABASE_URI" yaml:"SQLALCHEMY_DATABASE_URI"`
	CacheConfig CacheConfig `json:"CACHE_CONFIG"            yaml:"CACHE_CONFIG"`
	SecretKey   string      `json:"SECRET_KEY"              yaml:"SECRET_KEY"`
	CSRFEnabled bool        `json:"WTF_CSRF_ENABLED"        yaml:"WTF_CSRF_ENABLED"`

	// SecretKeySet separates an unset secret from one set to "".
	SecretKeySet bool `json:"-" yaml:"-"`
}

// Exports returns the runtime view of s.
func (s *Snapshot) Exports() Exports {
	return Exports{
		DatabaseURI: s.DatabaseURI,
		CacheConfig: CacheConfig{
			Type:           s.Cache.Type,
			DefaultTimeout: s.Cache.DefaultTimeout,
			KeyPrefix:      s.Cache.KeyPrefix,
			RedisHost:      s.Cache.RedisHost,
			RedisPort:      s.Cache.RedisPort,
			RedisDB:        s.Cache.RedisDB,
		},
		SecretKey:    s.SecretKey.Value,
		CSRFEnabled:  s.CSRFEnabled,
		SecretKeySet: s.SecretKey.Set,
	}
}

// Redacted is Exports with the database password and secret key masked.
// An empty secret stays empty so operators can still spot it.
func (s *Snapshot) Redacted() Exports {
	e := s.Exports()
	e.DatabaseURI = RedactedDatabaseURI(s.Database)
	if e.SecretKey != "" {
		e.SecretKey = redactMask
	}
	return e
}
