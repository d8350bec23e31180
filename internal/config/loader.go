// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Snapshot` from three layers (highest
precedence last):

  1. Optional dotenv file, read with godotenv into the tree without
     touching the process environment.
  2. Optional YAML overlay (`Options.OverlayFile`).
  3. The eight Superset variables from the process environment, mapped to
     tree keys (e.g., `DATABASE_USER → database.user`).

When a SecretResolver is configured, values of the form
`vault:<mount>/<path>#<key>` are then resolved through it; without one, or
for values that merely start with `vault:`, the input is kept verbatim.
Finally the fixed template and constants are applied, strict mode (if enabled) validates the result, and the
snapshot is cached in an `atomic.Pointer` for lock-free reads.  `Reload()`
repeats the last load and swaps the pointer.

Latent failures
---------------
In the default mode nothing is rejected.  An unset database variable
renders as `None` inside the URI and an unset secret key stays empty,
exactly what the runtime would see from a plain environment read.  The
loader only reports these through a WARN log and the
`superset_config_missing_vars` gauge.

Instrumentation
---------------
  • DEBUG spans – dotenv read, YAML read, env overlay.
  • WARN  span  – unset variables (names only, never values).
  • ERROR spans – YAML parse, unmarshal, secret resolution, validation.
  • INFO  span  – final “config loaded” with non-secret highlights.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/AdeptTravel/superset-config/internal/metrics"
)

//
// Environment variable names
//

const (
	EnvDatabaseUser     = "DATABASE_USER"
	EnvDatabasePassword = "DATABASE_PASSWORD"
	EnvDatabaseHost     = "DATABASE_HOST"
	EnvDatabasePort     = "DATABASE_PORT"
	EnvDatabaseDB       = "DATABASE_DB"
	EnvRedisHost        = "REDIS_HOST"
	EnvRedisPort        = "REDIS_PORT"
	EnvSecretKey        = "SUPERSET_SECRET_KEY"

	// Loader switches, not part of the snapshot.
	EnvOverlayFile = "SUPERSET_CONFIG_FILE"
	EnvStrict      = "SUPERSET_CONFIG_STRICT"

	// SecretRefPrefix marks a value that must be resolved before use.
	SecretRefPrefix = "vault:"
)

// envKeys maps each consumed variable to its koanf tree key.
var envKeys = map[string]string{
	EnvDatabaseUser:     "database.user",
	EnvDatabasePassword: "database.password",
	EnvDatabaseHost:     "database.host",
	EnvDatabasePort:     "database.port",
	EnvDatabaseDB:       "database.db",
	EnvRedisHost:        "cache.redis_host",
	EnvRedisPort:        "cache.redis_port",
	EnvSecretKey:        "secret_key",
}

// SecretResolver turns a `vault:` reference into its plain value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Options selects the optional layers.  The zero value reads only the
// process environment in lenient mode.
type Options struct {
	EnvFile     string
	OverlayFile string
	Strict      bool
	Resolver    SecretResolver
}

// OptionsFromEnv fills the loader switches from the environment.
func OptionsFromEnv() Options {
	opts := Options{EnvFile: ".env", OverlayFile: os.Getenv(EnvOverlayFile)}
	switch strings.ToLower(os.Getenv(EnvStrict)) {
	case "1", "true", "yes", "on":
		opts.Strict = true
	}
	return opts
}

var (
	current  atomic.Pointer[Snapshot]
	lastOpts atomic.Pointer[Options]
)

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads dotenv, YAML, and environment layers, assembles the snapshot,
// validates it in strict mode, and caches it.
func Load(ctx context.Context, opts Options) (*Snapshot, error) {
	snap, err := build(ctx, opts)
	if err != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		return nil, err
	}

	o := opts
	lastOpts.Store(&o)
	current.Store(snap)

	metrics.ConfigLoadsTotal.Inc()
	metrics.ConfigMissingVars.Set(float64(len(snap.Missing)))
	zap.S().Infow("config loaded",
		"db_host", snap.Database.Host.String(),
		"db_name", snap.Database.DB.String(),
		"cache_addr", snap.Cache.Addr(),
		"secret_key_set", snap.HasSecretKey(),
		"strict", opts.Strict,
	)
	return snap, nil
}

func build(ctx context.Context, opts Options) (*Snapshot, error) {
	k := koanf.New(".")
	var src Source

	if opts.EnvFile != "" {
		vals, err := godotenv.Read(opts.EnvFile)
		switch {
		case err == nil:
			for name, val := range vals {
				if key := envKeys[name]; key != "" {
					_ = k.Set(key, val)
				}
			}
			src.EnvFile = opts.EnvFile
			zap.S().Debugw("config dotenv read", "file", opts.EnvFile, "entries", len(vals))
		case errors.Is(err, os.ErrNotExist):
			zap.S().Debugw("config dotenv absent", "file", opts.EnvFile)
		default:
			zap.S().Errorw("config dotenv read failed", "file", opts.EnvFile, "err", err)
			return nil, fmt.Errorf("read %s: %w", opts.EnvFile, err)
		}
	}

	if opts.OverlayFile != "" {
		if err := k.Load(file.Provider(opts.OverlayFile), yaml.Parser()); err != nil {
			zap.S().Errorw("config yaml load failed", "file", opts.OverlayFile, "err", err)
			return nil, fmt.Errorf("load overlay %s: %w", opts.OverlayFile, err)
		}
		src.OverlayFile = opts.OverlayFile
		zap.S().Debugw("config yaml loaded", "file", opts.OverlayFile)
	}

	// Only the eight Superset variables make it into the tree.
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var raw rawInput
	if err := k.Unmarshal("", &raw); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := resolveSecrets(ctx, opts.Resolver, &raw); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	snap := assemble(&raw)
	snap.Source = src
	if len(snap.Missing) > 0 {
		zap.S().Warnw("config variables unset", "vars", snap.Missing)
	}

	if opts.Strict {
		if err := validateSnapshot(snap); err != nil {
			zap.S().Errorw("config validation failed", "err", err)
			return nil, err
		}
	}
	return snap, nil
}

// assemble applies defaults, the URI template, and the fixed constants.
func assemble(raw *rawInput) *Snapshot {
	var missing []string
	part := func(name string, p *string) Part {
		if p == nil {
			missing = append(missing, name)
			return Part{}
		}
		return Part{Value: *p, Set: true}
	}

	db := DatabaseParts{
		User:     part(EnvDatabaseUser, raw.Database.User),
		Password: part(EnvDatabasePassword, raw.Database.Password),
		Host:     part(EnvDatabaseHost, raw.Database.Host),
		Port:     part(EnvDatabasePort, raw.Database.Port),
		DB:       part(EnvDatabaseDB, raw.Database.DB),
	}

	secret := part(EnvSecretKey, raw.SecretKey)
	sort.Strings(missing)

	return &Snapshot{
		DatabaseURI: ComposeDatabaseURI(db),
		Database:    db,
		Cache: Cache{
			Type:           CacheType,
			DefaultTimeout: CacheDefaultTimeout,
			KeyPrefix:      CacheKeyPrefix,
			RedisHost:      orDefault(raw.Cache.RedisHost, DefaultRedisHost),
			RedisPort:      orDefault(raw.Cache.RedisPort, DefaultRedisPort),
			RedisDB:        CacheRedisDB,
		},
		SecretKey:   secret,
		CSRFEnabled: true,
		Missing:     missing,
		LoadedAt:    time.Now(),
	}
}

// orDefault falls back only when the variable is unset; an empty value is
// kept as is.
func orDefault(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// ErrBadSecretRef is returned when a well-formed `vault:` reference cannot
// be resolved by the configured resolver.
var ErrBadSecretRef = errors.New("unresolvable secret reference")

// ParseSecretRef splits `<mount>/<path>#<key>` (the part after `vault:`)
// into secret path and key.  ok is false for anything else.
func ParseSecretRef(ref string) (secretPath, key string, ok bool) {
	secretPath, key, ok = strings.Cut(ref, "#")
	if !ok || secretPath == "" || key == "" || !strings.Contains(secretPath, "/") {
		return "", "", false
	}
	return secretPath, key, true
}

// resolveSecrets swaps well-formed references for their values.  Without a
// resolver, or when a value only looks like a reference, the input is kept
// verbatim.  Errors name the variable, never its value.
func resolveSecrets(ctx context.Context, r SecretResolver, raw *rawInput) error {
	if r == nil {
		return nil
	}

	fields := []struct {
		name string
		val  *string
	}{
		{EnvDatabaseUser, raw.Database.User},
		{EnvDatabasePassword, raw.Database.Password},
		{EnvDatabaseHost, raw.Database.Host},
		{EnvDatabasePort, raw.Database.Port},
		{EnvDatabaseDB, raw.Database.DB},
		{EnvRedisHost, raw.Cache.RedisHost},
		{EnvRedisPort, raw.Cache.RedisPort},
		{EnvSecretKey, raw.SecretKey},
	}
	for _, f := range fields {
		if f.val == nil || !strings.HasPrefix(*f.val, SecretRefPrefix) {
			continue
		}
		ref := strings.TrimPrefix(*f.val, SecretRefPrefix)
		if _, _, ok := ParseSecretRef(ref); !ok {
			zap.S().Warnw("config value has the secret prefix but is not a reference, kept verbatim",
				"var", f.name)
			continue
		}
		val, err := r.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBadSecretRef, f.name, err)
		}
		*f.val = val
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last published snapshot, or nil before the first Load.
func Get() *Snapshot { return current.Load() }

// Reload repeats the last Load with the same options.
func Reload(ctx context.Context) error {
	opts := lastOpts.Load()
	if opts == nil {
		return errors.New("config: reload before initial load")
	}
	_, err := Load(ctx, *opts)
	return err
}
