// internal/vault/vault.go
//
// Vault client wrapper for supersetcfg.
//
// Context
// -------
//   - Provides a concurrency‑safe client around the HashiCorp Vault Go SDK.
//   - Resolves `vault:<mount>/<path>#<key>` references found in the
//     Superset variables, so DATABASE_PASSWORD and SUPERSET_SECRET_KEY can
//     live in Vault instead of the process environment.
//   - Adds background token renewal, KV‑v2 helpers, a bounded per‑key TTL
//     cache, and singleflight so concurrent reloads share one fetch.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, vault.DefaultTTL)          // during boot.
//  2. config.Load(ctx, config.Options{Resolver: cli})       // references resolved.
//
// Environment expectations
// ------------------------
// • VAULT_ADDR   – scheme and host of the Vault server.
// • VAULT_TOKEN  – initial token (falls back to ~/.vault‑token).
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/AdeptTravel/superset-config/internal/cache"
	"github.com/AdeptTravel/superset-config/internal/config"
	"github.com/AdeptTravel/superset-config/internal/metrics"
)

// DefaultTTL is how long a resolved secret is reused before refetching.
const DefaultTTL = 5 * time.Minute

const cacheEntries = 256

// ErrBadRef is returned for references that are not `<mount>/<path>#<key>`.
var ErrBadRef = errors.New("vault: malformed secret reference")

//
// SECTION 1.  Public façade
//

// kvReadFn fetches the data map of a KV‑v2 secret.
type kvReadFn func(ctx context.Context, mount, rel string) (map[string]any, error)

// Client is safe for concurrent use.  Create once at startup and pass it to
// config.Load.  Zero value is invalid.
type Client struct {
	api    *vault.Client
	read   kvReadFn
	ttl    time.Duration
	cache  *cache.LRU[string, string] // canonical path#key → value.
	flight singleflight.Group
}

// New constructs a Vault client from the standard environment and starts a
// background token‑renewal loop bound to ctx.
func New(ctx context.Context, ttl time.Duration) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}

	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := newClient(func(ctx context.Context, mount, rel string) (map[string]any, error) {
		sec, err := apiCli.KVv2(mount).Get(ctx, rel)
		if err != nil {
			return nil, err
		}
		return sec.Data, nil
	}, ttl)
	c.api = apiCli

	go c.renewLoop(ctx)

	return c, nil
}

func newClient(read kvReadFn, ttl time.Duration) *Client {
	return &Client{
		read:  read,
		ttl:   ttl,
		cache: cache.NewLRU[string, string](cacheEntries),
	}
}

// Resolve implements config.SecretResolver.  ref is the part after the
// `vault:` prefix.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, secretPath, key)
}

// GetKV fetches a single key from a KV‑v2 secret.  Results are cached for
// the client TTL; concurrent misses for the same key share one request.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non‑empty")
	}

	canonical := secretPath + "#" + key

	if c.ttl > 0 {
		if v, ok := c.cache.Get(canonical); ok {
			metrics.SecretFetchTotal.WithLabelValues("hit").Inc()
			return v, nil
		}
	}

	v, err, _ := c.flight.Do(canonical, func() (any, error) {
		mount, rel := splitMount(secretPath)
		data, err := c.read(ctx, mount, rel)
		if err != nil {
			return "", fmt.Errorf("vault get %s: %w", secretPath, err)
		}

		raw, ok := data[key]
		if !ok {
			return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
		}

		sval, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
		}

		if c.ttl > 0 {
			c.cache.Add(canonical, sval, c.ttl)
		}
		return sval, nil
	})
	if err != nil {
		metrics.SecretFetchTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.SecretFetchTotal.WithLabelValues("miss").Inc()
	return v.(string), nil
}

//
// SECTION 2.  Background token renewal
//

const (
	renewRetryBackoff   = 30 * time.Second
	notRenewableBackoff = time.Hour
)

// retryAfter picks the wait after a failed renew-self.  Root and other
// non-renewable tokens fail every attempt, so they get the long backoff.
func retryAfter(err error) time.Duration {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not renewable") || strings.Contains(msg, "non-renewable") {
		return notRenewableBackoff
	}
	return renewRetryBackoff
}

func (c *Client) renewLoop(ctx context.Context) {
	log := zap.S().With("component", "vault")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Probe the current token.
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			wait := retryAfter(err)
			if wait == notRenewableBackoff {
				log.Infow("token is not renewable, sleeping", "for", wait)
			} else {
				log.Warnw("token renew self failed", "err", err)
			}
			backoff(ctx, wait)
			continue
		}

		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Infow("token is not renewable, sleeping", "for", notRenewableBackoff)
			backoff(ctx, notRenewableBackoff)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			log.Warnw("lifetime watcher init failed", "err", err)
			backoff(ctx, renewRetryBackoff)
			continue
		}

		c.watch(ctx, watcher)
		backoff(ctx, 15*time.Second)
	}
}

// watch blocks until the watcher finishes or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	log := zap.S().With("component", "vault")
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				log.Warnw("token renewal stopped", "err", err)
			}
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				log.Debugw("token renewed", "ttl_seconds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

// ParseRef splits `<mount>/<path>#<key>` into secret path and key.
func ParseRef(ref string) (secretPath, key string, err error) {
	secretPath, key, ok := config.ParseSecretRef(ref)
	if !ok {
		return "", "", ErrBadRef
	}
	return secretPath, key, nil
}

func splitMount(p string) (mount, rel string) {
	if p == "" {
		return "", ""
	}
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func backoff(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
