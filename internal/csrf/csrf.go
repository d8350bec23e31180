// internal/csrf/csrf.go
//
// Stateless CSRF token utilities keyed by the runtime's SECRET_KEY.
//
// Context
//   The control surface shares the signing secret and WTF_CSRF_ENABLED flag
//   with the runtime it configures, so a token minted here follows the same
//   on/off switch the runtime honours.  Tokens are stateless:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
//   •  nonce – 16 random bytes.  Prevents replay across clients.
//   •  unixMicro – microseconds since Unix epoch, 8 bytes, big-endian.
//   •  HMAC – keyed with SHA-256 of SECRET_KEY.  Verifies authenticity.
//
//   Validation checks the signature and ensures the timestamp is within
//   MaxAge.  No server-side sessions are required.
//
// Workflow
//   •  New(secret, enabled)  → Protector.
//   •  p.Generate()          → token string.
//   •  p.Verify(tok)         → constant-time verify; false on any failure.
//   •  p.Middleware(next)    → 403 on unsafe methods without a valid token.
//
//------------------------------------------------------------------------------

package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig
	MaxAge     = 2 * time.Hour        // token valid window
	maxSkew    = time.Minute

	HeaderName = "X-CSRF-Token"
	FormField  = "csrf_token"
)

// Protector mints and checks tokens.  Safe for concurrent use.
type Protector struct {
	key     []byte
	enabled bool
	now     func() time.Time
}

// New derives the HMAC key from secret.  An empty secret gets an ephemeral
// random key, so tokens stop verifying after a restart.
func New(secret string, enabled bool) *Protector {
	var key []byte
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		key = sum[:]
	} else {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
		zap.S().Warnw("SECRET_KEY empty, csrf tokens use an ephemeral key")
	}
	return &Protector{key: key, enabled: enabled, now: time.Now}
}

// Enabled mirrors WTF_CSRF_ENABLED.
func (p *Protector) Enabled() bool { return p.enabled }

// Generate creates a new token.  Call once per form render or client.
func (p *Protector) Generate() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(p.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, p.sign(nonce, ts)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify returns true if tok passes HMAC and age checks.
func (p *Protector) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:16]
	tsBytes := raw[16:24]
	sig := raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	now := p.now()
	if now.Sub(issued) > MaxAge || issued.Sub(now) > maxSkew {
		return false
	}

	return hmac.Equal(sig, p.sign(nonce, tsBytes))
}

func (p *Protector) sign(nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, p.key)
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}

// Middleware rejects POST, PUT, PATCH, and DELETE requests that lack a
// valid token when protection is enabled.
func (p *Protector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.enabled || safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		tok := r.Header.Get(HeaderName)
		if tok == "" {
			tok = r.PostFormValue(FormField)
		}
		if !p.Verify(tok) {
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
