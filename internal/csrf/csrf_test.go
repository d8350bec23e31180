package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateVerify(t *testing.T) {
	p := New("signing-secret", true)
	tok, err := p.Generate()
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if !p.Verify(tok) {
		t.Fatalf("fresh token rejected")
	}
	if New("other-secret", true).Verify(tok) {
		t.Fatalf("token verified under a different secret")
	}
	if p.Verify(tok[:len(tok)-2]) || p.Verify("") {
		t.Fatalf("truncated token accepted")
	}
}

func TestVerify_Age(t *testing.T) {
	p := New("s", true)
	now := time.Unix(1_700_000_000, 0)
	p.now = func() time.Time { return now }

	tok, _ := p.Generate()

	now = now.Add(MaxAge + time.Second)
	if p.Verify(tok) {
		t.Fatalf("expired token accepted")
	}

	now = time.Unix(1_700_000_000, 0).Add(-2 * time.Minute)
	if p.Verify(tok) {
		t.Fatalf("future token accepted")
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	p := New("s", true)
	tok, _ := p.Generate()

	cases := []struct {
		name   string
		p      *Protector
		method string
		token  string
		want   int
	}{
		{"get passes", p, http.MethodGet, "", http.StatusNoContent},
		{"post without token", p, http.MethodPost, "", http.StatusForbidden},
		{"post with token", p, http.MethodPost, tok, http.StatusNoContent},
		{"disabled skips check", New("s", false), http.MethodPost, "", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/reload", nil)
			if tc.token != "" {
				req.Header.Set(HeaderName, tc.token)
			}
			rr := httptest.NewRecorder()
			tc.p.Middleware(ok).ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}
