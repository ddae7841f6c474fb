package reachability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// ICMP is unavailable to an unprivileged test process, so Reachable
// is expected to fall back to the HTTP HEAD path in this environment;
// these tests exercise that fallback directly rather than assuming
// raw-socket access.
func TestHeadFallbackReachableServerUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(server.URL, zerolog.New(io.Discard))
	if !p.headFallback(context.Background()) {
		t.Fatal("expected reachable server to report true")
	}
}

func TestHeadFallbackUnreachableServerDown(t *testing.T) {
	p := NewProber("http://127.0.0.1:1", zerolog.New(io.Discard))
	if p.headFallback(context.Background()) {
		t.Fatal("expected unreachable host to report false")
	}
}
