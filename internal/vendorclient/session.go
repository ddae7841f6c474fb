package vendorclient

import (
	"crypto/tls"
	"net/http"
	"sync"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/136.0.0.0 Safari/537.36"

// Session is the pooled, self-signed-TLS-accepting HTTP client the
// collector keeps for the lifetime of one auth cycle. The token is a
// field of the session rather than the session being a field of the
// token, which avoids the cyclic client<->token references the
// original source carries (spec.md §9 design note).
type Session struct {
	baseURL string
	client  *http.Client

	mu    sync.RWMutex
	token string
}

// NewSession builds a connection-pooled TLS client that accepts the
// vendor's self-signed certificate (spec.md §4.1). connectTimeout
// bounds the TLS handshake; readTimeout bounds each whole request.
// The configuration defaults are 30s and 60s.
func NewSession(baseURL string, connectTimeout, readTimeout time.Duration) *Session {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // vendor endpoint uses a self-signed cert by contract
		},
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: connectTimeout,
	}
	return &Session{
		baseURL: baseURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   readTimeout,
		},
	}
}

// Token returns the currently held auth token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken stores a new auth token, replacing any previous one.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// ClearToken discards the held token, e.g. after logout.
func (s *Session) ClearToken() {
	s.SetToken("")
}

func (s *Session) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Origin", s.baseURL)
	req.Header.Set("Referer", s.baseURL+"/sigitportal/")
	req.Header.Set("sec-ch-ua", `"Chromium";v="136", "Brave";v="136", "Not.A/Brand";v="99"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"Windows"`)
}
