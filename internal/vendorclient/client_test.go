package vendorclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).With().Timestamp().Logger()
}

func TestClientRefreshesTokenOn401(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sigit/user/login":
			calls++
			_, _ = w.Write([]byte(`{"user_token":"fresh-token"}`))
		case "/sigit/reports/dashboards":
			calls++
			if calls <= 2 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"header":{"result_code":"000"},"body":{"fifth_graphic":[]}}`))
		}
	}))
	defer server.Close()

	sess := NewSession(server.URL, time.Second, time.Second)
	auth := NewAuthManager(Credentials{Username: "u", Password: "p"}, Credentials{}, testLogger())
	client := NewClient(sess, auth, "u", 2, testLogger())
	client.sleep = func(time.Duration) {}

	env, err := client.ReportsDashboard(context.TODO())
	if err != nil {
		t.Fatalf("expected success after refresh, got %v", err)
	}
	if !env.Success() {
		t.Fatalf("expected envelope success, got result_code=%s", env.Header.ResultCode)
	}
}

func TestClientRetriesOn5xxThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"header":{"result_code":"000"},"body":{"fifth_graphic":[]}}`))
	}))
	defer server.Close()

	sess := NewSession(server.URL, time.Second, time.Second)
	sess.SetToken("already-authenticated")
	auth := NewAuthManager(Credentials{Username: "u", Password: "p"}, Credentials{}, testLogger())
	client := NewClient(sess, auth, "u", 2, testLogger())
	client.sleep = func(time.Duration) {}

	env, err := client.ReportsDashboard(context.TODO())
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", calls)
	}
	if !env.Success() {
		t.Fatalf("expected success envelope")
	}
}

func TestClient404IsTerminalNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	sess := NewSession(server.URL, time.Second, time.Second)
	sess.SetToken("already-authenticated")
	auth := NewAuthManager(Credentials{Username: "u", Password: "p"}, Credentials{}, testLogger())
	client := NewClient(sess, auth, "u", 2, testLogger())
	client.sleep = func(time.Duration) {}

	_, err := client.ReportsDashboard(context.TODO())
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if calls != 1 {
		t.Fatalf("expected a single call for a terminal error, got %d", calls)
	}

	var apiErr *APIError
	if !asAPIError(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Kind != ErrTerminal {
		t.Fatalf("expected ErrTerminal, got %v", apiErr.Kind)
	}
}

func asAPIError(err error, target **APIError) bool {
	ae, ok := err.(*APIError)
	if !ok {
		return false
	}
	*target = ae
	return true
}

func TestAuthManagerFallsBackToSecondaryCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.UserName != "fallback-user" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"user_token":"fallback-token"}`))
	}))
	defer server.Close()

	sess := NewSession(server.URL, time.Second, time.Second)
	auth := NewAuthManager(
		Credentials{Username: "primary-user", Password: "bad"},
		Credentials{Username: "fallback-user", Password: "good"},
		testLogger(),
	)

	if err := auth.Login(context.TODO(), sess); err != nil {
		t.Fatalf("expected fallback login to succeed, got %v", err)
	}
	if auth.ActiveCredentialLabel() != "fallback" {
		t.Fatalf("expected fallback to be active, got %s", auth.ActiveCredentialLabel())
	}
	if sess.Token() != "fallback-token" {
		t.Fatalf("expected fallback token to be set, got %q", sess.Token())
	}
}

func TestExtractTokenProbesAllThreeLocations(t *testing.T) {
	cases := []struct {
		name string
		resp loginResponse
		want string
	}{
		{"top-level user_token", loginResponse{UserToken: "a"}, "a"},
		{"top-level token", loginResponse{Token: "b"}, "b"},
		{"nested header.user_token", loginResponse{Header: struct {
			UserToken string `json:"user_token"`
		}{UserToken: "c"}}, "c"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractToken(tc.resp); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
