package vendorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Credentials is one username/password pair. The Auth Manager owns
// which pair is "current" instead of mutating a package-level
// variable the way the original source's LOGIN_PAYLOAD did (spec.md
// §9 design note).
type Credentials struct {
	Username string
	Password string
}

// AuthManager drives login, token refresh, and logout against a
// Session. It tries the primary credentials first and falls back to
// a secondary pair exactly once per cycle.
type AuthManager struct {
	primary  Credentials
	fallback Credentials

	logger zerolog.Logger

	// active records which credential pair last succeeded, as reported
	// by ActiveCredentialLabel.
	active string
}

// NewAuthManager builds an Auth Manager for the given primary and
// fallback credential pairs.
func NewAuthManager(primary, fallback Credentials, logger zerolog.Logger) *AuthManager {
	return &AuthManager{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "auth_manager").Logger(),
	}
}

// ActiveCredentialLabel reports which credential set most recently
// authenticated successfully ("primary" or "fallback").
func (a *AuthManager) ActiveCredentialLabel() string { return a.active }

type loginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// token extraction probes the three locations the vendor might put
// the token in, in the order spec.md §4.1 specifies.
type loginResponse struct {
	UserToken string `json:"user_token"`
	Token     string `json:"token"`
	Header    struct {
		UserToken string `json:"user_token"`
	} `json:"header"`
}

func extractToken(resp loginResponse) string {
	if resp.UserToken != "" {
		return resp.UserToken
	}
	if resp.Token != "" {
		return resp.Token
	}
	return resp.Header.UserToken
}

// Login authenticates against the vendor, trying primary credentials
// then, on failure, the fallback pair exactly once. On success the
// session's token is set and ActiveCredentialLabel reflects which
// pair won. Returns ErrAuthenticationFailed if both fail.
func (a *AuthManager) Login(ctx context.Context, sess *Session) error {
	if err := a.loginWith(ctx, sess, a.primary); err == nil {
		a.active = "primary"
		return nil
	} else {
		a.logger.Warn().Err(err).Msg("primary credentials rejected, trying fallback")
	}

	if a.fallback.Username == "" {
		return fmt.Errorf("%w: no fallback credentials configured", ErrAuthenticationFailed)
	}

	if err := a.loginWith(ctx, sess, a.fallback); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	a.active = "fallback"
	a.logger.Info().Msg("authenticated with fallback credentials")
	return nil
}

func (a *AuthManager) loginWith(ctx context.Context, sess *Session, creds Credentials) error {
	body, err := json.Marshal(loginRequest{UserName: creds.Username, Password: creds.Password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sess.baseURL+"/sigit/user/login?language=EN", bytes.NewReader(body))
	if err != nil {
		return err
	}
	sess.setCommonHeaders(req)

	resp, err := sess.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	token := extractToken(loginResp)
	if token == "" {
		return fmt.Errorf("login response carried no token")
	}
	sess.SetToken(token)
	return nil
}

// Logout is best-effort: non-200 responses are tolerated and the local
// token is always cleared, so logout never fails a cycle (spec.md
// §4.1).
func (a *AuthManager) Logout(ctx context.Context, sess *Session, loggedUser string) {
	defer sess.ClearToken()

	token := sess.Token()
	if token == "" {
		return
	}

	body, _ := json.Marshal(map[string]string{"logged_user": loggedUser, "user_token": token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sess.baseURL+"/sigit/user/logout", bytes.NewReader(body))
	if err != nil {
		return
	}
	sess.setCommonHeaders(req)
	req.Header.Set("Authorization", token)

	resp, err := sess.client.Do(req)
	if err != nil {
		a.logger.Warn().Err(err).Msg("logout request failed, clearing token locally")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		a.logger.Warn().Int("status", resp.StatusCode).Msg("logout returned non-200, clearing token locally")
	}
}
