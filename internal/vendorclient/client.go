package vendorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is the typed API Client of spec.md §4.1/C4: one method per
// vendor endpoint, all funnelled through a shared retry-and-refresh
// request path.
type Client struct {
	session    *Session
	auth       *AuthManager
	loggedUser string
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger

	sleep func(time.Duration)
}

// NewClient builds an API Client over an existing Session and
// AuthManager.
func NewClient(sess *Session, auth *AuthManager, loggedUser string, maxRetries int, logger zerolog.Logger) *Client {
	return &Client{
		session:    sess,
		auth:       auth,
		loggedUser: loggedUser,
		maxRetries: maxRetries,
		retryDelay: 3 * time.Second,
		logger:     logger.With().Str("component", "api_client").Logger(),
		sleep:      time.Sleep,
	}
}

// Login authenticates the session, delegating to the Auth Manager.
func (c *Client) Login(ctx context.Context) error {
	return c.auth.Login(ctx, c.session)
}

// Logout is best-effort and never returns an error.
func (c *Client) Logout(ctx context.Context) {
	c.auth.Logout(ctx, c.session, c.loggedUser)
}

// ReportsDashboard fetches the dashboard report envelope (spec.md
// §4.2/P3, the source of the fifth_graphic regional aggregate).
func (c *Client) ReportsDashboard(ctx context.Context) (Envelope, error) {
	url := c.session.baseURL + "/sigit/reports/dashboards?terminal_type=ATM&status_filter=Status"
	return c.doEnvelope(ctx, http.MethodPut, url, nil)
}

// TerminalSearchByStatus fetches every terminal whose issueStateName
// matches the given vendor status (spec.md §4.2/P4).
func (c *Client) TerminalSearchByStatus(ctx context.Context, status string) (Envelope, error) {
	url := c.session.baseURL + "/sigit/terminal/searchTerminalDashBoard?number_of_occurrences=30&terminal_type=ATM"
	payload := map[string]any{
		"parameters_list": []map[string]any{
			{"parameter_name": "issueStateName", "parameter_values": []string{status}},
		},
	}
	return c.doEnvelope(ctx, http.MethodPut, url, payload)
}

// TerminalDetails fetches fault/detail data for a single terminal
// (spec.md §4.2/P5). issueStateCode defaults to "HARD" when the
// caller has none on file.
func (c *Client) TerminalDetails(ctx context.Context, terminalID, issueStateCode string) (Envelope, error) {
	if issueStateCode == "" {
		issueStateCode = "HARD"
	}
	url := fmt.Sprintf(
		"%s/sigit/terminal/searchTerminalDashBoard?number_of_occurrences=30&terminal_type=ATM&terminal_id=%s",
		c.session.baseURL, terminalID,
	)
	payload := map[string]any{
		"parameters_list": []map[string]any{
			{"parameter_name": "issueStateCode", "parameter_values": []string{issueStateCode}},
		},
	}
	return c.doEnvelope(ctx, http.MethodPut, url, payload)
}

// CashInfo fetches the cash-cassette inventory for a single terminal
// (spec.md §4.2/P6).
func (c *Client) CashInfo(ctx context.Context, terminalID string) (Envelope, error) {
	url := fmt.Sprintf(
		"%s/sigit/terminal/searchTerminal?number_of_occurrences=30&terminal_type=ATM&terminal_id=%s&language=EN",
		c.session.baseURL, terminalID,
	)
	return c.doEnvelope(ctx, http.MethodPut, url, nil)
}

// doEnvelope implements the retry policy of spec.md §4.1:
//   - 401 triggers one re-login and retries the call without consuming
//     a retry attempt;
//   - 404 is terminal, no retry;
//   - 5xx, network errors, and JSON parse failures consume a retry, up
//     to maxRetries, with a fixed delay between attempts;
//   - a refreshed header.user_token on any successful response is
//     silently adopted.
func (c *Client) doEnvelope(ctx context.Context, method, url string, payload any) (Envelope, error) {
	refreshed := false

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, method, url, payload)
		if err != nil {
			if attempt >= c.maxRetries {
				return Envelope{}, &APIError{Endpoint: url, Kind: ErrTransient, Detail: err.Error()}
			}
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("url", url).Msg("request failed, retrying")
			c.sleep(c.retryDelay)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			if refreshed {
				return Envelope{}, &APIError{Endpoint: url, Status: resp.StatusCode, Kind: ErrTransient, Detail: "401 after refresh"}
			}
			refreshed = true
			if err := c.auth.Login(ctx, c.session); err != nil {
				return Envelope{}, &APIError{Endpoint: url, Kind: ErrTransient, Detail: "refresh failed: " + err.Error()}
			}
			attempt-- // offsets the loop's attempt++: refresh does not consume a retry attempt
			continue

		case resp.StatusCode == http.StatusNotFound:
			return Envelope{}, &APIError{Endpoint: url, Status: resp.StatusCode, Kind: ErrTerminal}

		case resp.StatusCode >= 500:
			if attempt >= c.maxRetries {
				return Envelope{}, &APIError{Endpoint: url, Status: resp.StatusCode, Kind: ErrTransient}
			}
			c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Str("url", url).Msg("server error, retrying")
			c.sleep(c.retryDelay)
			continue

		case resp.StatusCode != http.StatusOK:
			return Envelope{}, &APIError{Endpoint: url, Status: resp.StatusCode, Kind: ErrTerminal}
		}

		if readErr != nil {
			if attempt >= c.maxRetries {
				return Envelope{}, &APIError{Endpoint: url, Kind: ErrTransient, Detail: readErr.Error()}
			}
			c.sleep(c.retryDelay)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			if attempt >= c.maxRetries {
				return Envelope{}, &APIError{Endpoint: url, Kind: ErrMalformedResponse, Detail: err.Error()}
			}
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("malformed JSON, retrying")
			c.sleep(c.retryDelay)
			continue
		}

		if env.Header.UserToken != "" && env.Header.UserToken != c.session.Token() {
			c.session.SetToken(env.Header.UserToken)
		}

		if !env.Success() {
			return env, &APIError{Endpoint: url, Kind: ErrTerminal, Detail: env.Header.ResultDescription}
		}
		return env, nil
	}
}

func (c *Client) send(ctx context.Context, method, url string, payload any) (*http.Response, error) {
	var bodyBytes []byte
	reqEnv := requestEnvelope{}
	reqEnv.Header.LoggedUser = c.loggedUser
	reqEnv.Header.UserToken = c.session.Token()
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqEnv.Body = raw
	}
	bodyBytes, err := json.Marshal(reqEnv)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	c.session.setCommonHeaders(req)
	if tok := c.session.Token(); tok != "" {
		req.Header.Set("Authorization", tok)
	}

	return c.session.client.Do(req)
}
