// Package intra implements the 42 Intra API client. It is used to verify
// that an external login exists on the platform before a profile is created,
// and to enrich profiles with display data.
package intra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/suilotion/peerhelp-hub/pkg/circuitbreaker"
	"github.com/suilotion/peerhelp-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLoginNotFound indicates the login does not exist on the platform.
	ErrLoginNotFound = errors.New("intra: login not found")

	// ErrUnauthorized indicates the client credentials were rejected.
	ErrUnauthorized = errors.New("intra: unauthorized")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Intra API client.
type ClientConfig struct {
	// BaseURL is the API base URL (default "https://api.intra.42.fr").
	BaseURL string

	// ClientID is the OAuth2 application UID.
	ClientID string

	// ClientSecret is the OAuth2 application secret.
	ClientSecret string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(clientID, clientSecret string) ClientConfig {
	return ClientConfig{
		BaseURL:      "https://api.intra.42.fr",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Timeout:      15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the 42 Intra API client with retry and circuit breaking.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
	mapper     *Mapper

	token   *TokenDTO
	tokenMu sync.RWMutex
}

// NewClient creates a new Intra API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.intra.42.fr"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	logger := config.Logger.With("component", "intra_client")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.IntraAPIRetrier(),
		breaker: circuitbreaker.IntraAPIBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
		mapper: NewMapper(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// authenticate obtains an OAuth2 token via the client-credentials grant.
func (c *Client) authenticate(ctx context.Context) (*TokenDTO, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/oauth/token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var token TokenDTO
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	token.ObtainedAt = time.Now()

	c.tokenMu.Lock()
	c.token = &token
	c.tokenMu.Unlock()

	return &token, nil
}

// currentToken returns a valid token, refreshing it if needed.
func (c *Client) currentToken(ctx context.Context) (*TokenDTO, error) {
	c.tokenMu.RLock()
	token := c.token
	c.tokenMu.RUnlock()

	if token != nil && !token.IsExpired() {
		return token, nil
	}

	return c.authenticate(ctx)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetUser fetches a user by their login.
func (c *Client) GetUser(ctx context.Context, login string) (*UserDTO, error) {
	path := fmt.Sprintf("/v2/users/%s", url.PathEscape(login))

	var user UserDTO
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, fmt.Errorf("get user %s: %w", login, err)
	}

	return &user, nil
}

// VerifyLogin checks that the login exists and returns the verified identity.
// ErrLoginNotFound is permanent; transient failures are retried internally.
func (c *Client) VerifyLogin(ctx context.Context, login string) (*VerifiedIdentity, error) {
	user, err := c.GetUser(ctx, login)
	if err != nil {
		return nil, err
	}

	return c.mapper.VerifiedIdentityFromDTO(user), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an HTTP request under the circuit breaker, retrying
// transient failures.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, method, path, body, result)
		})
	})
}

// doSingleRequest performs one HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	token, err := c.currentToken(ctx)
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal body: %w", err))
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(ErrLoginNotFound)

	case resp.StatusCode == http.StatusUnauthorized:
		// Token may have been revoked; drop it so the next attempt re-auths.
		c.tokenMu.Lock()
		c.token = nil
		c.tokenMu.Unlock()
		return retry.Retryable(ErrUnauthorized)

	case resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("rate limited"))

	case resp.StatusCode >= 500:
		return retry.Retryable(fmt.Errorf("server error: status %d", resp.StatusCode))

	case resp.StatusCode >= 400:
		var apiErr APIErrorDTO
		if err := json.Unmarshal(respBody, &apiErr); err == nil && (apiErr.Message != "" || apiErr.ErrorCode != "") {
			apiErr.Status = resp.StatusCode
			return retry.Permanent(&apiErr)
		}
		return retry.Permanent(fmt.Errorf("api error: status %d", resp.StatusCode))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks whether the API is reachable and credentials are valid.
func (c *Client) IsHealthy(ctx context.Context) bool {
	_, err := c.currentToken(ctx)
	return err == nil
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// Reset resets the circuit breaker.
func (c *Client) Reset() {
	c.breaker.Reset()
}
