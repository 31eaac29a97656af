// Package voiceagent provisions the assistant on the hosted voice platform
// and answers the function calls the platform makes during a call.
package voiceagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grillbook/grillbook/pkg/events"
	"github.com/grillbook/grillbook/pkg/urlvalidation"
)

// DefaultBaseURL is the voice platform API root.
const DefaultBaseURL = "https://api.retellai.com/v1"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("voice platform API key not configured")

// APIError is a non-2xx reply from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice platform returned HTTP %d: %s", e.StatusCode, e.Body)
}

// ClientConfig configures the platform client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the voice platform's agent API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	timeout      time.Duration
	events       events.Emitter
	validateOpts []urlvalidation.Option
}

// NewClient creates a platform client. A nil emitter discards events.
func NewClient(cfg ClientConfig, emitter events.Emitter, validateOpts ...urlvalidation.Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if emitter == nil {
		emitter = events.Discard
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		timeout:      cfg.Timeout,
		events:       emitter,
		validateOpts: validateOpts,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// CreateAgent registers a new agent.
func (c *Client) CreateAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	var agent Agent
	if err := c.do(ctx, http.MethodPost, "/agents", cfg, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgent changes the given fields of an existing agent.
func (c *Client) UpdateAgent(ctx context.Context, id string, u AgentUpdate) (*Agent, error) {
	if id == "" {
		return nil, errors.New("agent id is required")
	}
	var agent Agent
	if err := c.do(ctx, http.MethodPatch, "/agents/"+url.PathEscape(id), u, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + path
	if err := urlvalidation.Validate(ctx, endpoint, c.validateOpts...); err != nil {
		return fmt.Errorf("voice platform URL validation: %w", err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.report(ctx, method, err)
		return fmt.Errorf("voice platform request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	// Drain remainder for connection reuse.
	_, _ = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		c.report(ctx, method, apiErr)
		return apiErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) report(ctx context.Context, method string, err error) {
	_ = c.events.Emit(ctx, events.SystemError, "", events.ErrorData{
		Operation: "voiceagent " + method,
		Error:     err.Error(),
	})
}
