// Package graph implements a Provider that sends messages via the Microsoft
// Graph sendMail endpoint using OAuth2 client credentials.
package graph

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
	"time"

	"github.com/shineum/dispatch/internal/email"
)

const (
	defaultGraphURL = "https://graph.microsoft.com/v1.0"
	loginURL        = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
)

// Config holds the application credentials for an Entra ID tenant.
type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Provider sends messages as the mailbox named in each message's From address.
type Provider struct {
	baseURL string
	client  *http.Client
	tokens  *tokenSource
}

// New creates a Provider for the given tenant.
func New(cfg Config) *Provider {
	client := &http.Client{Timeout: 30 * time.Second}
	return newWithURLs(cfg, defaultGraphURL, fmt.Sprintf(loginURL, cfg.TenantID), client)
}

// newWithURLs points the provider at alternate endpoints, used for testing.
func newWithURLs(cfg Config, baseURL, tokenURL string, client *http.Client) *Provider {
	return &Provider{
		baseURL: baseURL,
		client:  client,
		tokens:  newTokenSource(tokenURL, cfg.ClientID, cfg.ClientSecret, client),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "msgraph"
}

// APIError is a non-success response from the Graph API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph API error (HTTP %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Send posts the message to sendMail. A 401 triggers one token refresh and a
// second attempt; every other failure is returned as is.
func (p *Provider) Send(ctx context.Context, msg *email.Message) error {
	payload, err := json.Marshal(buildRequest(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/users/%s/sendMail", p.baseURL, url.PathEscape(msg.From.Address))

	token, err := p.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	err = p.post(ctx, endpoint, token, payload)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		slog.Info("refreshing graph token after 401")
		if token, err = p.tokens.Invalidate(ctx); err != nil {
			return fmt.Errorf("token refresh failed: %w", err)
		}
		err = p.post(ctx, endpoint, token, payload)
	}
	return err
}

func (p *Provider) post(ctx context.Context, endpoint, token string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	// sendMail answers 202 Accepted.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
