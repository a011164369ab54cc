package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// expiryMargin is subtracted from the advertised token lifetime so a token is
// never presented in the last minutes of its validity.
const expiryMargin = 5 * time.Minute

const graphScope = "https://graph.microsoft.com/.default"

// tokenSource hands out OAuth2 client-credentials tokens and caches them
// until shortly before they expire. Safe for concurrent use.
type tokenSource struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(endpoint, clientID, clientSecret string, client *http.Client) *tokenSource {
	return &tokenSource{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       client,
	}
}

// Token returns the cached token or fetches a new one.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expires) {
		return s.token, nil
	}
	return s.fetch(ctx)
}

// Invalidate drops the cached token and fetches a fresh one.
func (s *tokenSource) Invalidate(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expires = time.Time{}
	return s.fetch(ctx)
}

// fetch requests a token from the endpoint. s.mu must be held.
func (s *tokenSource) fetch(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"scope":         {graphScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	s.token = tr.AccessToken
	s.expires = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - expiryMargin)
	return s.token, nil
}
