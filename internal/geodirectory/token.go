package geodirectory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"geodirectory-sync/pkg/jwt"
)

// refreshMargin renews the API token this long before it expires.
const refreshMargin = 30 * time.Second

// tokenSource obtains and caches the JWT the geo-directory hands out on
// /api-token-auth/.
type tokenSource struct {
	mu       sync.Mutex
	authURL  string
	username string
	password string
	client   *http.Client
	now      func() time.Time

	token  string
	expiry time.Time
}

func newTokenSource(baseURL, username, password string, client *http.Client) *tokenSource {
	return &tokenSource{
		authURL:  baseURL + "/api-token-auth/",
		username: username,
		password: password,
		client:   client,
		now:      time.Now,
	}
}

// Token returns a valid token, or "" when no credentials are configured.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if s.username == "" {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expiry.IsZero() || s.now().Add(refreshMargin).Before(s.expiry)) {
		return s.token, nil
	}

	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}

	// Tokens that cannot be decoded are kept until the API rejects them.
	expiry, err := jwt.ExpiresAt(token)
	if err != nil {
		expiry = time.Time{}
	}

	s.token = token
	s.expiry = expiry
	return token, nil
}

// Invalidate drops the cached token so the next call authenticates again.
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = time.Time{}
}

func (s *tokenSource) fetch(ctx context.Context) (string, error) {
	data, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authentication failed: status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	if body.Token == "" {
		return "", errors.New("authentication failed: empty token")
	}

	return body.Token, nil
}
