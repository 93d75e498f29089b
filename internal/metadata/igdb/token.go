package igdb

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTokenURL is the Twitch client-credentials endpoint.
const DefaultTokenURL = "https://id.twitch.tv/oauth2/token"

// expirySlack refreshes tokens slightly before Twitch expires them.
const expirySlack = time.Minute

// TokenSource supplies bearer tokens. Invalidate drops a token the API
// rejected so the next call fetches a fresh one.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate(token string)
}

// TwitchTokens obtains app access tokens with the client-credentials grant
// and caches them until shortly before expiry.
type TwitchTokens struct {
	http         *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTwitchTokens creates a token source. An empty tokenURL uses DefaultTokenURL.
func NewTwitchTokens(httpClient *http.Client, tokenURL, clientID, clientSecret string, logger *slog.Logger) *TwitchTokens {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TwitchTokens{
		http:         httpClient,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Token returns the cached token or fetches a new one.
func (s *TwitchTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}

	s.logger.Info("refreshing igdb token")
	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"grant_type":    {"client_credentials"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", wrapError("token", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", wrapError("token", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", wrapError("token", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", wrapError("token", "", fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", wrapError("token", "", fmt.Errorf("parse token response: %w", err))
	}
	if tr.AccessToken == "" {
		return "", wrapError("token", "", fmt.Errorf("empty access token"))
	}

	s.token = tr.AccessToken
	s.expires = s.now().Add(time.Duration(tr.ExpiresIn)*time.Second - expirySlack)
	return s.token, nil
}

// Invalidate forgets token if it is still the cached one.
func (s *TwitchTokens) Invalidate(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.token = ""
	}
}

// StaticToken is a fixed token, for tests and pre-provisioned credentials.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// Invalidate implements TokenSource.
func (StaticToken) Invalidate(string) {}
