package dbcred

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/oauth2"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// expiryMargin is subtracted from the reported token lifetime so a token is
// never handed to a new connection moments before it expires.
const expiryMargin = 5 * time.Minute

// Source fetches short-lived database credentials from a managed-Postgres
// credentials endpoint and caches them until close to expiry. It satisfies
// oauth2.TokenSource, and ReuseTokenSource provides the caching and
// single-flight refresh.
type Source struct {
	url          string
	instanceName string
	apiToken     string
	client       *http.Client
	logger       Logger

	ts oauth2.TokenSource

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSource creates a credential source for the given endpoint.
func NewSource(url, instanceName, apiToken string, logger Logger) *Source {
	s := &Source{
		url:          url,
		instanceName: instanceName,
		apiToken:     apiToken,
		client:       &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
	}
	s.ts = oauth2.ReuseTokenSourceWithExpiry(nil, tokenFetcher{s}, expiryMargin)
	return s
}

// Token returns a valid credential token, fetching a fresh one when the
// cached token is absent or near expiry.
func (s *Source) Token() (*oauth2.Token, error) {
	return s.ts.Token()
}

// BeforeConnect installs the current credential as the connection password.
// Wire this into pgxpool.Config.BeforeConnect so every new connection picks
// up a live token.
func (s *Source) BeforeConnect(ctx context.Context, cfg *pgx.ConnConfig) error {
	tok, err := s.Token()
	if err != nil {
		return fmt.Errorf("fetch database credential: %w", err)
	}
	cfg.Password = tok.AccessToken
	return nil
}

// StartRefresh keeps the cached token warm in the background so connection
// setup never pays the fetch latency. Stop with StopRefresh.
func (s *Source) StartRefresh(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.Token(); err != nil {
					s.logger.Warn("background credential refresh failed", "error", err)
				}
			}
		}
	}()
}

// StopRefresh halts the background refresh loop.
func (s *Source) StopRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// tokenFetcher performs one uncached fetch against the credentials endpoint.
type tokenFetcher struct {
	s *Source
}

type credentialResponse struct {
	Token          string `json:"token"`
	ExpirationTime string `json:"expiration_time"`
}

func (f tokenFetcher) Token() (*oauth2.Token, error) {
	s := f.s
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/credentials?instance_names=%s", s.url, s.instanceName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("credentials endpoint: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("credentials endpoint returned %d", resp.StatusCode)
	}

	var cred credentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&cred); err != nil {
		return nil, fmt.Errorf("decode credential response: %w", err)
	}
	if cred.Token == "" {
		return nil, fmt.Errorf("credentials endpoint returned an empty token")
	}

	expiry, err := time.Parse(time.RFC3339, cred.ExpirationTime)
	if err != nil {
		// The endpoint did not report an expiry; assume a short lifetime so
		// the token is refetched soon rather than used stale.
		expiry = time.Now().Add(15 * time.Minute)
	}

	s.logger.Debug("fetched database credential", "expires_at", expiry.Format(time.RFC3339))
	return &oauth2.Token{AccessToken: cred.Token, Expiry: expiry}, nil
}
