package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// TokenSource provides tenant access tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// TenantTokenSource exchanges app credentials for a tenant access token and
// caches it until shortly before expiry.
type TenantTokenSource struct {
	baseURL     string
	appID       string
	appSecret   string
	refreshSkew time.Duration
	hc          *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewTenantTokenSource creates a token source for an internal app.
func NewTenantTokenSource(baseURL, appID, appSecret string, hc *http.Client) *TenantTokenSource {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &TenantTokenSource{
		baseURL:     strings.TrimRight(baseURL, "/"),
		appID:       appID,
		appSecret:   appSecret,
		refreshSkew: 5 * time.Minute,
		hc:          hc,
		now:         time.Now,
	}
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"` // seconds
}

// Token returns a cached token, fetching a new one when missing or near expiry.
func (s *TenantTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Add(s.refreshSkew).Before(s.expiresAt) {
		return s.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"app_id":     s.appID,
		"app_secret": s.appSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/auth/v3/tenant_access_token/internal", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, string(respBody))
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("unmarshal token response: %w", err)
	}
	if tr.Code != 0 || tr.TenantAccessToken == "" {
		return "", &APIError{Code: tr.Code, Msg: tr.Msg}
	}

	s.token = tr.TenantAccessToken
	s.expiresAt = s.now().Add(time.Duration(tr.Expire) * time.Second)
	return s.token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (s *TenantTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}
