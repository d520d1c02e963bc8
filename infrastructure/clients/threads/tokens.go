package threads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadsctl/domain/model"
	"threadsctl/infrastructure/logger"
)

const (
	exchangeGrant = "th_exchange_token"
	refreshGrant  = "th_refresh_token"
)

// TokenClient talks to the unversioned token endpoints on the Graph host
type TokenClient struct {
	graphURL   string
	httpClient *http.Client
}

func NewTokenClient(graphURL string, hc *http.Client) *TokenClient {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenClient{graphURL: strings.TrimRight(graphURL, "/"), httpClient: hc}
}

// ExchangeLongLived trades a short-lived token for a long-lived one
func (t *TokenClient) ExchangeLongLived(ctx context.Context, appSecret, shortLivedToken string) (*model.Token, error) {
	q := url.Values{}
	q.Set("grant_type", exchangeGrant)
	q.Set("client_secret", appSecret)
	q.Set("access_token", shortLivedToken)
	return t.get(ctx, "/access_token", q)
}

// Refresh extends a long-lived token that has not yet expired
func (t *TokenClient) Refresh(ctx context.Context, accessToken string) (*model.Token, error) {
	q := url.Values{}
	q.Set("grant_type", refreshGrant)
	q.Set("access_token", accessToken)
	return t.get(ctx, "/refresh_access_token", q)
}

func (t *TokenClient) get(ctx context.Context, path string, q url.Values) (*model.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.graphURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.GetLogger().WithField("status", resp.StatusCode).WithField("path", path).Error("token exchange failed")
		return nil, &model.AuthError{Kind: model.AuthExchangeFailed, Status: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), errorBodyLimit)}
	}
	var tok model.Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &model.AuthError{Kind: model.AuthExchangeFailed, Status: resp.StatusCode, Body: "unparseable token response: " + truncate(string(body), errorBodyLimit)}
	}
	if tok.AccessToken == "" {
		return nil, &model.AuthError{Kind: model.AuthExchangeFailed, Status: resp.StatusCode, Body: "token response missing access_token"}
	}
	return &tok, nil
}
