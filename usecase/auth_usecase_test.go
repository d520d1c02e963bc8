package usecase_test

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"threadsctl/domain/model"
	"threadsctl/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type tokenServer struct {
	*httptest.Server
	mu    sync.Mutex
	forms []url.Values
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/access_token", r.URL.Path)
		if assert.NoError(t, r.ParseForm()) {
			ts.mu.Lock()
			ts.forms = append(ts.forms, r.PostForm)
			ts.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) requests() []url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]url.Values(nil), ts.forms...)
}

type browser struct {
	t       *testing.T
	client  *http.Client
	query   func(state string) url.Values
	mu      sync.Mutex
	authURL *url.URL
	status  int
}

// open plays the user: it follows the authorization URL straight to the
// redirect URI with the query the provider would send.
func (b *browser) open(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		b.t.Errorf("bad authorization url: %v", err)
		return nil
	}
	b.mu.Lock()
	b.authURL = u
	b.mu.Unlock()

	q := b.query(u.Query().Get("state"))
	resp, err := b.client.Get(u.Query().Get("redirect_uri") + "?" + q.Encode())
	if err != nil {
		b.t.Errorf("callback request failed: %v", err)
		return nil
	}
	resp.Body.Close()
	b.mu.Lock()
	b.status = resp.StatusCode
	b.mu.Unlock()
	return nil
}

func newBrowser(t *testing.T, query func(state string) url.Values) *browser {
	return &browser{t: t, client: &http.Client{Timeout: 5 * time.Second}, query: query}
}

func grant(code string) func(string) url.Values {
	return func(state string) url.Values {
		return url.Values{"code": {code}, "state": {state}}
	}
}

func authConfig(tokenURL string) usecase.AuthConfig {
	return usecase.AuthConfig{
		AuthURL:         "https://threads.net/oauth/authorize",
		TokenURL:        tokenURL + "/oauth/access_token",
		Scopes:          []string{"threads_basic", "threads_content_publish"},
		CallbackTimeout: 5 * time.Second,
	}
}

func TestAuthenticate_Success(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"short-tok","user_id":"17841400000000001"}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	b := newBrowser(t, grant("the-code"))

	tokens.On("ExchangeLongLived", mock.Anything, "secret", "short-tok").
		Return(&model.Token{AccessToken: "long-tok", TokenType: "bearer", ExpiresIn: 3600}, nil)
	wantExp := fixedNow.Add(time.Hour)
	store.On("Save", mock.Anything, mock.MatchedBy(func(p model.CredentialsPatch) bool {
		return *p.AppID == "app" && *p.AppSecret == "secret" && *p.AccessToken == "long-tok" &&
			*p.UserID == "17841400000000001" && p.ExpiresAt.Equal(wantExp)
	})).Return(nil)

	u := usecase.NewAuthUsecase(authConfig(ts.URL), store, tokens,
		usecase.WithBrowserOpener(b.open), usecase.WithClock(func() time.Time { return fixedNow }))

	creds, err := u.Authenticate(context.Background(), "app", "secret", 0)
	require.NoError(t, err)
	assert.Equal(t, "long-tok", creds.AccessToken)
	assert.Equal(t, "17841400000000001", creds.UserID)
	require.NotNil(t, creds.ExpiresAt)
	assert.True(t, creds.ExpiresAt.Equal(wantExp))
	assert.Equal(t, http.StatusOK, b.status)

	q := b.authURL.Query()
	assert.Equal(t, "threads.net", b.authURL.Host)
	assert.Equal(t, "app", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "threads_basic,threads_content_publish", q.Get("scope"))
	assert.Len(t, q.Get("state"), 64)
	assert.True(t, strings.HasPrefix(q.Get("redirect_uri"), "http://localhost:"))
	assert.True(t, strings.HasSuffix(q.Get("redirect_uri"), "/callback"))

	reqs := ts.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "authorization_code", reqs[0].Get("grant_type"))
	assert.Equal(t, "the-code", reqs[0].Get("code"))
	assert.Equal(t, "app", reqs[0].Get("client_id"))
	assert.Equal(t, "secret", reqs[0].Get("client_secret"))
	assert.Equal(t, q.Get("redirect_uri"), reqs[0].Get("redirect_uri"))

	store.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestAuthenticate_NumericUserID(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"short-tok","user_id":12345}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	tokens.On("ExchangeLongLived", mock.Anything, "secret", "short-tok").Return(&model.Token{AccessToken: "long-tok"}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(p model.CredentialsPatch) bool {
		return *p.UserID == "12345" && p.ExpiresAt == nil
	})).Return(nil)

	u := usecase.NewAuthUsecase(authConfig(ts.URL), store, tokens, usecase.WithBrowserOpener(newBrowser(t, grant("c")).open))
	creds, err := u.Authenticate(context.Background(), "app", "secret", 0)
	require.NoError(t, err)
	assert.Equal(t, "12345", creds.UserID)
	assert.Nil(t, creds.ExpiresAt)
}

func TestAuthenticate_ProviderDenied(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	b := newBrowser(t, func(string) url.Values {
		return url.Values{"error": {"access_denied"}, "error_description": {"User declined"}}
	})

	u := usecase.NewAuthUsecase(authConfig(ts.URL), store, tokens, usecase.WithBrowserOpener(b.open))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)

	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthProviderDenied, authErr.Kind)
	assert.Equal(t, "User declined", authErr.Message)
	assert.Empty(t, ts.requests())
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthenticate_StateMismatch(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{}`)
	b := newBrowser(t, func(state string) url.Values {
		return url.Values{"code": {"c"}, "state": {state + "x"}}
	})

	u := usecase.NewAuthUsecase(authConfig(ts.URL), new(MockCredentialStore), new(MockTokens), usecase.WithBrowserOpener(b.open))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)

	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthInvalidCallback, authErr.Kind)
	assert.Empty(t, ts.requests())
}

func TestAuthenticate_ExchangeFailed(t *testing.T) {
	ts := newTokenServer(t, http.StatusBadRequest, `{"error":{"message":"Invalid verification code format.","type":"OAuthException","code":100}}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)

	u := usecase.NewAuthUsecase(authConfig(ts.URL), store, tokens, usecase.WithBrowserOpener(newBrowser(t, grant("c")).open))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)

	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthExchangeFailed, authErr.Kind)
	assert.Equal(t, http.StatusBadRequest, authErr.Status)
	assert.Contains(t, authErr.Body, "Invalid verification code format.")
	tokens.AssertNotCalled(t, "ExchangeLongLived", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthenticate_LongLivedExchangeFailed(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"short-tok"}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	tokens.On("ExchangeLongLived", mock.Anything, "secret", "short-tok").
		Return(nil, &model.AuthError{Kind: model.AuthExchangeFailed, Status: 400, Body: "bad"})

	u := usecase.NewAuthUsecase(authConfig(ts.URL), store, tokens, usecase.WithBrowserOpener(newBrowser(t, grant("c")).open))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)

	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthExchangeFailed, authErr.Kind)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAuthenticate_PrintsURLWhenBrowserFails(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"short-tok"}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	tokens.On("ExchangeLongLived", mock.Anything, "secret", "short-tok").Return(&model.Token{AccessToken: "long-tok"}, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	b := newBrowser(t, grant("c"))
	var out bytes.Buffer
	opener := func(raw string) error {
		go func() { _ = b.open(raw) }()
		return errors.New("no display")
	}

	u := usecase.NewAuthUsecase(authConfig(ts.URL), store, tokens, usecase.WithBrowserOpener(opener), usecase.WithPrompt(&out))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "https://threads.net/oauth/authorize?")
}

func TestAuthenticate_CallbackTimeout(t *testing.T) {
	cfg := authConfig("http://127.0.0.1:1")
	cfg.CallbackTimeout = 50 * time.Millisecond

	u := usecase.NewAuthUsecase(cfg, new(MockCredentialStore), new(MockTokens),
		usecase.WithBrowserOpener(func(string) error { return nil }))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)

	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthCallbackTimeout, authErr.Kind)
}

func TestAuthenticate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	u := usecase.NewAuthUsecase(authConfig("http://127.0.0.1:1"), new(MockCredentialStore), new(MockTokens),
		usecase.WithBrowserOpener(func(string) error {
			cancel()
			return nil
		}))
	_, err := u.Authenticate(ctx, "app", "secret", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAuthenticate_ListensOnAdvertisedHost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var redirect *url.URL
	var dialErr error
	u := usecase.NewAuthUsecase(authConfig("http://127.0.0.1:1"), new(MockCredentialStore), new(MockTokens),
		usecase.WithBrowserOpener(func(raw string) error {
			defer cancel()
			auth, err := url.Parse(raw)
			if err != nil {
				return err
			}
			redirect, err = url.Parse(auth.Query().Get("redirect_uri"))
			if err != nil {
				return err
			}
			conn, err := net.DialTimeout("tcp", redirect.Host, 2*time.Second)
			if err != nil {
				dialErr = err
				return nil
			}
			return conn.Close()
		}))
	_, err := u.Authenticate(ctx, "app", "secret", 0)
	assert.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, redirect)
	assert.Equal(t, "localhost", redirect.Hostname())
	assert.NoError(t, dialErr)
}

func TestAuthenticate_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	opened := false
	u := usecase.NewAuthUsecase(authConfig("http://127.0.0.1:1"), new(MockCredentialStore), new(MockTokens),
		usecase.WithBrowserOpener(func(string) error {
			opened = true
			return nil
		}))
	_, err = u.Authenticate(context.Background(), "app", "secret", port)
	require.Error(t, err)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
	assert.False(t, opened)
}

func TestAuthenticate_TLSCallback(t *testing.T) {
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"short-tok"}`)
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	tokens.On("ExchangeLongLived", mock.Anything, "secret", "short-tok").Return(&model.Token{AccessToken: "long-tok"}, nil)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)

	b := newBrowser(t, grant("c"))
	b.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}

	cfg := authConfig(ts.URL)
	cfg.TLS = true
	u := usecase.NewAuthUsecase(cfg, store, tokens, usecase.WithBrowserOpener(b.open))
	_, err := u.Authenticate(context.Background(), "app", "secret", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b.authURL.Query().Get("redirect_uri"), "https://localhost:"))
	assert.Equal(t, http.StatusOK, b.status)
}

func TestRefresh(t *testing.T) {
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	exp := fixedNow.Add(24 * time.Hour)
	store.On("Load", mock.Anything).Return(model.Credentials{AppID: "a", AppSecret: "s", AccessToken: "old", UserID: "42", ExpiresAt: &exp}, nil)
	tokens.On("Refresh", mock.Anything, "old").Return(&model.Token{AccessToken: "new", ExpiresIn: 7200}, nil)
	store.On("Save", mock.Anything, mock.MatchedBy(func(p model.CredentialsPatch) bool {
		return *p.AccessToken == "new" && p.ExpiresAt.Equal(fixedNow.Add(2*time.Hour)) && p.AppID == nil && p.UserID == nil
	})).Return(nil)

	u := usecase.NewAuthUsecase(usecase.AuthConfig{}, store, tokens, usecase.WithClock(func() time.Time { return fixedNow }))
	creds, err := u.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", creds.AccessToken)
	assert.Equal(t, "42", creds.UserID)
	store.AssertExpectations(t)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	store := new(MockCredentialStore)
	tokens := new(MockTokens)
	exp := fixedNow.Add(-time.Minute)
	store.On("Load", mock.Anything).Return(model.Credentials{AppID: "a", AppSecret: "s", AccessToken: "old", ExpiresAt: &exp}, nil)

	u := usecase.NewAuthUsecase(usecase.AuthConfig{}, store, tokens, usecase.WithClock(func() time.Time { return fixedNow }))
	_, err := u.Refresh(context.Background())

	var cfgErr *model.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, model.ConfigTokenExpired, cfgErr.Kind)
	tokens.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}
