package usecase

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"threadsctl/domain/model"
	"threadsctl/domain/repository"
	"threadsctl/infrastructure/certs"
	"threadsctl/infrastructure/logger"
	httpHandler "threadsctl/interfaces/http"
	"threadsctl/server"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCallbackTimeout = 5 * time.Minute
	nonceBytes             = 32
	exchangeBodyLimit      = 200
)

type IAuthUsecase interface {
	Authenticate(ctx context.Context, appID, appSecret string, port int) (model.Credentials, error)
	Refresh(ctx context.Context) (model.Credentials, error)
}

// AuthConfig carries the provider endpoints and listener settings of the flow
type AuthConfig struct {
	AuthURL         string
	TokenURL        string
	Scopes          []string
	TLS             bool
	CallbackTimeout time.Duration
	// Host is the name the callback listener binds; defaults to localhost so the
	// bound address matches the advertised redirect URI
	Host string
}

type authUsecase struct {
	cfg        AuthConfig
	store      repository.ICredentialStore
	tokens     repository.ITokens
	open       func(url string) error
	out        io.Writer
	now        func() time.Time
	httpClient *http.Client
}

type AuthOption func(*authUsecase)

// WithBrowserOpener replaces the function used to open the authorization URL
func WithBrowserOpener(fn func(url string) error) AuthOption {
	return func(u *authUsecase) { u.open = fn }
}

// WithPrompt sets where user-facing instructions are written
func WithPrompt(w io.Writer) AuthOption {
	return func(u *authUsecase) { u.out = w }
}

func WithClock(now func() time.Time) AuthOption {
	return func(u *authUsecase) { u.now = now }
}

// WithExchangeClient sets the HTTP client used for the authorization-code exchange
func WithExchangeClient(hc *http.Client) AuthOption {
	return func(u *authUsecase) { u.httpClient = hc }
}

func NewAuthUsecase(cfg AuthConfig, store repository.ICredentialStore, tokens repository.ITokens, opts ...AuthOption) IAuthUsecase {
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = DefaultCallbackTimeout
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	u := &authUsecase{
		cfg:    cfg,
		store:  store,
		tokens: tokens,
		open:   func(string) error { return errors.New("no browser opener configured") },
		out:    io.Discard,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Authenticate runs the authorization-code flow end to end: it listens for
// the browser redirect on localhost, exchanges the code for a short-lived
// token, upgrades it to a long-lived one and persists the result.
func (u *authUsecase) Authenticate(ctx context.Context, appID, appSecret string, port int) (model.Credentials, error) {
	lg := logger.GetLogger()

	state, err := newNonce()
	if err != nil {
		return model.Credentials{}, err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(u.cfg.Host, strconv.Itoa(port)))
	if err != nil {
		return model.Credentials{}, fmt.Errorf("failed to listen for the oauth callback on port %d: %w", port, err)
	}
	boundPort := ln.Addr().(*net.TCPAddr).Port
	scheme := "http"
	if u.cfg.TLS {
		tlsConfig, err := certs.Provision(u.now(), certs.DefaultValidity)
		if err != nil {
			ln.Close()
			return model.Credentials{}, fmt.Errorf("failed to provision local certificate: %w", err)
		}
		ln = tls.NewListener(ln, tlsConfig)
		scheme = "https"
	}
	redirectURI := fmt.Sprintf("%s://localhost:%d/callback", scheme, boundPort)

	conf := &oauth2.Config{
		ClientID:     appID,
		ClientSecret: appSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   u.cfg.AuthURL,
			TokenURL:  u.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	authURL := conf.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(u.cfg.Scopes, ",")))

	handler := httpHandler.NewCallbackHandler(state)
	srv := &http.Server{
		Handler:           server.InitiateCallbackRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var code string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("oauth callback server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer shutdown(srv)

		lg.WithField("redirect_uri", redirectURI).Info("waiting for oauth callback")
		if scheme == "https" {
			fmt.Fprintln(u.out, "The callback uses a self-signed certificate; your browser may ask you to accept it.")
		}
		if err := u.open(authURL); err != nil {
			lg.WithError(err).Warn("could not open browser")
			fmt.Fprintf(u.out, "Open this URL in your browser to authorize:\n\n  %s\n\n", authURL)
		} else {
			fmt.Fprintln(u.out, "Opened the authorization page in your browser.")
		}
		fmt.Fprintf(u.out, "Waiting for authorization on %s ...\n", redirectURI)

		var err error
		code, err = u.awaitCode(gctx, handler)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Credentials{}, err
	}

	short, userID, err := u.exchangeCode(ctx, conf, code)
	if err != nil {
		return model.Credentials{}, err
	}
	long, err := u.tokens.ExchangeLongLived(ctx, appSecret, short)
	if err != nil {
		return model.Credentials{}, err
	}

	creds := model.Credentials{
		AppID:       appID,
		AppSecret:   appSecret,
		AccessToken: long.AccessToken,
		UserID:      userID,
	}
	if long.ExpiresIn > 0 {
		exp := u.now().Add(time.Duration(long.ExpiresIn) * time.Second).UTC()
		creds.ExpiresAt = &exp
	}

	// user id is always written so an id left over from another account is cleared
	patch := model.PatchFrom(creds)
	patch.UserID = &creds.UserID
	if err := u.store.Save(ctx, patch); err != nil {
		return model.Credentials{}, fmt.Errorf("failed to save credentials: %w", err)
	}
	lg.WithField("user_id", userID).Info("authenticated")
	return creds, nil
}

// Refresh extends the stored long-lived token. Expired tokens cannot be
// refreshed and require a new authorization.
func (u *authUsecase) Refresh(ctx context.Context) (model.Credentials, error) {
	creds, err := u.store.Load(ctx)
	if err != nil {
		return model.Credentials{}, err
	}
	if creds.IsExpired(u.now()) {
		return model.Credentials{}, &model.ConfigError{Kind: model.ConfigTokenExpired}
	}

	tok, err := u.tokens.Refresh(ctx, creds.AccessToken)
	if err != nil {
		return model.Credentials{}, err
	}
	creds.AccessToken = tok.AccessToken
	patch := model.CredentialsPatch{AccessToken: &creds.AccessToken}
	if tok.ExpiresIn > 0 {
		exp := u.now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
		creds.ExpiresAt = &exp
		patch.ExpiresAt = &exp
	}
	if err := u.store.Save(ctx, patch); err != nil {
		return model.Credentials{}, fmt.Errorf("failed to save credentials: %w", err)
	}
	return creds, nil
}

func (u *authUsecase) awaitCode(ctx context.Context, handler httpHandler.ICallbackHandler) (string, error) {
	timer := time.NewTimer(u.cfg.CallbackTimeout)
	defer timer.Stop()

	select {
	case res := <-handler.Result():
		return res.Code, res.Err
	case <-timer.C:
		return "", &model.AuthError{Kind: model.AuthCallbackTimeout, Message: u.cfg.CallbackTimeout.String()}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (u *authUsecase) exchangeCode(ctx context.Context, conf *oauth2.Config, code string) (string, string, error) {
	if u.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, u.httpClient)
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			body := strings.TrimSpace(string(re.Body))
			if len(body) > exchangeBodyLimit {
				body = body[:exchangeBodyLimit] + "..."
			}
			return "", "", &model.AuthError{Kind: model.AuthExchangeFailed, Status: re.Response.StatusCode, Body: body}
		}
		return "", "", &model.AuthError{Kind: model.AuthExchangeFailed, Message: err.Error()}
	}
	return tok.AccessToken, userIDFromExtra(tok.Extra("user_id")), nil
}

// userIDFromExtra reads user_id from the token response. Numeric ids that do
// not fit a float64 exactly are dropped and resolved later through /me.
func userIDFromExtra(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		if id > 0 && id <= 1<<53 && id == math.Trunc(id) {
			return strconv.FormatInt(int64(id), 10)
		}
		logger.GetLogger().Debug("user_id in token response exceeds float precision; deferring to /me")
	}
	return ""
}

func newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
	}
}
