package threads

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"threadsctl/domain/model"
)

func TestExchangeLongLived(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/access_token", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "th_exchange_token", q.Get("grant_type"))
		assert.Equal(t, "secret", q.Get("client_secret"))
		assert.Equal(t, "short", q.Get("access_token"))
		_, _ = io.WriteString(w, `{"access_token":"long","token_type":"bearer","expires_in":5183944}`)
	}))
	defer srv.Close()

	tok, err := NewTokenClient(srv.URL, nil).ExchangeLongLived(context.Background(), "secret", "short")
	require.NoError(t, err)
	assert.Equal(t, &model.Token{AccessToken: "long", TokenType: "bearer", ExpiresIn: 5183944}, tok)
}

func TestRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refresh_access_token", r.URL.Path)
		assert.Equal(t, "th_refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "long", r.URL.Query().Get("access_token"))
		_, _ = io.WriteString(w, `{"access_token":"longer","expires_in":100}`)
	}))
	defer srv.Close()

	tok, err := NewTokenClient(srv.URL+"/", nil).Refresh(context.Background(), "long")
	require.NoError(t, err)
	assert.Equal(t, "longer", tok.AccessToken)
	assert.Equal(t, int64(100), tok.ExpiresIn)
}

func TestTokenExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Session has expired"}}`)
	}))
	defer srv.Close()

	_, err := NewTokenClient(srv.URL, nil).ExchangeLongLived(context.Background(), "secret", "short")
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthExchangeFailed, authErr.Kind)
	assert.Equal(t, http.StatusBadRequest, authErr.Status)
	assert.Contains(t, authErr.Body, "Session has expired")
}

func TestTokenExchangeMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token_type":"bearer"}`)
	}))
	defer srv.Close()

	_, err := NewTokenClient(srv.URL, nil).Refresh(context.Background(), "long")
	var authErr *model.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, model.AuthExchangeFailed, authErr.Kind)
}

func TestTokenResponseTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = io.WriteString(w, `{"access_token":`)
	}))
	defer srv.Close()

	tok, err := NewTokenClient(srv.URL, nil).Refresh(context.Background(), "long")
	require.Error(t, err)
	assert.Nil(t, tok)
	assert.Contains(t, err.Error(), "read token response")
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}
