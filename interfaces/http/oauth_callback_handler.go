package http

import (
	"crypto/subtle"
	"html"
	"net/http"
	"sync"
	"sync/atomic"

	"threadsctl/domain/model"
	"threadsctl/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

// CallbackResult is the outcome of the single resolving callback request
type CallbackResult struct {
	Code string
	Err  error
}

type ICallbackHandler interface {
	Callback(ctx *gin.Context)
	Result() <-chan CallbackResult
}

type callbackHandler struct {
	state    string
	once     sync.Once
	resolved atomic.Bool
	result   chan CallbackResult
}

// NewCallbackHandler returns a handler bound to one OAuth flow. The first
// request carrying a code, a provider error or a bad state resolves the flow;
// later requests get 404.
func NewCallbackHandler(state string) ICallbackHandler {
	return &callbackHandler{state: state, result: make(chan CallbackResult, 1)}
}

func (h *callbackHandler) Result() <-chan CallbackResult { return h.result }

func (h *callbackHandler) Callback(c *gin.Context) {
	if h.resolved.Load() {
		c.String(http.StatusNotFound, "Not found")
		return
	}

	res, status, page := h.evaluate(c)
	delivered := false
	h.once.Do(func() {
		h.resolved.Store(true)
		h.result <- res
		delivered = true
	})
	if !delivered {
		c.String(http.StatusNotFound, "Not found")
		return
	}
	c.Data(status, "text/html; charset=utf-8", []byte(page))
}

func (h *callbackHandler) evaluate(c *gin.Context) (CallbackResult, int, string) {
	lg := logger.GetLogger()

	if providerErr := c.Query("error"); providerErr != "" {
		msg := c.Query("error_description")
		if msg == "" {
			msg = c.Query("error_reason")
		}
		if msg == "" {
			msg = providerErr
		}
		lg.WithField("error", providerErr).Warn("authorization denied by provider")
		return CallbackResult{Err: &model.AuthError{Kind: model.AuthProviderDenied, Message: msg}},
			http.StatusBadRequest, resultPage("Authorization failed", msg)
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		lg.Warn("callback without code")
		return CallbackResult{Err: &model.AuthError{Kind: model.AuthInvalidCallback, Message: "missing code"}},
			http.StatusBadRequest, resultPage("Authorization failed", "The callback did not include an authorization code.")
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(h.state)) != 1 {
		lg.Warn("callback state mismatch")
		return CallbackResult{Err: &model.AuthError{Kind: model.AuthInvalidCallback, Message: "state mismatch"}},
			http.StatusBadRequest, resultPage("Authorization failed", "The callback state did not match this login attempt.")
	}

	return CallbackResult{Code: code}, http.StatusOK,
		resultPage("Authorization complete", "You can close this window and return to the terminal.")
}

func resultPage(title, body string) string {
	return "<!doctype html><html><head><meta charset=\"utf-8\"><title>threadsctl</title></head><body><h1>" +
		html.EscapeString(title) + "</h1><p>" + html.EscapeString(body) + "</p></body></html>"
}
