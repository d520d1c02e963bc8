package model

import (
	"fmt"
	"net/http"
	"strings"
)

type AuthErrorKind string

const (
	AuthProviderDenied  AuthErrorKind = "provider_denied"
	AuthInvalidCallback AuthErrorKind = "invalid_callback"
	AuthExchangeFailed  AuthErrorKind = "exchange_failed"
	AuthCallbackTimeout AuthErrorKind = "callback_timeout"
)

// AuthError is returned by the OAuth flow
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	// Status and Body are set for ExchangeFailed
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthProviderDenied:
		return "authorization denied: " + e.Message
	case AuthInvalidCallback:
		if e.Message != "" {
			return "invalid oauth callback: " + e.Message
		}
		return "invalid oauth callback"
	case AuthExchangeFailed:
		if e.Status == 0 {
			return "token exchange failed: " + e.Message
		}
		return fmt.Sprintf("token exchange failed (%d): %s", e.Status, e.Body)
	case AuthCallbackTimeout:
		return "timed out waiting for the authorization callback after " + e.Message
	}
	return "authentication failed: " + e.Message
}

// ApiError is a non-success response from the Threads API
type ApiError struct {
	Status  int    `json:"status"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func (e *ApiError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "threads api error %d", e.Status)
	if e.Type != "" {
		fmt.Fprintf(&b, " %s", e.Type)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

func (e *ApiError) IsRateLimited() bool { return e.Status == http.StatusTooManyRequests }

type PollErrorKind string

const (
	PollProviderError PollErrorKind = "provider_error"
	PollExpired       PollErrorKind = "expired"
	PollTimeout       PollErrorKind = "timeout"
)

// PollError reports a container that never reached FINISHED
type PollError struct {
	Kind        PollErrorKind
	ContainerID string
	Message     string
}

func (e *PollError) Error() string {
	switch e.Kind {
	case PollProviderError:
		msg := e.Message
		if msg == "" {
			msg = "no error message"
		}
		return fmt.Sprintf("container %s failed processing: %s", e.ContainerID, msg)
	case PollExpired:
		return fmt.Sprintf("container %s expired before publishing", e.ContainerID)
	case PollTimeout:
		return fmt.Sprintf("container %s still processing after %s", e.ContainerID, e.Message)
	}
	return fmt.Sprintf("container %s: %s", e.ContainerID, e.Message)
}

type ConfigErrorKind string

const (
	ConfigMissingCredentials ConfigErrorKind = "missing_credentials"
	ConfigTokenExpired       ConfigErrorKind = "token_expired"
)

type ConfigError struct {
	Kind   ConfigErrorKind
	Fields []string
}

func (e *ConfigError) Error() string {
	if e.Kind == ConfigTokenExpired {
		return "access token expired; run `threadsctl auth` again"
	}
	return "missing credentials: " + strings.Join(e.Fields, ", ")
}

type ValidationErrorKind string

const (
	ValidationCarouselSize      ValidationErrorKind = "carousel_size_out_of_range"
	ValidationMissingIdentifier ValidationErrorKind = "missing_identifier"
	ValidationInvalidArgument   ValidationErrorKind = "invalid_argument"
)

// ValidationError is raised before any network call
type ValidationError struct {
	Kind    ValidationErrorKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
