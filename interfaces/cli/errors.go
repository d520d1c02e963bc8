package cli

import (
	"context"
	"errors"

	"threadsctl/domain/model"

	"github.com/jessevdk/go-flags"
)

// CliErr is the machine-readable failure written in the --json envelope
type CliErr struct {
	Code    string      `json:"code"`
	Msg     string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *CliErr) Error() string { return e.Msg }

func cliFail(code, msg string, details interface{}) error {
	return &CliErr{Code: code, Msg: msg, Details: details}
}

// toCliErr maps domain errors onto stable error codes.
func toCliErr(err error) *CliErr {
	var (
		cliErr    *CliErr
		flagsErr  *flags.Error
		vErr      *model.ValidationError
		authErr   *model.AuthError
		apiErr    *model.ApiError
		pollErr   *model.PollError
		configErr *model.ConfigError
	)
	switch {
	case errors.As(err, &cliErr):
		return cliErr
	case errors.As(err, &flagsErr):
		return &CliErr{Code: "INVALID_ARGS", Msg: flagsErr.Message}
	case errors.As(err, &vErr):
		return &CliErr{Code: "INVALID_ARGS", Msg: vErr.Message, Details: map[string]interface{}{"kind": vErr.Kind}}
	case errors.As(err, &authErr):
		return authCliErr(err, authErr)
	case errors.As(err, &apiErr):
		details := map[string]interface{}{"status": apiErr.Status}
		if apiErr.Type != "" {
			details["type"] = apiErr.Type
		}
		if apiErr.Code != 0 {
			details["api_code"] = apiErr.Code
		}
		if apiErr.IsRateLimited() {
			details["rate_limited"] = true
		}
		return &CliErr{Code: "API_ERROR", Msg: err.Error(), Details: details}
	case errors.As(err, &pollErr):
		code := "POLL_FAILED"
		switch pollErr.Kind {
		case model.PollExpired:
			code = "POLL_EXPIRED"
		case model.PollTimeout:
			code = "POLL_TIMEOUT"
		}
		return &CliErr{Code: code, Msg: err.Error(), Details: map[string]interface{}{"container_id": pollErr.ContainerID}}
	case errors.As(err, &configErr):
		if configErr.Kind == model.ConfigTokenExpired {
			return &CliErr{Code: "CONFIG_TOKEN_EXPIRED", Msg: configErr.Error()}
		}
		return &CliErr{
			Code:    "CONFIG_MISSING_CREDENTIALS",
			Msg:     configErr.Error() + "; run `threadsctl auth` first",
			Details: map[string]interface{}{"fields": configErr.Fields},
		}
	case errors.Is(err, context.Canceled):
		return &CliErr{Code: "CANCELLED", Msg: "cancelled"}
	}
	return &CliErr{Code: "FATAL", Msg: err.Error()}
}

func authCliErr(err error, authErr *model.AuthError) *CliErr {
	switch authErr.Kind {
	case model.AuthProviderDenied:
		return &CliErr{Code: "AUTH_DENIED", Msg: err.Error()}
	case model.AuthInvalidCallback:
		return &CliErr{Code: "AUTH_INVALID_CALLBACK", Msg: err.Error()}
	case model.AuthCallbackTimeout:
		return &CliErr{Code: "AUTH_TIMEOUT", Msg: err.Error()}
	}
	var details interface{}
	if authErr.Status != 0 {
		details = map[string]interface{}{"status": authErr.Status, "body": authErr.Body}
	}
	return &CliErr{Code: "AUTH_EXCHANGE_FAILED", Msg: err.Error(), Details: details}
}
