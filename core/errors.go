package core

import (
	"errors"
	"net/http"
)

// Code is the machine-readable error code returned to API clients.
type Code string

const (
	CodeUnauthorizedAccessToken  Code = "UNAUTHORIZED_ACCESS_TOKEN"
	CodeUnauthorizedRefreshToken Code = "UNAUTHORIZED_REFRESH_TOKEN"
	CodeUnauthorizedNoSession    Code = "UNAUTHORIZED_NOTFOUND_SESSION"
	CodeUnauthorizedCaptchaExp   Code = "UNAUTHORIZED_CAPTCHA_EXPIRE"
	CodeUnauthorizedCaptchaError Code = "UNAUTHORIZED_CAPTCHA_ERROR"
	CodeUnauthorizedLogin        Code = "UNAUTHORIZED_LOGIN"
	CodeBadRequestParams         Code = "BADREQUEST_PARAMS"
	CodeNotFoundTag              Code = "NOTFOUND_TAG"
	CodeConflictTag              Code = "CONFLICT_TAG"
	CodeTooManyRequests          Code = "TOOMANYREQUESTS"
	CodeInternalRedis            Code = "INTERNALSERVERERROR_REDIS"
	CodeInternalDB               Code = "INTERNALSERVERERROR_DB"
	CodeInternal                 Code = "INTERNALSERVERERROR"
)

var messages = map[Code]string{
	CodeUnauthorizedAccessToken:  "access token is invalid or expired",
	CodeUnauthorizedRefreshToken: "refresh token is invalid or expired",
	CodeUnauthorizedNoSession:    "captcha session not found",
	CodeUnauthorizedCaptchaExp:   "captcha has expired",
	CodeUnauthorizedCaptchaError: "captcha does not match",
	CodeUnauthorizedLogin:        "user name or password is incorrect",
	CodeBadRequestParams:         "request parameters are invalid",
	CodeNotFoundTag:              "tag not found",
	CodeConflictTag:              "tag with this name already exists",
	CodeTooManyRequests:          "too many requests",
	CodeInternalRedis:            "cache store is unavailable",
	CodeInternalDB:               "database is unavailable",
	CodeInternal:                 "internal server error",
}

// Error is the closed set of failures surfaced to API clients. The wrapped
// cause is kept for diagnostics and never rendered.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

var (
	ErrUnauthorizedAccessToken  = &Error{Code: CodeUnauthorizedAccessToken}
	ErrUnauthorizedRefreshToken = &Error{Code: CodeUnauthorizedRefreshToken}
	ErrUnauthorizedNoSession    = &Error{Code: CodeUnauthorizedNoSession}
	ErrUnauthorizedCaptchaExp   = &Error{Code: CodeUnauthorizedCaptchaExp}
	ErrUnauthorizedCaptchaError = &Error{Code: CodeUnauthorizedCaptchaError}
	ErrUnauthorizedLogin        = &Error{Code: CodeUnauthorizedLogin}
	ErrBadRequestParams         = &Error{Code: CodeBadRequestParams}
	ErrNotFoundTag              = &Error{Code: CodeNotFoundTag}
	ErrConflictTag              = &Error{Code: CodeConflictTag}
	ErrTooManyRequests          = &Error{Code: CodeTooManyRequests}
	ErrInternalRedis            = &Error{Code: CodeInternalRedis}
	ErrInternalDB               = &Error{Code: CodeInternalDB}
	ErrInternal                 = &Error{Code: CodeInternal}
)

// NewError builds an Error for code carrying cause.
func NewError(code Code, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

// WithMsg returns a copy of e with a custom client message.
func (e *Error) WithMsg(msg string) *Error {
	return &Error{Code: e.Code, Msg: msg, Err: e.Err}
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Msg: e.Msg, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Message returns the client-facing message.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if m, ok := messages[e.Code]; ok {
		return m
	}
	return messages[CodeInternal]
}

// Status maps the error class to an HTTP status code.
func (e *Error) Status() int {
	switch e.Code {
	case CodeUnauthorizedAccessToken, CodeUnauthorizedRefreshToken, CodeUnauthorizedNoSession,
		CodeUnauthorizedCaptchaExp, CodeUnauthorizedCaptchaError, CodeUnauthorizedLogin:
		return http.StatusUnauthorized
	case CodeBadRequestParams:
		return http.StatusBadRequest
	case CodeNotFoundTag:
		return http.StatusNotFound
	case CodeConflictTag:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AsError extracts an *Error from err, falling back to ErrInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.Wrap(err)
}
