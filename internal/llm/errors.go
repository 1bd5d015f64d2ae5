package llm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an *Error
type ErrorKind int

const (
	KindConfig ErrorKind = iota + 1
	KindNetwork
	KindAPI
	KindInvalidRequest
)

// Sentinels for errors.Is matching against an *Error's kind
var (
	ErrConfig         = errors.New("configuration error")
	ErrNetwork        = errors.New("network error")
	ErrAPI            = errors.New("API error")
	ErrInvalidRequest = errors.New("invalid request")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindNetwork:
		return ErrNetwork
	case KindAPI:
		return ErrAPI
	case KindInvalidRequest:
		return ErrInvalidRequest
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown error"
}

// Error is returned by every operation in this package
type Error struct {
	Kind       ErrorKind
	Provider   string // openai, anthropic, or empty before a provider is chosen
	StatusCode int    // HTTP status for KindAPI errors caused by a bad response
	Message    string
	Err        error
}

func (e *Error) Error() string {
	prefix := e.Kind.String()
	if e.Provider != "" {
		prefix = e.Provider + " " + prefix
	}
	if e.StatusCode > 0 {
		prefix = fmt.Sprintf("%s (HTTP %d)", prefix, e.StatusCode)
	}
	if e.Err != nil {
		if e.Message == "" {
			return fmt.Sprintf("%s: %v", prefix, e.Err)
		}
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// IsAuthError checks if the API rejected the credentials
func (e *Error) IsAuthError() bool {
	return e.Kind == KindAPI && (e.StatusCode == 401 || e.StatusCode == 403)
}

func configError(provider, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConfig, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

func networkError(provider, message string, err error) *Error {
	return &Error{Kind: KindNetwork, Provider: provider, Message: message, Err: err}
}

func apiError(provider string, statusCode int, message string, err error) *Error {
	return &Error{Kind: KindAPI, Provider: provider, StatusCode: statusCode, Message: message, Err: err}
}

func invalidRequestError(provider, message string, err error) *Error {
	return &Error{Kind: KindInvalidRequest, Provider: provider, Message: message, Err: err}
}
