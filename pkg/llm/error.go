package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ErrorKind classifies a failed call. Every kind is terminal for that
// call; the client never retries.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuth
	KindPermission
	KindRateLimited
	KindServer
	KindHTTP
	KindParse
	KindTimeout
	KindConnection
)

// CallError is the classified failure returned by Call and CallStream.
type CallError struct {
	Kind    ErrorKind
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}

// classifyStatus maps a non-200 HTTP status to its failure kind.
func classifyStatus(code int) *CallError {
	switch {
	case code == http.StatusUnauthorized:
		return &CallError{Kind: KindAuth, Message: "authentication failed: API key is invalid or expired"}
	case code == http.StatusForbidden:
		return &CallError{Kind: KindPermission, Message: "insufficient permission: model or resource is not accessible"}
	case code == http.StatusTooManyRequests:
		return &CallError{Kind: KindRateLimited, Message: "rate limited: too many requests"}
	case code >= 500:
		return &CallError{Kind: KindServer, Message: fmt.Sprintf("server error: HTTP %d", code)}
	default:
		return &CallError{Kind: KindHTTP, Message: fmt.Sprintf("request failed: HTTP %d", code)}
	}
}

// classifyTransport maps an error from the HTTP round trip or the body
// read to its failure kind. Timeouts report the configured limit so the
// message is actionable.
func classifyTransport(err error, timeout time.Duration) *CallError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Kind: KindTimeout, Message: fmt.Sprintf("request timed out after %s", timeout)}
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &CallError{Kind: KindTimeout, Message: fmt.Sprintf("request timed out after %s", timeout)}
	}

	var uerr *url.Error
	if errors.As(err, &uerr) {
		return &CallError{Kind: KindConnection, Message: fmt.Sprintf("connection failed: %v", uerr.Err)}
	}

	var operr *net.OpError
	if errors.As(err, &operr) {
		return &CallError{Kind: KindConnection, Message: fmt.Sprintf("connection failed: %v", operr)}
	}

	return unexpectedFailure(err)
}

func parseFailure(err error) *CallError {
	return &CallError{Kind: KindParse, Message: fmt.Sprintf("response parse failure: %v", err)}
}

func unexpectedFailure(err error) *CallError {
	return &CallError{Kind: KindUnknown, Message: fmt.Sprintf("unexpected error: %v", err)}
}
