package httpclient

import (
	"errors"
	"fmt"
)

// Kind classifies why a call failed.
type Kind int

const (
	// KindEncoding: the request could not be built (bad URL, unencodable params, unreadable file).
	KindEncoding Kind = iota + 1
	// KindTransport: the exchange failed (dial, TLS, timeout, pool wait, body read).
	KindTransport
	// KindStatus: the server answered with a non-2xx status.
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindEncoding:
		return "encoding"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Error is returned by every failed facade call.
type Error struct {
	Kind   Kind
	Method string
	URL    string
	// StatusCode is set for KindStatus only.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("httpclient: %s %s: %s: HTTP %d", e.Method, e.URL, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("httpclient: %s %s: %s: %v", e.Method, e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newEncodingError(method, url string, err error) *Error {
	return &Error{Kind: KindEncoding, Method: method, URL: url, Err: err}
}

func newTransportError(method, url string, err error) *Error {
	return &Error{Kind: KindTransport, Method: method, URL: url, Err: err}
}

func newStatusError(method, url string, status int) *Error {
	return &Error{Kind: KindStatus, Method: method, URL: url, StatusCode: status}
}

func isKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// IsEncoding reports whether err is a request-building failure.
func IsEncoding(err error) bool { return isKind(err, KindEncoding) }

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsStatus reports whether err is a non-2xx response.
func IsStatus(err error) bool { return isKind(err, KindStatus) }
