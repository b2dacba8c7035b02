package request

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRequest            = errors.New("connection closed before a request line arrived")
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrNotImplemented       = errors.New("method not implemented")
)

// MethodError reports a request method outside GET, HEAD and POST.
type MethodError struct {
	Method string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s: %q", ErrNotImplemented, e.Method)
}

func (e *MethodError) Unwrap() error {
	return ErrNotImplemented
}

// parseRequestLine splits: METHOD TARGET VERSION
// Tokens are separated by any run of spaces or tabs.
func parseRequestLine(line []byte) (string, string, string, error) {
	parts := bytes.Fields(line)
	if len(parts) < 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRequestLine, bytes.TrimSpace(line))
	}

	method := strings.ToUpper(string(parts[0]))
	target := string(parts[1])
	version := string(parts[2])

	if !isSupportedMethod(method) {
		return "", "", "", &MethodError{Method: string(parts[0])}
	}

	return method, target, version, nil
}

// isSupportedMethod checks method against the fixed set this server serves
func isSupportedMethod(method string) bool {
	switch method {
	case MethodGet, MethodHead, MethodPost:
		return true
	default:
		return false
	}
}
