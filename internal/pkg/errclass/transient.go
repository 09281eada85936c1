// Package errclass decides whether an upstream failure is worth retrying.
package errclass

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

var transientCodes = map[string]struct{}{
	"ECONNRESET":   {},
	"ENOTFOUND":    {},
	"ETIMEDOUT":    {},
	"EAI_AGAIN":    {},
	"ENETUNREACH":  {},
	"ECONNABORTED": {},
}

var transientMessageFragments = []string{
	"network",
	"timeout",
	"temporarily unavailable",
	"rate limit",
}

type codedError interface {
	Code() string
}

type statusError interface {
	HTTPStatus() int
}

// IsTransient reports whether err (optionally with an HTTP status, 0 if absent)
// describes a failure that a retry may fix.
func IsTransient(err error, statusCode int) bool {
	if statusCode == 429 || statusCode >= 500 {
		return true
	}
	if err == nil {
		return false
	}
	if statusCode == 0 {
		if status := StatusCode(err); status == 429 || status >= 500 {
			return true
		}
	}

	if _, ok := transientCodes[Code(err)]; ok {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range transientMessageFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se statusError
	if errors.As(err, &se) {
		return se.HTTPStatus()
	}
	return 0
}

// Code normalizes err into a socket-style error code such as ECONNRESET.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var coded codedError
	if errors.As(err, &coded) {
		if code := strings.ToUpper(strings.TrimSpace(coded.Code())); code != "" {
			return code
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return "ENOTFOUND"
		case dnsErr.IsTimeout:
			return "ETIMEDOUT"
		default:
			return "EAI_AGAIN"
		}
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, syscall.ECONNABORTED):
		return "ECONNABORTED"
	case errors.Is(err, syscall.ENETUNREACH):
		return "ENETUNREACH"
	case errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	return ""
}
