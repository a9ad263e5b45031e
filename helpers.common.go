package main

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
)

var ErrInvalidBookID = errors.New("book id must be a positive integer")

type (
	ContextKey        string
	missingFieldError string
)

const (
	RequestIDPrefix         string     = "r"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
	ConnContextKey          ContextKey = "http-conn"
	RequestIDHeader         string     = "X-Request-ID"
)

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// ParseBookID converts a path parameter into a book id.
func ParseBookID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidBookID
	}
	return id, nil
}

// DecodeBookRequestBody is a helper function to read the content of a book creation or update request.
func DecodeBookRequestBody(r *http.Request, in *BookInput) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("invalid book request body")
	}
	return json.NewDecoder(r.Body).Decode(in)
}

// ValidateBookRequestBody checks the fields required on creation and replacement.
func ValidateBookRequestBody(in *BookInput) error {
	if len(strings.TrimSpace(in.Title)) == 0 {
		return missingFieldError("title")
	}

	if len(strings.TrimSpace(in.Author)) == 0 {
		return missingFieldError("author")
	}

	return nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	if net.ParseIP(ip) != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	for _, ip := range strings.Split(r.Header.Get("X-FORWARDED-FOR"), ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result.
func IsAppRunningInDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// SaveConnInContext is the hook used by the server under ConnContext.
// It keeps the underlying connection into the request context for later
// use by the deadline methods of *CustomResponseWriter.
func SaveConnInContext(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, ConnContextKey, c)
}

// GetConnFromContext returns the connection saved into the context or nil.
func GetConnFromContext(ctx context.Context) net.Conn {
	if c, ok := ctx.Value(ConnContextKey).(net.Conn); ok {
		return c
	}
	return nil
}
