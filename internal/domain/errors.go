package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthMismatch is returned when a review password does not match.
	// The check runs wherever the review data is held; it is not authentication.
	ErrAuthMismatch = errors.New("review password does not match")

	// ErrMovieNotFound is returned when neither the cache nor the seed dataset knows a movie id.
	ErrMovieNotFound = errors.New("movie not found")
)

// ConfigError reports a missing or invalid setting detected at call time.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("config: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("config: %s is not set", e.Key)
}

// HTTPError reports a non-2xx response from an upstream service.
type HTTPError struct {
	Service    string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	status := strings.TrimSpace(e.Status)
	if status == "" {
		return fmt.Sprintf("%s: upstream returned %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream returned %s", e.Service, status)
}

// FetchError reports a failed read from the review collection.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch reviews: %v", e.Err)
	}
	return fmt.Sprintf("fetch reviews: upstream returned %d", e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RemoteFault carries an application-level error reported by an upstream service.
type RemoteFault struct {
	Service string
	Code    string
	Message string
}

func (e *RemoteFault) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Service, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

// ValidationError lists every invalid field of a submission.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}
