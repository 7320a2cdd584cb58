package bitquery

import (
	"errors"
	"fmt"

	"launchpad-feed/internal/domain"
)

// Configuration errors. Both wrap ErrConfiguration.
var (
	ErrConfiguration   = errors.New("bitquery: configuration error")
	ErrMissingAPIKey   = fmt.Errorf("%w: api key is not set", ErrConfiguration)
	ErrMissingEndpoint = fmt.Errorf("%w: endpoint is not set", ErrConfiguration)
)

// Kind classifies why a source call failed.
type Kind string

const (
	KindConfig     Kind = "config"
	KindHTTPStatus Kind = "http_status"
	KindNetwork    Kind = "network"
	KindDecode     Kind = "decode"
	KindGraphQL    Kind = "graphql"
	KindTimeout    Kind = "timeout"
	KindPanic      Kind = "panic"
)

// SourceError is returned for every failed upstream call. It keeps the
// failing source and the failure kind for logs and metrics.
type SourceError struct {
	Source domain.Source
	Kind   Kind
	Status int // HTTP status for KindHTTPStatus
	Err    error
}

func (e *SourceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("source %s: %s (status %d): %v", e.Source, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// retryable reports whether another attempt may succeed.
func (e *SourceError) retryable() bool {
	switch e.Kind {
	case KindNetwork:
		return true
	case KindHTTPStatus:
		return e.Status == 429 || e.Status >= 500
	default:
		return false
	}
}

// KindOf returns the failure kind of err, or "" if err is not a SourceError.
func KindOf(err error) Kind {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// graphQLError is one entry of the GraphQL errors array.
type graphQLError struct {
	Message string `json:"message"`
}

type graphQLErrors []graphQLError

func (g graphQLErrors) Error() string {
	switch len(g) {
	case 0:
		return "unknown graphql error"
	case 1:
		return g[0].Message
	default:
		return fmt.Sprintf("%s (and %d more)", g[0].Message, len(g)-1)
	}
}
