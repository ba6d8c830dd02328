// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a user or item does not exist upstream.
var ErrNotFound = errors.New("not found")

// maxRawInError bounds how much of a raw payload Error() prints.
const maxRawInError = 512

// UpstreamError is a failure talking to an external service (metadata
// service, profile store, ranking oracle). Raw holds the response body when
// one was received.
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int // 0 for transport failures
	Err        error
	Raw        []byte
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%s %s failed", e.Service, e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Transient reports whether retrying could help: transport failures and 5xx.
func (e *UpstreamError) Transient() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// ValidationError is a malformed or unusable payload: an oracle response
// that is not JSON or lacks sections, or an empty candidate pool. Raw keeps
// the offending payload verbatim for diagnostics.
type ValidationError struct {
	Reason string
	Raw    []byte
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "validation failed: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Raw) > 0 {
		raw := e.Raw
		if len(raw) > maxRawInError {
			raw = raw[:maxRawInError]
		}
		msg += fmt.Sprintf(" (raw: %q)", raw)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError is a failed result write.
type PersistenceError struct {
	UserID  string
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist recommendations for user %s (%s): %v", e.UserID, e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorKind classifies err into the taxonomy for logs and metric labels.
func ErrorKind(err error) string {
	var (
		upstream    *UpstreamError
		validation  *ValidationError
		persistence *PersistenceError
	)
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &persistence):
		return "persistence"
	case errors.As(err, &upstream):
		return "upstream"
	default:
		return "error"
	}
}
