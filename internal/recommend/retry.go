// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// retryWithBackoff calls fn up to attempts times, doubling delay after each
// failure. Errors that are not transient (see isTransient) are returned
// immediately. The wait between attempts is cancellable through ctx.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func retryWithBackoff[T any](ctx context.Context, logger zerolog.Logger, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		var v T
		v, err = fn()
		if err == nil {
			return v, nil
		}
		if !isTransient(err) {
			return zero, err
		}

		if attempt < attempts-1 {
			logger.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", attempts).Dur("delay", delay).Msg("retry attempt")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			delay *= 2
		}
	}

	return zero, fmt.Errorf("max retry attempts reached: %w", err)
}

// isTransient reports whether err is worth retrying: upstream transport
// failures and 5xx responses. NotFound, validation failures and context
// cancellation are final.
func isTransient(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Transient()
	}
	var validation *ValidationError
	return !errors.As(err, &validation)
}
