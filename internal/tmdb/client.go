// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

/*
Package tmdb is the metadata service client for The Movie Database API v3.

Endpoints:
  - GET /movie/{id}: item details (lookup timeout, 3s by default)
  - GET /movie/{id}/recommendations: similar items (query timeout, 5s)
  - GET /discover/movie: popularity-sorted discovery (query timeout, 5s)

Every request carries api_key and language query parameters.

Resilience:
  - Pacing: a token bucket limits requests per second across all callers
  - HTTP 429: honors Retry-After, otherwise backs off exponentially
  - Transient failures (transport errors, 5xx) are retried with backoff
  - A circuit breaker opens when the API keeps failing; 4xx responses do not count

Errors are *recommend.UpstreamError; a 404 also wraps recommend.ErrNotFound.
*/
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/juliannp253/Movies-Recommender/internal/breaker"
	"github.com/juliannp253/Movies-Recommender/internal/config"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

const (
	serviceName = "tmdb"

	// maxErrorBodySize limits how much of an error response is kept.
	maxErrorBodySize = 64 * 1024

	// maxResponseSize limits successful response bodies.
	maxResponseSize = 8 * 1024 * 1024

	maxRateLimitRetries = 3
	rateLimitBaseDelay  = time.Second
)

// Client talks to the TMDB API. It is safe for concurrent use.
type Client struct {
	baseURL       string
	imageBaseURL  string
	apiKey        string
	language      string
	httpClient    *http.Client
	limiter       *rate.Limiter
	breaker       *breaker.Breaker[[]byte]
	lookupTimeout time.Duration
	queryTimeout  time.Duration
	retryAttempts int
	retryDelay    time.Duration
	logger        zerolog.Logger
}

var _ recommend.MetadataService = (*Client)(nil)

// NewClient creates a TMDB client from configuration.
//
//nolint:gocritic // config and logger are small values
func NewClient(cfg config.MetadataConfig, logger zerolog.Logger) *Client {
	logger = logger.With().Str("component", "tmdb").Logger()

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}

	bcfg := breaker.DefaultConfig("tmdb-api")
	bcfg.IsSuccessful = countsAsHealthy

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL:  strings.TrimRight(cfg.ImageBaseURL, "/"),
		apiKey:        cfg.APIKey,
		language:      cfg.Language,
		httpClient:    &http.Client{},
		limiter:       limiter,
		breaker:       breaker.New[[]byte](bcfg, logger),
		lookupTimeout: cfg.LookupTimeout,
		queryTimeout:  cfg.QueryTimeout,
		retryAttempts: attempts,
		retryDelay:    cfg.RetryDelay,
		logger:        logger,
	}
}

// GetItem returns details for one movie.
func (c *Client) GetItem(ctx context.Context, id recommend.ItemID) (*recommend.Metadata, error) {
	var movie Movie
	path := "/movie/" + url.PathEscape(id.String())
	if err := c.getJSON(ctx, "get_item", path, nil, c.lookupTimeout, &movie); err != nil {
		return nil, err
	}
	md := movie.ToMetadata()
	if md.ID == "" || md.ID == "0" {
		md.ID = id
	}
	return &md, nil
}

// FindSimilar returns TMDB's recommendations for seed, first page only.
func (c *Client) FindSimilar(ctx context.Context, seed recommend.ItemID) ([]recommend.Metadata, error) {
	var page PagedMovies
	path := "/movie/" + url.PathEscape(seed.String()) + "/recommendations"
	q := url.Values{"page": {"1"}}
	if err := c.getJSON(ctx, "find_similar", path, q, c.queryTimeout, &page); err != nil {
		return nil, err
	}
	return toMetadataList(page.Results), nil
}

// Discover runs /discover/movie with the query's filters.
func (c *Client) Discover(ctx context.Context, dq recommend.DiscoverQuery) ([]recommend.Metadata, error) {
	var page PagedMovies
	if err := c.getJSON(ctx, "discover", "/discover/movie", discoverParams(dq), c.queryTimeout, &page); err != nil {
		return nil, err
	}
	return toMetadataList(page.Results), nil
}

func discoverParams(dq recommend.DiscoverQuery) url.Values {
	q := url.Values{}
	if dq.SortBy != "" {
		q.Set("sort_by", dq.SortBy)
	}
	if dq.MinVoteCount > 0 {
		q.Set("vote_count.gte", strconv.Itoa(dq.MinVoteCount))
	}
	if dq.MinVoteAverage > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(dq.MinVoteAverage, 'f', -1, 64))
	}
	page := dq.Page
	if page < 1 {
		page = 1
	}
	q.Set("page", strconv.Itoa(page))
	if dq.GenreCode != "" {
		q.Set("with_genres", dq.GenreCode)
	}
	return q
}

// PosterURL returns the full artwork URL for a poster path, or "" when the
// item has none.
func (c *Client) PosterURL(path *string) string {
	return PosterURL(c.imageBaseURL, path)
}

// PosterURL joins an image base URL and a poster path.
func PosterURL(imageBaseURL string, path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	p := *path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(imageBaseURL, "/") + p
}

// BreakerState reports the circuit breaker state for health checks.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// getJSON fetches path under timeout and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, timeout time.Duration, out any) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	body, err := c.fetchWithRetry(ctx, op, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &recommend.UpstreamError{
			Service:    serviceName,
			Op:         op,
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("decode response: %w", err),
			Raw:        truncateBody(body),
		}
	}
	return nil
}

// fetchWithRetry retries transient failures with exponential backoff.
// Breaker rejections and client errors are returned immediately.
func (c *Client) fetchWithRetry(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	log := logging.CtxFrom(ctx, c.logger)
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.fetch(ctx, op, path, query)
		})
		if err == nil {
			return body, nil
		}
		if breaker.IsRejected(err) {
			return nil, &recommend.UpstreamError{Service: serviceName, Op: op, Err: err}
		}
		lastErr = err
		if !isRetryable(ctx, err) || attempt == c.retryAttempts-1 {
			break
		}

		log.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Int("max_attempts", c.retryAttempts).Dur("delay", delay).Msg("retry attempt")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &recommend.UpstreamError{Service: serviceName, Op: op, Err: ctx.Err()}
		}
		delay *= 2
	}
	return nil, lastErr
}

func isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var ue *recommend.UpstreamError
	if errors.As(err, &ue) {
		return ue.Transient()
	}
	return false
}

// countsAsHealthy keeps 4xx responses (other than 429) out of the
// breaker's failure counts: they describe the request, not the upstream.
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	var ue *recommend.UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode >= 400 && ue.StatusCode < 500 && ue.StatusCode != http.StatusTooManyRequests
	}
	return errors.Is(err, context.Canceled)
}

// fetch performs one paced GET, handling 429 responses.
func (c *Client) fetch(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &recommend.UpstreamError{Service: serviceName, Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("api_key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}
	reqURL := c.baseURL + path + "?" + q.Encode()

	start := time.Now()
	resp, err := c.doWithRateLimit(ctx, op, reqURL)
	if err != nil {
		metrics.RecordUpstreamRequest(serviceName, op, 0, time.Since(start), err)
		return nil, err
	}
	defer closeQuietly(resp.Body)

	if resp.StatusCode != http.StatusOK {
		raw := readBodyForError(resp.Body)
		uerr := &recommend.UpstreamError{
			Service:    serviceName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        statusError(resp.StatusCode, raw),
			Raw:        raw,
		}
		metrics.RecordUpstreamRequest(serviceName, op, resp.StatusCode, time.Since(start), uerr)
		return nil, uerr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		uerr := &recommend.UpstreamError{Service: serviceName, Op: op, Err: fmt.Errorf("read body: %w", err)}
		metrics.RecordUpstreamRequest(serviceName, op, 0, time.Since(start), uerr)
		return nil, uerr
	}
	metrics.RecordUpstreamRequest(serviceName, op, resp.StatusCode, time.Since(start), nil)
	return body, nil
}

// doWithRateLimit executes the request, retrying HTTP 429 responses after
// the Retry-After delay (seconds) or an exponential backoff.
func (c *Client) doWithRateLimit(ctx context.Context, op, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, &recommend.UpstreamError{Service: serviceName, Op: op, Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &recommend.UpstreamError{Service: serviceName, Op: op, Err: redactURLError(err)}
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt == maxRateLimitRetries {
			return resp, nil
		}

		metrics.UpstreamRateLimited.WithLabelValues(serviceName).Inc()
		retryDelay := rateLimitBaseDelay * (1 << attempt)
		if seconds, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && seconds >= 0 {
			retryDelay = time.Duration(seconds) * time.Second
		}
		closeQuietly(resp.Body)

		log := logging.CtxFrom(ctx, c.logger)
		log.Warn().Str("op", op).Dur("retry_delay", retryDelay).Int("attempt", attempt+1).Msg("TMDB rate limited (HTTP 429), retrying")
		select {
		case <-ctx.Done():
			return nil, &recommend.UpstreamError{Service: serviceName, Op: op, Err: ctx.Err()}
		case <-time.After(retryDelay):
		}
	}
}

func statusError(status int, raw []byte) error {
	if status == http.StatusNotFound {
		return recommend.ErrNotFound
	}
	var sr statusResponse
	if err := json.Unmarshal(raw, &sr); err == nil && sr.StatusMessage != "" {
		return fmt.Errorf("%s (code %d)", sr.StatusMessage, sr.StatusCode)
	}
	return fmt.Errorf("unexpected status %d", status)
}

// redactURLError drops the request URL, which carries the API key.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}

// readBodyForError reads at most maxErrorBodySize bytes for diagnostics.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func truncateBody(body []byte) []byte {
	if len(body) > maxErrorBodySize {
		return body[:maxErrorBodySize]
	}
	return body
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
