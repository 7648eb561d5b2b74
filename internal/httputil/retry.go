// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers and the shared retry policy used by
// every stage that talks to a remote service.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) with exponential backoff. The delay starts at RetryBaseDelay
// (10 s) and doubles each attempt: 10 s, 20 s, 40 s, 80 s, 160 s.
//
// When maxRetries is 0 the default (5) is used. On each 429 the response
// body is drained and closed before sleeping. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). After exhausting
// retries the last 429 response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Exhausted retries — return the 429 response as-is.
		if attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Policy is an explicit retry policy for operations against remote services.
// Catalog fetches, embedding calls, and index queries all go through one of
// these rather than a transparent wrapper, so backoff behavior is visible at
// each call site.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first (default 5).
	MaxAttempts int

	// InitialWait is the delay before the second attempt (default 1 s).
	InitialWait time.Duration

	// Multiplier scales the wait after each failure (default 2).
	Multiplier float64

	// Log receives one line per failed attempt with the attempt number and
	// computed wait. io.Discard when nil.
	Log io.Writer
}

// DefaultPolicy returns the pipeline's standard policy: five attempts,
// one-second initial wait, doubling.
func DefaultPolicy(log io.Writer) Policy {
	return Policy{MaxAttempts: 5, InitialWait: time.Second, Multiplier: 2, Log: log}
}

// Do runs op until it succeeds or attempts are exhausted. The final error is
// wrapped with the operation name and attempt count so callers can
// distinguish exhaustion from a first-try failure. A cancelled context ends
// a backoff wait early and returns ctx.Err().
func (p Policy) Do(ctx context.Context, name string, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	wait := p.InitialWait
	if wait <= 0 {
		wait = time.Second
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}
	log := p.Log
	if log == nil {
		log = io.Discard
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		fmt.Fprintf(log, "attempt %d/%d for %s failed: %v; retrying in %s\n",
			attempt, attempts, name, err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait = time.Duration(float64(wait) * mult)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}
