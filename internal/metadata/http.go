package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
)

const maxResponseBytes = 4 << 20

// errNoRecord marks a 404 from a provider.
var errNoRecord = errors.New("no record")

// statusError is a non-2xx provider response.
type statusError struct {
	provider string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.provider, e.code)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

// decodeError is a malformed provider payload. Retrying will not fix it.
type decodeError struct {
	provider string
	err      error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.provider, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

type requester struct {
	provider string
	client   HTTPDoer
	attempts int
	delay    time.Duration
}

// getJSON fetches url into out, retrying transport errors, 429 and 5xx.
func (r requester) getJSON(ctx context.Context, url string, out any) error {
	attempts := r.attempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			return r.getOnce(ctx, url, out)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(r.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, errNoRecord) || errors.Is(err, context.Canceled) {
				return false
			}
			var statusErr *statusError
			if errors.As(err, &statusErr) {
				return statusErr.retryable()
			}
			var decodeErr *decodeError
			return !errors.As(err, &decodeErr)
		}),
		retry.LastErrorOnly(true),
	)
}

func (r requester) getOnce(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", r.provider, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "accession/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", r.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNoRecord
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &statusError{provider: r.provider, code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", r.provider, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &decodeError{provider: r.provider, err: err}
	}
	return nil
}
