package enrichment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
)

const userAgent = "accession-enrichment/1.0"

// Handler performs the enrichment work for one newly inserted book.
type Handler interface {
	Handle(ctx context.Context, bookID int64) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, bookID int64) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, bookID int64) error {
	return f(ctx, bookID)
}

// WebhookHandler signals an external enrichment service by POSTing the book
// id to a URL.
type WebhookHandler struct {
	endpoint string
	client   *http.Client
	attempts uint
	delay    time.Duration
}

// NewWebhookHandler builds a webhook handler. attempts below one are treated
// as one.
func NewWebhookHandler(endpoint string, client *http.Client, attempts int) *WebhookHandler {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if attempts < 1 {
		attempts = 1
	}
	return &WebhookHandler{
		endpoint: strings.TrimSpace(endpoint),
		client:   client,
		attempts: uint(attempts),
		delay:    250 * time.Millisecond,
	}
}

type webhookPayload struct {
	BookID int64 `json:"book_id"`
}

// Handle delivers {"book_id": N}. Transport errors, 429 and 5xx responses are
// retried; other non-2xx responses fail immediately.
func (w *WebhookHandler) Handle(ctx context.Context, bookID int64) error {
	body, err := json.Marshal(webhookPayload{BookID: bookID})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	return retry.Do(
		func() error { return w.send(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.Delay(w.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (w *WebhookHandler) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return retry.Unrecoverable(fmt.Errorf("webhook request: %w", err))
		}
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("webhook returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return statusErr
	}
	return retry.Unrecoverable(statusErr)
}
