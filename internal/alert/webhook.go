package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	deliveryTimeout = 15 * time.Second
	maxAttempts     = 3
)

var (
	httpClient = &http.Client{Timeout: 5 * time.Second}

	// retryBackoff is the base delay; attempt n waits n*retryBackoff.
	retryBackoff = time.Second
)

// DeliveryError is a webhook response that was not 2xx.
type DeliveryError struct {
	URL        string
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("webhook %s: HTTP %d", e.URL, e.StatusCode)
}

// Retryable reports whether a later attempt may succeed: server errors and
// 429 are retried, other client errors are permanent.
func (e *DeliveryError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Send posts event to cfg.URL, retrying transport failures and retryable
// statuses up to maxAttempts. Backoff waits end early when ctx is done.
func Send(ctx context.Context, cfg AlertConfig, event AlertEvent) error {
	body, err := FormatPayload(cfg, event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook delivery abandoned: %w", errors.Join(lastErr, ctx.Err()))
			case <-time.After(time.Duration(attempt-1) * retryBackoff):
			}
		}

		err := post(ctx, cfg, body)
		if err == nil {
			return nil
		}
		lastErr = err
		var de *DeliveryError
		if errors.As(err, &de) && !de.Retryable() {
			return err
		}
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, lastErr)
}

func post(ctx context.Context, cfg AlertConfig, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hazardwatch-alert")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{URL: cfg.URL, StatusCode: resp.StatusCode}
	}
	return nil
}
