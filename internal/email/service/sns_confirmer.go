package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	apperrors "github.com/allisson/mailqueue/internal/errors"
)

// SubscriptionConfirmer confirms SNS subscriptions by visiting their SubscribeURL.
type SubscriptionConfirmer struct {
	client      *retryablehttp.Client
	hostAllowed func(host string) bool
}

// NewSubscriptionConfirmer creates a SubscriptionConfirmer that only follows
// https URLs on amazonaws.com hosts.
func NewSubscriptionConfirmer(logger *slog.Logger) *SubscriptionConfirmer {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}

	return &SubscriptionConfirmer{
		client:      client,
		hostAllowed: isAWSHost,
	}
}

// Confirm issues a GET to subscribeURL.
func (s *SubscriptionConfirmer) Confirm(ctx context.Context, subscribeURL string) error {
	u, err := url.Parse(subscribeURL)
	if err != nil || u.Scheme != "https" || !s.hostAllowed(u.Hostname()) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "untrusted SNS subscribe URL")
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return apperrors.Wrap(err, "failed to build SNS confirmation request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnavailable, fmt.Sprintf("SNS confirmation failed: %v", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return apperrors.Wrap(
			apperrors.ErrUnavailable,
			fmt.Sprintf("SNS confirmation returned status %d", resp.StatusCode),
		)
	}
	return nil
}

func isAWSHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), ".amazonaws.com")
}
