/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package http provides the HTTP outbound transport.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
)

// ContentType is the media type of packed envelopes on the wire.
const ContentType = "application/didcomm-envelope-enc"

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	defaultMaxRetries    = 3
)

var logger = log.New("didcomm-go/transport/http")

// Outbound posts packed envelopes to recipient endpoints, retrying
// transient failures with constant backoff.
type Outbound struct {
	client        *http.Client
	retryInterval time.Duration
	maxRetries    uint64
}

// Opt configures the outbound transport.
type Opt func(*Outbound)

// WithHTTPClient sets the HTTP client used for delivery.
func WithHTTPClient(client *http.Client) Opt {
	return func(o *Outbound) {
		o.client = client
	}
}

// WithRetry sets the retry interval and the number of retries after the
// first attempt.
func WithRetry(interval time.Duration, maxRetries uint64) Opt {
	return func(o *Outbound) {
		o.retryInterval = interval
		o.maxRetries = maxRetries
	}
}

// NewOutbound returns an HTTP outbound transport.
func NewOutbound(opts ...Opt) *Outbound {
	outbound := &Outbound{
		client:        &http.Client{Timeout: defaultTimeout},
		retryInterval: defaultRetryInterval,
		maxRetries:    defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(outbound)
	}

	return outbound
}

// Send posts the envelope to the endpoint. A response other than 200 or
// 202 is a delivery failure.
func (o *Outbound) Send(ctx context.Context, envelope []byte, endpoint string) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.retryInterval), o.maxRetries), ctx)

	attempt := func() error {
		return o.post(ctx, envelope, endpoint)
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		return fmt.Errorf("send envelope to %s: %w", endpoint, err)
	}

	return nil
}

func (o *Outbound) post(ctx context.Context, envelope []byte, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(envelope))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("new request: %w", err))
	}

	req.Header.Set("Content-Type", ContentType)

	resp, err := o.client.Do(req)
	if err != nil {
		logger.Warnf("delivery attempt to %s failed: %v", endpoint, err)
		return err
	}

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			logger.Warnf("drain response body: %v", err)
		}

		if err := resp.Body.Close(); err != nil {
			logger.Warnf("close response body: %v", err)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted:
		return nil
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		logger.Warnf("delivery to %s got status %d, will retry", endpoint, resp.StatusCode)
		return fmt.Errorf("endpoint %s returned status %d", endpoint, resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("endpoint %s returned status %d", endpoint, resp.StatusCode))
	}
}
