/*
Copyright OperateCrypto. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package httpbinding resolves DIDs through a REST resolution service:
// GET {endpoint}/{identity}, where identity is the first dot-separated label
// of a did:web style domain, answering a JSON DID document.
package httpbinding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/operatecrypto/didcomm-go/pkg/common/log"
	"github.com/operatecrypto/didcomm-go/pkg/doc/did"
	"github.com/operatecrypto/didcomm-go/pkg/vdr"
)

var logger = log.New("didcomm-go/vdr/httpbinding")

const defaultTimeout = 10 * time.Second

// VDR resolves DIDs via an HTTP(s) resolution endpoint.
type VDR struct {
	endpointURL string
	client      *http.Client
	accept      func(method string) bool
}

// Option configures the resolver.
type Option func(*VDR)

// WithHTTPClient overrides the default http client.
func WithHTTPClient(client *http.Client) Option {
	return func(v *VDR) {
		v.client = client
	}
}

// WithTimeout sets the HTTP timeout used when the caller's context carries
// no deadline of its own.
func WithTimeout(timeout time.Duration) Option {
	return func(v *VDR) {
		v.client.Timeout = timeout
	}
}

// WithAccept overrides the accepted DID methods. The default accepts web.
func WithAccept(accept func(method string) bool) Option {
	return func(v *VDR) {
		v.accept = accept
	}
}

// New creates a new HTTP binding resolver against the given endpoint.
func New(endpointURL string, opts ...Option) (*VDR, error) {
	if _, err := url.ParseRequestURI(endpointURL); err != nil {
		return nil, fmt.Errorf("new httpbinding resolver: %w", err)
	}

	v := &VDR{
		endpointURL: endpointURL,
		client:      &http.Client{Timeout: defaultTimeout},
		accept:      func(method string) bool { return method == "web" },
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Accept reports whether this resolver handles the DID method.
func (v *VDR) Accept(method string) bool {
	return v.accept(method)
}

// Read resolves a DID to its document. The identity sent to the resolution
// service is the first dot-separated label of the DID's method-specific id.
func (v *VDR) Read(ctx context.Context, didStr string) (*did.Doc, error) {
	parsed, err := did.Parse(didStr)
	if err != nil {
		return nil, err
	}

	reqURL, err := url.ParseRequestURI(v.endpointURL)
	if err != nil {
		return nil, fmt.Errorf("parse resolver endpoint: %w", err)
	}

	identity, _, _ := strings.Cut(parsed.MethodSpecificID, ".")
	reqURL.Path = path.Join(reqURL.Path, identity)

	body, err := v.resolveDID(ctx, reqURL.String())
	if err != nil {
		return nil, err
	}

	doc, err := did.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vdr.ErrMalformedDocument, err.Error())
	}

	return doc, nil
}

func (v *VDR) resolveDID(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create resolution request: %w", err)
	}

	req.Header.Add("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", vdr.ErrTimeout, uri)
		}

		return nil, fmt.Errorf("%w: %s", vdr.ErrNetworkFailure, err.Error())
	}

	defer closeResponseBody(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %s", vdr.ErrNetworkFailure, err.Error())
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, vdr.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: unexpected status %d from resolver", vdr.ErrNetworkFailure, resp.StatusCode)
	}

	return body, nil
}

func closeResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Errorf("failed to close response body: %v", err)
	}
}
