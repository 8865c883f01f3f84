package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"finitefield.org/uniform-studio/internal/uniform"
)

const maxResponseBytes = 8 << 20

var tracer = otel.Tracer("finitefield.org/uniform-studio/internal/generator")

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// TransportError reports that the call itself failed: the request could not be
// sent or the reply could not be decoded.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("generator: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// Client posts uniform requests to the image generation endpoint.
type Client struct {
	endpoint  string
	client    HTTPClient
	userAgent string
}

// Option customises a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header on outgoing requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient constructs a Client for endpoint. A nil client uses http.DefaultClient.
func NewClient(endpoint string, client HTTPClient, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("generator: endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("generator: parse endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("generator: unsupported endpoint scheme %q", parsed.Scheme)
	}
	if client == nil {
		client = http.DefaultClient
	}
	c := &Client{endpoint: parsed.String(), client: client}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Generate sends exactly one POST with the request body. Non-2xx statuses are
// returned in Response.Status, not as errors.
func (c *Client) Generate(ctx context.Context, req uniform.Request) (resp uniform.Response, err error) {
	ctx, span := tracer.Start(ctx, "generator.Generate", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("uniform.sport", req.Sport),
		attribute.String("uniform.style", req.Style),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	httpReq, err := c.newJSONRequest(ctx, req)
	if err != nil {
		return uniform.Response{}, err
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return uniform.Response{}, &TransportError{Op: "request failed", Err: err}
	}
	defer httpResp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", httpResp.StatusCode))

	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseBytes)).Decode(&resp); err != nil {
		return uniform.Response{}, &TransportError{Op: "decode response", Err: err}
	}
	resp.Status = httpResp.StatusCode
	return resp, nil
}

func (c *Client) newJSONRequest(ctx context.Context, payload uniform.Request) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("generator: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("generator: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}
