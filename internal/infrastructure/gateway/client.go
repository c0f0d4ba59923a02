// Package gateway is the single channel through which the portal talks to
// backend services. Every call gets the same bearer-token handling, body
// encoding and error normalisation, whichever service it targets.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hirelane/portal/internal/api/metrics"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 2 * 1024 * 1024

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerAccept        = "Accept"

	mimeJSON = "application/json"
	mimeForm = "application/x-www-form-urlencoded"
)

// TokenSource is read at call time on every request.
type TokenSource interface {
	Load(ctx context.Context) (string, error)
}

// DeniedFunc is invoked when a call comes back 401.
type DeniedFunc func(ctx context.Context)

// Config captures the settings of a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxResponseSize caps the bytes read from a response body. Zero means 2 MiB.
	MaxResponseSize int64
	// Transport overrides the default round tripper (tests).
	Transport http.RoundTripper
}

// Client issues requests against a base URL or against absolute URLs.
// A zero TokenSource sends no Authorization header.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	onDenied   DeniedFunc
	maxBody    int64
	log        zerolog.Logger
}

// New validates cfg and returns an unbound Client.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	c := &Client{log: log, maxBody: cfg.MaxResponseSize}
	if c.maxBody <= 0 {
		c.maxBody = maxResponseSize
	}

	if raw := strings.TrimSpace(cfg.BaseURL); raw != "" {
		parsed, err := url.Parse(strings.TrimRight(raw, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse gateway base url: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return nil, fmt.Errorf("invalid gateway base url: %s", raw)
		}
		c.baseURL = parsed
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.httpClient = &http.Client{Timeout: timeout, Transport: cfg.Transport}
	return c, nil
}

// Bind returns a copy of c that reads its token from tokens and reports
// authorization denials to onDenied. The receiver is left untouched.
func (c *Client) Bind(tokens TokenSource, onDenied DeniedFunc) *Client {
	bound := *c
	bound.tokens = tokens
	bound.onDenied = onDenied
	return &bound
}

// Option adjusts a single request.
type Option func(*requestOptions)

type requestOptions struct {
	header http.Header
	query  url.Values
}

// WithHeader adds a request header. Content-Type and Authorization are owned
// by the gateway and cannot be overridden this way.
func WithHeader(key, value string) Option {
	return func(o *requestOptions) {
		o.header.Add(key, value)
	}
}

// WithQuery appends query parameters to the resolved URL.
func WithQuery(values url.Values) Option {
	return func(o *requestOptions) {
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// Request sends a JSON request. body is encoded as JSON when non-nil.
// A nil result with a nil error means the response carried no decodable body.
func Request[T any](ctx context.Context, c *Client, method, endpoint string, body any, opts ...Option) (*T, error) {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = mimeJSON
	}
	return decode[T](c.do(ctx, method, endpoint, reader, contentType, opts))
}

// RequestForm sends a url-encoded form, as used by the credential exchange.
func RequestForm[T any](ctx context.Context, c *Client, method, endpoint string, form url.Values, opts ...Option) (*T, error) {
	return decode[T](c.do(ctx, method, endpoint, strings.NewReader(form.Encode()), mimeForm, opts))
}

// RequestMultipart POSTs a multipart payload. The Content-Type, boundary
// included, always comes from the encoder; any caller-supplied value is dropped.
func RequestMultipart[T any](ctx context.Context, c *Client, endpoint string, form *Multipart, opts ...Option) (*T, error) {
	reader, contentType, err := form.encode()
	if err != nil {
		return nil, fmt.Errorf("encode multipart body: %w", err)
	}
	return decode[T](c.do(ctx, http.MethodPost, endpoint, reader, contentType, opts))
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func decode[T any](resp *response, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if resp.status == http.StatusNoContent || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil, nil
	}
	if !isJSON(resp.contentType) {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string, opts []Option) (*response, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("gateway client is not initialised")
	}

	o := requestOptions{header: http.Header{}, query: url.Values{}}
	for _, opt := range opts {
		opt(&o)
	}

	target, err := c.resolve(endpoint, o.query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	for k, vs := range o.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Del(headerContentType)
	req.Header.Del(headerAuthorization)
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}
	if req.Header.Get(headerAccept) == "" {
		req.Header.Set(headerAccept, mimeJSON)
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(method, "network_error").Inc()
		c.log.Warn().Err(err).Str("method", method).Str("url", target).Msg("gateway request failed")
		return nil, NetworkFailure(err)
	}
	defer resp.Body.Close()

	metrics.GatewayRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.GatewayRequestsTotal.WithLabelValues(method, statusClass(resp.StatusCode)).Inc()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, NetworkFailure(fmt.Errorf("read response body: %w", err))
	}
	oversized := int64(len(payload)) > c.maxBody
	if oversized {
		payload = payload[:c.maxBody]
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gerr := Normalize(resp.StatusCode, statusText(resp), payload)
		c.log.Debug().
			Str("method", method).
			Str("url", target).
			Int("status", resp.StatusCode).
			Str("kind", gerr.Kind.String()).
			Msg(gerr.Message)
		if gerr.Kind == KindSessionExpired && c.onDenied != nil {
			c.onDenied(ctx)
		}
		return nil, gerr
	}
	if oversized {
		c.log.Warn().Str("method", method).Str("url", target).Int64("limit", c.maxBody).Msg("response body too large")
		return nil, BodyTooLarge(c.maxBody)
	}

	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get(headerContentType),
		body:        payload,
	}, nil
}

// resolve uses absolute URLs verbatim and joins everything else to the base.
func (c *Client) resolve(endpoint string, query url.Values) (string, error) {
	endpoint = strings.TrimSpace(endpoint)

	var target *url.URL
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	switch {
	case parsed.IsAbs():
		target = parsed
	case c.baseURL == nil:
		return "", fmt.Errorf("relative endpoint %q without a base url", endpoint)
	default:
		rel, err := url.Parse(strings.TrimLeft(endpoint, "/"))
		if err != nil {
			return "", fmt.Errorf("parse endpoint %q: %w", endpoint, err)
		}
		target = c.baseURL.ResolveReference(rel)
	}

	if len(query) > 0 {
		q := target.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target.String(), nil
}

func (c *Client) token(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Load(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("read persisted token")
		return ""
	}
	return strings.TrimSpace(token)
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == mimeJSON || strings.HasSuffix(mediaType, "+json")
}

func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
