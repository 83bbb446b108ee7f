package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saaskit/signupcheck/internal/model"
)

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 1 << 20

// Client calls a remote check server. It satisfies field.AvailabilityChecker
// and is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
	nextID atomic.Uint64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8069".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}

	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "rpc"))
	return c, nil
}

// Check asks the server whether value is available. Transport failures,
// non-2xx statuses and JSON-RPC errors are returned wrapped in
// model.ErrRemoteCheck.
func (c *Client) Check(ctx context.Context, kind model.Kind, value string) (model.ValidationResult, error) {
	var (
		path   string
		params any
	)
	switch kind {
	case model.KindPort:
		path, params = PathCheckPort, PortParams{Port: FlexString(value)}
	case model.KindSubdomain:
		path, params = PathCheckSubdomain, SubdomainParams{Subdomain: value}
	default:
		return model.ValidationResult{}, fmt.Errorf("%w: unsupported field kind %q", model.ErrRemoteCheck, kind)
	}

	var res model.ValidationResult
	if err := c.call(ctx, path, params, &res); err != nil {
		return model.ValidationResult{}, err
	}
	return res, nil
}

// AllocatePort asks the server for the next free tenant port.
func (c *Client) AllocatePort(ctx context.Context) (int, error) {
	var res AllocateResult
	if err := c.call(ctx, PathAllocatePort, struct{}{}, &res); err != nil {
		return 0, err
	}
	return res.Port, nil
}

func (c *Client) call(ctx context.Context, path string, params, out any) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: encode params: %w", model.ErrRemoteCheck, err)
	}
	id := c.nextID.Add(1)
	body, err := json.Marshal(Request{
		JSONRPC: Version,
		Method:  MethodCall,
		Params:  rawParams,
		ID:      json.RawMessage(strconv.FormatUint(id, 10)),
	})
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", model.ErrRemoteCheck, err)
	}

	endpoint := c.base.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrRemoteCheck, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	c.logger.DebugContext(ctx, "rpc call",
		slog.String("path", path),
		slog.Uint64("id", id),
		slog.String("request_id", reqID))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrRemoteCheck, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", model.ErrRemoteCheck, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned HTTP %d", model.ErrRemoteCheck, path, resp.StatusCode)
	}

	var env Response
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: decode response: %w", model.ErrRemoteCheck, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%w: %w", model.ErrRemoteCheck, env.Error)
	}
	if len(env.Result) == 0 {
		return fmt.Errorf("%w: response has neither result nor error", model.ErrRemoteCheck)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: decode result: %w", model.ErrRemoteCheck, err)
	}
	return nil
}
