package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-roster-web/internal/middleware"
	"github.com/noah-isme/gema-roster-web/internal/observability"
)

const maxErrorBody = 64 << 10

// Config configures the backend REST client.
type Config struct {
	BaseURL string
	// Timeout bounds each call. Zero leaves the deadline to the caller's context.
	Timeout time.Duration
	// ContractCheck validates response bodies against the embedded JSON schemas.
	ContractCheck bool
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
}

// Client talks to the roster backend (students, assignments, submissions).
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	contract *Contract
	logger   zerolog.Logger
	tracer   trace.Tracer
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
}

// New builds a backend client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("backend base url must not be empty")
	}

	parsed, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		}
	}

	var contract *Contract
	if cfg.ContractCheck {
		contract, err = LoadContract()
		if err != nil {
			return nil, err
		}
	}

	return &Client{
		baseURL:  parsed,
		http:     httpClient,
		contract: contract,
		logger:   logger.With().Str("component", "backend_client").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/gema-roster-web/internal/backend"),
	}, nil
}

// do issues the call and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, req call) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	spanCtx, span := c.tracer.Start(ctx, "backend."+req.op, trace.WithAttributes(
		attribute.String("http.method", req.method),
		attribute.String("backend.path", req.path),
	))
	defer span.End()

	start := time.Now()
	body, status, err := c.roundTrip(spanCtx, req)
	observability.BackendLatency().WithLabelValues(req.op).Observe(time.Since(start).Seconds())

	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	observability.BackendRequests().WithLabelValues(req.op, statusLabel).Inc()
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug().Err(err).Str("operation", req.op).Int("status", status).Msg("backend call failed")
		return nil, err
	}

	c.logger.Debug().Str("operation", req.op).Int("status", status).Msg("backend call completed")
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, req call) ([]byte, int, error) {
	target := c.baseURL.JoinPath(req.path)
	// JoinPath drops the trailing slash the backend routes are registered with.
	if strings.HasSuffix(req.path, "/") && !strings.HasSuffix(target.Path, "/") {
		target.Path += "/"
	}
	if len(req.query) > 0 {
		target.RawQuery = req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: encode request: %w", req.op, err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build request: %w", req.op, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
		httpReq.Header.Set("X-Correlation-ID", correlation)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", req.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp.StatusCode, &APIError{
			Op:         req.op,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(raw),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%s: read response: %w", req.op, err)
	}

	return raw, resp.StatusCode, nil
}

// decodeList decodes a collection response; failures are errors because a
// render pass cannot proceed without its inputs.
func decodeList[T any](c *Client, op, schema string, raw []byte) ([]T, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	if err := c.checkContract(schema, raw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	return items, nil
}

// decodeRecord decodes the record echoed by a successful mutation. The
// mutation already happened, so an unusable body yields nil instead of an error
// and callers fall back to a re-fetch.
func decodeRecord[T any](c *Client, op, schema string, raw []byte) *T {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := c.checkContract(schema, raw); err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("mutation response ignored")
		return nil
	}

	var record T
	if err := json.Unmarshal(raw, &record); err != nil {
		c.logger.Warn().Err(err).Str("operation", op).Msg("mutation response not decodable")
		return nil
	}

	return &record
}

func (c *Client) checkContract(schema string, raw []byte) error {
	if c.contract == nil || schema == "" {
		return nil
	}
	return c.contract.Validate(schema, raw)
}
