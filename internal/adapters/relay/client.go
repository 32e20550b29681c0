package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"statusboard/internal/core/circuitbreaker"
	"statusboard/internal/core/tracing"
)

// AgentStatusPath is the collector endpoint that receives agent documents.
const AgentStatusPath = "/api/agent-status"

var forwardsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "statusboard_relay_forwards_total",
		Help: "Relay forward attempts by result",
	},
	[]string{"result"},
)

// StatusError reports a non-2xx answer from the collector.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay responded %d", e.Code)
}

// Client forwards agent documents to a downstream collector. Each call is a
// single attempt; failures are returned for the caller to log.
type Client struct {
	endpoint string
	secret   string
	http     *http.Client
	breaker  *circuitbreaker.CircuitBreaker
}

func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + AgentStatusPath,
		secret:   secret,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: circuitbreaker.New("relay", circuitbreaker.DefaultSettings()),
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Forward posts agent verbatim. It is skipped while the breaker is open.
func (c *Client) Forward(ctx context.Context, agent []byte) error {
	ctx, span := tracing.StartSpan(ctx, "relay.forward")
	defer span.End()
	span.SetAttributes(attribute.String("relay.endpoint", c.endpoint))

	err := c.breaker.Execute(func() error {
		return c.post(ctx, agent)
	})

	var statusErr *StatusError
	switch {
	case err == nil:
		forwardsTotal.WithLabelValues("ok").Inc()
		return nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		forwardsTotal.WithLabelValues("skipped").Inc()
	case errors.As(err, &statusErr):
		forwardsTotal.WithLabelValues("rejected").Inc()
	default:
		forwardsTotal.WithLabelValues("error").Inc()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (c *Client) post(ctx context.Context, agent []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(agent))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}
