package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fund-service/fund_service/pkg/circuitbreaker"
	apperrors "github.com/fund-service/fund_service/pkg/errors"
	"github.com/fund-service/fund_service/pkg/metrics"
	"github.com/fund-service/fund_service/pkg/retry"
	"github.com/fund-service/fund_service/pkg/tracing"
	"github.com/fund-service/fund_service/pkg/version"
)

const (
	defaultTimeout   = 15 * time.Second
	maxErrorBodySize = 2048
)

// Config describes one upstream HTTP collaborator
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RateLimitPerSec float64
	RateLimitBurst  int
	Breaker         circuitbreaker.Config
	Retry           retry.Policy
}

// APIError is a non-2xx response from an upstream service
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.StatusCode, e.Body)
}

// Client is a JSON client shared by the collaborator adapters. Calls pass
// through a rate limiter, a circuit breaker and the configured retry policy.
type Client struct {
	service    string
	errCode    string
	cfg        Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New builds a client. service labels metrics and errors; errCode is the
// application error code attached to upstream failures.
func New(service, errCode string, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = retry.PolicyNoRetry
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimitPerSec > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), burst)
	}

	breaker := circuitbreaker.New(service, cfg.Breaker, logger)

	return &Client{
		service: service,
		errCode: errCode,
		cfg:     cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		breaker: breaker,
		limiter: limiter,
		logger:  logger.With(zap.String("service", service)),
	}
}

// Service returns the name the client reports under
func (c *Client) Service() string {
	return c.service
}

// Do sends a JSON request and decodes a 2xx body into out. Non-2xx
// responses come back as an *apperrors.AppError wrapping an *APIError.
func (c *Client) Do(ctx context.Context, method, endpoint string, in, out interface{}) error {
	if c.cfg.Retry.MaxRetries == 0 {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		return c.execute(ctx, method, endpoint, in, out)
	}

	return retry.Do(ctx, c.cfg.Retry, func(attempt int) error {
		if attempt > 1 {
			c.logger.Info("Retrying upstream request",
				zap.Int("attempt", attempt),
				zap.String("method", method),
				zap.String("endpoint", endpoint))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		return c.execute(ctx, method, endpoint, in, out)
	})
}

// execute runs one request through the breaker. Only upstream faults count
// against the breaker; a rejected request is still a healthy upstream.
func (c *Client) execute(ctx context.Context, method, endpoint string, in, out interface{}) error {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		reqErr := c.doRequest(ctx, method, endpoint, in, out)
		if reqErr != nil && !apperrors.IsCircuitBreakerError(reqErr) {
			return reqErr, nil
		}
		return nil, reqErr
	})
	metrics.UpdateCircuitBreakerState(c.service, float64(c.breaker.State()))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		appErr := apperrors.WrapExternal(err, c.service, c.service+" circuit breaker open")
		appErr.Code = c.errCode
		return appErr
	}
	if err != nil {
		return err
	}
	if passthrough, ok := res.(error); ok && passthrough != nil {
		return passthrough
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, in, out interface{}) error {
	url := c.cfg.BaseURL + endpoint

	var reqBody io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return apperrors.WrapInternal(err, "failed to marshal request body")
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return apperrors.WrapInternal(err, "failed to create request")
	}

	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	tracing.InjectTraceContext(ctx, req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordExternalAPICall(c.service, endpointLabel(endpoint), "error", time.Since(start).Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.NewTransientError(c.errCode, c.service+" request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordExternalAPICall(c.service, endpointLabel(endpoint), strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return apperrors.NewTransientError(c.errCode, "failed to read "+c.service+" response", err)
	}

	c.logger.Debug("Upstream response",
		zap.String("method", method),
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode))

	if resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return apperrors.WrapWithType(err, apperrors.ErrorTypeExternal, c.errCode, "failed to decode "+c.service+" response")
		}
	}
	return nil
}

func (c *Client) statusError(status int, body []byte) *apperrors.AppError {
	if len(body) > maxErrorBodySize {
		body = body[:maxErrorBodySize]
	}
	apiErr := &APIError{Service: c.service, StatusCode: status, Body: strings.TrimSpace(string(body))}

	errType := apperrors.ClassifyHTTPError(status)
	appErr := apperrors.WrapWithType(apiErr, errType, c.errCode, fmt.Sprintf("%s returned status %d", c.service, status))
	appErr.StatusCode = status
	appErr.Retryable = apperrors.IsTransient(errType)
	return appErr
}

// StatusCode extracts the upstream status from err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ResponseBody extracts the upstream error body from err
func ResponseBody(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Body
	}
	return ""
}

// endpointLabel drops path parameters so metric cardinality stays bounded
func endpointLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return "/" + strings.Join(parts, "/")
}

// Breaker exposes the client's circuit breaker for health reporting
func (c *Client) Breaker() *gobreaker.CircuitBreaker {
	return c.breaker
}
