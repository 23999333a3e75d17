package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// restClient issues signed requests against the venue's REST API. Safe for
// concurrent use: the only shared state is the limiter, the diagnostics
// failure counter and the banned latch.
type restClient struct {
	httpClient *http.Client
	baseURL    string
	publicKey  string
	secretKey  string
	recvWindow int64
	limiter    *rate.Limiter
	logger     *logrus.Logger

	retryBase time.Duration
	retryMax  time.Duration

	// consecutive 5xx/transport failures, zeroed on any success. Diagnostics
	// only; never consulted for retry decisions.
	failures atomic.Int64

	// set on HTTP 418 and never cleared. A banned client refuses all
	// further requests so auto-retry cannot mask the ban.
	banned atomic.Bool
}

func newRESTClient(baseURL, publicKey, secretKey string, recvWindow int64, timeout time.Duration, logger *logrus.Logger) *restClient {
	if recvWindow <= 0 {
		recvWindow = defaultRecvWindow
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &restClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		publicKey:  publicKey,
		secretKey:  secretKey,
		recvWindow: recvWindow,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:     logger,
		retryBase:  retryBaseDelay,
		retryMax:   retryMaxDelay,
	}
}

// request signs and issues one API call, retrying server-side failures with
// capped exponential backoff. 2xx returns the body; everything else maps to
// the error taxonomy.
func (c *restClient) request(ctx context.Context, method, endpoint string, params map[string]any) ([]byte, error) {
	if c.banned.Load() {
		return nil, ErrBanned
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	values, err := buildParams(params)
	if err != nil {
		return nil, err
	}

	var lastStatus int
	for attempt := 1; attempt <= maxRequestAttempts; attempt++ {
		// Re-stamp on every attempt so a slow retry never falls out of
		// the recvWindow.
		values.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		values.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		values.Del("signature")
		values.Set("signature", sign(values, c.secretKey))

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint+"?"+values.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set(apiKeyHeader, c.publicKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.failures.Add(1)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastStatus = 0
			c.logger.Errorf("Request failed (%d/%d) %s %s: %v", attempt, maxRequestAttempts, method, endpoint, err)
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode/100 == 2:
			if readErr != nil {
				return nil, fmt.Errorf("read response: %w", readErr)
			}
			c.failures.Store(0)
			return body, nil

		case resp.StatusCode/100 == 5:
			c.failures.Add(1)
			lastStatus = resp.StatusCode
			c.logger.Errorf("Server error %d (%d/%d) %s %s", resp.StatusCode, attempt, maxRequestAttempts, method, endpoint)
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			continue

		case resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Warnf("Rate limit exceeded on %s %s", method, endpoint)
			return nil, ErrRateLimited

		case resp.StatusCode == http.StatusTeapot:
			c.banned.Store(true)
			c.logger.Errorf("IP auto-banned after repeated rate limit violations")
			return nil, ErrBanned

		default:
			return nil, venueError(resp.StatusCode, body)
		}
	}

	c.logger.Errorf("%d requests in a row failed on %s %s, check server integrity", maxRequestAttempts, method, endpoint)
	return nil, &ServerError{Status: lastStatus, Attempts: maxRequestAttempts}
}

// backoff sleeps before the next retry: exponential with ±20% jitter, capped.
// The last attempt does not sleep.
func (c *restClient) backoff(ctx context.Context, attempt int) error {
	if attempt >= maxRequestAttempts {
		return nil
	}
	delay := float64(c.retryBase) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMax) {
		delay = float64(c.retryMax)
	}
	delay *= 1 + (rand.Float64()-0.5)*0.4

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(delay)):
		return nil
	}
}

// venueError extracts the venue's error code and message from a 4xx body.
// Older API versions used "message" instead of "msg".
func venueError(status int, body []byte) error {
	var payload struct {
		Code    int    `json:"code"`
		Msg     string `json:"msg"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Msg
	if msg == "" {
		msg = payload.Message
	}
	return &RequestError{Status: status, Code: payload.Code, Msg: msg}
}

// requestJSON issues a request and unmarshals the body into out.
func (c *restClient) requestJSON(ctx context.Context, method, endpoint string, params map[string]any, out any) error {
	body, err := c.request(ctx, method, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// ConsecutiveFailures reports the current diagnostics counter.
func (c *restClient) ConsecutiveFailures() int64 {
	return c.failures.Load()
}
