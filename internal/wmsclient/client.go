// Package wmsclient implements the HTTP client for the external warehouse
// management system (WMS).
//
// Client wraps a resty HTTP client with:
//   - bearer-token auth, obtained once via a password grant by
//     Authenticate (auth.go); a 401 response is returned as an HttpError
//     and the token is not refreshed automatically
//   - a sliding-window rate limiter shared across all requests
//     (ratelimit.go)
//   - response shaping matching the WMS's own conventions: list endpoints
//     wrap their payload under a single non-"total_results" key, mutation
//     endpoints return a "created" envelope verbatim, and business errors
//     surface as a 2xx body carrying "errors"/"message" (shapeResponse)
//   - a restartable, lazy pull-based paginator for list endpoints
//     (paginate.go)
package wmsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config is the subset of internal/config.Config the client needs.
// Accepting a narrow struct instead of the whole application config keeps
// this package importable without depending on internal/config.
type Config struct {
	BaseURL    string
	Login      string
	Password   string
	Timeout    time.Duration
	MaxCalls   int
	TimeWindow time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Client is the WMS REST API client.
type Client struct {
	http    *resty.Client
	auth    *tokenAuth
	limiter *SlidingWindowLimiter
	retries int
	delay   time.Duration
	logger  *slog.Logger
}

// NewClient builds a WMS client. It does not perform the initial
// authentication; call Authenticate before issuing requests.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil
		})

	maxCalls := cfg.MaxCalls
	if maxCalls <= 0 {
		maxCalls = 60
	}
	window := cfg.TimeWindow
	if window <= 0 {
		window = time.Minute
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 30 * time.Second
	}

	return &Client{
		http:    httpClient,
		auth:    newTokenAuth(cfg.Login, cfg.Password),
		limiter: NewSlidingWindowLimiter(maxCalls, window),
		retries: retries,
		delay:   delay,
		logger:  logger,
	}
}

// Authenticate performs the password-grant exchange and caches the
// resulting bearer token for subsequent requests.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.auth.authenticate(ctx, c.http, "auth"); err != nil {
		return err
	}
	c.logger.Info("wms session authenticated")
	return nil
}

// request issues a single HTTP call, applying rate limiting, retry on
// 429/RateLimited, and the WMS's response-shaping rules. result, if
// non-nil, receives the shaped payload.
func (c *Client) request(ctx context.Context, method, endpoint string, params map[string]string, body any, result any) error {
	delay := c.delay
	for attempt := 0; attempt < c.retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req := c.http.R().
			SetContext(ctx).
			SetHeaders(c.auth.headers())
		if method == http.MethodGet && params != nil {
			req = req.SetQueryParams(params)
		}
		if (method == http.MethodPost || method == http.MethodPut) && body != nil {
			req = req.SetBody(body)
		}

		var resp *resty.Response
		var err error
		switch method {
		case http.MethodGet:
			resp, err = req.Get(endpoint)
		case http.MethodPost:
			resp, err = req.Post(endpoint)
		case http.MethodPut:
			resp, err = req.Put(endpoint)
		case http.MethodDelete:
			resp, err = req.Delete(endpoint)
		default:
			return fmt.Errorf("wmsclient: unsupported method %s", method)
		}
		if err != nil {
			return &TransportError{Err: err}
		}

		if resp.StatusCode() == http.StatusTooManyRequests {
			c.logger.Warn("wms rate limit reached", "endpoint", endpoint, "attempt", attempt+1, "delay", delay)
			if !sleepOrDone(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		shaped, rl, err := shapeResponse(endpoint, resp)
		if err != nil {
			return err
		}
		if rl != nil {
			if rl.RetryAfter > 0 {
				delay = time.Duration(rl.RetryAfter) * time.Second
			}
			c.logger.Warn("wms rate limit reached", "endpoint", endpoint, "attempt", attempt+1, "delay", delay)
			if attempt == c.retries-1 {
				return rl
			}
			if !sleepOrDone(ctx, delay) {
				return ctx.Err()
			}
			continue
		}

		if result != nil && shaped != nil {
			if err := json.Unmarshal(shaped, result); err != nil {
				return &DecodeError{Endpoint: endpoint, Err: err}
			}
		}
		return nil
	}
	return fmt.Errorf("wmsclient: exhausted %d retries against %s", c.retries, endpoint)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// shapeResponse applies the WMS's response conventions: a
// "total_results"-keyed envelope is unwrapped to its single data key, a
// "created" envelope is passed through verbatim, and a body carrying
// "errors"/"message" (or a bare JSON string) is raised as a business error
// or, if it names the rate-limit condition, as *RateLimited.
func shapeResponse(endpoint string, resp *resty.Response) (shaped json.RawMessage, rateLimited *RateLimited, err error) {
	if resp.StatusCode() >= 300 {
		return nil, nil, &HttpError{Status: resp.StatusCode(), Body: resp.String()}
	}

	raw := resp.Body()
	var probe any
	if uErr := json.Unmarshal(raw, &probe); uErr != nil {
		return nil, nil, &DecodeError{Endpoint: endpoint, Err: uErr}
	}

	switch v := probe.(type) {
	case string:
		return nil, nil, &BusinessError{Endpoint: endpoint, Payload: v}
	case map[string]any:
		if _, ok := v["total_results"]; ok {
			for key, val := range v {
				if key == "total_results" {
					continue
				}
				out, mErr := json.Marshal(val)
				if mErr != nil {
					return nil, nil, &DecodeError{Endpoint: endpoint, Err: mErr}
				}
				return out, nil, nil
			}
			return nil, nil, nil
		}
		if _, ok := v["created"]; ok {
			return raw, nil, nil
		}
		if msg, ok := v["message"].(string); ok {
			if msg == "api_rate_limit_reached" {
				retryAfter := 0
				if ra, ok := v["retry_after_seconds"].(float64); ok {
					retryAfter = int(ra)
				}
				return nil, &RateLimited{RetryAfter: retryAfter}, nil
			}
			return nil, nil, &BusinessError{Endpoint: endpoint, Payload: msg}
		}
		if errs, ok := v["errors"]; ok {
			out, _ := json.Marshal(errs)
			return nil, nil, &BusinessError{Endpoint: endpoint, Payload: string(out)}
		}
	}
	return raw, nil, nil
}

// Get issues a GET request against endpoint with the given query params.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string, result any) error {
	return c.request(ctx, http.MethodGet, endpoint, params, nil, result)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, result any) error {
	return c.request(ctx, http.MethodPost, endpoint, nil, body, result)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, result any) error {
	return c.request(ctx, http.MethodPut, endpoint, nil, body, result)
}

// Delete issues a DELETE request against endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string) error {
	return c.request(ctx, http.MethodDelete, endpoint, nil, nil, nil)
}
