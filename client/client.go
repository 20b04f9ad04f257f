// Package client is a small HTTP client for the prediction API, used by the
// smoke test command.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"fukuyama-landprice/models"
	"fukuyama-landprice/utils"
)

// Client talks to a running prediction server.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *utils.Logger
}

func New(baseURL string, timeout time.Duration, logger *utils.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logger,
	}
}

// PredictResult covers both the model and the rule-based response shapes.
type PredictResult struct {
	PredictedPrice    int64    `json:"predicted_price"`
	PredictedPriceLog *float64 `json:"predicted_price_log,omitempty"`
	Confidence        string   `json:"confidence"`
	Note              string   `json:"note,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// Health returns the /health payload and status code.
func (c *Client) Health(ctx context.Context) (int, map[string]any, error) {
	var body map[string]any
	resp, err := c.http.R().SetContext(ctx).SetResult(&body).SetError(&body).Get("/health")
	if err != nil {
		return 0, nil, fmt.Errorf("client: health: %w", err)
	}
	return resp.StatusCode(), body, nil
}

// WaitHealthy polls /health every interval until it answers 200 or attempts
// run out.
func (c *Client) WaitHealthy(ctx context.Context, attempts int, interval time.Duration) error {
	poller := resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(interval).
		SetRetryCount(max(attempts-1, 0)).
		SetRetryWaitTime(interval).
		SetRetryMaxWaitTime(interval).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() != http.StatusOK
		})

	resp, err := poller.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("client: server not reachable at %s: %w", c.baseURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("client: server not healthy after %d attempts: %s", attempts, resp.Status())
	}
	return nil
}

func (c *Client) Districts(ctx context.Context) ([]string, error) {
	var out struct {
		Districts []string `json:"districts"`
	}
	if err := c.getJSON(ctx, "/districts", &out); err != nil {
		return nil, err
	}
	return out.Districts, nil
}

func (c *Client) PropertyTypes(ctx context.Context) ([]string, error) {
	var out struct {
		PropertyTypes []string `json:"property_types"`
	}
	if err := c.getJSON(ctx, "/property_types", &out); err != nil {
		return nil, err
	}
	return out.PropertyTypes, nil
}

// Predict posts req to path ("/predict" or "/estimate").
func (c *Client) Predict(ctx context.Context, path string, req models.PredictionRequest) (PredictResult, error) {
	var out PredictResult
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return PredictResult{}, fmt.Errorf("client: %s: %w", path, err)
	}
	if resp.IsError() {
		return PredictResult{}, fmt.Errorf("client: %s: %s: %s", path, resp.Status(), apiErr.Error)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	var apiErr apiError
	resp, err := c.http.R().SetContext(ctx).SetResult(out).SetError(&apiErr).Get(path)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("client: %s: %s: %s", path, resp.Status(), apiErr.Error)
	}
	return nil
}
