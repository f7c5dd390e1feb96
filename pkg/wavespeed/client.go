// Package wavespeed is a small REST client for the Wavespeed prediction API.
package wavespeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL = "https://api.wavespeed.ai/api/v3"

	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	maxDownloadBytes = 25 << 20
)

var (
	ErrPredictionFailed = errors.New("wavespeed: prediction failed")
	ErrTimeout          = errors.New("wavespeed: prediction timed out")
)

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	EditModel    string
	PollInterval time.Duration
	Timeout      time.Duration
	HTTPClient   *http.Client
}

type Client struct {
	cfg  Config
	http *http.Client
}

// Request describes one generation. ReferenceImage switches to the edit model.
type Request struct {
	Prompt         string
	ReferenceImage string
	Size           string
	Count          int
}

type prediction struct {
	Id      string   `json:"id"`
	Status  string   `json:"status"`
	Outputs []string `json:"outputs"`
	Error   string   `json:"error"`
}

type envelope struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    prediction `json:"data"`
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Generate submits Count predictions, waits for all of them and returns every output URL.
// onProgress receives the fraction of predictions finished, scaled to 0..100.
func (c *Client) Generate(ctx context.Context, req Request, onProgress func(percent int)) ([]string, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := c.submit(ctx, req)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	var outputs []string
	for i, id := range ids {
		result, err := c.wait(ctx, id)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, result...)
		if onProgress != nil {
			onProgress((i + 1) * 100 / len(ids))
		}
	}
	return outputs, nil
}

func (c *Client) submit(ctx context.Context, req Request) (string, error) {
	model := c.cfg.Model
	body := map[string]interface{}{
		"prompt":               req.Prompt,
		"enable_base64_output": false,
		"enable_sync_mode":     false,
	}
	if req.Size != "" {
		body["size"] = req.Size
	}
	if req.ReferenceImage != "" {
		model = c.cfg.EditModel
		body["images"] = []string{req.ReferenceImage}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	op := func() (string, error) {
		var env envelope
		if err := c.do(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.cfg.BaseURL, model), payload, &env); err != nil {
			return "", err
		}
		if env.Data.Id == "" {
			return "", backoff.Permanent(fmt.Errorf("wavespeed: submit returned no prediction id (%s)", env.Message))
		}
		return env.Data.Id, nil
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
}

func (c *Client) wait(ctx context.Context, id string) ([]string, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	url := fmt.Sprintf("%s/predictions/%s/result", c.cfg.BaseURL, id)
	for {
		var env envelope
		err := c.do(ctx, http.MethodGet, url, nil, &env)
		var perm *backoff.PermanentError
		switch {
		case errors.As(err, &perm):
			return nil, perm.Unwrap()
		case err != nil:
			// Transient poll failures are retried on the next tick.
		case env.Data.Status == StatusCompleted:
			if len(env.Data.Outputs) == 0 {
				return nil, fmt.Errorf("%w: no outputs", ErrPredictionFailed)
			}
			return env.Data.Outputs, nil
		case env.Data.Status == StatusFailed:
			return nil, fmt.Errorf("%w: %s", ErrPredictionFailed, env.Data.Error)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// do sends one request. 4xx other than 429 come back wrapped in backoff.Permanent.
func (c *Client) do(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}

	if res.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("wavespeed: status %d: %s", res.StatusCode, truncate(string(resBody), 300))
		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.Unmarshal(resBody, out); err != nil {
		return backoff.Permanent(fmt.Errorf("wavespeed: decode response: %w", err))
	}
	return nil
}

// Download fetches a generated output.
func (c *Client) Download(ctx context.Context, url string) ([]byte, string, error) {
	op := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		res, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		if res.StatusCode >= 500 {
			return nil, fmt.Errorf("wavespeed: download status %d", res.StatusCode)
		}
		if res.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("wavespeed: download status %d", res.StatusCode))
		}
		return io.ReadAll(io.LimitReader(res.Body, maxDownloadBytes))
	}

	data, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
	)
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
