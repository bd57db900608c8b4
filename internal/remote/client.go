// Package remote talks to the enterprise API: CSV ingestion and resume
// matching. Calls are best-effort; they report a Result instead of an error
// so callers can log and move on.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

const (
	uploadCSVPath = "/job/upload-csv"
	matcherPath   = "/resume/matcherE"
	apiKeyHeader  = "API-Key"
	httpTimeout   = 60 * time.Second
)

// Outcome classifies a best-effort call.
type Outcome int

const (
	Delivered Outcome = iota
	TransientFailure
	PermanentFailure
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case TransientFailure:
		return "transient_failure"
	case PermanentFailure:
		return "permanent_failure"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is what every remote call returns.
type Result struct {
	Outcome    Outcome
	StatusCode int    // 0 when no response was received
	Body       string // truncated response body, for logs
	Err        error
}

// OK reports whether the remote side accepted the call.
func (r Result) OK() bool { return r.Outcome == Delivered }

// Client posts to the enterprise API with the shared API key.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  arbor.ILogger
}

// NewClient constructs a Client for baseURL (no trailing slash).
func NewClient(baseURL, apiKey string, logger arbor.ILogger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: httpTimeout},
		logger:  logger,
	}
}

// do sends req and classifies the response: 200 is delivered; transport
// errors, 408, 429 and 5xx are transient; anything else is permanent.
func (c *Client) do(req *http.Request) Result {
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		outcome := TransientFailure
		if errors.Is(err, context.Canceled) {
			outcome = PermanentFailure
		}
		return Result{Outcome: outcome, Err: fmt.Errorf("http %s %s: %w", req.Method, req.URL.Path, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	res := Result{StatusCode: resp.StatusCode, Body: string(body)}

	switch {
	case resp.StatusCode == http.StatusOK:
		res.Outcome = Delivered
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		res.Outcome = TransientFailure
		res.Err = fmt.Errorf("%s returned %d", req.URL.Path, resp.StatusCode)
	default:
		res.Outcome = PermanentFailure
		res.Err = fmt.Errorf("%s returned %d", req.URL.Path, resp.StatusCode)
	}
	return res
}

// logResult records every outcome the same way, whichever endpoint produced it.
func (c *Client) logResult(res Result, msg string, subject string) {
	if res.OK() {
		c.logger.Info().Str("subject", subject).Int("status", res.StatusCode).Msg(msg + " succeeded")
		return
	}
	c.logger.Error().Err(res.Err).Str("subject", subject).
		Str("outcome", res.Outcome.String()).
		Int("status", res.StatusCode).
		Str("body", res.Body).
		Msg(msg + " failed")
}
