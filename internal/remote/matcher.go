package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"jobmate/scraper-service/internal/model"
)

// RequestMatch asks the matcher to score the user's resumes against their
// job titles.
func (c *Client) RequestMatch(ctx context.Context, payload model.MatcherPayload) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		res := Result{Outcome: PermanentFailure, Err: err}
		c.logResult(res, "Matcher request", payload.Email)
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+matcherPath, bytes.NewReader(body))
	if err != nil {
		res := Result{Outcome: PermanentFailure, Err: err}
		c.logResult(res, "Matcher request", payload.Email)
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	res := c.do(req)
	c.logResult(res, "Matcher request", payload.Email)
	return res
}
