package webhook

import (
	"context"
	"net/http"
)

type statusResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Status fetches one observation of a submitted request. A 404 is a
// terminal not-found: the extension process has likely restarted and the
// request id no longer exists server-side.
func (c *Client) Status(ctx context.Context, requestID string) RequestStatus {
	var sr statusResponse
	code, err := c.getJSON(ctx, c.baseURL+"/webhook/"+requestID+"/status", c.healthTimeout, &sr)
	if code == http.StatusNotFound {
		return RequestStatus{
			Found:   false,
			Status:  StatusNotFound,
			Message: "request not found; extension may have restarted",
		}
	}
	if err != nil || code != http.StatusOK {
		// Transient; the poll loop keeps going.
		return RequestStatus{Found: true, Status: StatusUnknown, Message: "status endpoint unreachable"}
	}
	return RequestStatus{Found: true, Status: sr.Status, Error: sr.Error, Message: sr.Message}
}

// PollCompletion polls the status endpoint with a linear interval until
// the request completes, fails, disappears, or the attempt budget runs
// out. OnStatus is called once per poll with the observed status,
// including the final observation. Exhausting the budget yields
// {Completed:false, Status:"timeout"}.
func (c *Client) PollCompletion(ctx context.Context, requestID string, opts PollOptions) PollResult {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	for i := 0; i < attempts; i++ {
		st := c.Status(ctx, requestID)
		if opts.OnStatus != nil {
			opts.OnStatus(st.Status)
		}
		if !st.Found {
			return PollResult{Status: StatusNotFound, Error: st.Message}
		}
		switch st.Status {
		case StatusCompleted:
			return PollResult{Completed: true, Status: StatusCompleted}
		case StatusFailed:
			return PollResult{Status: StatusFailed, Error: st.Error}
		}
		if i < attempts-1 {
			if err := c.sleep(ctx, interval); err != nil {
				return PollResult{Status: StatusTimeout, Error: err.Error()}
			}
		}
	}
	return PollResult{Status: StatusTimeout}
}
