package webhook

import (
	"context"
	"time"
)

// Health polls GET /health. Returns nil on any failure (network,
// non-2xx, timeout, parse); callers must treat nil as "unreachable".
func (c *Client) Health(ctx context.Context) *ServerHealth {
	var h ServerHealth
	code, err := c.getJSON(ctx, c.baseURL+"/health", c.healthTimeout, &h)
	if err != nil || code != 200 {
		return nil
	}
	return &h
}

// WorkspaceReady composes Health into a three-field summary. Never errors.
func (c *Client) WorkspaceReady(ctx context.Context) WorkspaceState {
	h := c.Health(ctx)
	if h == nil {
		return WorkspaceState{}
	}
	return WorkspaceState{
		Connected:      h.Status != "offline",
		WorkspaceReady: h.Workspace.Ready,
		ChatBusy:       h.Chat.Busy,
	}
}

// Readiness decides whether a prompt can be delivered right now. A chat
// reported busy with no activity for longer than the stuck threshold is
// treated as stuck and overridden to not-busy; the override is logged,
// not surfaced. Reason is set whenever Ready is false so the caller can
// present a specific message.
func (c *Client) Readiness(ctx context.Context) ReadyState {
	h := c.Health(ctx)
	if h == nil {
		return ReadyState{Reason: "extension is not reachable"}
	}
	if h.Status == "offline" {
		return ReadyState{Reason: "extension reports offline"}
	}
	if !h.Workspace.Ready {
		return ReadyState{Reason: "no workspace open in the editor"}
	}
	if h.Chat.Busy {
		idle := c.now().Sub(time.UnixMilli(h.Chat.LastActivity))
		if idle > c.stuckThreshold {
			c.log.Warn("chat busy flag looks stuck, overriding",
				"idle", idle, "threshold", c.stuckThreshold)
			return ReadyState{Ready: true, StuckDetected: true}
		}
		return ReadyState{Reason: "assistant chat is busy"}
	}
	return ReadyState{Ready: true}
}

// Queue polls GET /queue. Returns nil on any failure.
func (c *Client) Queue(ctx context.Context) *QueueStatus {
	var q QueueStatus
	code, err := c.getJSON(ctx, c.baseURL+"/queue", c.healthTimeout, &q)
	if err != nil || code != 200 {
		return nil
	}
	return &q
}
