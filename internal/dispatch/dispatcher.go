// Package dispatch runs the end-to-end submission flow: record the
// action, wait for the assistant to be free, deliver the prompt, and
// fall back to the clipboard when delivery cannot complete. No user
// input is ever silently lost.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"devbridge/cli/internal/actions"
	"devbridge/cli/internal/clipboard"
	"devbridge/cli/internal/logging"
	"devbridge/cli/internal/webhook"
)

// WebhookClient is the slice of the webhook client the dispatcher needs.
type WebhookClient interface {
	Readiness(ctx context.Context) webhook.ReadyState
	SendPrompt(ctx context.Context, prompt string, promptContext any) webhook.Result
	PollCompletion(ctx context.Context, requestID string, opts webhook.PollOptions) webhook.PollResult
}

// Tracker is the slice of the action store the dispatcher needs.
type Tracker interface {
	Add(a actions.CodeAction) (actions.CodeAction, error)
	Update(id string, patch actions.Patch) error
	Get(id string) (actions.CodeAction, bool)
}

type Submission struct {
	Prompt     string
	Context    any
	Source     actions.Source
	ActionType string
	ImageCount int
	// Wait polls the request to completion after a queued acceptance.
	Wait bool
}

type Outcome struct {
	ActionID      string
	Delivered     bool
	Fallback      bool
	ErrorCode     string
	Message       string
	RequestID     string
	QueuePosition int
	Suggestions   []string
}

type Dispatcher struct {
	hook    WebhookClient
	tracker Tracker
	clip    clipboard.Writer
	log     *slog.Logger

	busyAttempts int
	busyInterval time.Duration
	pollAttempts int
	pollInterval time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Dispatcher)

func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithBusyWait bounds the wait-for-free loop before sending.
func WithBusyWait(attempts int, interval time.Duration) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.busyAttempts = attempts
		}
		if interval > 0 {
			d.busyInterval = interval
		}
	}
}

func WithCompletionPoll(attempts int, interval time.Duration) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.pollAttempts = attempts
		}
		if interval > 0 {
			d.pollInterval = interval
		}
	}
}

func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = sleep }
}

func New(hook WebhookClient, tracker Tracker, clip clipboard.Writer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		hook:         hook,
		tracker:      tracker,
		clip:         clip,
		log:          logging.Nop(),
		busyAttempts: 15,
		busyInterval: time.Second,
		pollAttempts: 30,
		pollInterval: 2 * time.Second,
		sleep: func(ctx context.Context, dur time.Duration) error {
			t := time.NewTimer(dur)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit runs one submission strictly sequentially: no two network calls
// for the same user action are ever in flight at once.
func (d *Dispatcher) Submit(ctx context.Context, sub Submission) (Outcome, error) {
	rec, err := d.tracker.Add(actions.CodeAction{
		Source:     sub.Source,
		ActionType: sub.ActionType,
		PromptFull: sub.Prompt,
		ImageCount: sub.ImageCount,
		Status:     actions.StatusSending,
	})
	if err != nil {
		return Outcome{}, err
	}
	return d.deliver(ctx, rec.ID, sub)
}

// Retry resubmits a previously failed action using its stored prompt.
func (d *Dispatcher) Retry(ctx context.Context, actionID string) (Outcome, error) {
	rec, ok := d.tracker.Get(actionID)
	if !ok {
		return Outcome{}, &UnknownActionError{ID: actionID}
	}
	sending := actions.StatusSending
	if err := d.tracker.Update(actionID, actions.Patch{Status: &sending}); err != nil {
		return Outcome{}, err
	}
	return d.deliver(ctx, actionID, Submission{
		Prompt:     rec.PromptFull,
		Source:     rec.Source,
		ActionType: rec.ActionType,
		ImageCount: rec.ImageCount,
	})
}

func (d *Dispatcher) deliver(ctx context.Context, actionID string, sub Submission) (Outcome, error) {
	out := Outcome{ActionID: actionID}

	ready, reason := d.waitReady(ctx)
	if !ready {
		out.ErrorCode = webhook.ErrCodeServiceUnavailable
		out.Message = reason
		return d.fallback(ctx, out, sub.Prompt), nil
	}

	res := d.hook.SendPrompt(ctx, sub.Prompt, sub.Context)
	out.RequestID = res.RequestID
	out.QueuePosition = res.QueuePosition
	out.Suggestions = res.Suggestions

	if !res.Success {
		out.ErrorCode = res.ErrorCode
		out.Message = res.Message
		failed := actions.StatusFailed
		_ = d.tracker.Update(actionID, actions.Patch{Status: &failed, Error: &res.ErrorCode})
		return d.fallback(ctx, out, sub.Prompt), nil
	}

	if res.Status == webhook.StatusQueued {
		queued := actions.StatusQueued
		_ = d.tracker.Update(actionID, actions.Patch{
			Status:        &queued,
			RequestID:     &res.RequestID,
			QueuePosition: &res.QueuePosition,
		})
		if sub.Wait && res.RequestID != "" {
			return d.awaitCompletion(ctx, out, sub.Prompt, res.RequestID)
		}
		out.Delivered = true
		out.Message = res.Message
		return out, nil
	}

	d.markSent(actionID, res.RequestID)
	out.Delivered = true
	out.Message = res.Message
	return out, nil
}

// waitReady polls readiness up to the busy-wait budget. The loop has no
// cross-cutting cancellation beyond ctx; the attempt cap is the bound.
func (d *Dispatcher) waitReady(ctx context.Context) (bool, string) {
	reason := ""
	for i := 0; i < d.busyAttempts; i++ {
		rs := d.hook.Readiness(ctx)
		if rs.Ready {
			return true, ""
		}
		reason = rs.Reason
		if i < d.busyAttempts-1 {
			if err := d.sleep(ctx, d.busyInterval); err != nil {
				return false, reason
			}
		}
	}
	return false, reason
}

func (d *Dispatcher) awaitCompletion(ctx context.Context, out Outcome, prompt, requestID string) (Outcome, error) {
	processing := actions.StatusProcessing
	_ = d.tracker.Update(out.ActionID, actions.Patch{Status: &processing})

	res := d.hook.PollCompletion(ctx, requestID, webhook.PollOptions{
		MaxAttempts: d.pollAttempts,
		Interval:    d.pollInterval,
	})
	switch res.Status {
	case webhook.StatusCompleted:
		d.markSent(out.ActionID, requestID)
		out.Delivered = true
		return out, nil
	case webhook.StatusFailed, webhook.StatusNotFound:
		out.ErrorCode = webhook.ErrCodeRequestFailed
		out.Message = res.Error
		failed := actions.StatusFailed
		_ = d.tracker.Update(out.ActionID, actions.Patch{Status: &failed, Error: &res.Error})
		return d.fallback(ctx, out, prompt), nil
	default:
		// Delivery already happened; the request may still finish
		// server-side, so this is not a fallback case.
		out.Delivered = true
		out.Message = "request accepted; completion not observed before the poll budget ran out"
		return out, nil
	}
}

func (d *Dispatcher) markSent(actionID, requestID string) {
	sent := actions.StatusSentToVSCode
	now := time.Now().UnixMilli()
	patch := actions.Patch{Status: &sent, CompletedAt: &now}
	if requestID != "" {
		patch.RequestID = &requestID
	}
	_ = d.tracker.Update(actionID, patch)
}

// fallback copies the full prompt to the clipboard and marks the action
// accordingly. A clipboard failure leaves the action failed and is
// reported in the outcome message.
func (d *Dispatcher) fallback(_ context.Context, out Outcome, prompt string) Outcome {
	if err := d.clip.WriteAll(prompt); err != nil {
		d.log.Error("clipboard fallback failed", "err", err)
		if out.Message == "" {
			out.Message = "delivery failed and the clipboard was unavailable"
		}
		return out
	}
	copied := actions.StatusCopiedFallbck
	_ = d.tracker.Update(out.ActionID, actions.Patch{Status: &copied})
	out.Fallback = true
	if out.Message == "" {
		out.Message = "prompt copied to clipboard"
	}
	return out
}

type UnknownActionError struct {
	ID string
}

func (e *UnknownActionError) Error() string {
	return "unknown action id: " + e.ID
}
