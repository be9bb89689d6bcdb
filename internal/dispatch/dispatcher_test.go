package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"devbridge/cli/internal/actions"
	"devbridge/cli/internal/db"
	"devbridge/cli/internal/statestore"
	"devbridge/cli/internal/webhook"
)

type fakeHook struct {
	readiness   []webhook.ReadyState
	readyCalls  int
	sendResult  webhook.Result
	sendCalls   int
	pollResult  webhook.PollResult
	pollCalls   int
	seenPrompts []string
}

func (f *fakeHook) Readiness(ctx context.Context) webhook.ReadyState {
	idx := f.readyCalls
	f.readyCalls++
	if idx < len(f.readiness) {
		return f.readiness[idx]
	}
	if len(f.readiness) == 0 {
		return webhook.ReadyState{Ready: true}
	}
	return f.readiness[len(f.readiness)-1]
}

func (f *fakeHook) SendPrompt(ctx context.Context, prompt string, _ any) webhook.Result {
	f.sendCalls++
	f.seenPrompts = append(f.seenPrompts, prompt)
	return f.sendResult
}

func (f *fakeHook) PollCompletion(ctx context.Context, requestID string, opts webhook.PollOptions) webhook.PollResult {
	f.pollCalls++
	return f.pollResult
}

type fakeClip struct {
	texts []string
	err   error
}

func (f *fakeClip) WriteAll(text string) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func newTracker(t *testing.T) *actions.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:disp_mem_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.OpenSQLiteDSN(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	state, err := statestore.NewStore(gdb)
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	tracker, err := actions.NewStore(state)
	if err != nil {
		t.Fatalf("action store: %v", err)
	}
	return tracker
}

func noSleep() Option {
	return withSleep(func(ctx context.Context, d time.Duration) error { return nil })
}

func TestSubmit_DirectSuccess(t *testing.T) {
	hook := &fakeHook{sendResult: webhook.Result{Success: true, RequestID: "r1"}}
	tracker := newTracker(t)
	clip := &fakeClip{}
	d := New(hook, tracker, clip, noSleep())

	out, err := d.Submit(context.Background(), Submission{
		Prompt: "explain this stack trace", Source: actions.SourceLogs, ActionType: "copilot_chat",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Delivered || out.Fallback {
		t.Fatalf("unexpected outcome: %+v", out)
	}

	rec, ok := tracker.Get(out.ActionID)
	if !ok {
		t.Fatal("action missing")
	}
	if rec.Status != actions.StatusSentToVSCode {
		t.Fatalf("expected sent_to_vscode, got %s", rec.Status)
	}
	if rec.RequestID != "r1" || rec.CompletedAt == 0 {
		t.Fatalf("response metadata missing: %+v", rec)
	}
	if len(clip.texts) != 0 {
		t.Fatal("clipboard must not be used on success")
	}
}

func TestSubmit_NeverReadyFallsBackToClipboard(t *testing.T) {
	hook := &fakeHook{readiness: []webhook.ReadyState{{Reason: "assistant chat is busy"}}}
	tracker := newTracker(t)
	clip := &fakeClip{}
	d := New(hook, tracker, clip, noSleep(), WithBusyWait(4, time.Millisecond))

	out, err := d.Submit(context.Background(), Submission{Prompt: "lost?", Source: actions.SourceManual})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Delivered || !out.Fallback {
		t.Fatalf("expected fallback, got %+v", out)
	}
	if hook.readyCalls != 4 {
		t.Fatalf("expected 4 readiness polls, got %d", hook.readyCalls)
	}
	if hook.sendCalls != 0 {
		t.Fatal("prompt must not be sent when never ready")
	}
	if len(clip.texts) != 1 || clip.texts[0] != "lost?" {
		t.Fatalf("full prompt not copied: %v", clip.texts)
	}

	rec, _ := tracker.Get(out.ActionID)
	if rec.Status != actions.StatusCopiedFallbck {
		t.Fatalf("expected copied_fallback, got %s", rec.Status)
	}
}

func TestSubmit_BecomesReadyAfterWaiting(t *testing.T) {
	hook := &fakeHook{
		readiness:  []webhook.ReadyState{{Reason: "busy"}, {Reason: "busy"}, {Ready: true}},
		sendResult: webhook.Result{Success: true},
	}
	d := New(hook, newTracker(t), &fakeClip{}, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "p"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Delivered {
		t.Fatalf("expected delivery, got %+v", out)
	}
	if hook.readyCalls != 3 {
		t.Fatalf("expected 3 readiness polls, got %d", hook.readyCalls)
	}
}

func TestSubmit_DomainFailureFallsBack(t *testing.T) {
	hook := &fakeHook{sendResult: webhook.Result{
		ErrorCode:   webhook.ErrCodeNoWorkspace,
		Suggestions: []string{"Open a folder"},
	}}
	tracker := newTracker(t)
	clip := &fakeClip{}
	d := New(hook, tracker, clip, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "p"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Delivered || !out.Fallback {
		t.Fatalf("expected fallback, got %+v", out)
	}
	if out.ErrorCode != webhook.ErrCodeNoWorkspace {
		t.Fatalf("error code lost: %+v", out)
	}
	if len(out.Suggestions) != 1 {
		t.Fatalf("suggestions lost: %+v", out)
	}
	rec, _ := tracker.Get(out.ActionID)
	if rec.Status != actions.StatusCopiedFallbck {
		t.Fatalf("expected copied_fallback, got %s", rec.Status)
	}
}

func TestSubmit_ClipboardFailureKeepsFailedStatus(t *testing.T) {
	hook := &fakeHook{sendResult: webhook.Result{ErrorCode: webhook.ErrCodeConnection}}
	tracker := newTracker(t)
	d := New(hook, tracker, &fakeClip{err: errors.New("no display")}, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "p"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Fallback {
		t.Fatal("fallback must not be reported when the clipboard failed")
	}
	rec, _ := tracker.Get(out.ActionID)
	if rec.Status != actions.StatusFailed {
		t.Fatalf("expected failed, got %s", rec.Status)
	}
}

func TestSubmit_QueuedWithoutWait(t *testing.T) {
	hook := &fakeHook{sendResult: webhook.Result{
		Success: true, Status: webhook.StatusQueued, RequestID: "r9", QueuePosition: 3,
	}}
	tracker := newTracker(t)
	d := New(hook, tracker, &fakeClip{}, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "p"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Delivered || out.QueuePosition != 3 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	rec, _ := tracker.Get(out.ActionID)
	if rec.Status != actions.StatusQueued || rec.QueuePosition != 3 || rec.RequestID != "r9" {
		t.Fatalf("queue metadata missing: %+v", rec)
	}
	if hook.pollCalls != 0 {
		t.Fatal("no completion poll expected without Wait")
	}
}

func TestSubmit_QueuedWithWaitCompletes(t *testing.T) {
	hook := &fakeHook{
		sendResult: webhook.Result{Success: true, Status: webhook.StatusQueued, RequestID: "r2"},
		pollResult: webhook.PollResult{Completed: true, Status: webhook.StatusCompleted},
	}
	tracker := newTracker(t)
	d := New(hook, tracker, &fakeClip{}, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "p", Wait: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Delivered {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if hook.pollCalls != 1 {
		t.Fatalf("expected one completion poll, got %d", hook.pollCalls)
	}
	rec, _ := tracker.Get(out.ActionID)
	if rec.Status != actions.StatusSentToVSCode {
		t.Fatalf("expected sent_to_vscode, got %s", rec.Status)
	}
}

func TestSubmit_QueuedWithWaitPollTimeoutIsNotFallback(t *testing.T) {
	hook := &fakeHook{
		sendResult: webhook.Result{Success: true, Status: webhook.StatusQueued, RequestID: "r3"},
		pollResult: webhook.PollResult{Status: webhook.StatusTimeout},
	}
	tracker := newTracker(t)
	clip := &fakeClip{}
	d := New(hook, tracker, clip, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "p", Wait: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Delivered || out.Fallback {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if len(clip.texts) != 0 {
		t.Fatal("clipboard must not fire after successful delivery")
	}
}

func TestRetry_ResendsStoredPrompt(t *testing.T) {
	hook := &fakeHook{sendResult: webhook.Result{ErrorCode: webhook.ErrCodeConnection}}
	tracker := newTracker(t)
	clip := &fakeClip{}
	d := New(hook, tracker, clip, noSleep())

	out, err := d.Submit(context.Background(), Submission{Prompt: "original prompt"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	hook.sendResult = webhook.Result{Success: true}
	out2, err := d.Retry(context.Background(), out.ActionID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !out2.Delivered {
		t.Fatalf("unexpected outcome: %+v", out2)
	}
	if hook.seenPrompts[len(hook.seenPrompts)-1] != "original prompt" {
		t.Fatalf("stored prompt not resent: %v", hook.seenPrompts)
	}
}

func TestRetry_UnknownAction(t *testing.T) {
	d := New(&fakeHook{}, newTracker(t), &fakeClip{}, noSleep())
	_, err := d.Retry(context.Background(), "missing")
	var uerr *UnknownActionError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnknownActionError, got %v", err)
	}
}
