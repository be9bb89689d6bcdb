// Package actions keeps the persisted registry of outgoing assistant
// requests: what was sent, from which panel, and how delivery ended.
package actions

import "fmt"

type Source string

const (
	SourceLogs        Source = "logs"
	SourceStickyNotes Source = "sticky-notes"
	SourceManual      Source = "manual"
)

type Status string

const (
	StatusQueued        Status = "queued"
	StatusSending       Status = "sending"
	StatusProcessing    Status = "processing"
	StatusSentToVSCode  Status = "sent_to_vscode"
	StatusFailed        Status = "failed"
	StatusCopiedFallbck Status = "copied_fallback"
	// StatusCompleted is accepted on load for records written by older
	// versions; new records never use it.
	StatusCompleted Status = "completed"
)

// CodeAction is one outgoing request. The record is exclusively owned by
// the client-side store; the server side is tracked only through the
// opaque RequestID.
type CodeAction struct {
	ID            string `json:"id"`
	CreatedAt     int64  `json:"createdAt"` // epoch millis
	Source        Source `json:"source"`
	ActionType    string `json:"actionType"`
	PromptPreview string `json:"promptPreview"`
	PromptFull    string `json:"promptFull"`
	ImageCount    int    `json:"imageCount,omitempty"`
	Status        Status `json:"status"`
	RequestID     string `json:"requestId,omitempty"`
	Error         string `json:"error,omitempty"`
	QueuePosition int    `json:"queuePosition,omitempty"`
	CompletedAt   int64  `json:"completedAt,omitempty"`
}

// validNext is the status transition table. Transitions not listed are
// rejected, replacing the old free-form patch contract.
var validNext = map[Status]map[Status]struct{}{
	StatusSending: {
		StatusQueued:        {},
		StatusProcessing:    {},
		StatusSentToVSCode:  {},
		StatusFailed:        {},
		StatusCopiedFallbck: {},
	},
	StatusQueued: {
		StatusProcessing:    {},
		StatusSentToVSCode:  {},
		StatusFailed:        {},
		StatusCopiedFallbck: {},
	},
	StatusProcessing: {
		StatusSentToVSCode: {},
		StatusFailed:       {},
	},
	StatusFailed: {
		StatusSending:       {}, // user-initiated retry
		StatusCopiedFallbck: {},
	},
	StatusSentToVSCode: {},
	StatusCopiedFallbck: {
		StatusSending: {}, // user-initiated retry after a clipboard fallback
	},
	StatusCompleted: {},
}

func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	next, ok := validNext[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminalSuccess reports whether s is a terminal success or fallback
// state, i.e. the classes ClearCompleted removes.
func IsTerminalSuccess(s Status) bool {
	switch s {
	case StatusSentToVSCode, StatusCopiedFallbck, StatusCompleted:
		return true
	}
	return false
}

// IsPending reports whether the request is still in flight.
func IsPending(s Status) bool {
	switch s {
	case StatusQueued, StatusSending, StatusProcessing:
		return true
	}
	return false
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid action status transition %s -> %s", e.From, e.To)
}
