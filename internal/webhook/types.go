package webhook

import "time"

// Error codes carried on Result. Expected failures are values, not Go
// errors; every public client method resolves to exactly one terminal
// response class per request.
const (
	ErrCodeMissingPrompt      = "MISSING_PROMPT"
	ErrCodeNoWorkspace        = "NO_WORKSPACE"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeRequestFailed      = "REQUEST_FAILED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeConnection         = "CONNECTION_ERROR"
	ErrCodeUnknown            = "UNKNOWN_ERROR"
)

// Action names the discrete server-side operations accepted by the
// legacy envelope.
type Action string

const (
	ActionExecuteTask    Action = "execute_task"
	ActionCopilotChat    Action = "copilot_chat"
	ActionCreateFile     Action = "create_file"
	ActionModifyFile     Action = "modify_file"
	ActionRunCommand     Action = "run_command"
	ActionQueryWorkspace Action = "query_workspace"
)

// Payload is the legacy generic request envelope.
type Payload struct {
	Action   Action `json:"action"`
	Task     string `json:"task,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	Content  string `json:"content,omitempty"`
	Command  string `json:"command,omitempty"`
	Query    string `json:"query,omitempty"`
}

type queueInfo struct {
	Position int `json:"position"`
}

// response is the raw wire shape returned by the webhook server.
type response struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	RequestID      string     `json:"requestId"`
	Status         string     `json:"status"` // queued | processing
	Queue          *queueInfo `json:"queue"`
	Error          string     `json:"error"`
	Suggestions    []string   `json:"suggestions"`
	ActionRequired string     `json:"action_required"`
}

// Result is the normalized outcome of one request. Exactly one of
// Success or ErrorCode is meaningful.
type Result struct {
	Success        bool
	Message        string
	RequestID      string
	Status         string
	QueuePosition  int
	ErrorCode      string
	Suggestions    []string
	ActionRequired string
}

// ServerHealth mirrors GET /health.
type ServerHealth struct {
	Status    string `json:"status"` // ok | degraded | offline
	Workspace struct {
		Ready bool   `json:"ready"`
		Name  string `json:"name,omitempty"`
	} `json:"workspace"`
	Chat struct {
		Busy         bool  `json:"busy"`
		LastActivity int64 `json:"lastActivity"` // epoch millis
	} `json:"chat"`
}

// WorkspaceState is the three-valued readiness summary.
type WorkspaceState struct {
	Connected      bool
	WorkspaceReady bool
	ChatBusy       bool
}

// ReadyState is the readiness decision including the stuck-chat
// override. Reason is set whenever Ready is false.
type ReadyState struct {
	Ready         bool
	Reason        string
	StuckDetected bool
}

// QueueStatus mirrors GET /queue.
type QueueStatus struct {
	IsProcessing  bool     `json:"isProcessing"`
	QueueLength   int      `json:"queueLength"`
	CurrentTaskID string   `json:"currentTaskId,omitempty"`
	PendingTasks  []string `json:"pendingTasks"`
}

// Request status values observed from GET /webhook/{id}/status.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusNotFound   = "not_found"
	StatusUnknown    = "unknown"
	StatusTimeout    = "timeout"
)

// RequestStatus is one observation of a submitted request.
type RequestStatus struct {
	Found   bool
	Status  string
	Error   string
	Message string
}

// PollResult is the terminal outcome of PollCompletion.
type PollResult struct {
	Completed bool
	Status    string
	Error     string
}

// PollOptions bounds the completion poll loop. Zero values take the
// defaults (30 attempts, 2s interval). OnStatus, when set, is called
// once per poll with the observed status, including the final one.
type PollOptions struct {
	MaxAttempts int
	Interval    time.Duration
	OnStatus    func(status string)
}

const (
	defaultPollAttempts = 30
	defaultPollInterval = 2 * time.Second
)
