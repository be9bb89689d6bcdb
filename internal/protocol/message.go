// Package protocol defines the wire messages exchanged with the
// terminal-stream endpoint. The protocol is server-defined; this package
// only mirrors it.
package protocol

import (
	"encoding/json"
	"strings"
)

// Client → server message types.
const (
	ClientList           = "list"
	ClientSubscribe      = "subscribe"
	ClientSubscribeAll   = "subscribe_all"
	ClientUnsubscribe    = "unsubscribe"
	ClientInput          = "input"
	ClientCreateTerminal = "create_terminal"
)

// Server → client message types.
const (
	ServerTerminals       = "terminals"
	ServerOutput          = "output"
	ServerTerminalOpened  = "terminal_opened"
	ServerTerminalClosed  = "terminal_closed"
	ServerTerminalCreated = "terminal_created"
	ServerSubscribed      = "subscribed"
	ServerUnsubscribed    = "unsubscribed"
	ServerError           = "error"
)

type ClientMessage struct {
	Type       string `json:"type"`
	TerminalID string `json:"terminalId,omitempty"`
	Data       string `json:"data,omitempty"`
	Name       string `json:"name,omitempty"`
	Cwd        string `json:"cwd,omitempty"`
}

type TerminalInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ServerMessage struct {
	Type       string         `json:"type"`
	Terminals  []TerminalInfo `json:"terminals,omitempty"`
	TerminalID string         `json:"terminalId,omitempty"`
	Data       string         `json:"data,omitempty"`
	Terminal   *TerminalInfo  `json:"terminal,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func ParseServerMessage(raw []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ServerMessage{}, err
	}
	return msg, nil
}

func MarshalClientMessage(msg ClientMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// IsManagedTerminalID reports whether id names a terminal created by the
// extension rather than one the user opened. The server does not carry an
// explicit flag; the "managed-" id prefix is the only signal, so the
// convention lives here and nowhere else.
func IsManagedTerminalID(id string) bool {
	return strings.HasPrefix(id, "managed-")
}
