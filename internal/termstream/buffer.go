package termstream

import (
	"sync"
	"time"
)

type OutputLine struct {
	Data       string
	ReceivedAt time.Time
}

type TerminalState struct {
	ID         string
	Name       string
	Managed    bool
	Subscribed bool
	Lines      []OutputLine
}

// Buffers holds per-terminal output independent of the connection; the
// client only dispatches into it. Each terminal keeps at most maxLines
// lines, oldest dropped first.
type Buffers struct {
	mu        sync.Mutex
	maxLines  int
	terminals map[string]*TerminalState
	now       func() time.Time
}

const DefaultMaxLinesPerTerminal = 1000

func NewBuffers(maxLinesPerTerminal int) *Buffers {
	if maxLinesPerTerminal <= 0 {
		maxLinesPerTerminal = DefaultMaxLinesPerTerminal
	}
	return &Buffers{
		maxLines:  maxLinesPerTerminal,
		terminals: map[string]*TerminalState{},
		now:       time.Now,
	}
}

func (b *Buffers) Upsert(id, name string, managed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.terminals[id]
	if !ok {
		t = &TerminalState{ID: id}
		b.terminals[id] = t
	}
	if name != "" {
		t.Name = name
	}
	t.Managed = managed
}

func (b *Buffers) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.terminals, id)
}

// Append adds one output line, creating the terminal entry on first
// sight. The buffer length never exceeds the configured cap.
func (b *Buffers) Append(id, data string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.terminals[id]
	if !ok {
		t = &TerminalState{ID: id}
		b.terminals[id] = t
	}
	t.Lines = append(t.Lines, OutputLine{Data: data, ReceivedAt: b.now()})
	if over := len(t.Lines) - b.maxLines; over > 0 {
		t.Lines = append(t.Lines[:0:0], t.Lines[over:]...)
	}
}

func (b *Buffers) SetSubscribed(id string, subscribed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.terminals[id]; ok {
		t.Subscribed = subscribed
	}
}

// Terminal returns a copy of the state for id.
func (b *Buffers) Terminal(id string) (TerminalState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.terminals[id]
	if !ok {
		return TerminalState{}, false
	}
	return copyState(t), true
}

// List returns copies of all known terminals.
func (b *Buffers) List() []TerminalState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TerminalState, 0, len(b.terminals))
	for _, t := range b.terminals {
		out = append(out, copyState(t))
	}
	return out
}

func copyState(t *TerminalState) TerminalState {
	cp := *t
	cp.Lines = make([]OutputLine, len(t.Lines))
	copy(cp.Lines, t.Lines)
	return cp
}
