package termstream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// FakeSocket scripts one connection for tests: emitted texts are read in
// order, then the socket fails with the configured error.
type FakeSocket struct {
	mu       sync.Mutex
	queue    []string
	readErr  error
	written  []string
	closed   bool
	notEmpty chan struct{}
}

func NewFakeSocket(texts []string, readErr error) *FakeSocket {
	if readErr == nil {
		readErr = io.EOF
	}
	return &FakeSocket{queue: append([]string(nil), texts...), readErr: readErr}
}

func (f *FakeSocket) ReadText(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return "", f.readErr
	}
	text := f.queue[0]
	f.queue = f.queue[1:]
	return text, nil
}

func (f *FakeSocket) WriteText(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("socket closed")
	}
	f.written = append(f.written, text)
	return nil
}

func (f *FakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeSocket) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

// FakeDialer hands out scripted sockets in order; once the script is
// exhausted every dial fails.
type FakeDialer struct {
	mu      sync.Mutex
	sockets []Socket
	dials   int
}

func NewFakeDialer(sockets ...Socket) *FakeDialer {
	return &FakeDialer{sockets: sockets}
}

func (d *FakeDialer) Dial(ctx context.Context, url string) (Socket, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if len(d.sockets) == 0 {
		return nil, errors.New("dial refused")
	}
	sock := d.sockets[0]
	d.sockets = d.sockets[1:]
	return sock, nil
}

func (d *FakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
