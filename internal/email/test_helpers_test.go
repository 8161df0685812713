package email

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// recordingSender keeps every message it is asked to send.
type recordingSender struct {
	mu       sync.Mutex
	messages []Message
	SendFunc func(ctx context.Context, msg Message) error
}

func (s *recordingSender) Send(ctx context.Context, msg Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	if s.SendFunc != nil {
		return s.SendFunc(ctx, msg)
	}
	return nil
}

func (s *recordingSender) sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}
