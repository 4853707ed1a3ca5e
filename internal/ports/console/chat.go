package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"survivor/internal/ports"
)

// Chat implements ports.ChatPort by printing every line to w.
type Chat struct {
	mu sync.Mutex
	w  io.Writer
}

func NewChat(w io.Writer) *Chat {
	return &Chat{w: w}
}

func (c *Chat) SayRoom(ctx context.Context, roomID, text string) error {
	return c.printf("[%s] %s\n", roomID, text)
}

func (c *Chat) SayUser(ctx context.Context, userID, text string) error {
	return c.printf("(to %s) %s\n", userID, text)
}

func (c *Chat) printf(format string, v ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, format, v...)
	return err
}

var _ ports.ChatPort = (*Chat)(nil)
