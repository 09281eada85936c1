// Package billing holds the device billing session used by legacy restores.
package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotConnected = errors.New("billing connection is not open")
	ErrNotAcquired  = errors.New("billing connection released more often than acquired")
)

type Hook func(ctx context.Context) error

// Connection is the process-wide billing connection shared by every restore.
// The open hook runs when the first holder acquires it and the close hook runs
// when the last holder releases it, so overlapping restores never tear down a
// connection another restore is still using.
type Connection struct {
	mu      sync.Mutex
	refs    int
	onOpen  Hook
	onClose Hook
}

func NewConnection(onOpen, onClose Hook) *Connection {
	return &Connection{onOpen: onOpen, onClose: onClose}
}

func (c *Connection) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs == 0 && c.onOpen != nil {
		if err := c.onOpen(ctx); err != nil {
			return fmt.Errorf("open billing connection: %w", err)
		}
	}
	c.refs++
	return nil
}

func (c *Connection) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refs == 0 {
		return ErrNotAcquired
	}
	c.refs--
	if c.refs == 0 && c.onClose != nil {
		if err := c.onClose(ctx); err != nil {
			return fmt.Errorf("close billing connection: %w", err)
		}
	}
	return nil
}

func (c *Connection) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}
