package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ozzylabs/ozzy/pkg/callclient"
	"github.com/ozzylabs/ozzy/pkg/events"
)

// Client is an in-memory call client for tests and local development.
// It implements the callclient.Client interface without any network
// dependency; tests inject platform behavior by pushing events.
type Client struct {
	eventCh chan events.Event
	closed  atomic.Bool

	// Optional scripted failures.
	StartErr error

	mu      sync.Mutex
	starts  []callclient.StartOptions
	stops   int
	mutes   int
	unmutes int
}

func New() *Client {
	return &Client{
		eventCh: make(chan events.Event, 256),
	}
}

func (c *Client) Name() string { return "mock" }

func (c *Client) StartCall(ctx context.Context, opts callclient.StartOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.StartErr != nil {
		return c.StartErr
	}
	c.mu.Lock()
	c.starts = append(c.starts, opts)
	c.mu.Unlock()
	return nil
}

func (c *Client) StopCall() error {
	c.mu.Lock()
	c.stops++
	c.mu.Unlock()
	return nil
}

func (c *Client) Mute() error {
	c.mu.Lock()
	c.mutes++
	c.mu.Unlock()
	return nil
}

func (c *Client) Unmute() error {
	c.mu.Lock()
	c.unmutes++
	c.mu.Unlock()
	return nil
}

func (c *Client) Events() <-chan events.Event { return c.eventCh }

func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.eventCh)
	}
	return nil
}

// Push injects a platform event into the client's event stream.
func (c *Client) Push(ev events.Event) {
	if c.closed.Load() {
		return
	}
	select {
	case c.eventCh <- ev:
	default:
	}
}

// Starts returns the recorded StartCall invocations.
func (c *Client) Starts() []callclient.StartOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]callclient.StartOptions(nil), c.starts...)
}

// Stops returns the number of StopCall invocations.
func (c *Client) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// Mutes returns the number of Mute invocations.
func (c *Client) Mutes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutes
}

// Unmutes returns the number of Unmute invocations.
func (c *Client) Unmutes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unmutes
}
