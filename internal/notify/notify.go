// Package notify holds the single short-lived status message shown to the
// user. A new post replaces the visible one and restarts its timer.
package notify

import (
	"sync"
	"time"
)

// DefaultDuration is how long a message stays visible.
const DefaultDuration = 2 * time.Second

// Message is the current notification state.
type Message struct {
	Text     string    `json:"text"`
	Visible  bool      `json:"visible"`
	PostedAt time.Time `json:"posted_at"`
}

// Channel stores the latest message and hides it when its timer fires.
// Listeners run on the goroutine that changed the state and must not block.
type Channel struct {
	mu        sync.Mutex
	msg       Message
	timer     *time.Timer
	gen       uint64
	listeners []func(Message)
}

func New() *Channel {
	return &Channel{}
}

// Post shows text for DefaultDuration.
func (c *Channel) Post(text string) {
	c.PostFor(text, DefaultDuration)
}

// PostFor shows text for d, superseding any visible message.
func (c *Channel) PostFor(text string, d time.Duration) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.msg = Message{Text: text, Visible: true, PostedAt: time.Now()}
	c.timer = time.AfterFunc(d, func() { c.expire(gen) })
	msg := c.msg
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}

// expire hides the message only if no newer post replaced it.
func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.msg.Visible = false
	c.timer = nil
	msg := c.msg
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
}

// Current returns the latest message and whether it is still visible.
func (c *Channel) Current() Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msg
}

// OnChange registers fn to be called after every post and expiry.
func (c *Channel) OnChange(fn func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Stop cancels the pending expiry timer.
func (c *Channel) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
