package telegram

import (
	"context"
	"errors"
	"sync"
)

type sentMessage struct {
	ChatID int64
	Text   string
	Rich   bool
}

// fakeClient serves updates from a fixed log, like the platform does: every
// update with id >= offset. With nothing new it blocks until ctx is done.
type fakeClient struct {
	mu       sync.Mutex
	log      []Update
	failures int
	offsets  []int
	sent     []sentMessage
	typing   []int64

	parseFail bool
	sendErr   error
}

func (c *fakeClient) GetUpdates(ctx context.Context, offset, _ int) ([]Update, error) {
	c.mu.Lock()
	c.offsets = append(c.offsets, offset)
	if c.failures > 0 {
		c.failures--
		c.mu.Unlock()
		return nil, errors.New("connection refused")
	}
	var out []Update
	for _, u := range c.log {
		if u.ID >= offset {
			out = append(out, u)
		}
	}
	c.mu.Unlock()

	if len(out) > 0 {
		return out, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (c *fakeClient) SendMessage(_ context.Context, chatID int64, text string, rich bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{chatID, text, rich})
	if rich && c.parseFail {
		return ErrParseEntities
	}
	return c.sendErr
}

func (c *fakeClient) SendTyping(_ context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing = append(c.typing, chatID)
	return nil
}

func (c *fakeClient) messages() []sentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMessage{}, c.sent...)
}

func (c *fakeClient) polledOffsets() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int{}, c.offsets...)
}

type fakeAgent struct {
	mu          sync.Mutex
	texts       map[string][]string
	resets      []string
	inflight    map[string]int
	overlapping bool
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{texts: map[string][]string{}, inflight: map[string]int{}}
}

func (a *fakeAgent) Converse(_ context.Context, conversationID, text string) string {
	a.mu.Lock()
	if a.inflight[conversationID] > 0 {
		a.overlapping = true
	}
	a.inflight[conversationID]++
	a.texts[conversationID] = append(a.texts[conversationID], text)
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inflight[conversationID]--
		a.mu.Unlock()
	}()
	return "re: " + text
}

func (a *fakeAgent) Reset(_ context.Context, conversationID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resets = append(a.resets, conversationID)
	return nil
}

func (a *fakeAgent) turns() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, t := range a.texts {
		n += len(t)
	}
	return n
}

func (a *fakeAgent) received(conversationID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.texts[conversationID]...)
}

func (a *fakeAgent) resetIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.resets...)
}
