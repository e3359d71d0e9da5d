package telegram

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherShutdownFinishesTurnAndDropsQueue(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var handled []int
	var turnErr error
	d := newDispatcher(func(ctx context.Context, u Update) {
		if u.ID == 1 {
			close(started)
			<-release
		}
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, u.ID)
		if u.ID == 1 {
			turnErr = ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	d.submit(ctx, Update{ID: 1, ChatID: 10, Text: "first"})
	<-started
	d.submit(ctx, Update{ID: 2, ChatID: 10, Text: "second"})
	d.submit(ctx, Update{ID: 3, ChatID: 10, Text: "third"})

	cancel()
	close(release)
	d.wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1}, handled)
	assert.NoError(t, turnErr)
	assert.Empty(t, d.mailbox)
}

func TestPollerRestartDoesNotRedeliverDroppedUpdates(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{log: []Update{
		{ID: 1, ChatID: 10, Text: "first"},
		{ID: 2, ChatID: 10, Text: "second"},
	}}
	agent := &blockingAgent{fakeAgent: newFakeAgent(), gate: "first", release: release}
	p := &Poller{Client: client, Agent: agent}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	waitFor(t, func() bool { return agent.turns() == 1 })

	cancel()
	require.NoError(t, <-done)
	close(release)
	p.Wait()
	require.Equal(t, int64(2), p.Cursor())

	polls := len(client.polledOffsets())
	stop := start(t, p)
	waitFor(t, func() bool { return len(client.polledOffsets()) > polls })
	stop()

	assert.Equal(t, 3, client.polledOffsets()[polls])
	assert.Equal(t, []string{"first"}, agent.received("telegram:10"))
}

// blockingAgent holds the turn for gate until release is closed.
type blockingAgent struct {
	*fakeAgent
	gate    string
	release chan struct{}
}

func (a *blockingAgent) Converse(ctx context.Context, conversationID, text string) string {
	reply := a.fakeAgent.Converse(ctx, conversationID, text)
	if text == a.gate {
		<-a.release
	}
	return reply
}
