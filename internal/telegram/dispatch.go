package telegram

import (
	"context"
	"sync"

	"storefront-agent/internal/logging"
)

// dispatcher runs one worker per chat. Updates for a chat are handled in arrival
// order; different chats proceed independently. A worker exits once its mailbox drains.
type dispatcher struct {
	handle func(context.Context, Update)

	mu      sync.Mutex
	mailbox map[int64][]Update
	wg      sync.WaitGroup
}

func newDispatcher(handle func(context.Context, Update)) *dispatcher {
	return &dispatcher{handle: handle, mailbox: make(map[int64][]Update)}
}

func (d *dispatcher) submit(ctx context.Context, u Update) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, running := d.mailbox[u.ChatID]
	d.mailbox[u.ChatID] = append(queue, u)
	if !running {
		d.wg.Add(1)
		go d.work(ctx, u.ChatID)
	}
}

func (d *dispatcher) work(ctx context.Context, chatID int64) {
	defer d.wg.Done()
	// a turn already started finishes even when polling stops
	turnCtx := context.WithoutCancel(ctx)

	for {
		d.mu.Lock()
		queue := d.mailbox[chatID]
		if len(queue) == 0 || ctx.Err() != nil {
			if len(queue) > 0 {
				logging.Warn(ctx).Int64("chat", chatID).Int("dropped", len(queue)).Msg("shutting down with queued messages")
			}
			delete(d.mailbox, chatID)
			d.mu.Unlock()
			return
		}
		u := queue[0]
		d.mailbox[chatID] = queue[1:]
		d.mu.Unlock()

		d.handle(turnCtx, u)
	}
}

// wait blocks until every worker has exited.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
