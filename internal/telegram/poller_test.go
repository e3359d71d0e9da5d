package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront-agent/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func start(t *testing.T, p *Poller) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
		p.Wait()
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestPollerDispatchesTextUpdates(t *testing.T) {
	client := &fakeClient{log: []Update{
		{ID: 1, ChatID: 10, Text: "hi"},
		{ID: 2, ChatID: 10},
		{ID: 3, ChatID: 20, Text: "orders today"},
	}}
	agent := newFakeAgent()
	p := &Poller{Client: client, Agent: agent}

	stop := start(t, p)
	waitFor(t, func() bool { return len(client.messages()) == 2 })
	stop()

	assert.Equal(t, []string{"hi"}, agent.received("telegram:10"))
	assert.Equal(t, []string{"orders today"}, agent.received("telegram:20"))
	assert.Equal(t, int64(3), p.Cursor())
	assert.ElementsMatch(t, []int64{10, 20}, client.typing)
	assert.Contains(t, client.messages(), sentMessage{ChatID: 20, Text: "re: orders today", Rich: true})
}

func TestPollerCursorSurvivesRestart(t *testing.T) {
	client := &fakeClient{log: []Update{
		{ID: 5, ChatID: 10, Text: "one"},
		{ID: 6, ChatID: 10, Text: "two"},
	}}
	agent := newFakeAgent()
	p := &Poller{Client: client, Agent: agent}

	stop := start(t, p)
	waitFor(t, func() bool { return agent.turns() == 2 })
	stop()

	polls := len(client.polledOffsets())
	stop = start(t, p)
	waitFor(t, func() bool { return len(client.polledOffsets()) > polls })
	stop()

	assert.Equal(t, 2, agent.turns())
	assert.Equal(t, 1, client.polledOffsets()[0])
	assert.Equal(t, 7, client.polledOffsets()[polls])
	assert.Equal(t, int64(6), p.Cursor())
}

func TestPollerCursorNeverMovesBack(t *testing.T) {
	p := &Poller{}
	p.advance(9)
	p.advance(4)
	assert.Equal(t, int64(9), p.Cursor())
}

func TestPollerRetriesFailedPolls(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := telemetry.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	require.NoError(t, err)

	client := &fakeClient{failures: 2, log: []Update{{ID: 1, ChatID: 10, Text: "hi"}}}
	agent := newFakeAgent()
	p := &Poller{Client: client, Agent: agent, RetryDelay: 5 * time.Millisecond, Metrics: metrics}

	stop := start(t, p)
	waitFor(t, func() bool { return agent.turns() == 1 })
	stop()

	assert.GreaterOrEqual(t, len(client.polledOffsets()), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var pollErrors int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "agent.poll.errors" {
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					pollErrors += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), pollErrors)
}

func TestPollerKeepsPerChatOrder(t *testing.T) {
	var log []Update
	for i := 1; i <= 6; i++ {
		log = append(log, Update{ID: i, ChatID: 10, Text: strings.Repeat("x", i)})
	}
	client := &fakeClient{log: log}
	agent := newFakeAgent()
	p := &Poller{Client: client, Agent: agent}

	stop := start(t, p)
	waitFor(t, func() bool { return agent.turns() == 6 })
	stop()

	assert.Equal(t, []string{"x", "xx", "xxx", "xxxx", "xxxxx", "xxxxxx"}, agent.received("telegram:10"))
	assert.False(t, agent.overlapping)
}

func TestCommandsNeverReachTheOracle(t *testing.T) {
	client := &fakeClient{log: []Update{
		{ID: 1, ChatID: 10, Text: "/clear"},
		{ID: 2, ChatID: 11, Text: "/start@storefront_bot"},
		{ID: 3, ChatID: 12, Text: "/help"},
	}}
	agent := newFakeAgent()
	p := &Poller{Client: client, Agent: agent}

	stop := start(t, p)
	waitFor(t, func() bool { return len(client.messages()) == 2 })
	stop()

	assert.Zero(t, agent.turns())
	assert.ElementsMatch(t, []string{"telegram:10", "telegram:11"}, agent.resetIDs())
	assert.ElementsMatch(t, []sentMessage{
		{ChatID: 10, Text: ClearedReply, Rich: true},
		{ChatID: 11, Text: GreetingReply, Rich: true},
	}, client.messages())
	assert.Empty(t, client.typing)
}

func TestAllowListIgnoresOtherChats(t *testing.T) {
	client := &fakeClient{log: []Update{
		{ID: 1, ChatID: 99, Text: "who are you"},
		{ID: 2, ChatID: 10, Text: "hi"},
	}}
	agent := newFakeAgent()
	p := &Poller{Client: client, Agent: agent, Allowed: []int64{10}}

	stop := start(t, p)
	waitFor(t, func() bool { return agent.turns() == 1 })
	stop()

	assert.Empty(t, agent.received("telegram:99"))
	for _, m := range client.messages() {
		assert.Equal(t, int64(10), m.ChatID)
	}
}

func TestSendResendsPlainOnParseError(t *testing.T) {
	client := &fakeClient{parseFail: true}
	p := &Poller{Client: client}

	require.NoError(t, p.send(context.Background(), 10, "*broken"))
	assert.Equal(t, []sentMessage{
		{ChatID: 10, Text: "*broken", Rich: true},
		{ChatID: 10, Text: "*broken", Rich: false},
	}, client.messages())
}

func TestSendDoesNotRetryOtherErrors(t *testing.T) {
	client := &fakeClient{sendErr: errors.New("chat not found")}
	p := &Poller{Client: client}

	assert.Error(t, p.send(context.Background(), 10, "hello"))
	assert.Len(t, client.messages(), 1)
}

func TestSendChunksLongReplies(t *testing.T) {
	client := &fakeClient{}
	p := &Poller{Client: client}
	line := strings.Repeat("a", 1000) + "\n"

	require.NoError(t, p.send(context.Background(), 10, strings.Repeat(line, 5)))
	msgs := client.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, strings.TrimSuffix(strings.Repeat(line, 4), "\n"), msgs[0].Text)
	assert.Equal(t, line, msgs[1].Text)
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "abcde", 5, []string{"abcde"}},
		{"line boundary", "ab\ncd\nef", 6, []string{"ab\ncd", "ef"}},
		{"hard cut", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"runes", "ééééé", 2, []string{"éé", "éé", "é"}},
		{"empty", "", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitMessage(tt.text, tt.limit))
		})
	}
}
