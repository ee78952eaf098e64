package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"labanalyzer/internal/infrastructure"
	"labanalyzer/pkg/contracts/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, c *Client) events.Event {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev events.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return events.Event{}
	}
}

func startedHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, nil)
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHubRegisterSendsWelcome(t *testing.T) {
	hub := startedHub(t)
	client := NewClient(hub, newMockConnection(), "trace-1", nil)

	hub.Register(client)

	ev := receive(t, client)
	assert.Equal(t, events.MessageTypeConnect, ev.Type)
	assert.Equal(t, "trace-1", ev.TraceID)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubPublishReachesEveryClient(t *testing.T) {
	hub := startedHub(t)
	clients := []*Client{
		NewClient(hub, newMockConnection(), "", nil),
		NewClient(hub, newMockConnection(), "", nil),
	}
	for _, c := range clients {
		hub.Register(c)
		receive(t, c)
	}

	ctx := infrastructure.WithTraceID(context.Background(), "trace-xyz")
	hub.Publish(ctx, events.New(events.MessageTypeGrowthComputed, events.LevelSuccess, "growth ready").ForSession("s1"))

	for _, c := range clients {
		ev := receive(t, c)
		assert.Equal(t, events.MessageTypeGrowthComputed, ev.Type)
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, "trace-xyz", ev.TraceID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestHubUnregister(t *testing.T) {
	hub := startedHub(t)
	client := NewClient(hub, newMockConnection(), "", nil)
	hub.Register(client)
	receive(t, client)

	hub.unregisterClient(client)

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-client.send
	assert.False(t, ok)

	// a second unregister is harmless
	hub.unregisterClient(client)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := startedHub(t)
	slow := NewClient(hub, newMockConnection(), "", nil)
	slow.send = make(chan []byte, 1)

	hub.Register(slow)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// the welcome message fills the queue
	hub.Publish(context.Background(), events.New(events.MessageTypeExportReady, events.LevelInfo, "export"))

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHubStop(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Start()
	hub.Start()

	client := NewClient(hub, newMockConnection(), "", nil)
	hub.Register(client)
	receive(t, client)

	hub.Stop()
	hub.Stop()

	_, ok := <-client.send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())

	late := NewClient(hub, newMockConnection(), "", nil)
	hub.Register(late)
	_, ok = <-late.send
	assert.False(t, ok)

	done := make(chan struct{})
	go func() {
		hub.Publish(context.Background(), events.New(events.MessageTypeSessionClosed, events.LevelInfo, "closed"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stopped hub")
	}
}

func TestHubStopWithoutStart(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())
}
