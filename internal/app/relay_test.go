package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/groupkit/internal/relay"
	"github.com/Adda-Baaj/groupkit/pkg/publishers"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

// memStore is a storage.Store that records whether it was closed.
type memStore struct {
	mu      sync.Mutex
	cursors map[string]string
	marks   map[string]bool
	closed  bool
}

func newMemStore() *memStore {
	return &memStore{cursors: map[string]string{}, marks: map[string]bool{}}
}

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memStore) Cursor(g string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[g], nil
}

func (m *memStore) SaveCursor(g, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[g] = id
	return nil
}

func (m *memStore) SeenMessage(k string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks[k], nil
}

func (m *memStore) MarkMessage(k string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[k] = true
	return nil
}

type countingPublisher struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (c *countingPublisher) ID() string   { return "count" }
func (c *countingPublisher) Type() string { return "memory" }
func (c *countingPublisher) Publish(_ context.Context, evt publishers.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func TestRelayLoopSeedsThenPublishesAndCloses(t *testing.T) {
	api := newFakeAPI()
	api.addGroup("g1", 3, ann)
	store := newMemStore()
	store.cursors["g1"] = "1000"
	pub := &countingPublisher{}
	fanout := publishers.NewFanout([]publishers.Publisher{pub})

	groups := []watchlist.Group{{ID: "g1", Relay: true}}
	r := newRelay(groups, relay.NewService(api, store, nil, fanout, nil), fanout, store, 10*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Run(ctx))

	require.Len(t, pub.events, 2)
	require.Equal(t, "1002", store.cursors["g1"])
	require.True(t, store.closed)
}

func TestRelayIdleWithoutGroups(t *testing.T) {
	store := newMemStore()
	fanout := publishers.NewFanout(nil)
	r := newRelay(nil, relay.NewService(newFakeAPI(), store, nil, fanout, nil), fanout, store, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	require.True(t, store.closed)
}
