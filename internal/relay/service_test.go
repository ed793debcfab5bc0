package relay

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/internal/storage"
	"github.com/Adda-Baaj/groupkit/pkg/publishers"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

// fakeSource serves a fixed, oldest-first history.
type fakeSource struct {
	messages []domain.Message
	groupErr error
}

func newFakeSource(n int) *fakeSource {
	msgs := make([]domain.Message, n)
	for i := range msgs {
		msgs[i] = domain.Message{ID: strconv.Itoa(1000 + i), GroupID: "g1", UserID: "u1", Text: "hi"}
	}
	return &fakeSource{messages: msgs}
}

func (f *fakeSource) GetGroup(_ context.Context, id string) (domain.Group, error) {
	if f.groupErr != nil {
		return domain.Group{}, f.groupErr
	}
	g := domain.Group{ID: id}
	if n := len(f.messages); n > 0 {
		g.Messages.Count = n
		g.Messages.LastMessageID = f.messages[n-1].ID
	}
	return g, nil
}

func (f *fakeSource) GetMessagesAfter(_ context.Context, _ string, afterID string) (domain.MessagePage, error) {
	start := 0
	if afterID != history.StartOfHistory {
		for i, m := range f.messages {
			if m.ID == afterID {
				start = i + 1
			}
		}
	}
	end := min(start+domain.MaxMessages, len(f.messages))
	return domain.MessagePage{Count: len(f.messages), Messages: f.messages[start:end]}, nil
}

func (f *fakeSource) GetMessagesBefore(context.Context, string, string) (domain.MessagePage, error) {
	return domain.MessagePage{}, errors.New("not used")
}

func (f *fakeSource) post(text string) {
	id := strconv.Itoa(1000 + len(f.messages))
	f.messages = append(f.messages, domain.Message{ID: id, GroupID: "g1", UserID: "u2", Text: text})
}

// fakeStore keeps checkpoints in memory.
type fakeStore struct {
	mu      sync.Mutex
	cursors map[string]string
	seen    map[string]bool
	seenErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{cursors: map[string]string{}, seen: map[string]bool{}}
}

func (f *fakeStore) Cursor(g string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursors[g], nil
}

func (f *fakeStore) SaveCursor(g, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursors[g] = id
	return nil
}

func (f *fakeStore) SeenMessage(k string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seenErr != nil {
		return false, f.seenErr
	}
	return f.seen[k], nil
}

func (f *fakeStore) MarkMessage(k string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[k] = true
	return nil
}

// fakePublisher records published events and can inject errors.
type fakePublisher struct {
	events    []publishers.Event
	errOnID   string
	delivered int
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.events = append(f.events, evt)
	if evt.Message.ID == f.errOnID {
		return f.delivered, errors.New("boom")
	}
	return 1, nil
}

type fakePreviewer struct {
	calls []string
	err   error
}

func (f *fakePreviewer) Preview(_ context.Context, link string) (domain.LinkPreview, error) {
	f.calls = append(f.calls, link)
	if f.err != nil {
		return domain.LinkPreview{}, f.err
	}
	return domain.LinkPreview{URL: link, Title: "Example"}, nil
}

var bookClub = watchlist.Group{ID: "g1", Name: "Book Club", Relay: true}

func TestRelayGroupSeedsCursorOnFirstSight(t *testing.T) {
	source := newFakeSource(5)
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewService(source, store, nil, pub, nil)

	res, err := svc.RelayGroup(context.Background(), bookClub)
	if err != nil {
		t.Fatalf("RelayGroup: %v", err)
	}
	if !res.Seeded || res.Cursor != "1004" || store.cursors["g1"] != "1004" {
		t.Fatalf("expected cursor seeded at newest message, got %+v", res)
	}
	if len(pub.events) != 0 {
		t.Fatalf("seeding must not publish history, got %d events", len(pub.events))
	}
}

func TestRelayGroupPublishesNewMessagesAcrossPages(t *testing.T) {
	source := newFakeSource(1)
	store := newFakeStore()
	store.cursors["g1"] = "1000"
	for i := 0; i < 150; i++ {
		source.post("msg " + strconv.Itoa(i))
	}
	source.messages[10].System = true
	pub := &fakePublisher{}
	svc := NewService(source, store, nil, pub, nil)

	res, err := svc.RelayGroup(context.Background(), bookClub)
	if err != nil {
		t.Fatalf("RelayGroup: %v", err)
	}
	if res.Published != 149 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if store.cursors["g1"] != "1150" {
		t.Fatalf("cursor not advanced, got %q", store.cursors["g1"])
	}
	if pub.events[0].GroupName != "Book Club" || pub.events[0].Message.ID != "1001" {
		t.Fatalf("unexpected first event %+v", pub.events[0])
	}

	// A second pass with nothing new publishes nothing.
	res, err = svc.RelayGroup(context.Background(), bookClub)
	if err != nil || res.Published != 0 {
		t.Fatalf("expected idle pass, got %+v err=%v", res, err)
	}
}

func TestRelayGroupWithoutPersistentStorePublishesLaterPasses(t *testing.T) {
	source := newFakeSource(3)
	store, err := storage.NewStore("none", "", storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	pub := &fakePublisher{}
	svc := NewService(source, store, nil, pub, nil)

	res, err := svc.RelayGroup(context.Background(), bookClub)
	if err != nil || !res.Seeded {
		t.Fatalf("expected first pass to seed, got %+v err=%v", res, err)
	}

	for pass := 1; pass <= 3; pass++ {
		source.post("new " + strconv.Itoa(pass))
		res, err = svc.RelayGroup(context.Background(), bookClub)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if res.Seeded || res.Published != 1 {
			t.Fatalf("pass %d: expected one published message, got %+v", pass, res)
		}
	}
	if len(pub.events) != 3 || pub.events[2].Message.ID != "1005" {
		t.Fatalf("unexpected events %+v", pub.events)
	}
}

func TestRelayGroupStopsOnPublishFailureAndRetriesWithoutDuplicates(t *testing.T) {
	source := newFakeSource(1)
	store := newFakeStore()
	store.cursors["g1"] = "1000"
	source.post("a")
	source.post("b")
	source.post("c")
	pub := &fakePublisher{errOnID: "1002"}
	svc := NewService(source, store, nil, pub, nil)

	if _, err := svc.RelayGroup(context.Background(), bookClub); err == nil || !strings.Contains(err.Error(), "1002") {
		t.Fatalf("expected publish failure for 1002, got %v", err)
	}
	if store.cursors["g1"] != "1000" {
		t.Fatalf("cursor must not move past a failed page, got %q", store.cursors["g1"])
	}

	pub.errOnID = ""
	pub.events = nil
	res, err := svc.RelayGroup(context.Background(), bookClub)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Published != 2 || res.Skipped != 1 {
		t.Fatalf("retry should skip the already relayed message, got %+v", res)
	}
}

func TestRelayGroupPartialDeliveryCountsAsPublished(t *testing.T) {
	source := newFakeSource(1)
	store := newFakeStore()
	store.cursors["g1"] = "1000"
	source.post("a")
	pub := &fakePublisher{errOnID: "1001", delivered: 1}

	res, err := NewService(source, store, nil, pub, nil).RelayGroup(context.Background(), bookClub)
	if err != nil || res.Published != 1 {
		t.Fatalf("expected partial delivery to succeed, got %+v err=%v", res, err)
	}
}

func TestRelayGroupAttachesPreviews(t *testing.T) {
	source := newFakeSource(1)
	store := newFakeStore()
	store.cursors["g1"] = "1000"
	source.post("read https://example.com/post.")
	source.post("no link here")
	pub := &fakePublisher{}
	prev := &fakePreviewer{}

	if _, err := NewService(source, store, prev, pub, nil).RelayGroup(context.Background(), bookClub); err != nil {
		t.Fatalf("RelayGroup: %v", err)
	}
	if len(prev.calls) != 1 || prev.calls[0] != "https://example.com/post" {
		t.Fatalf("unexpected preview calls %v", prev.calls)
	}
	if pub.events[0].Preview == nil || pub.events[1].Preview != nil {
		t.Fatalf("preview should be attached only to the linked message")
	}
}

func TestRelayGroupPublishesWhenDedupeLookupFails(t *testing.T) {
	source := newFakeSource(1)
	store := newFakeStore()
	store.cursors["g1"] = "1000"
	store.seenErr = errors.New("disk")
	source.post("a")
	pub := &fakePublisher{}

	if _, err := NewService(source, store, nil, pub, nil).RelayGroup(context.Background(), bookClub); err != nil {
		t.Fatalf("RelayGroup: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected message published despite dedupe error")
	}
}

func TestRunJoinsGroupErrors(t *testing.T) {
	source := newFakeSource(3)
	source.groupErr = errors.New("404")
	svc := NewService(source, newFakeStore(), nil, &fakePublisher{}, nil)

	err := svc.Run(context.Background(), []watchlist.Group{{ID: "a"}, {ID: "b"}})
	if err == nil || !strings.Contains(err.Error(), "group a") || !strings.Contains(err.Error(), "group b") {
		t.Fatalf("expected both group errors, got %v", err)
	}
	if err := svc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error when no groups configured")
	}
}
