package app

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/pkg/groupme"
)

var historyStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeAPI implements groupme.API over in-memory group histories.
type fakeAPI struct {
	mu       sync.Mutex
	groups   map[string]domain.Group
	messages map[string][]domain.Message
	likes    []string
	unlikes  []string
	likeRes  map[string]groupme.LikeResult
	likeErr  map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		groups:   map[string]domain.Group{},
		messages: map[string][]domain.Message{},
		likeRes:  map[string]groupme.LikeResult{},
		likeErr:  map[string]error{},
	}
}

// addGroup registers a group whose n messages are sent round-robin by senders,
// one minute apart.
func (f *fakeAPI) addGroup(id string, n int, senders ...domain.Member) {
	msgs := make([]domain.Message, n)
	for i := range msgs {
		s := senders[i%len(senders)]
		msgs[i] = domain.Message{
			ID:        strconv.Itoa(1000 + i),
			GroupID:   id,
			UserID:    s.UserID,
			Name:      s.Nickname,
			Text:      "message " + strconv.Itoa(i),
			CreatedAt: historyStart.Add(time.Duration(i) * time.Minute).Unix(),
		}
	}
	f.messages[id] = msgs
	g := domain.Group{ID: id, Name: "group " + id, Members: senders}
	g.Messages.Count = n
	if n > 0 {
		g.Messages.LastMessageID = msgs[n-1].ID
	}
	f.groups[id] = g
}

func (f *fakeAPI) index(groupID, id string) int {
	for i, m := range f.messages[groupID] {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) ListGroups(context.Context) ([]domain.Group, error) {
	out := make([]domain.Group, 0, len(f.groups))
	for _, g := range f.groups {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeAPI) GetGroup(_ context.Context, id string) (domain.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return domain.Group{}, &groupme.DecodeError{Shape: groupme.ShapeGroup, StatusCode: 404, Err: errors.New("empty body")}
	}
	return g, nil
}

func (f *fakeAPI) GetMessagesAfter(_ context.Context, groupID, afterID string) (domain.MessagePage, error) {
	all := f.messages[groupID]
	start := 0
	if afterID != history.StartOfHistory {
		start = f.index(groupID, afterID) + 1
	}
	end := min(start+domain.MaxMessages, len(all))
	return domain.MessagePage{Count: len(all), Messages: append([]domain.Message(nil), all[start:end]...)}, nil
}

func (f *fakeAPI) GetMessagesBefore(_ context.Context, groupID, beforeID string) (domain.MessagePage, error) {
	all := f.messages[groupID]
	var page []domain.Message
	for i := f.index(groupID, beforeID) - 1; i >= 0 && len(page) < domain.MaxMessages; i-- {
		page = append(page, all[i])
	}
	return domain.MessagePage{Count: len(all), Messages: page}, nil
}

func (f *fakeAPI) LikeMessage(_ context.Context, groupID, messageID string) (groupme.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likes = append(f.likes, messageID)
	return f.result(messageID)
}

func (f *fakeAPI) UnlikeMessage(_ context.Context, groupID, messageID string) (groupme.LikeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlikes = append(f.unlikes, messageID)
	return f.result(messageID)
}

func (f *fakeAPI) Like(ctx context.Context, m domain.Message) (groupme.LikeResult, error) {
	return f.LikeMessage(ctx, m.GroupID, m.ID)
}

func (f *fakeAPI) Unlike(ctx context.Context, m domain.Message) (groupme.LikeResult, error) {
	return f.UnlikeMessage(ctx, m.GroupID, m.ID)
}

func (f *fakeAPI) result(messageID string) (groupme.LikeResult, error) {
	if err := f.likeErr[messageID]; err != nil {
		return groupme.LikeResult{}, err
	}
	if res, ok := f.likeRes[messageID]; ok {
		return res, nil
	}
	return groupme.LikeResult{Delivered: true, StatusCode: 200}, nil
}

// fakeMarks is an in-memory MessageMarks.
type fakeMarks struct {
	seen map[string]bool
}

func (f *fakeMarks) SeenMessage(k string) (bool, error) { return f.seen[k], nil }
func (f *fakeMarks) MarkMessage(k string) error {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	f.seen[k] = true
	return nil
}
