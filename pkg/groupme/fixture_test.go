package groupme

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/pkg/httpclient"
)

// stubResponse implements httpclient.Response.
type stubResponse struct {
	body       []byte
	statusCode int
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.statusCode }

type recordedCall struct {
	method  string
	url     string
	headers map[string]string
}

// fakeTransport answers every request through handle and records it.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []recordedCall
	handle func(method, rawURL string) (httpclient.Response, error)
}

func (f *fakeTransport) Get(_ context.Context, rawURL string, headers map[string]string) (httpclient.Response, error) {
	return f.record(http.MethodGet, rawURL, headers)
}

func (f *fakeTransport) Post(_ context.Context, rawURL string, headers map[string]string) (httpclient.Response, error) {
	return f.record(http.MethodPost, rawURL, headers)
}

func (f *fakeTransport) record(method, rawURL string, headers map[string]string) (httpclient.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{method: method, url: rawURL, headers: headers})
	f.mu.Unlock()
	return f.handle(method, rawURL)
}

func (f *fakeTransport) lastCall(t *testing.T) recordedCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatalf("transport was not called")
	}
	return f.calls[len(f.calls)-1]
}

func staticTransport(status int, body string, err error) *fakeTransport {
	return &fakeTransport{handle: func(string, string) (httpclient.Response, error) {
		if err != nil {
			return nil, err
		}
		return stubResponse{body: []byte(body), statusCode: status}, nil
	}}
}

var errConnRefused = errors.New("dial tcp: connection refused")

// historyFixture serves a fixed message history the way the messages
// endpoint does: after_id pages ascending, before_id pages descending.
type historyFixture struct {
	groupID  string
	messages []domain.Message
}

func newHistoryFixture(groupID string, n int) *historyFixture {
	msgs := make([]domain.Message, n)
	for i := range msgs {
		msgs[i] = domain.Message{
			ID:        strconv.Itoa(1000 + i),
			GroupID:   groupID,
			UserID:    "u" + strconv.Itoa(i%3),
			Name:      "user",
			Text:      "message " + strconv.Itoa(i),
			CreatedAt: 1_700_000_000 + int64(i)*60,
		}
	}
	return &historyFixture{groupID: groupID, messages: msgs}
}

func (h *historyFixture) indexOf(id string) int {
	for i, m := range h.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (h *historyFixture) transport() *fakeTransport {
	return &fakeTransport{handle: func(_ string, rawURL string) (httpclient.Response, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		if u.Path != "/v3/groups/"+h.groupID+"/messages" {
			return stubResponse{statusCode: http.StatusNotFound}, nil
		}
		q := u.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		var page []domain.Message
		switch {
		case q.Has("after_id"):
			start := 0
			if after := q.Get("after_id"); after != "0" {
				start = h.indexOf(after) + 1
			}
			end := min(start+limit, len(h.messages))
			page = append(page, h.messages[start:end]...)
		case q.Has("before_id"):
			end := h.indexOf(q.Get("before_id"))
			for i := end - 1; i >= 0 && len(page) < limit; i-- {
				page = append(page, h.messages[i])
			}
		}
		if len(page) == 0 {
			return stubResponse{statusCode: http.StatusNotModified}, nil
		}
		return stubResponse{body: envelopeJSON(map[string]any{"count": len(h.messages), "messages": page}), statusCode: http.StatusOK}, nil
	}}
}

func envelopeJSON(payload any) []byte {
	raw, err := json.Marshal(map[string]any{
		"response": payload,
		"meta":     map[string]any{"code": 200},
	})
	if err != nil {
		panic(err)
	}
	return raw
}

func newTestClient(t *testing.T, transport httpclient.Client) *Client {
	t.Helper()
	c, err := NewClient(Config{Token: "abc"}, transport)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func queryPairs(rawURL string) []string {
	_, query, _ := strings.Cut(rawURL, "?")
	return strings.Split(query, "&")
}
