package groupme

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/pkg/httpclient"
)

const (
	defaultUserAgent = "groupkit/0.1"
	defaultTimeout   = 15 * time.Second
	snippetLimit     = 512
)

// API is the set of GroupMe operations exposed by *Client.
type API interface {
	ListGroups(ctx context.Context) ([]domain.Group, error)
	GetGroup(ctx context.Context, id string) (domain.Group, error)
	GetMessagesAfter(ctx context.Context, groupID, afterID string) (domain.MessagePage, error)
	GetMessagesBefore(ctx context.Context, groupID, beforeID string) (domain.MessagePage, error)
	LikeMessage(ctx context.Context, groupID, messageID string) (LikeResult, error)
	UnlikeMessage(ctx context.Context, groupID, messageID string) (LikeResult, error)
	Like(ctx context.Context, m domain.Message) (LikeResult, error)
	Unlike(ctx context.Context, m domain.Message) (LikeResult, error)
}

var _ API = (*Client)(nil)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Token     string
	UserAgent string
}

// Client talks to the GroupMe v3 API. It holds no per-call state and is safe
// for concurrent use as long as its transport is.
type Client struct {
	baseURL string
	token   string
	headers map[string]string
	http    httpclient.Client
	decoder *Decoder
}

// NewClient builds a Client. A nil transport falls back to a resty client.
func NewClient(cfg Config, transport httpclient.Client) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("groupme token is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	if transport == nil {
		transport = httpclient.NewRestyClient(defaultTimeout)
	}
	return &Client{
		baseURL: base,
		token:   token,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": ua,
		},
		http:    transport,
		decoder: NewDecoder(),
	}, nil
}

// ListGroups returns the groups the token's user belongs to.
func (c *Client) ListGroups(ctx context.Context) ([]domain.Group, error) {
	resp, err := c.get(ctx, "/groups", nil)
	if err != nil {
		return nil, err
	}
	return decodeResponse[[]domain.Group](c.decoder, ShapeGroups, resp)
}

// GetGroup returns the group with the given id. A nonexistent id surfaces as
// whatever the server body decodes to, normally a *DecodeError.
func (c *Client) GetGroup(ctx context.Context, id string) (domain.Group, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Group{}, &MalformedRequestError{Target: "/groups/", Reason: "group id is empty"}
	}
	resp, err := c.get(ctx, "/groups/"+id, nil)
	if err != nil {
		return domain.Group{}, err
	}
	return decodeResponse[domain.Group](c.decoder, ShapeGroup, resp)
}

// GetMessagesAfter returns up to domain.MaxMessages messages posted after
// afterID, oldest first (index 0 is the oldest). Feed the last element's id
// back in to continue forward.
func (c *Client) GetMessagesAfter(ctx context.Context, groupID, afterID string) (domain.MessagePage, error) {
	return c.messages(ctx, groupID, "after_id", afterID)
}

// GetMessagesBefore returns up to domain.MaxMessages messages posted before
// beforeID, newest first (index 0 is the newest). Feed the last element's id
// back in to continue backward.
func (c *Client) GetMessagesBefore(ctx context.Context, groupID, beforeID string) (domain.MessagePage, error) {
	return c.messages(ctx, groupID, "before_id", beforeID)
}

func (c *Client) messages(ctx context.Context, groupID, cursorParam, cursor string) (domain.MessagePage, error) {
	if strings.TrimSpace(groupID) == "" {
		return domain.MessagePage{}, &MalformedRequestError{Target: "/groups//messages", Reason: "group id is empty"}
	}
	params := map[string]string{
		cursorParam: cursor,
		"limit":     strconv.Itoa(domain.MaxMessages),
	}
	resp, err := c.get(ctx, "/groups/"+groupID+"/messages", params)
	if err != nil {
		return domain.MessagePage{}, err
	}
	// GroupMe answers 304 with no body when nothing lies in that direction.
	if resp.StatusCode() == http.StatusNotModified {
		return domain.MessagePage{Messages: []domain.Message{}}, nil
	}
	return decodeResponse[domain.MessagePage](c.decoder, ShapeMessagePage, resp)
}

// LikeResult is the outcome of a like or unlike call.
type LikeResult struct {
	// Delivered is true when the transport returned any response at all.
	Delivered  bool
	StatusCode int
	Body       []byte
}

// OK reports success the way the API has always been read: any response
// counts, including 4xx/5xx answers carrying an error payload.
func (r LikeResult) OK() bool { return r.Delivered }

// Confirmed reports success only for a delivered 2xx response.
func (r LikeResult) Confirmed() bool {
	return r.Delivered && r.StatusCode >= 200 && r.StatusCode < 300
}

// LikeMessage likes messageID in groupID.
func (c *Client) LikeMessage(ctx context.Context, groupID, messageID string) (LikeResult, error) {
	return c.toggleLike(ctx, groupID, messageID, "like")
}

// UnlikeMessage removes the like from messageID in groupID.
func (c *Client) UnlikeMessage(ctx context.Context, groupID, messageID string) (LikeResult, error) {
	return c.toggleLike(ctx, groupID, messageID, "unlike")
}

// Like likes m using its own group and message ids.
func (c *Client) Like(ctx context.Context, m domain.Message) (LikeResult, error) {
	return c.LikeMessage(ctx, m.GroupID, m.ID)
}

// Unlike removes the like from m.
func (c *Client) Unlike(ctx context.Context, m domain.Message) (LikeResult, error) {
	return c.UnlikeMessage(ctx, m.GroupID, m.ID)
}

func (c *Client) toggleLike(ctx context.Context, groupID, messageID, action string) (LikeResult, error) {
	target := "/messages/" + groupID + "/" + messageID + "/" + action
	if strings.TrimSpace(groupID) == "" || strings.TrimSpace(messageID) == "" {
		return LikeResult{}, &MalformedRequestError{Target: target, Reason: "group id and message id are required"}
	}
	resp, err := c.do(ctx, http.MethodPost, target, nil)
	if err != nil {
		return LikeResult{}, err
	}
	return LikeResult{
		Delivered:  true,
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

func (c *Client) get(ctx context.Context, target string, params map[string]string) (httpclient.Response, error) {
	return c.do(ctx, http.MethodGet, target, params)
}

func (c *Client) do(ctx context.Context, method, target string, params map[string]string) (httpclient.Response, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("groupme client is not initialized")
	}
	reqURL, err := buildURL(c.baseURL, c.token, target, params)
	if err != nil {
		return nil, err
	}

	var resp httpclient.Response
	switch method {
	case http.MethodPost:
		resp, err = c.http.Post(ctx, reqURL, c.headers)
	default:
		resp, err = c.http.Get(ctx, reqURL, c.headers)
	}
	if err == nil && resp == nil {
		err = errors.New("transport returned no response")
	}
	if err != nil {
		return nil, &TransportError{Method: method, URL: redact(reqURL, c.token), Err: err}
	}
	return resp, nil
}

func decodeResponse[T any](d *Decoder, shape Shape, resp httpclient.Response) (T, error) {
	out, err := decodeAs[T](d, shape, resp.Body())
	if err != nil {
		var zero T
		return zero, &DecodeError{
			Shape:      shape,
			StatusCode: resp.StatusCode(),
			Snippet:    responseSnippet(resp.Body()),
			Err:        err,
		}
	}
	return out, nil
}

func responseSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > snippetLimit {
		return s[:snippetLimit] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
