package groupme

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/groupkit/internal/domain"
)

// Shape tags the entity a response body is decoded into.
type Shape int

const (
	ShapeGroup Shape = iota + 1
	ShapeGroups
	ShapeMessage
	ShapeMessagePage
)

func (s Shape) String() string {
	switch s {
	case ShapeGroup:
		return "group"
	case ShapeGroups:
		return "group list"
	case ShapeMessage:
		return "message"
	case ShapeMessagePage:
		return "message page"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// DecodeFunc turns a raw response body into a typed value.
type DecodeFunc func(body []byte) (any, error)

// Decoder holds one decode rule per shape. It is immutable after NewDecoder
// and safe for concurrent use.
type Decoder struct {
	rules map[Shape]DecodeFunc
}

// NewDecoder returns a decoder with the GroupMe rules registered.
func NewDecoder() *Decoder {
	return &Decoder{rules: map[Shape]DecodeFunc{
		ShapeGroup:       decodeGroup,
		ShapeGroups:      decodeGroups,
		ShapeMessage:     decodeMessage,
		ShapeMessagePage: decodeMessagePage,
	}}
}

// Rule returns the decode function registered for shape.
func (d *Decoder) Rule(shape Shape) (DecodeFunc, bool) {
	if d == nil {
		return nil, false
	}
	fn, ok := d.rules[shape]
	return fn, ok
}

// Decode runs the rule registered for shape.
func (d *Decoder) Decode(shape Shape, body []byte) (any, error) {
	fn, ok := d.Rule(shape)
	if !ok {
		return nil, fmt.Errorf("no decode rule for %s", shape)
	}
	return fn(body)
}

func decodeAs[T any](d *Decoder, shape Shape, body []byte) (T, error) {
	var zero T
	v, err := d.Decode(shape, body)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("rule for %s produced %T", shape, v)
	}
	return out, nil
}

var errEmptyBody = errors.New("empty response body")

// envelope is the wrapper GroupMe puts around every payload.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Meta     struct {
		Code   int      `json:"code"`
		Errors []string `json:"errors"`
	} `json:"meta"`
}

func unwrap(body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if len(env.Response) == 0 || bytes.Equal(env.Response, []byte("null")) {
		if len(env.Meta.Errors) > 0 {
			return nil, fmt.Errorf("no response payload (meta code %d: %s)", env.Meta.Code, strings.Join(env.Meta.Errors, "; "))
		}
		return nil, fmt.Errorf("no response payload (meta code %d)", env.Meta.Code)
	}
	return env.Response, nil
}

func decodeGroup(body []byte) (any, error) {
	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	var g domain.Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	if g.ID == "" {
		return nil, errors.New("group id missing")
	}
	return g, nil
}

func decodeGroups(body []byte) (any, error) {
	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	var groups []domain.Group
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, err
	}
	for i, g := range groups {
		if g.ID == "" {
			return nil, fmt.Errorf("group[%d] id missing", i)
		}
	}
	if groups == nil {
		groups = []domain.Group{}
	}
	return groups, nil
}

func decodeMessage(body []byte) (any, error) {
	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	// Single-message payloads arrive either bare or as {"message": {...}}.
	var wrapped struct {
		Message *domain.Message `json:"message"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	var m domain.Message
	if wrapped.Message != nil {
		m = *wrapped.Message
	} else if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m.ID == "" {
		return nil, errors.New("message id missing")
	}
	return m, nil
}

func decodeMessagePage(body []byte) (any, error) {
	raw, err := unwrap(body)
	if err != nil {
		return nil, err
	}
	var page domain.MessagePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, err
	}
	if len(page.Messages) > domain.MaxMessages {
		return nil, fmt.Errorf("page holds %d messages, limit is %d", len(page.Messages), domain.MaxMessages)
	}
	for i, m := range page.Messages {
		if m.ID == "" {
			return nil, fmt.Errorf("message[%d] id missing", i)
		}
	}
	return page, nil
}
