// Package storage keeps relay checkpoints and the set of handled messages.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store tracks per-group cursors and message keys that were already acted on.
type Store interface {
	Close() error
	// Cursor returns the last message id processed for groupID, or "" if none.
	Cursor(groupID string) (string, error)
	SaveCursor(groupID, messageID string) error
	// SeenMessage reports whether key was marked and has not yet expired.
	SeenMessage(key string) (bool, error)
	MarkMessage(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	MessageTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultMessageTTL      = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// MessageKey namespaces a message id by the action taken on it, so that
// relaying a message and liking it are tracked independently.
func MessageKey(action, groupID, messageID string) string {
	return action + ":" + groupID + ":" + messageID
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// Persistent reports whether typ keeps cursors and message keys across restarts.
func Persistent(typ string) bool {
	return strings.TrimSpace(strings.ToLower(typ)) == "bbolt"
}

func normalizeOptions(opts Options) Options {
	if opts.MessageTTL <= 0 {
		opts.MessageTTL = defaultMessageTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Cursor(string) (string, error)    { return "", nil }
func (noopStore) SaveCursor(string, string) error  { return nil }
func (noopStore) SeenMessage(string) (bool, error) { return false, nil }
func (noopStore) MarkMessage(string) error         { return nil }
