package relay

import (
	"context"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/pkg/publishers"
)

// Source is the part of the GroupMe client the relay reads from.
type Source interface {
	history.Pager
	GetGroup(ctx context.Context, groupID string) (domain.Group, error)
}

// Previewer builds link previews for messages that carry a URL.
type Previewer interface {
	Preview(ctx context.Context, link string) (domain.LinkPreview, error)
}

// EventPublisher publishes relayed messages downstream. It reports how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Checkpoints persists relay progress.
type Checkpoints interface {
	Cursor(groupID string) (string, error)
	SaveCursor(groupID, messageID string) error
	SeenMessage(key string) (bool, error)
	MarkMessage(key string) error
}
