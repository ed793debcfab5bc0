package publishers

import (
	"context"

	"github.com/Adda-Baaj/groupkit/internal/logger"
)

// Publisher sends events to a downstream sink (SQS, SNS, Pub/Sub, HTTP).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Closer is implemented by publishers holding connections that need releasing.
type Closer interface {
	Close() error
}

// Logger is the logging surface publishers rely on.
type Logger = logger.Logger
