package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/groupkit/internal/domain"
)

// Event represents a relayed GroupMe message published downstream.
type Event struct {
	ID        string              `json:"id"`
	GroupID   string              `json:"group_id"`
	GroupName string              `json:"group_name"`
	Message   domain.Message      `json:"message"`
	Preview   *domain.LinkPreview `json:"preview,omitempty"`
	RelayedAt time.Time           `json:"relayed_at"`
}

// NewEvent constructs an Event for a message of the given group.
func NewEvent(groupID, groupName string, msg domain.Message, preview *domain.LinkPreview) Event {
	return Event{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		GroupName: groupName,
		Message:   msg,
		Preview:   preview,
		RelayedAt: time.Now().UTC(),
	}
}

// attributes are the routing fields every sink attaches next to the payload.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id":   e.ID,
		"group_id":   e.GroupID,
		"message_id": e.Message.ID,
		"sender_id":  e.Message.UserID,
	}
}
