package domain

import "time"

// Domain contains the GroupMe entities decoded from API responses.

// MaxMessages is the page limit requested from the messages endpoint.
const MaxMessages = 100

// Group is a chat group the token's user belongs to.
type Group struct {
	ID            string               `json:"id"`
	GroupID       string               `json:"group_id"`
	Name          string               `json:"name"`
	Type          string               `json:"type"`
	Description   string               `json:"description"`
	ImageURL      string               `json:"image_url"`
	CreatorUserID string               `json:"creator_user_id"`
	CreatedAt     int64                `json:"created_at"`
	UpdatedAt     int64                `json:"updated_at"`
	ShareURL      string               `json:"share_url"`
	Members       []Member             `json:"members"`
	Messages      GroupMessagesSummary `json:"messages"`
}

// Member is a user's membership in a group.
type Member struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	ImageURL string `json:"image_url"`
	Muted    bool   `json:"muted"`
}

// GroupMessagesSummary is the message metadata embedded in a group payload.
type GroupMessagesSummary struct {
	Count                int    `json:"count"`
	LastMessageID        string `json:"last_message_id"`
	LastMessageCreatedAt int64  `json:"last_message_created_at"`
}

// MemberByUserID returns the member entry for userID, if present.
func (g Group) MemberByUserID(userID string) (Member, bool) {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// Message is a single message posted to a group.
type Message struct {
	ID          string       `json:"id"`
	SourceGUID  string       `json:"source_guid"`
	GroupID     string       `json:"group_id"`
	UserID      string       `json:"user_id"`
	SenderType  string       `json:"sender_type"`
	Name        string       `json:"name"`
	AvatarURL   string       `json:"avatar_url"`
	Text        string       `json:"text"`
	System      bool         `json:"system"`
	CreatedAt   int64        `json:"created_at"`
	FavoritedBy []string     `json:"favorited_by"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is an image, location, mention, emoji or split attached to a message.
type Attachment struct {
	Type        string    `json:"type"`
	URL         string    `json:"url,omitempty"`
	Name        string    `json:"name,omitempty"`
	Lat         string    `json:"lat,omitempty"`
	Lng         string    `json:"lng,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Charmap     [][]int   `json:"charmap,omitempty"`
	UserIDs     []string  `json:"user_ids,omitempty"`
	Loci        [][]int64 `json:"loci,omitempty"`
}

// LikeCount returns the number of users who liked the message.
func (m Message) LikeCount() int { return len(m.FavoritedBy) }

// CreatedTime converts CreatedAt (unix seconds) to time.Time in UTC.
func (m Message) CreatedTime() time.Time { return time.Unix(m.CreatedAt, 0).UTC() }

// LikedBy reports whether userID is among the users who liked the message.
func (m Message) LikedBy(userID string) bool {
	for _, id := range m.FavoritedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// MessagePage is one page of a group's message history.
//
// Ordering is exactly what the server returned: pages fetched with an
// after cursor are oldest-first, pages fetched with a before cursor are
// newest-first.
type MessagePage struct {
	Count    int       `json:"count"`
	Messages []Message `json:"messages"`
}

// Len returns the number of messages in the page.
func (p MessagePage) Len() int { return len(p.Messages) }

// Last returns the final message of the page, which is the cursor for the
// next call in the same direction.
func (p MessagePage) Last() (Message, bool) {
	if len(p.Messages) == 0 {
		return Message{}, false
	}
	return p.Messages[len(p.Messages)-1], true
}

// Exhausted reports whether the page is shorter than MaxMessages, meaning
// there is nothing further in the requested direction.
func (p MessagePage) Exhausted() bool { return len(p.Messages) < MaxMessages }

// LinkPreview is the metadata scraped from the first link in a message.
type LinkPreview struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}
