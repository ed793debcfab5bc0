package publishers

import "github.com/Adda-Baaj/groupkit/internal/domain"

func sampleEvent() Event {
	return NewEvent("g1", "Book Club", domain.Message{
		ID:     "m1",
		UserID: "u1",
		Name:   "Ann",
		Text:   "see https://example.com",
	}, &domain.LinkPreview{URL: "https://example.com", Title: "Example"})
}
