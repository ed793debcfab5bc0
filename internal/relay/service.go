// Package relay forwards new messages of watched groups to the configured
// publishers, checkpointing progress per group.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/internal/logger"
	"github.com/Adda-Baaj/groupkit/internal/storage"
	"github.com/Adda-Baaj/groupkit/pkg/publishers"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

const relayAction = "relay"

// Result summarises one relay pass over a group.
type Result struct {
	GroupID   string `json:"group_id"`
	Seeded    bool   `json:"seeded"`
	Published int    `json:"published"`
	Skipped   int    `json:"skipped"`
	Cursor    string `json:"cursor"`
}

// Service coordinates relaying across groups.
type Service struct {
	source    Source
	store     Checkpoints
	previewer Previewer
	publisher EventPublisher
	log       logger.Logger

	// cursors mirrors saved checkpoints for stores that keep none.
	mu      sync.Mutex
	cursors map[string]string
}

// NewService wires the relay. previewer may be nil to skip link previews.
func NewService(source Source, store Checkpoints, previewer Previewer, pub EventPublisher, log logger.Logger) *Service {
	return &Service{
		source:    source,
		store:     store,
		previewer: previewer,
		publisher: pub,
		log:       logger.Ensure(log),
		cursors:   make(map[string]string),
	}
}

// Run relays every group and joins the per-group failures.
func (s *Service) Run(ctx context.Context, groups []watchlist.Group) error {
	if s == nil || s.source == nil || s.store == nil || s.publisher == nil {
		return fmt.Errorf("relay service is not initialized")
	}
	if len(groups) == 0 {
		return fmt.Errorf("no groups configured for relay")
	}

	errs := s.runAll(ctx, groups)
	return errors.Join(errs...)
}

func (s *Service) runAll(ctx context.Context, groups []watchlist.Group) []error {
	var errs []error
	for _, g := range groups {
		if ctx.Err() != nil {
			return errs
		}
		res, err := s.RelayGroup(ctx, g)
		if err != nil {
			if ctx.Err() != nil {
				return errs
			}
			errs = append(errs, err)
			s.log.ErrorObj("group relay failed", "relay_error", map[string]any{
				"group_id": g.ID,
				"error":    err.Error(),
			})
			continue
		}
		s.log.InfoObj("group relay completed", "relay_result", res)
	}
	return errs
}

// RelayGroup publishes the messages posted to g since its checkpoint.
//
// The first time a group is seen its cursor is seeded with the newest
// message id and nothing is published, so enabling relay does not replay
// the whole history. The cursor is saved after every page; messages are
// marked individually so a pass that fails mid-page does not publish them
// twice when it is retried.
func (s *Service) RelayGroup(ctx context.Context, g watchlist.Group) (Result, error) {
	res := Result{GroupID: g.ID}

	cursor, err := s.cursor(g.ID)
	if err != nil {
		return res, err
	}
	if cursor == "" {
		return s.seed(ctx, g)
	}
	res.Cursor = cursor

	_, err = history.Walk(ctx, s.source, g.ID, history.Forward, cursor, func(page domain.MessagePage) error {
		for _, msg := range page.Messages {
			published, err := s.relayMessage(ctx, g, msg)
			if err != nil {
				return err
			}
			if published {
				res.Published++
			} else {
				res.Skipped++
			}
		}
		last, _ := page.Last()
		if err := s.saveCursor(g.ID, last.ID); err != nil {
			return err
		}
		res.Cursor = last.ID
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("relay group %s: %w", g.ID, err)
	}
	return res, nil
}

func (s *Service) seed(ctx context.Context, g watchlist.Group) (Result, error) {
	group, err := s.source.GetGroup(ctx, g.ID)
	if err != nil {
		return Result{GroupID: g.ID}, fmt.Errorf("seed cursor for group %s: %w", g.ID, err)
	}
	cursor := group.Messages.LastMessageID
	if cursor == "" {
		cursor = history.StartOfHistory
	}
	if err := s.saveCursor(g.ID, cursor); err != nil {
		return Result{GroupID: g.ID}, err
	}
	return Result{GroupID: g.ID, Seeded: true, Cursor: cursor}, nil
}

// cursor prefers the stored checkpoint and falls back to the one kept in memory.
func (s *Service) cursor(groupID string) (string, error) {
	cursor, err := s.store.Cursor(groupID)
	if err != nil {
		return "", fmt.Errorf("load cursor for group %s: %w", groupID, err)
	}
	if cursor != "" {
		return cursor, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[groupID], nil
}

func (s *Service) saveCursor(groupID, messageID string) error {
	if err := s.store.SaveCursor(groupID, messageID); err != nil {
		return fmt.Errorf("save cursor for group %s: %w", groupID, err)
	}
	s.mu.Lock()
	s.cursors[groupID] = messageID
	s.mu.Unlock()
	return nil
}

// relayMessage publishes msg unless it is a system notice or was already relayed.
func (s *Service) relayMessage(ctx context.Context, g watchlist.Group, msg domain.Message) (bool, error) {
	if msg.System {
		return false, nil
	}
	key := storage.MessageKey(relayAction, g.ID, msg.ID)
	if s.alreadyRelayed(g, key) {
		return false, nil
	}

	evt := publishers.NewEvent(g.ID, g.Label(), msg, s.preview(ctx, g, msg))
	delivered, err := s.publisher.Publish(ctx, evt)
	if err != nil {
		if delivered == 0 {
			return false, fmt.Errorf("publish message %s: %w", msg.ID, err)
		}
		s.log.WarnObj("message reached only some publishers", "relay_partial", map[string]any{
			"group_id":   g.ID,
			"message_id": msg.ID,
			"delivered":  delivered,
			"error":      err.Error(),
		})
	}

	if err := s.store.MarkMessage(key); err != nil {
		return true, fmt.Errorf("mark message %s: %w", msg.ID, err)
	}
	return true, nil
}

// alreadyRelayed treats lookup failures as unseen so a broken cache never
// silently drops messages.
func (s *Service) alreadyRelayed(g watchlist.Group, key string) bool {
	seen, err := s.store.SeenMessage(key)
	if err != nil {
		s.log.WarnObj("relay dedupe lookup failed", "relay_dedupe_error", map[string]any{
			"group_id": g.ID,
			"key":      key,
			"error":    err.Error(),
		})
		return false
	}
	return seen
}

func (s *Service) preview(ctx context.Context, g watchlist.Group, msg domain.Message) *domain.LinkPreview {
	if s.previewer == nil {
		return nil
	}
	link := FirstLink(msg)
	if link == "" {
		return nil
	}
	p, err := s.previewer.Preview(ctx, link)
	if err != nil {
		s.log.WarnObj("link preview failed", "preview_error", map[string]any{
			"group_id":   g.ID,
			"message_id": msg.ID,
			"url":        link,
			"error":      err.Error(),
		})
		return nil
	}
	return &p
}
