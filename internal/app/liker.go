package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/internal/logger"
	"github.com/Adda-Baaj/groupkit/internal/storage"
	"github.com/Adda-Baaj/groupkit/pkg/groupme"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

// MessageMarks remembers which messages were already acted on.
type MessageMarks interface {
	SeenMessage(key string) (bool, error)
	MarkMessage(key string) error
}

// LikeOptions configures a liker run.
type LikeOptions struct {
	// Since limits the scan to messages created at or after it. Zero scans everything.
	Since  time.Time
	Unlike bool
	DryRun bool
}

// LikeSummary counts the outcome of one group pass.
type LikeSummary struct {
	GroupID string `json:"group_id"`
	Scanned int    `json:"scanned"`
	Matched int    `json:"matched"`
	Sent    int    `json:"sent"`
	// Unconfirmed counts requests that got a response but not a 2xx status.
	Unconfirmed int `json:"unconfirmed"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// Liker likes (or unlikes) recent messages posted by configured members.
type Liker struct {
	api   groupme.API
	marks MessageMarks
	opts  LikeOptions
	log   logger.Logger
}

// NewLiker wires a liker. marks may be nil to act on every match.
func NewLiker(api groupme.API, marks MessageMarks, opts LikeOptions, log logger.Logger) *Liker {
	return &Liker{api: api, marks: marks, opts: opts, log: logger.Ensure(log)}
}

func (l *Liker) action() string {
	if l.opts.Unlike {
		return "unlike"
	}
	return "like"
}

// Run processes groups that list members to like and joins the failures.
func (l *Liker) Run(ctx context.Context, groups []watchlist.Group) error {
	var errs []error
	for _, g := range groups {
		if len(g.LikeUserIDs) == 0 {
			continue
		}
		sum, err := l.LikeGroup(ctx, g)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.ErrorObj("group like pass failed", "like_error", map[string]any{
				"group_id": g.ID,
				"error":    err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		l.log.InfoObj("group like pass completed", "like_summary", sum)
	}
	return errors.Join(errs...)
}

// LikeGroup walks g newest first back to Since and sends a like or unlike
// for each message whose sender is in g.LikeUserIDs.
//
// A request counts as sent whenever the server answered, whatever the
// status: that is the contract of groupme.LikeResult.OK. Answers without a
// 2xx status are logged and counted as unconfirmed. Transport failures are
// counted and the pass continues with the next message.
func (l *Liker) LikeGroup(ctx context.Context, g watchlist.Group) (LikeSummary, error) {
	sum := LikeSummary{GroupID: g.ID}

	group, err := l.api.GetGroup(ctx, g.ID)
	if err != nil {
		return sum, fmt.Errorf("%s pass for group %s: %w", l.action(), g.ID, err)
	}

	err = history.Recent(ctx, l.api, g.ID, group.Messages.LastMessageID, l.opts.Since, func(m domain.Message) error {
		sum.Scanned++
		if m.System || !slices.Contains(g.LikeUserIDs, m.UserID) {
			return nil
		}
		sum.Matched++
		return l.handle(ctx, g, m, &sum)
	})
	if err != nil {
		return sum, fmt.Errorf("%s pass for group %s: %w", l.action(), g.ID, err)
	}
	return sum, nil
}

func (l *Liker) handle(ctx context.Context, g watchlist.Group, m domain.Message, sum *LikeSummary) error {
	key := storage.MessageKey(l.action(), g.ID, m.ID)
	if l.marked(key) {
		sum.Skipped++
		return nil
	}

	if l.opts.DryRun {
		l.log.InfoObj("dry run: would "+l.action()+" message", "like_target", map[string]any{
			"group_id":   g.ID,
			"message_id": m.ID,
			"sender":     m.Name,
		})
		sum.Skipped++
		return nil
	}

	var (
		res groupme.LikeResult
		err error
	)
	if l.opts.Unlike {
		res, err = l.api.Unlike(ctx, m)
	} else {
		res, err = l.api.Like(ctx, m)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sum.Failed++
		l.log.WarnObj(l.action()+" request failed", "like_failure", map[string]any{
			"group_id":   g.ID,
			"message_id": m.ID,
			"error":      err.Error(),
		})
		return nil
	}
	if !res.OK() {
		sum.Failed++
		return nil
	}

	sum.Sent++
	if !res.Confirmed() {
		sum.Unconfirmed++
		l.log.WarnObj(l.action()+" answered without success status", "like_result", map[string]any{
			"group_id":   g.ID,
			"message_id": m.ID,
			"status":     res.StatusCode,
			"body":       string(res.Body),
		})
	}
	if l.marks != nil {
		if err := l.marks.MarkMessage(key); err != nil {
			return fmt.Errorf("mark message %s: %w", m.ID, err)
		}
	}
	return nil
}

func (l *Liker) marked(key string) bool {
	if l.marks == nil {
		return false
	}
	seen, err := l.marks.SeenMessage(key)
	if err != nil {
		l.log.WarnObj("like dedupe lookup failed", "like_dedupe_error", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		return false
	}
	return seen
}
