// Package history walks a group's message history page by page on top of the
// single-page calls exposed by the GroupMe client.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/domain"
)

// Pager fetches one page of messages per call.
type Pager interface {
	GetMessagesAfter(ctx context.Context, groupID, afterID string) (domain.MessagePage, error)
	GetMessagesBefore(ctx context.Context, groupID, beforeID string) (domain.MessagePage, error)
}

// Direction selects which cursor a walk advances.
type Direction int

const (
	// Forward walks oldest to newest using after_id.
	Forward Direction = iota
	// Backward walks newest to oldest using before_id.
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// StartOfHistory is the after_id cursor that begins a forward walk at the
// group's first message.
const StartOfHistory = "0"

// ErrStop may be returned by a visit function to end a walk without error.
var ErrStop = errors.New("stop walk")

// VisitFunc receives each page in call order.
type VisitFunc func(page domain.MessagePage) error

// Walk fetches pages from cursor in dir until a short page arrives or visit
// returns ErrStop. It returns the cursor to resume from: the id of the last
// message seen, or the starting cursor if nothing was returned.
func Walk(ctx context.Context, pager Pager, groupID string, dir Direction, cursor string, visit VisitFunc) (string, error) {
	if pager == nil {
		return cursor, errors.New("pager is nil")
	}
	for {
		if err := ctx.Err(); err != nil {
			return cursor, err
		}

		var (
			page domain.MessagePage
			err  error
		)
		if dir == Backward {
			page, err = pager.GetMessagesBefore(ctx, groupID, cursor)
		} else {
			page, err = pager.GetMessagesAfter(ctx, groupID, cursor)
		}
		if err != nil {
			return cursor, fmt.Errorf("%s page from %s: %w", dir, cursor, err)
		}

		if last, ok := page.Last(); ok {
			cursor = last.ID
		}
		if visit != nil && page.Len() > 0 {
			if err := visit(page); err != nil {
				if errors.Is(err, ErrStop) {
					return cursor, nil
				}
				return cursor, err
			}
		}
		if page.Exhausted() {
			return cursor, nil
		}
	}
}

// Recent visits the messages of groupID created at or after since, starting
// from pivotID (normally the group's last message id). A zero since visits the
// whole history.
//
// before_id never returns the pivot itself, so the walk runs in two legs:
// messages older than the pivot newest first, then one forward call from the
// newest of those that yields the pivot and anything posted meanwhile, also
// newest first. visit may return ErrStop to end both legs.
func Recent(ctx context.Context, pager Pager, groupID, pivotID string, since time.Time, visit func(domain.Message) error) error {
	if pivotID == "" {
		return nil
	}
	newest := ""
	stopped := false
	tooOld := func(m domain.Message) bool {
		return !since.IsZero() && m.CreatedTime().Before(since)
	}

	_, err := Walk(ctx, pager, groupID, Backward, pivotID, func(page domain.MessagePage) error {
		for _, m := range page.Messages {
			if newest == "" {
				newest = m.ID
			}
			if tooOld(m) {
				return ErrStop
			}
			if err := visit(m); err != nil {
				if errors.Is(err, ErrStop) {
					stopped = true
				}
				return err
			}
		}
		return nil
	})
	if err != nil || stopped {
		return err
	}

	from := newest
	if from == "" {
		// Nothing precedes the pivot, so it is the first message.
		from = StartOfHistory
	}
	top, err := pager.GetMessagesAfter(ctx, groupID, from)
	if err != nil {
		return fmt.Errorf("forward page from %s: %w", from, err)
	}
	for i := len(top.Messages) - 1; i >= 0; i-- {
		m := top.Messages[i]
		if tooOld(m) {
			continue
		}
		if err := visit(m); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return nil
}
