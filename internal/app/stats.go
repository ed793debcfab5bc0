package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/internal/logger"
	"github.com/Adda-Baaj/groupkit/pkg/csvwriter"
	"github.com/Adda-Baaj/groupkit/pkg/groupme"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

const likedByPrefix = "liked_by:"

var statsColumns = []string{"user_id", "name", "messages", "likes_received", "likes_given"}

// MemberStats is the activity of one member over the scanned messages.
type MemberStats struct {
	UserID        string
	Name          string
	Messages      int
	LikesReceived int
	LikesGiven    int
	// LikedBy counts likes received per liking user id.
	LikedBy map[string]int
}

// LikesPerMessage is LikesReceived averaged over Messages.
func (m MemberStats) LikesPerMessage() float64 {
	if m.Messages == 0 {
		return 0
	}
	return float64(m.LikesReceived) / float64(m.Messages)
}

// ComputeStats tallies messages and likes per member. Members listed on the
// group with no messages are included with zero counts, as are former
// members who still appear in msgs. System messages are ignored. The result
// is ordered by message count, most active first.
func ComputeStats(group domain.Group, msgs []domain.Message) []MemberStats {
	human := lo.Filter(msgs, func(m domain.Message, _ int) bool { return !m.System })
	byUser := lo.GroupBy(human, func(m domain.Message) string { return m.UserID })
	given := lo.CountValues(lo.FlatMap(human, func(m domain.Message, _ int) []string { return m.FavoritedBy }))

	names := make(map[string]string, len(group.Members))
	for _, member := range group.Members {
		names[member.UserID] = member.Nickname
	}
	for uid, sent := range byUser {
		if _, ok := names[uid]; !ok {
			names[uid] = sent[len(sent)-1].Name
		}
	}

	out := make([]MemberStats, 0, len(names))
	for uid, name := range names {
		sent := byUser[uid]
		out = append(out, MemberStats{
			UserID:        uid,
			Name:          name,
			Messages:      len(sent),
			LikesReceived: lo.SumBy(sent, func(m domain.Message) int { return m.LikeCount() }),
			LikesGiven:    given[uid],
			LikedBy:       lo.CountValues(lo.FlatMap(sent, func(m domain.Message, _ int) []string { return m.FavoritedBy })),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Messages != out[j].Messages {
			return out[i].Messages > out[j].Messages
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// StatsOptions configures a stats run.
type StatsOptions struct {
	OutputDir string
	Zero      string
	// Since limits the scan to messages created at or after it. Zero scans everything.
	Since time.Time
	// Table receives a rendered summary per group; nil disables it.
	Table io.Writer
}

// Stats computes member activity per group.
type Stats struct {
	api  groupme.API
	opts StatsOptions
	log  logger.Logger
}

// NewStats wires a stats runner around the API client.
func NewStats(api groupme.API, opts StatsOptions, log logger.Logger) *Stats {
	return &Stats{api: api, opts: opts, log: logger.Ensure(log)}
}

// Run computes and writes stats for every group and joins the failures.
func (s *Stats) Run(ctx context.Context, groups []watchlist.Group) error {
	var errs []error
	for _, g := range groups {
		if err := s.RunGroup(ctx, g); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.ErrorObj("group stats failed", "stats_error", map[string]any{
				"group_id": g.ID,
				"error":    err.Error(),
			})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunGroup scans g, writes <output>/<id>-stats.csv and renders the table.
func (s *Stats) RunGroup(ctx context.Context, g watchlist.Group) error {
	group, msgs, err := s.collect(ctx, g.ID)
	if err != nil {
		return fmt.Errorf("stats for group %s: %w", g.ID, err)
	}
	stats := ComputeStats(group, msgs)

	path := filepath.Join(s.opts.OutputDir, g.ID+"-stats.csv")
	if err := statsCSV(stats, s.opts.Zero).WriteFile(path, true); err != nil {
		return fmt.Errorf("write stats for group %s: %w", g.ID, err)
	}
	if s.opts.Table != nil {
		fmt.Fprintf(s.opts.Table, "\n%s: %d messages scanned\n", g.Label(), len(msgs))
		renderStatsTable(s.opts.Table, stats)
	}
	s.log.InfoObj("group stats written", "stats_result", map[string]any{
		"group_id": g.ID,
		"path":     path,
		"messages": len(msgs),
		"members":  len(stats),
	})
	return nil
}

func (s *Stats) collect(ctx context.Context, groupID string) (domain.Group, []domain.Message, error) {
	group, err := s.api.GetGroup(ctx, groupID)
	if err != nil {
		return domain.Group{}, nil, err
	}

	var msgs []domain.Message
	if s.opts.Since.IsZero() {
		_, err = history.Walk(ctx, s.api, groupID, history.Forward, history.StartOfHistory, func(page domain.MessagePage) error {
			msgs = append(msgs, page.Messages...)
			return nil
		})
	} else {
		err = history.Recent(ctx, s.api, groupID, group.Messages.LastMessageID, s.opts.Since, func(m domain.Message) error {
			msgs = append(msgs, m)
			return nil
		})
	}
	return group, msgs, err
}

// statsCSV writes one row per member. Each liker gets a liked_by:<name>
// column; cells for pairs with no likes hold the zero string.
func statsCSV(stats []MemberStats, zero string) *csvwriter.Writer {
	names := lo.SliceToMap(stats, func(m MemberStats) (string, string) { return m.UserID, m.Name })
	w := csvwriter.New(statsColumns, zero)
	for _, m := range stats {
		row := map[string]any{
			"user_id":        m.UserID,
			"name":           m.Name,
			"messages":       m.Messages,
			"likes_received": m.LikesReceived,
			"likes_given":    m.LikesGiven,
		}
		for liker, n := range m.LikedBy {
			label := names[liker]
			if label == "" {
				label = liker
			}
			row[likedByPrefix+label] = n
		}
		w.AddRow(row)
	}
	return w
}

func renderStatsTable(out io.Writer, stats []MemberStats) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Member", "Messages", "Likes Received", "Likes Given", "Likes/Msg"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, m := range stats {
		table.Append([]string{
			m.Name,
			strconv.Itoa(m.Messages),
			strconv.Itoa(m.LikesReceived),
			strconv.Itoa(m.LikesGiven),
			strconv.FormatFloat(m.LikesPerMessage(), 'f', 2, 64),
		})
	}
	table.Render()
}
