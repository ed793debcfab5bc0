package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adda-Baaj/groupkit/internal/domain"
	"github.com/Adda-Baaj/groupkit/internal/history"
	"github.com/Adda-Baaj/groupkit/internal/logger"
	"github.com/Adda-Baaj/groupkit/pkg/csvwriter"
	"github.com/Adda-Baaj/groupkit/pkg/groupme"
	"github.com/Adda-Baaj/groupkit/pkg/progress"
	"github.com/Adda-Baaj/groupkit/pkg/watchlist"
)

// exportColumns is the fixed column order of a message export.
var exportColumns = []string{
	"id", "created_at", "user_id", "name", "text",
	"likes", "liked_by", "attachments", "system",
}

// ExportOptions configures where exports and progress go.
type ExportOptions struct {
	OutputDir     string
	Zero          string
	Progress      io.Writer
	ProgressWidth int
}

// ExportResult describes one written export.
type ExportResult struct {
	GroupID  string `json:"group_id"`
	Path     string `json:"path"`
	Messages int    `json:"messages"`
}

// Exporter writes a group's full history to CSV.
type Exporter struct {
	api  groupme.API
	opts ExportOptions
	log  logger.Logger
}

// NewExporter wires an exporter around the API client.
func NewExporter(api groupme.API, opts ExportOptions, log logger.Logger) *Exporter {
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &Exporter{api: api, opts: opts, log: logger.Ensure(log)}
}

// Run exports every group, continuing past failures, and joins the errors.
func (e *Exporter) Run(ctx context.Context, groups []watchlist.Group) error {
	var errs []error
	for _, g := range groups {
		res, err := e.ExportGroup(ctx, g)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.ErrorObj("group export failed", "export_error", map[string]any{
				"group_id": g.ID,
				"error":    err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		e.log.InfoObj("group export completed", "export_result", res)
	}
	return errors.Join(errs...)
}

// ExportGroup walks g from its first message and writes <output>/<id>.csv,
// oldest message first. The progress bar is sized from the group's reported
// message count; messages posted during the walk are still exported.
func (e *Exporter) ExportGroup(ctx context.Context, g watchlist.Group) (ExportResult, error) {
	res := ExportResult{GroupID: g.ID}

	group, err := e.api.GetGroup(ctx, g.ID)
	if err != nil {
		return res, fmt.Errorf("export group %s: %w", g.ID, err)
	}

	fmt.Fprintf(e.opts.Progress, "%s (%d messages)\n", g.Label(), group.Messages.Count)
	bar := progress.New(e.opts.Progress, e.opts.ProgressWidth, group.Messages.Count)
	out := csvwriter.New(exportColumns, e.opts.Zero)

	_, err = history.Walk(ctx, e.api, g.ID, history.Forward, history.StartOfHistory, func(page domain.MessagePage) error {
		for _, m := range page.Messages {
			out.AddRow(exportRow(group, m))
			_ = bar.Update()
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("export group %s: %w", g.ID, err)
	}
	if err := bar.Err(); err != nil {
		e.log.WarnObj("progress output failed", "export_progress_error", map[string]any{
			"group_id": g.ID,
			"error":    err.Error(),
		})
	}

	res.Path = filepath.Join(e.opts.OutputDir, g.ID+".csv")
	res.Messages = out.Len()
	if err := out.WriteFile(res.Path, true); err != nil {
		return res, fmt.Errorf("write export for group %s: %w", g.ID, err)
	}
	return res, nil
}

func exportRow(group domain.Group, m domain.Message) map[string]any {
	likers := make([]string, 0, len(m.FavoritedBy))
	for _, id := range m.FavoritedBy {
		if member, ok := group.MemberByUserID(id); ok && member.Nickname != "" {
			likers = append(likers, member.Nickname)
			continue
		}
		likers = append(likers, id)
	}
	types := make([]string, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		types = append(types, a.Type)
	}

	row := map[string]any{
		"id":         m.ID,
		"created_at": m.CreatedTime().Format(time.RFC3339),
		"user_id":    m.UserID,
		"name":       m.Name,
		"text":       m.Text,
		"likes":      m.LikeCount(),
		"system":     m.System,
	}
	if len(likers) > 0 {
		row["liked_by"] = strings.Join(likers, ";")
	}
	if len(types) > 0 {
		row["attachments"] = strings.Join(types, ";")
	}
	return row
}
