// Package watchlist loads the set of GroupMe groups the tools operate on
// from a YAML or JSON file.
package watchlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Group is one watched group entry.
type Group struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	// Relay forwards new messages of the group to the configured publishers.
	Relay bool `json:"relay" yaml:"relay"`
	// LikeUserIDs lists members whose messages the liker acts on.
	LikeUserIDs []string `json:"like_user_ids" yaml:"like_user_ids"`
}

// Label returns the display name, falling back to the id.
func (g Group) Label() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// Watchlist is an immutable, validated set of groups.
type Watchlist struct {
	groups []Group
	idx    map[string]Group
}

type file struct {
	Groups []Group `json:"groups" yaml:"groups"`
}

// Load reads and validates the groups file at path.
func Load(path string) (*Watchlist, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("groups file path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open groups file: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read groups file: %w", err)
	}

	return Parse(raw, filepath.Ext(path))
}

// Parse decodes data using ext (".yaml", ".yml", ".json" or "" to try all).
func Parse(data []byte, ext string) (*Watchlist, error) {
	parsed, err := parseFile(data, ext)
	if err != nil {
		return nil, err
	}
	if len(parsed.Groups) == 0 {
		return nil, errors.New("groups file contains no groups entries")
	}

	w := &Watchlist{
		groups: make([]Group, 0, len(parsed.Groups)),
		idx:    make(map[string]Group, len(parsed.Groups)),
	}
	for i := range parsed.Groups {
		g := sanitizeGroup(parsed.Groups[i])
		if err := validateGroup(g); err != nil {
			return nil, fmt.Errorf("group[%d]: %w", i, err)
		}
		if _, exists := w.idx[g.ID]; exists {
			return nil, fmt.Errorf("duplicate group id %q", g.ID)
		}
		w.groups = append(w.groups, g)
		w.idx[g.ID] = g
	}
	return w, nil
}

type unmarshalFn func([]byte, any) error

func parseFile(data []byte, ext string) (file, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var errs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var out file
		if err := d.fn(data, &out); err != nil {
			errs = append(errs, fmt.Errorf("decode %s groups: %w", d.name, err))
			continue
		}
		return out, nil
	}
	if len(errs) == 0 {
		return file{}, fmt.Errorf("groups file extension %q not recognized (expected YAML or JSON)", ext)
	}
	return file{}, errors.Join(errs...)
}

func sanitizeGroup(g Group) Group {
	g.ID = strings.TrimSpace(g.ID)
	g.Name = strings.TrimSpace(g.Name)

	ids := make([]string, 0, len(g.LikeUserIDs))
	seen := make(map[string]struct{}, len(g.LikeUserIDs))
	for _, id := range g.LikeUserIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	g.LikeUserIDs = ids
	return g
}

func validateGroup(g Group) error {
	if g.ID == "" {
		return errors.New("id is required")
	}
	if strings.ContainsAny(g.ID, "/?#& ") {
		return fmt.Errorf("id %q contains characters not allowed in a group id", g.ID)
	}
	return nil
}

// All returns a copy of every group in file order.
func (w *Watchlist) All() []Group {
	out := make([]Group, len(w.groups))
	copy(out, w.groups)
	return out
}

// ByID returns the group entry for id, if present.
func (w *Watchlist) ByID(id string) (Group, bool) {
	g, ok := w.idx[strings.TrimSpace(id)]
	return g, ok
}

// Relayed returns the groups with relay enabled.
func (w *Watchlist) Relayed() []Group {
	var out []Group
	for _, g := range w.groups {
		if g.Relay {
			out = append(out, g)
		}
	}
	return out
}

// Liked returns the groups that name at least one member to like.
func (w *Watchlist) Liked() []Group {
	var out []Group
	for _, g := range w.groups {
		if len(g.LikeUserIDs) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Select narrows the list to ids, in the order given. An empty ids returns All.
func (w *Watchlist) Select(ids []string) ([]Group, error) {
	if len(ids) == 0 {
		return w.All(), nil
	}
	out := make([]Group, 0, len(ids))
	for _, id := range ids {
		g, ok := w.ByID(id)
		if !ok {
			return nil, fmt.Errorf("group %q is not in the groups file", id)
		}
		out = append(out, g)
	}
	return out, nil
}
