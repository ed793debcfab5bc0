// Package csvwriter accumulates rows keyed by column name and writes them as CSV.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Writer collects rows in memory. Columns keep the order they were declared or
// first seen in; cells missing from a row are filled with the zero string.
type Writer struct {
	mu      sync.Mutex
	columns []string
	known   map[string]struct{}
	zero    string
	rows    []map[string]any
}

// New returns a Writer with the given leading columns.
func New(columns []string, zero string) *Writer {
	w := &Writer{
		known: make(map[string]struct{}, len(columns)),
		zero:  zero,
	}
	for _, c := range columns {
		w.addColumn(c)
	}
	return w
}

// AddRow queues a row. Keys that are not yet columns are appended as new
// columns, in sorted order so the output is stable. It reports whether a
// column was added.
func (w *Writer) AddRow(row map[string]any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	var fresh []string
	for k := range row {
		if _, ok := w.known[k]; !ok {
			fresh = append(fresh, k)
		}
	}
	sort.Strings(fresh)
	for _, k := range fresh {
		w.addColumn(k)
	}

	cp := make(map[string]any, len(row))
	for k, v := range row {
		cp[k] = v
	}
	w.rows = append(w.rows, cp)
	return len(fresh) > 0
}

// Columns returns the current column order.
func (w *Writer) Columns() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.columns...)
}

// Len returns the number of queued rows.
func (w *Writer) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.rows)
}

// Records returns the queued rows as string cells in column order.
func (w *Writer) Records() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]string, 0, len(w.rows))
	for _, row := range w.rows {
		out = append(out, w.format(row))
	}
	return out
}

// Write emits all queued rows to out, preceded by a header line when header is
// true. Rows are kept, so a later Write repeats them.
func (w *Writer) Write(out io.Writer, header bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cw := csv.NewWriter(out)
	if header {
		if err := cw.Write(w.columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, row := range w.rows {
		if err := cw.Write(w.format(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the CSV to path, creating parent directories as needed.
func (w *Writer) WriteFile(path string, header bool) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	if err := w.Write(f, header); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (w *Writer) addColumn(c string) {
	if _, ok := w.known[c]; ok {
		return
	}
	w.known[c] = struct{}{}
	w.columns = append(w.columns, c)
}

func (w *Writer) format(row map[string]any) []string {
	cells := make([]string, len(w.columns))
	for i, c := range w.columns {
		v, ok := row[c]
		if !ok || v == nil {
			cells[i] = w.zero
			continue
		}
		cells[i] = fmt.Sprint(v)
	}
	return cells
}
