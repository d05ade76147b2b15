// Package export writes saved quotes to a JSON file that accumulates across
// sessions.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/csheth/bookfeed/internal/state"
)

// Entry is one exported quote.
type Entry struct {
	QuoteID    string    `json:"quoteId"`
	Quote      string    `json:"quote"`
	BookTitle  string    `json:"bookTitle"`
	SavedAt    time.Time `json:"savedAt"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Result reports what Save changed.
type Result struct {
	Added   int
	Updated int
	Total   int
}

// Save merges quotes into the export file at path, creating it if needed.
// Entries are keyed by quote id: a quote exported twice is updated in place
// instead of duplicated.
func Save(path string, quotes []state.SavedQuote, now time.Time) (Result, error) {
	if len(quotes) == 0 {
		return Result{}, errors.New("no saved quotes to export")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, err
	}
	entries, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Result{}, err
		}
		entries = nil
	}

	index := make(map[string]int, len(entries))
	for i, entry := range entries {
		index[entry.QuoteID] = i
	}
	var res Result
	for _, q := range quotes {
		entry := Entry{
			QuoteID:    q.QuoteID,
			Quote:      q.QuoteText,
			BookTitle:  q.BookTitle,
			SavedAt:    time.UnixMilli(q.ID).UTC(),
			ExportedAt: now.UTC(),
		}
		if i, ok := index[q.QuoteID]; ok {
			entries[i] = entry
			res.Updated++
			continue
		}
		index[q.QuoteID] = len(entries)
		entries = append(entries, entry)
		res.Added++
	}
	res.Total = len(entries)
	return res, writeEntries(path, entries)
}

// Load returns the entries of an export file.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func writeEntries(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
