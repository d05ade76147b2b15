package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/csheth/bookfeed/internal/state"
)

func TestSaveCreatesAndMerges(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "saved_quotes.json")
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	res, err := Save(path, []state.SavedQuote{
		{ID: 1714564800000, QuoteID: "dune-1", QuoteText: "Fear is the mind-killer.", BookTitle: "Dune"},
	}, first)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if res.Added != 1 || res.Total != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = Save(path, []state.SavedQuote{
		{ID: 1714564800000, QuoteID: "dune-1", QuoteText: "Fear is the mind-killer.", BookTitle: "Dune"},
		{ID: 1714564800001, QuoteID: "emma-1", QuoteText: "Badly done, Emma!", BookTitle: "Emma"},
	}, first.Add(time.Hour))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if res.Added != 1 || res.Updated != 1 || res.Total != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected two entries, got %#v", got)
	}
	if got[0].QuoteID != "dune-1" || !got[0].ExportedAt.Equal(first.Add(time.Hour)) {
		t.Fatalf("first entry not updated in place: %#v", got[0])
	}
	if !got[0].SavedAt.Equal(time.UnixMilli(1714564800000)) {
		t.Fatalf("saved time = %v", got[0].SavedAt)
	}
}

func TestSaveRejectsEmptyList(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saved.json")
	if _, err := Save(path, nil, time.Now()); err == nil {
		t.Fatal("expected error for empty export")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("no file should be written, stat err = %v", err)
	}
}

func TestSaveFailsOnCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saved.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Save(path, []state.SavedQuote{{ID: 1, QuoteID: "a"}}, time.Now()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "saved.json")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil || got != nil {
		t.Fatalf("Load() = %#v, %v", got, err)
	}
}
