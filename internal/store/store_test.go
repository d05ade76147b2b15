package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/bookfeed/internal/state"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "bookfeed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "theme")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "theme", "dark"))
	require.NoError(t, s.Set(ctx, "theme", "light"))

	got, err := s.Get(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "light", got)
}

func TestPreferencesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookfeed.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "theme", "dark"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", got)
}

func TestSavedQuotesReplace(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	empty, err := s.SavedQuotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	first := []state.SavedQuote{
		{ID: 2, QuoteID: "dune-1", QuoteText: "Fear is the mind-killer.", BookTitle: "Dune"},
		{ID: 1, QuoteID: "emma-1", QuoteText: "Badly done, Emma!", BookTitle: "Emma"},
	}
	require.NoError(t, s.ReplaceSavedQuotes(ctx, first))

	got, err := s.SavedQuotes(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "emma-1", got[0].QuoteID)
	assert.Equal(t, "dune-1", got[1].QuoteID)

	require.NoError(t, s.ReplaceSavedQuotes(ctx, first[:1]))
	got, err = s.SavedQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, first[:1], got)
}

func TestReplaceSavedQuotesRollsBackOnDuplicate(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	keep := []state.SavedQuote{{ID: 1, QuoteID: "a", QuoteText: "x", BookTitle: "B"}}
	require.NoError(t, s.ReplaceSavedQuotes(ctx, keep))

	err := s.ReplaceSavedQuotes(ctx, []state.SavedQuote{
		{ID: 5, QuoteID: "dup"},
		{ID: 6, QuoteID: "dup"},
	})
	require.Error(t, err)

	got, err := s.SavedQuotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, keep, got)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
