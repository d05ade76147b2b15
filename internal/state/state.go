// Package state holds the session-wide application state of the BookFeed
// client and the controller logic that mutates it. Nothing here performs
// I/O: callers begin an operation, run the request elsewhere, and hand the
// outcome back together with the request token they were given.
package state

import (
	"sort"
	"strings"

	"github.com/csheth/bookfeed/internal/api"
)

// DefaultPageSize matches the backend's items_per_page default.
const DefaultPageSize = 10

// AppState is the mutable record every controller reads and writes.
type AppState struct {
	PageCursor  int
	PageSize    int
	ActiveBooks map[string]bool
	Loading     bool
	HasMore     bool
	Saved       []SavedQuote
	OpenQuoteID string

	Items         []api.FeedItem
	CommentCounts map[string]int
	SourceVisible map[string]bool
	FeedErr       error
	Thread        Thread

	knownBooks  map[string]bool
	feedGen     uint64
	threadGen   uint64
	submitGen   uint64
	lastSavedID int64
	fetched     bool
}

// New returns the state a session starts with.
func New(pageSize int) *AppState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	s := &AppState{PageSize: pageSize}
	s.reset()
	return s
}

// Reset returns the state to its page-load shape. Saved quotes survive, as
// they are owned by the saved-quote store rather than the feed session.
// Outstanding feed and thread requests become stale.
func (s *AppState) Reset() {
	saved := s.Saved
	lastID := s.lastSavedID
	s.reset()
	s.Saved = saved
	s.lastSavedID = lastID
}

func (s *AppState) reset() {
	s.PageCursor = 0
	s.ActiveBooks = map[string]bool{}
	s.Loading = false
	s.HasMore = true
	s.OpenQuoteID = ""
	s.Items = nil
	s.CommentCounts = map[string]int{}
	s.SourceVisible = map[string]bool{}
	s.FeedErr = nil
	s.Thread = Thread{}
	s.knownBooks = map[string]bool{}
	s.fetched = false
	s.feedGen++
	s.threadGen++
}

// Item looks up a rendered feed item by id.
func (s *AppState) Item(id string) (api.FeedItem, bool) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, true
		}
	}
	return api.FeedItem{}, false
}

// ActiveBookList returns the active filter in a stable order.
func (s *AppState) ActiveBookList() []string {
	return sortedKeys(s.ActiveBooks)
}

// KnownBooks lists every title seen in the feed or reported by the backend.
func (s *AppState) KnownBooks() []string {
	return sortedKeys(s.knownBooks)
}

// RememberBooks records titles for the filter picker.
func (s *AppState) RememberBooks(titles ...string) {
	for _, title := range titles {
		if strings.TrimSpace(title) != "" {
			s.knownBooks[title] = true
		}
	}
}

// ForgetBook drops a title from the filter picker and the active filter.
func (s *AppState) ForgetBook(title string) {
	delete(s.knownBooks, title)
	delete(s.ActiveBooks, title)
}

// CommentCount reports the badge value for id; zero hides the badge.
func (s *AppState) CommentCount(id string) int {
	return s.CommentCounts[id]
}

// SetCommentCount stores a refreshed badge value. Counts for items that are
// no longer rendered are dropped, mirroring a lookup that finds no element.
func (s *AppState) SetCommentCount(id string, count int) bool {
	if _, ok := s.Item(id); !ok {
		return false
	}
	s.CommentCounts[id] = count
	return true
}

// ToggleSourceVisibility flips whether the full source text of id is shown.
func (s *AppState) ToggleSourceVisibility(id string) bool {
	s.SourceVisible[id] = !s.SourceVisible[id]
	return s.SourceVisible[id]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key, on := range set {
		if on {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
