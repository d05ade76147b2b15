package state

import (
	"github.com/csheth/bookfeed/internal/api"
)

// FilterAll clears the book filter when passed to ToggleBookFilter.
const FilterAll = "all"

// FeedStatus summarizes what the feed area should show.
type FeedStatus int

const (
	FeedIdle FeedStatus = iota
	FeedLoading
	FeedReady
	FeedEmpty
	FeedFailed
)

// FeedRequest is the token for one in-flight page fetch.
type FeedRequest struct {
	Generation uint64
	Append     bool
	Page       int
	Books      []string
	PageSize   int
}

// Query converts the request into API parameters.
func (r FeedRequest) Query() api.FeedQuery {
	return api.FeedQuery{Page: r.Page, Books: r.Books, ItemsPerPage: r.PageSize}
}

// PageResult reports what ApplyPage changed.
type PageResult struct {
	Added []api.FeedItem
	Empty bool
}

// BeginFetch starts a page fetch. Appends are refused while a fetch is in
// flight or once the backend reported the last page. Fresh loads are always
// accepted: they reset the cursor, clear the rendered feed, and supersede
// whatever request is still outstanding.
func (s *AppState) BeginFetch(appendPage bool) (FeedRequest, bool) {
	if appendPage {
		if s.Loading || !s.HasMore {
			return FeedRequest{}, false
		}
	} else {
		s.feedGen++
		s.PageCursor = 0
		s.Items = nil
		s.CommentCounts = map[string]int{}
		s.SourceVisible = map[string]bool{}
		s.FeedErr = nil
		s.fetched = false
	}
	s.Loading = true
	return FeedRequest{
		Generation: s.feedGen,
		Append:     appendPage,
		Page:       s.PageCursor,
		Books:      s.ActiveBookList(),
		PageSize:   s.PageSize,
	}, true
}

func (s *AppState) currentFeed(req FeedRequest) bool {
	return req.Generation == s.feedGen && s.Loading
}

// ApplyPage merges a successful response. It returns false when req has
// been superseded, in which case nothing changes.
func (s *AppState) ApplyPage(req FeedRequest, page api.FeedPage) (PageResult, bool) {
	if !s.currentFeed(req) {
		return PageResult{}, false
	}
	defer s.finishFetch()

	seen := make(map[string]bool, len(s.Items))
	for _, item := range s.Items {
		seen[item.ID] = true
	}
	added := make([]api.FeedItem, 0, len(page.Items))
	for _, item := range page.Items {
		if item.ID == "" || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		added = append(added, item)
		s.RememberBooks(item.BookTitle)
	}
	s.Items = append(s.Items, added...)
	s.FeedErr = nil
	s.fetched = true

	s.HasMore = page.HasMore
	if page.NextPage != nil {
		s.PageCursor = *page.NextPage
	}
	if req.Append && len(page.Items) == 0 {
		s.HasMore = false
	}
	return PageResult{Added: added, Empty: !req.Append && len(s.Items) == 0}, true
}

// FailFetch records a transport or backend failure. HasMore is left as it
// was so a retry resumes from the same cursor.
func (s *AppState) FailFetch(req FeedRequest, err error) bool {
	if !s.currentFeed(req) {
		return false
	}
	defer s.finishFetch()
	s.FeedErr = err
	return true
}

func (s *AppState) finishFetch() {
	s.Loading = false
}

// FeedStatus reports the feed area's current state.
func (s *AppState) FeedStatus() FeedStatus {
	switch {
	case s.Loading && len(s.Items) == 0:
		return FeedLoading
	case s.FeedErr != nil:
		return FeedFailed
	case len(s.Items) > 0:
		return FeedReady
	case s.fetched && !s.Loading:
		return FeedEmpty
	default:
		return FeedIdle
	}
}

// ToggleBookFilter applies the filter rule and starts a fresh fetch.
func (s *AppState) ToggleBookFilter(title string) (FeedRequest, bool) {
	if title == FilterAll {
		s.ActiveBooks = map[string]bool{}
	} else if s.ActiveBooks[title] {
		delete(s.ActiveBooks, title)
	} else {
		s.ActiveBooks[title] = true
	}
	return s.BeginFetch(false)
}
