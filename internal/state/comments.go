package state

import (
	"strings"

	"github.com/csheth/bookfeed/internal/api"
)

// Thread is the comment thread shown for the open quote.
type Thread struct {
	Quote      api.FeedItem
	Comments   []api.Comment
	Loading    bool
	Loaded     bool
	Err        error
	Submitting bool
}

// ThreadRequest is the token for one thread load.
type ThreadRequest struct {
	QuoteID    string
	Generation uint64
}

// SubmitRequest is the token for one message submission.
type SubmitRequest struct {
	QuoteID    string
	Generation uint64
	Body       api.ChatRequest
}

// OpenThread opens the thread for quoteID and starts loading it. The
// header comes from the feed item held in state.
func (s *AppState) OpenThread(quoteID string) (ThreadRequest, bool) {
	item, ok := s.Item(quoteID)
	if !ok {
		return ThreadRequest{}, false
	}
	s.OpenQuoteID = quoteID
	s.Thread = Thread{Quote: item}
	return s.BeginThreadLoad()
}

// BeginThreadLoad (re)loads the open thread. Any earlier load for the same
// or another quote becomes stale.
func (s *AppState) BeginThreadLoad() (ThreadRequest, bool) {
	if s.OpenQuoteID == "" {
		return ThreadRequest{}, false
	}
	s.threadGen++
	s.Thread.Loading = true
	s.Thread.Err = nil
	return ThreadRequest{QuoteID: s.OpenQuoteID, Generation: s.threadGen}, true
}

func (s *AppState) currentThread(req ThreadRequest) bool {
	return s.OpenQuoteID != "" && s.OpenQuoteID == req.QuoteID && s.threadGen == req.Generation
}

// ApplyThread stores loaded comments in the order the backend returned.
// The badge count for the quote is refreshed as a side effect.
func (s *AppState) ApplyThread(req ThreadRequest, comments []api.Comment) bool {
	s.SetCommentCount(req.QuoteID, len(comments))
	if !s.currentThread(req) {
		return false
	}
	s.Thread.Comments = append([]api.Comment(nil), comments...)
	s.Thread.Loading = false
	s.Thread.Loaded = true
	s.Thread.Err = nil
	return true
}

// FailThread records a load failure for the open thread.
func (s *AppState) FailThread(req ThreadRequest, err error) bool {
	if !s.currentThread(req) {
		return false
	}
	s.Thread.Loading = false
	s.Thread.Loaded = false
	s.Thread.Err = err
	return true
}

// CloseThread forgets the open thread; reopening fetches it again.
func (s *AppState) CloseThread() {
	s.OpenQuoteID = ""
	s.Thread = Thread{}
	s.threadGen++
}

// BeginSubmit validates and starts a message submission. Blank messages,
// a closed thread, or a submission already in flight are rejected.
func (s *AppState) BeginSubmit(message string) (SubmitRequest, bool) {
	message = strings.TrimSpace(message)
	if message == "" || s.OpenQuoteID == "" || s.Thread.Submitting {
		return SubmitRequest{}, false
	}
	quote := s.Thread.Quote
	s.Thread.Submitting = true
	s.submitGen++
	return SubmitRequest{
		QuoteID:    s.OpenQuoteID,
		Generation: s.submitGen,
		Body: api.ChatRequest{
			Message:   message,
			Context:   quote.FullText,
			BookTitle: quote.BookTitle,
			QuoteID:   quote.ID,
		},
	}, true
}

// FinishSubmit clears the submitting flag if req is the latest submission
// on the open thread. It reports whether that was the case, so the caller
// knows if a reload should follow. Replies to an earlier submission, or to a
// thread that has since been closed, leave the flag alone.
func (s *AppState) FinishSubmit(req SubmitRequest) bool {
	if s.OpenQuoteID != req.QuoteID || s.submitGen != req.Generation {
		return false
	}
	s.Thread.Submitting = false
	return true
}
