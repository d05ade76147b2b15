package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/csheth/bookfeed/internal/api"
)

func page(hasMore bool, next *int, items ...api.FeedItem) api.FeedPage {
	return api.FeedPage{Status: "success", Items: items, HasMore: hasMore, NextPage: next}
}

func intPtr(v int) *int { return &v }

func item(id, book string) api.FeedItem {
	return api.FeedItem{ID: id, BookTitle: book, Preview: "preview " + id, FullText: "full " + id}
}

func TestFreshLoadFillsFeed(t *testing.T) {
	s := New(2)
	req, ok := s.BeginFetch(false)
	if !ok {
		t.Fatal("fresh fetch should always start")
	}
	if !s.Loading || s.FeedStatus() != FeedLoading {
		t.Fatalf("expected loading status, got loading=%v status=%v", s.Loading, s.FeedStatus())
	}
	if req.Page != 0 || req.PageSize != 2 || len(req.Books) != 0 {
		t.Fatalf("unexpected request %+v", req)
	}

	res, applied := s.ApplyPage(req, page(true, intPtr(1), item("a", "Emma"), item("b", "Dune")))
	if !applied {
		t.Fatal("current page should apply")
	}
	if len(res.Added) != 2 || res.Empty {
		t.Fatalf("unexpected result %+v", res)
	}
	if s.Loading {
		t.Fatal("loading should clear once the page lands")
	}
	if s.PageCursor != 1 || !s.HasMore {
		t.Fatalf("cursor=%d hasMore=%v", s.PageCursor, s.HasMore)
	}
	if got := s.KnownBooks(); !reflect.DeepEqual(got, []string{"Dune", "Emma"}) {
		t.Fatalf("known books = %v", got)
	}
}

func TestAppendRefusedWhileLoadingOrExhausted(t *testing.T) {
	s := New(2)
	req, _ := s.BeginFetch(false)
	if _, ok := s.BeginFetch(true); ok {
		t.Fatal("append must be refused while a fetch is in flight")
	}
	s.ApplyPage(req, page(false, nil, item("a", "Emma")))
	if s.HasMore {
		t.Fatal("has_more=false should stick")
	}
	before := s.PageCursor
	if _, ok := s.BeginFetch(true); ok {
		t.Fatal("append must be refused once the last page is reached")
	}
	if s.Loading || s.PageCursor != before {
		t.Fatal("refused append must not touch state")
	}
}

func TestEmptyAppendStopsPaging(t *testing.T) {
	s := New(2)
	req, _ := s.BeginFetch(false)
	s.ApplyPage(req, page(true, intPtr(1), item("a", "Emma")))

	req, ok := s.BeginFetch(true)
	if !ok {
		t.Fatal("append should start")
	}
	if req.Page != 1 {
		t.Fatalf("append page = %d, want 1", req.Page)
	}
	res, _ := s.ApplyPage(req, page(true, intPtr(2)))
	if s.HasMore {
		t.Fatal("empty append must end paging")
	}
	if res.Empty {
		t.Fatal("an empty append is not an empty feed")
	}
	if s.FeedStatus() != FeedReady {
		t.Fatalf("status = %v", s.FeedStatus())
	}
}

func TestEmptyFreshLoadIsEmptyState(t *testing.T) {
	s := New(10)
	req, _ := s.BeginFetch(false)
	res, _ := s.ApplyPage(req, page(false, nil))
	if !res.Empty {
		t.Fatal("fresh load without items should report empty")
	}
	if s.FeedStatus() != FeedEmpty {
		t.Fatalf("status = %v, want FeedEmpty", s.FeedStatus())
	}
	if s.FeedErr != nil {
		t.Fatal("empty is not an error")
	}
}

func TestFailedFetchKeepsHasMoreAndClearsLoading(t *testing.T) {
	s := New(10)
	req, _ := s.BeginFetch(false)
	if !s.FailFetch(req, errors.New("boom")) {
		t.Fatal("current failure should apply")
	}
	if s.Loading {
		t.Fatal("loading must clear after failure")
	}
	if !s.HasMore {
		t.Fatal("failure must not change has_more")
	}
	if s.FeedStatus() != FeedFailed {
		t.Fatalf("status = %v", s.FeedStatus())
	}
}

func TestStaleResponsesAreDropped(t *testing.T) {
	s := New(2)
	first, _ := s.BeginFetch(false)
	second, _ := s.BeginFetch(false)

	if _, ok := s.ApplyPage(first, page(true, intPtr(1), item("old", "Emma"))); ok {
		t.Fatal("superseded page must be ignored")
	}
	if len(s.Items) != 0 || !s.Loading {
		t.Fatal("stale page must not change state")
	}
	if s.FailFetch(first, errors.New("late")) {
		t.Fatal("superseded failure must be ignored")
	}
	if _, ok := s.ApplyPage(second, page(false, nil, item("new", "Dune"))); !ok {
		t.Fatal("live page should apply")
	}
	if len(s.Items) != 1 || s.Items[0].ID != "new" {
		t.Fatalf("items = %+v", s.Items)
	}
}

func TestApplyPageDropsDuplicateIDs(t *testing.T) {
	s := New(2)
	req, _ := s.BeginFetch(false)
	s.ApplyPage(req, page(true, intPtr(1), item("a", "Emma"), item("b", "Emma")))
	req, _ = s.BeginFetch(true)
	res, _ := s.ApplyPage(req, page(true, intPtr(2), item("b", "Emma"), item("c", "Emma")))
	if len(res.Added) != 1 || res.Added[0].ID != "c" {
		t.Fatalf("added = %+v", res.Added)
	}
	if len(s.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(s.Items))
	}
}

func TestToggleBookFilterAllClearsAndRefetches(t *testing.T) {
	s := New(10)
	s.ActiveBooks = map[string]bool{"A": true, "B": true}
	s.PageCursor = 4

	req, ok := s.ToggleBookFilter(FilterAll)
	if !ok {
		t.Fatal("filter change should start a fetch")
	}
	if len(s.ActiveBooks) != 0 {
		t.Fatalf("active books = %v", s.ActiveBooks)
	}
	if req.Page != 0 || len(req.Books) != 0 || req.Append {
		t.Fatalf("request = %+v", req)
	}
	if len(s.Items) != 0 {
		t.Fatal("rendered feed should be cleared")
	}
}

func TestToggleBookFilterMembership(t *testing.T) {
	s := New(10)
	req, _ := s.ToggleBookFilter("Emma")
	if !reflect.DeepEqual(req.Books, []string{"Emma"}) {
		t.Fatalf("books = %v", req.Books)
	}
	req, _ = s.ToggleBookFilter("Dune")
	if !reflect.DeepEqual(req.Books, []string{"Dune", "Emma"}) {
		t.Fatalf("books = %v", req.Books)
	}
	req, _ = s.ToggleBookFilter("Emma")
	if !reflect.DeepEqual(req.Books, []string{"Dune"}) {
		t.Fatalf("books = %v", req.Books)
	}
}

func TestToggleSaveParity(t *testing.T) {
	s := New(10)
	now := time.UnixMilli(1000)
	for i := 0; i < 5; i++ {
		s.ToggleSave("q1", "text", "Emma", now)
	}
	if len(s.Saved) != 1 {
		t.Fatalf("odd toggles should leave one entry, got %d", len(s.Saved))
	}
	s.ToggleSave("q1", "text", "Emma", now)
	if len(s.Saved) != 0 {
		t.Fatalf("even toggles should leave none, got %d", len(s.Saved))
	}
}

func TestSavedIDsStrictlyIncrease(t *testing.T) {
	s := New(10)
	now := time.UnixMilli(5000)
	s.ToggleSave("a", "", "", now)
	s.ToggleSave("b", "", "", now)
	s.ToggleSave("c", "", "", now.Add(-time.Second))
	if s.Saved[0].ID >= s.Saved[1].ID || s.Saved[1].ID >= s.Saved[2].ID {
		t.Fatalf("ids not increasing: %+v", s.Saved)
	}
	if !s.RemoveSaved(s.Saved[1].ID) {
		t.Fatal("remove should find the entry")
	}
	if s.IsSaved("b") || !s.IsSaved("a") || !s.IsSaved("c") {
		t.Fatalf("unexpected saved list %+v", s.Saved)
	}
	if s.RemoveSaved(12345) {
		t.Fatal("unknown id should report false")
	}
}

func TestLoadSavedKeepsIDsAboveRestored(t *testing.T) {
	s := New(10)
	s.LoadSaved([]SavedQuote{{ID: 9000, QuoteID: "a"}, {ID: 9001, QuoteID: "a"}})
	if len(s.Saved) != 1 {
		t.Fatalf("duplicate quote ids must collapse, got %+v", s.Saved)
	}
	s.ToggleSave("b", "", "", time.UnixMilli(1))
	if s.Saved[1].ID <= 9000 {
		t.Fatalf("new id %d should exceed restored ids", s.Saved[1].ID)
	}
}

func TestResetKeepsSavedQuotes(t *testing.T) {
	s := New(10)
	s.ToggleSave("a", "x", "Emma", time.Now())
	req, _ := s.BeginFetch(false)
	s.ApplyPage(req, page(false, nil, item("a", "Emma")))
	s.Reset()
	if len(s.Saved) != 1 {
		t.Fatal("saved quotes should survive a reload")
	}
	if len(s.Items) != 0 || !s.HasMore || s.PageCursor != 0 || len(s.KnownBooks()) != 0 {
		t.Fatal("feed state should return to its initial shape")
	}
	if _, ok := s.ApplyPage(req, page(false, nil, item("z", "Emma"))); ok || len(s.Items) != 0 {
		t.Fatal("requests from before the reset must be stale")
	}
}

func TestThreadSubmitScenario(t *testing.T) {
	s := New(10)
	req, _ := s.BeginFetch(false)
	s.ApplyPage(req, page(false, nil, api.FeedItem{ID: "q7", BookTitle: "Moby Dick", Preview: "Call me", FullText: "Call me Ishmael."}))

	if _, ok := s.BeginSubmit("hello"); ok {
		t.Fatal("submit without an open thread must be a no-op")
	}
	tr, ok := s.OpenThread("q7")
	if !ok || tr.QuoteID != "q7" {
		t.Fatalf("open thread = %+v %v", tr, ok)
	}
	if s.Thread.Quote.BookTitle != "Moby Dick" {
		t.Fatal("thread header should come from the feed item")
	}
	if _, ok := s.BeginSubmit("   "); ok {
		t.Fatal("blank submit must be a no-op")
	}

	sub, ok := s.BeginSubmit(" hello ")
	if !ok {
		t.Fatal("submit should start")
	}
	want := api.ChatRequest{Message: "hello", Context: "Call me Ishmael.", BookTitle: "Moby Dick", QuoteID: "q7"}
	if sub.Body != want {
		t.Fatalf("body = %+v, want %+v", sub.Body, want)
	}
	if _, ok := s.BeginSubmit("again"); ok {
		t.Fatal("second submit while in flight must be refused")
	}
	if !s.FinishSubmit(sub) || s.Thread.Submitting {
		t.Fatal("finish should clear submitting")
	}

	reload, _ := s.BeginThreadLoad()
	comments := []api.Comment{{ID: 1, UserMessage: "hello", AIResponse: "fr"}}
	if !s.ApplyThread(reload, comments) {
		t.Fatal("current thread load should apply")
	}
	if s.CommentCount("q7") != 1 {
		t.Fatalf("badge = %d, want 1", s.CommentCount("q7"))
	}
}

func TestEarlierReplyKeepsNewerSubmitInFlight(t *testing.T) {
	s := New(10)
	req, _ := s.BeginFetch(false)
	s.ApplyPage(req, page(false, nil, item("a", "Emma")))

	s.OpenThread("a")
	first, _ := s.BeginSubmit("first")
	s.CloseThread()
	s.OpenThread("a")
	second, ok := s.BeginSubmit("second")
	if !ok {
		t.Fatal("reopened thread should accept a submit")
	}

	if s.FinishSubmit(first) {
		t.Fatal("reply to the earlier submit must not count as current")
	}
	if !s.Thread.Submitting {
		t.Fatal("newer submit should still be in flight")
	}
	if !s.FinishSubmit(second) || s.Thread.Submitting {
		t.Fatal("latest reply should clear submitting")
	}
}

func TestStaleThreadLoadIsDropped(t *testing.T) {
	s := New(10)
	req, _ := s.BeginFetch(false)
	s.ApplyPage(req, page(false, nil, item("a", "Emma"), item("b", "Emma")))

	first, _ := s.OpenThread("a")
	s.CloseThread()
	second, _ := s.OpenThread("b")

	if s.ApplyThread(first, []api.Comment{{ID: 1}}) {
		t.Fatal("load for a closed thread must be ignored")
	}
	if s.CommentCount("a") != 1 {
		t.Fatal("badge refresh still applies to the rendered item")
	}
	if s.FailThread(first, errors.New("late")) {
		t.Fatal("stale failure must be ignored")
	}
	if !s.ApplyThread(second, nil) {
		t.Fatal("live load should apply")
	}
	if !s.Thread.Loaded || len(s.Thread.Comments) != 0 {
		t.Fatalf("thread = %+v", s.Thread)
	}
}

func TestOpenThreadUnknownQuote(t *testing.T) {
	s := New(10)
	if _, ok := s.OpenThread("missing"); ok {
		t.Fatal("unknown quote should not open")
	}
	if s.OpenQuoteID != "" {
		t.Fatal("open quote should stay empty")
	}
}

func TestSourceVisibilityToggle(t *testing.T) {
	s := New(10)
	if !s.ToggleSourceVisibility("a") {
		t.Fatal("first toggle shows the source")
	}
	if s.ToggleSourceVisibility("a") {
		t.Fatal("second toggle hides it")
	}
}
