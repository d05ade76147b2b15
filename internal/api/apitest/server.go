// Package apitest provides an in-memory BookFeed backend for tests.
package apitest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/csheth/bookfeed/internal/api"
)

// Request records one call observed by the fake backend.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]string
}

// Backend serves the BookFeed endpoints from memory. Feed order is stable
// (no shuffling) so paging is deterministic.
type Backend struct {
	mu        sync.Mutex
	order     []string
	books     map[string][]api.FeedItem
	comments  map[string][]api.Comment
	requests  []Request
	nextID    int64
	failFeed  bool
	failChat  bool
	chatReply string
	clock     func() time.Time
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		books:     map[string][]api.FeedItem{},
		comments:  map[string][]api.Comment{},
		chatReply: "fr fr, that line hits",
		clock:     time.Now,
	}
}

// Serve starts an httptest server and stops it when the test ends.
func (b *Backend) Serve(t interface{ Cleanup(func()) }) *httptest.Server {
	server := httptest.NewServer(b.Handler())
	t.Cleanup(server.Close)
	return server
}

// AddBook registers quotes for title. Quote ids are "<title-slug>-<n>".
func (b *Backend) AddBook(title string, quotes ...string) []api.FeedItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addBookLocked(title, quotes)
}

// AddComment seeds a comment on quoteID.
func (b *Backend) AddComment(quoteID, message, reply string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendCommentLocked(quoteID, message, reply)
}

// FailFeed makes /feed answer with a 500 until reset.
func (b *Backend) FailFeed(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failFeed = fail
}

// FailChat makes /chat report success:false until reset.
func (b *Backend) FailChat(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failChat = fail
}

// Requests returns a copy of every request observed so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo filters Requests by path prefix.
func (b *Backend) RequestsTo(prefix string) []Request {
	var out []Request
	for _, req := range b.Requests() {
		if strings.HasPrefix(req.Path, prefix) {
			out = append(out, req)
		}
	}
	return out
}

// Handler exposes the routes for embedding in a custom server.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", b.handleFeed)
	mux.HandleFunc("/comments/", b.handleComments)
	mux.HandleFunc("/chat", b.handleChat)
	mux.HandleFunc("/upload", b.handleUpload)
	mux.HandleFunc("/remove-book", b.handleRemoveBook)
	return mux
}

func (b *Backend) record(r *http.Request, body map[string]string) {
	query := map[string]string{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	b.requests = append(b.requests, Request{Method: r.Method, Path: r.URL.Path, Query: query, Body: body})
}

func (b *Backend) handleFeed(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, nil)
	if b.failFeed {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"status": "error", "message": "feed generation failed"})
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, err := strconv.Atoi(r.URL.Query().Get("items_per_page"))
	if err != nil || perPage <= 0 {
		perPage = 10
	}
	var selected []string
	for _, title := range strings.Split(r.URL.Query().Get("books"), ",") {
		if strings.TrimSpace(title) != "" {
			selected = append(selected, title)
		}
	}
	if len(selected) == 0 {
		selected = b.order
	}
	var all []api.FeedItem
	for _, title := range selected {
		all = append(all, b.books[title]...)
	}
	start := page * perPage
	if start > len(all) {
		start = len(all)
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	items := append([]api.FeedItem{}, all[start:end]...)
	full := len(items) == perPage
	var next any
	if full {
		next = page + 1
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"feed":      items,
		"has_more":  full,
		"next_page": next,
	})
}

func (b *Backend) handleComments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, nil)
	quoteID := strings.TrimPrefix(r.URL.Path, "/comments/")
	comments := append([]api.Comment{}, b.comments[quoteID]...)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "comments": comments})
}

func (b *Backend) handleChat(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Missing required fields"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, body)
	for _, field := range []string{"message", "context", "book_title", "quote_id"} {
		if _, ok := body[field]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "Missing required fields"})
			return
		}
	}
	if b.failChat {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Failed to connect to Ollama after 3 attempts"})
		return
	}
	comment := b.appendCommentLocked(body["quote_id"], body["message"], b.chatReply)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"response":  comment.AIResponse,
		"timestamp": comment.Timestamp.Format("2006-01-02T15:04:05"),
	})
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file part"})
		return
	}
	files := r.MultipartForm.File["files"]
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, nil)
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No selected file"})
		return
	}
	successful := []string{}
	failed := []string{}
	for _, header := range files {
		if !strings.HasSuffix(header.Filename, ".epub") {
			failed = append(failed, header.Filename)
			continue
		}
		file, err := header.Open()
		if err != nil {
			failed = append(failed, header.Filename)
			continue
		}
		var quotes []string
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				quotes = append(quotes, line)
			}
		}
		file.Close()
		title := strings.TrimSuffix(filepath.Base(header.Filename), ".epub")
		b.addBookLocked(title, quotes)
		successful = append(successful, header.Filename)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "success",
		"successful_uploads": successful,
		"failed_uploads":     failed,
		"books":              append([]string{}, b.order...),
	})
}

func (b *Backend) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(r, body)
	title := body["book"]
	if title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "No book title provided"})
		return
	}
	if _, ok := b.books[title]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Book not found"})
		return
	}
	delete(b.books, title)
	for i, existing := range b.order {
		if existing == title {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": fmt.Sprintf("Successfully removed %s", title)})
}

func (b *Backend) addBookLocked(title string, quotes []string) []api.FeedItem {
	if _, ok := b.books[title]; !ok {
		b.order = append(b.order, title)
	}
	slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	items := b.books[title]
	for _, quote := range quotes {
		n := len(items) + 1
		items = append(items, api.FeedItem{
			ID:        fmt.Sprintf("%s-%d", slug, n),
			BookTitle: title,
			Preview:   quote,
			FullText:  quote,
			Chapter:   "Chapter 1",
			Position:  fmt.Sprintf("Part 1, Paragraph %d", n),
		})
	}
	b.books[title] = items
	return append([]api.FeedItem(nil), items...)
}

func (b *Backend) appendCommentLocked(quoteID, message, reply string) api.Comment {
	b.nextID++
	comment := api.Comment{
		ID:          b.nextID,
		Timestamp:   api.Timestamp{Time: b.clock().UTC().Truncate(time.Second)},
		UserMessage: message,
		AIResponse:  reply,
	}
	b.comments[quoteID] = append(b.comments[quoteID], comment)
	return comment
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
