package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FeedItem is one quote card produced by the backend from an ingested book.
type FeedItem struct {
	ID        string `json:"id"`
	BookTitle string `json:"book_title"`
	Preview   string `json:"preview"`
	FullText  string `json:"full_text"`
	Chapter   string `json:"chapter,omitempty"`
	Position  string `json:"position,omitempty"`
}

// FeedQuery selects one page of the feed.
type FeedQuery struct {
	Page         int
	Books        []string
	ItemsPerPage int
}

// FeedPage is the decoded /feed response.
type FeedPage struct {
	Status   string     `json:"status"`
	Message  string     `json:"message,omitempty"`
	Items    []FeedItem `json:"feed"`
	HasMore  bool       `json:"has_more"`
	NextPage *int       `json:"next_page"`
}

// Comment is one exchange in a quote thread.
type Comment struct {
	ID          int64     `json:"id"`
	Timestamp   Timestamp `json:"timestamp"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
}

// ChatRequest posts a new message to a quote thread.
type ChatRequest struct {
	Message   string `json:"message"`
	Context   string `json:"context"`
	BookTitle string `json:"book_title"`
	QuoteID   string `json:"quote_id"`
}

// ChatResult is the decoded /chat response.
type ChatResult struct {
	Success   bool   `json:"success"`
	Response  string `json:"response,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UploadResult is the decoded /upload response.
type UploadResult struct {
	Status            string   `json:"status,omitempty"`
	SuccessfulUploads []string `json:"successful_uploads"`
	FailedUploads     []string `json:"failed_uploads,omitempty"`
	Books             []string `json:"books,omitempty"`
	Error             string   `json:"error,omitempty"`
}

type commentsResponse struct {
	Success  bool      `json:"success"`
	Comments []Comment `json:"comments"`
	Error    string    `json:"error,omitempty"`
}

type removeBookRequest struct {
	Book string `json:"book"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Timestamp accepts the sqlite default layout as well as ISO 8601.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognized layout %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02 15:04:05"))
}
