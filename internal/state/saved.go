package state

import "time"

// SavedQuote is one entry of the saved list. ID is client generated from the
// save time in milliseconds and is strictly increasing within a session.
type SavedQuote struct {
	ID        int64  `json:"id"`
	QuoteID   string `json:"quote_id"`
	QuoteText string `json:"quote_text"`
	BookTitle string `json:"book_title"`
}

// IsSaved reports whether quoteID is in the saved list.
func (s *AppState) IsSaved(quoteID string) bool {
	return s.savedIndex(quoteID) >= 0
}

func (s *AppState) savedIndex(quoteID string) int {
	for i, q := range s.Saved {
		if q.QuoteID == quoteID {
			return i
		}
	}
	return -1
}

// ToggleSave removes quoteID from the saved list if present, otherwise
// appends it. It returns true when the quote ended up saved.
func (s *AppState) ToggleSave(quoteID, text, book string, now time.Time) bool {
	if i := s.savedIndex(quoteID); i >= 0 {
		s.Saved = append(s.Saved[:i:i], s.Saved[i+1:]...)
		return false
	}
	id := now.UnixMilli()
	if id <= s.lastSavedID {
		id = s.lastSavedID + 1
	}
	s.lastSavedID = id
	s.Saved = append(s.Saved, SavedQuote{ID: id, QuoteID: quoteID, QuoteText: text, BookTitle: book})
	return true
}

// RemoveSaved drops the saved entry with the given id.
func (s *AppState) RemoveSaved(id int64) bool {
	for i, q := range s.Saved {
		if q.ID == id {
			s.Saved = append(s.Saved[:i:i], s.Saved[i+1:]...)
			return true
		}
	}
	return false
}

// LoadSaved replaces the saved list, typically with entries restored from
// the store. Later saves keep ids above every restored one.
func (s *AppState) LoadSaved(quotes []SavedQuote) {
	s.Saved = make([]SavedQuote, 0, len(quotes))
	seen := make(map[string]bool, len(quotes))
	for _, q := range quotes {
		if seen[q.QuoteID] {
			continue
		}
		seen[q.QuoteID] = true
		s.Saved = append(s.Saved, q)
		if q.ID > s.lastSavedID {
			s.lastSavedID = q.ID
		}
	}
}
