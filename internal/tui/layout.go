package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/bookfeed/internal/api"
	"github.com/csheth/bookfeed/internal/state"
)

type pageLayout struct {
	windowWidth    int
	windowHeight   int
	viewportWidth  int
	viewportHeight int
	threadHeight   int
}

func newPageLayout() pageLayout {
	return pageLayout{
		viewportWidth:  80,
		viewportHeight: 20,
		threadHeight:   14,
	}
}

func (l *pageLayout) Update(width, height int) {
	l.windowWidth = width
	l.windowHeight = height
	innerWidth := width - viewportHorizontalPadding
	if innerWidth < minViewportWidth {
		innerWidth = minViewportWidth
	}
	l.viewportWidth = innerWidth
	// header (2) + status (1) + footer (1) + spacing (1)
	const chrome = 5
	contentHeight := height - chrome
	if contentHeight < 6 {
		contentHeight = 6
	}
	l.viewportHeight = contentHeight
	// thread header (3) + composer (2) + spacing (1)
	const threadChrome = 6
	l.threadHeight = contentHeight - threadChrome
	if l.threadHeight < 4 {
		l.threadHeight = 4
	}
}

type contentBuilder struct {
	builder strings.Builder
	lines   int
}

func (cb *contentBuilder) WriteString(s string) {
	cb.builder.WriteString(s)
	cb.lines += strings.Count(s, "\n")
}

func (cb *contentBuilder) WriteRune(r rune) {
	cb.builder.WriteRune(r)
	if r == '\n' {
		cb.lines++
	}
}

func (cb *contentBuilder) String() string {
	return cb.builder.String()
}

func (cb *contentBuilder) Line() int {
	return cb.lines
}

// buildFeedContent renders every quote card and records the line each card
// starts on, so the cursor can be scrolled into view.
func (m *model) buildFeedContent() (string, []int) {
	cb := &contentBuilder{}
	st := m.state
	cardLines := make([]int, 0, len(st.Items))

	switch st.FeedStatus() {
	case state.FeedLoading:
		cb.WriteString(m.styles.Helper.Render(m.spinner.View() + " " + msgLoadingQuotes))
		return cb.String(), cardLines
	case state.FeedEmpty:
		cb.WriteString(m.styles.Helper.Render(msgEmptyFeed))
		return cb.String(), cardLines
	case state.FeedIdle:
		return "", cardLines
	case state.FeedFailed:
		if len(st.Items) == 0 {
			cb.WriteString(m.styles.Error.Render(msgFeedFailed + ": " + errorText(st.FeedErr)))
			cb.WriteRune('\n')
			cb.WriteString(m.styles.Helper.Render("Press r to try again."))
			return cb.String(), cardLines
		}
	}

	width := m.cardWidth()
	for idx, item := range st.Items {
		cardLines = append(cardLines, cb.Line())
		cb.WriteString(m.renderCard(idx, item, width))
		cb.WriteRune('\n')
	}

	switch {
	case st.Loading:
		cb.WriteString(m.styles.Helper.Render(m.spinner.View() + " " + msgLoadingMore))
	case st.FeedErr != nil:
		cb.WriteString(m.styles.Error.Render(msgFeedFailed + ": " + errorText(st.FeedErr)))
		cb.WriteRune('\n')
		cb.WriteString(m.styles.Helper.Render("Press n to try again."))
	case !st.HasMore:
		cb.WriteString(m.styles.Helper.Render(msgEndOfFeed))
	default:
		cb.WriteString(m.styles.Helper.Render("Keep scrolling or press n for more."))
	}
	return cb.String(), cardLines
}

func (m *model) renderCard(idx int, item api.FeedItem, width int) string {
	textWidth := width - 2
	header := m.styles.Book.Render(item.BookTitle)
	if n := m.state.CommentCount(item.ID); n > 0 {
		header += " " + m.styles.Badge.Render(commentLabel(n))
	}
	if m.state.IsSaved(item.ID) {
		header += " " + m.styles.Saved.Render("★ saved")
	}

	parts := []string{
		header,
		m.styles.Quote.Render(wordwrap.String(item.Preview, textWidth)),
	}
	visible := m.state.SourceVisible[item.ID]
	marker, label := "+", "Source"
	if visible {
		marker, label = "×", "Hide Source"
	}
	parts = append(parts, m.styles.Helper.Render(marker+" "+label))
	if visible {
		chapter := item.Chapter
		if chapter == "" {
			chapter = "Unknown Chapter"
		}
		meta := chapter
		if item.Position != "" {
			meta += " · " + item.Position
		}
		parts = append(parts,
			m.styles.Source.Render(wordwrap.String(item.FullText, textWidth-2)),
			m.styles.Helper.Render(meta),
		)
	}

	style := m.styles.Card
	if idx == m.cursor {
		style = m.styles.CardActive
	}
	return style.Width(width).Render(strings.Join(parts, "\n"))
}

func commentLabel(n int) string {
	if n == 1 {
		return "1 comment"
	}
	return fmt.Sprintf("%d comments", n)
}

func (m *model) buildThreadContent() string {
	cb := &contentBuilder{}
	thread := m.state.Thread
	width := m.wrapWidth(2)

	switch {
	case thread.Err != nil:
		cb.WriteString(m.styles.Error.Render(msgCommentsFailed))
	case thread.Loading && !thread.Loaded:
		cb.WriteString(m.styles.Helper.Render(m.spinner.View() + " " + msgLoadingComments))
	case len(thread.Comments) == 0:
		cb.WriteString(m.styles.Helper.Render(msgNoComments))
	default:
		for idx, comment := range thread.Comments {
			stamp := formatTimestamp(comment.Timestamp.Time)
			cb.WriteString(m.styles.User.Render("You") + " " + m.styles.Helper.Render(stamp))
			cb.WriteRune('\n')
			cb.WriteString(indentMultiline(wordwrap.String(comment.UserMessage, width), "  "))
			cb.WriteRune('\n')
			cb.WriteString(m.styles.Reply.Render("AI") + " " + m.styles.Helper.Render(stamp))
			cb.WriteRune('\n')
			cb.WriteString(indentMultiline(wordwrap.String(comment.AIResponse, width), "  "))
			if idx < len(thread.Comments)-1 {
				cb.WriteRune('\n')
				cb.WriteRune('\n')
			}
		}
	}
	if thread.Submitting {
		cb.WriteRune('\n')
		cb.WriteRune('\n')
		cb.WriteString(m.styles.Helper.Render(m.spinner.View() + " typing..."))
	}
	return cb.String()
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format("Jan 2, 2006 15:04")
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	content, cardLines := m.buildFeedContent()
	m.feedView.SetContent(content)
	m.cardLines = cardLines
	m.viewportDirty = false
}

func (m *model) refreshThreadIfDirty() {
	if !m.threadDirty {
		return
	}
	m.threadView.SetContent(m.buildThreadContent())
	m.threadView.GotoBottom()
	m.threadDirty = false
}

func (m *model) ensureCursorVisible() {
	if m.cursor < 0 || m.cursor >= len(m.cardLines) {
		return
	}
	start := m.cardLines[m.cursor]
	end := m.feedView.TotalLineCount()
	if m.cursor+1 < len(m.cardLines) {
		end = m.cardLines[m.cursor+1]
	}
	top := m.feedView.YOffset
	bottom := top + m.feedView.Height
	switch {
	case start < top:
		m.feedView.SetYOffset(start)
	case end > bottom:
		offset := end - m.feedView.Height
		if offset > start {
			offset = start
		}
		m.feedView.SetYOffset(offset)
	}
}

func (m *model) cardWidth() int {
	width := m.feedView.Width - 2
	if width < minViewportWidth-2 {
		width = minViewportWidth - 2
	}
	return width
}

func (m *model) wrapWidth(padding int) int {
	width := m.feedView.Width
	if width <= 0 {
		width = 80
	}
	if padding < 0 {
		padding = 0
	}
	available := width - padding
	if available < 20 {
		available = 20
	}
	return available
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}

func previewText(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
