package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/bookfeed/internal/state"
)

func (m *model) View() string {
	parts := []string{m.headerView()}
	switch m.panel {
	case panelThread:
		parts = append(parts, m.threadPanelView())
	case panelFilter:
		parts = append(parts, m.filterPanelView())
	case panelSaved:
		parts = append(parts, m.savedPanelView())
	case panelUpload:
		parts = append(parts, m.uploadPanelView())
	default:
		m.refreshViewportIfDirty()
		parts = append(parts, m.feedView.View())
	}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	parts = append(parts, m.statusLine(), m.footerView())
	return joinNonEmpty(parts)
}

func (m *model) headerView() string {
	title := m.styles.Title.Render("BookFeed")
	meta := fmt.Sprintf("★ %d saved · %s", len(m.state.Saved), m.theme.Mode())
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		title, "  ", m.styles.Helper.Render(heroTagline), "  ", m.styles.Saved.Render(meta))

	active := m.state.ActiveBookList()
	var chips []string
	if len(active) == 0 {
		chips = append(chips, m.styles.ChipActive.Render("All books"))
	} else {
		for _, book := range active {
			chips = append(chips, m.styles.ChipActive.Render(book))
		}
	}
	return top + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m *model) threadPanelView() string {
	m.refreshThreadIfDirty()
	quote := m.state.Thread.Quote
	width := m.wrapWidth(4)
	header := joinNonEmpty([]string{
		m.styles.Book.Render(quote.BookTitle),
		m.styles.Quote.Render(wordwrap.String(previewText(quote.Preview, width*2), width)),
	})
	input := m.composer.View()
	if m.state.Thread.Submitting {
		input = m.styles.Helper.Render("Sending...")
	}
	return m.styles.Panel.Width(m.layout.viewportWidth).Render(joinNonEmpty([]string{
		header,
		m.threadView.View(),
		input,
	}))
}

func (m *model) filterPanelView() string {
	entries := m.filterEntries()
	lines := []string{m.styles.Title.Render("Filter by book")}
	for idx, entry := range entries {
		label := entry
		active := false
		if entry == state.FilterAll {
			label = "All books"
			active = len(m.state.ActiveBooks) == 0
		} else {
			active = m.state.ActiveBooks[entry]
		}
		mark := "[ ]"
		if active {
			mark = "[x]"
		}
		if entry == m.removing {
			label += " " + m.spinner.View()
		}
		line := fmt.Sprintf("%s %s", mark, label)
		if idx == m.filterCursor {
			line = m.styles.Selected.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if len(entries) == 1 {
		lines = append(lines, m.styles.Helper.Render(msgNoBooks))
	}
	return m.styles.Panel.Width(m.layout.viewportWidth).Render(strings.Join(lines, "\n"))
}

func (m *model) savedPanelView() string {
	lines := []string{m.styles.Title.Render(fmt.Sprintf("Saved quotes (%d)", len(m.state.Saved)))}
	if len(m.state.Saved) == 0 {
		lines = append(lines, m.styles.Helper.Render(msgNoSaved))
	}
	width := m.wrapWidth(8)
	for idx, q := range m.state.Saved {
		row := m.styles.Book.Render(q.BookTitle) + "\n" + indentMultiline(wordwrap.String(previewText(q.QuoteText, width*2), width), "  ")
		if idx == m.savedCursor {
			row = indentMultiline(row, "▸ ")
		} else {
			row = indentMultiline(row, "  ")
		}
		lines = append(lines, row)
	}
	return m.styles.Panel.Width(m.layout.viewportWidth).Render(strings.Join(lines, "\n"))
}

func (m *model) uploadPanelView() string {
	return m.styles.Panel.Width(m.layout.viewportWidth).Render(joinNonEmpty([]string{
		m.styles.Title.Render("Upload books"),
		m.uploadInput.View(),
		m.styles.Helper.Render("Only .epub files are accepted. Enter to upload, Esc to cancel."),
	}))
}

func (m *model) statusLine() string {
	if m.toast != "" {
		if m.toastError {
			return m.styles.Error.Render(m.toast)
		}
		return m.styles.Toast.Render(m.toast)
	}
	switch {
	case m.uploading:
		return m.styles.Helper.Render(m.spinner.View() + " Uploading...")
	case m.removing != "":
		return m.styles.Helper.Render(m.spinner.View() + " Removing " + m.removing + "...")
	}
	return ""
}

type keyHint struct {
	key  string
	desc string
}

func (m *model) footerView() string {
	var hints []keyHint
	switch m.panel {
	case panelThread:
		hints = []keyHint{{"enter", "send"}, {"↑/↓", "scroll"}, {"esc", "close"}}
	case panelFilter:
		hints = []keyHint{{"enter", "toggle"}, {"x", "remove book"}, {"esc", "back"}}
	case panelSaved:
		hints = []keyHint{{"d", "remove"}, {"y", "share"}, {"e", "export"}, {"esc", "back"}}
	case panelUpload:
		hints = []keyHint{{"enter", "upload"}, {"esc", "cancel"}}
	default:
		hints = []keyHint{
			{"j/k", "move"}, {"enter", "comments"}, {"s", "save"}, {"y", "share"},
			{"o", "source"}, {"f", "filter"}, {"S", "saved"}, {"?", "help"}, {"q", "quit"},
		}
	}
	cells := make([]string, 0, len(hints))
	for _, hint := range hints {
		cells = append(cells, m.styles.Key.Render(hint.key)+" "+m.styles.KeyDesc.Render(hint.desc))
	}
	return strings.Join(cells, "  ")
}

func (m *model) helpView() string {
	lines := []string{
		m.styles.Title.Render("Keys"),
		m.styles.Helper.Render("• j / k move between quotes; the next page loads as you near the end, or press n."),
		m.styles.Helper.Render("• enter opens the comment thread; type and press enter to ask about the quote."),
		m.styles.Helper.Render("• s saves, y shares, o shows the source passage with chapter and position."),
		m.styles.Helper.Render("• f filters by book (x removes a book), S opens saved quotes (e exports)."),
		m.styles.Helper.Render("• u uploads .epub files, r generates a new feed, t switches light/dark."),
	}
	return m.styles.Panel.Width(m.layout.viewportWidth).Render(strings.Join(lines, "\n"))
}
