package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/csheth/bookfeed/internal/api"
	"github.com/csheth/bookfeed/internal/share"
	"github.com/csheth/bookfeed/internal/state"
	"github.com/csheth/bookfeed/internal/theme"
)

// Service is the backend the UI talks to. *api.Client satisfies it.
type Service interface {
	Feed(ctx context.Context, query api.FeedQuery) (api.FeedPage, error)
	Comments(ctx context.Context, quoteID string) ([]api.Comment, error)
	Chat(ctx context.Context, body api.ChatRequest) (api.ChatResult, error)
	Upload(ctx context.Context, paths []string) (api.UploadResult, error)
	RemoveBook(ctx context.Context, title string) error
}

// Sharer hands quote text to the platform. *share.Sharer satisfies it.
type Sharer interface {
	Share(ctx context.Context, text string) (share.Method, error)
}

// SavedStore persists the saved list between sessions.
type SavedStore interface {
	ReplaceSavedQuotes(ctx context.Context, quotes []state.SavedQuote) error
}

// Config wires runtime options into the TUI program.
type Config struct {
	Service  Service
	PageSize int
	Theme    *theme.Controller
	Sharer   Sharer
	// Saved seeds the saved list, typically restored from SavedStore.
	Saved []state.SavedQuote
	// SavedStore is nil unless saved quotes should outlive the session.
	SavedStore SavedStore
	ExportPath string
	Logger     logrus.FieldLogger
	Now        func() time.Time
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Theme == nil {
		config.Theme = theme.NewController(nil)
	}
	if config.Sharer == nil {
		config.Sharer = share.New("")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.ExportPath == "" {
		config.ExportPath = "saved_quotes.json"
	}

	st := state.New(config.PageSize)
	st.LoadSaved(config.Saved)

	composer := textinput.New()
	composer.Placeholder = composerPlaceholder
	composer.CharLimit = 500
	composer.Width = 70

	uploadInput := textinput.New()
	uploadInput.Placeholder = uploadPlaceholder
	uploadInput.CharLimit = 1024
	uploadInput.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	feedView := viewport.New(80, 20)
	feedView.MouseWheelEnabled = true
	threadView := viewport.New(80, 12)
	threadView.MouseWheelEnabled = true

	m := &model{
		config:        config,
		log:           config.Logger,
		jobs:          newJobBus(config.Logger),
		state:         st,
		theme:         config.Theme,
		styles:        theme.For(config.Theme.Mode()),
		layout:        newPageLayout(),
		feedView:      feedView,
		threadView:    threadView,
		composer:      composer,
		uploadInput:   uploadInput,
		spinner:       spin,
		running:       map[string]jobSnapshot{},
		viewportDirty: true,
	}
	if config.SavedStore != nil {
		m.persister = &savedPersister{store: config.SavedStore}
	}
	return m
}

type model struct {
	config    Config
	log       logrus.FieldLogger
	jobs      *jobBus
	state     *state.AppState
	theme     *theme.Controller
	styles    theme.Styles
	persister *savedPersister

	panel       panel
	layout      pageLayout
	feedView    viewport.Model
	threadView  viewport.Model
	composer    textinput.Model
	uploadInput textinput.Model
	spinner     spinner.Model
	spinning    bool

	cursor        int
	cardLines     []int
	viewportDirty bool
	threadDirty   bool

	filterCursor int
	savedCursor  int

	uploading bool
	removing  string

	toast      string
	toastError bool
	toastID    int

	helpVisible bool
	running     map[string]jobSnapshot
}

func (m *model) Init() tea.Cmd {
	return m.fetch(false)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.markViewportDirty()
		return m, cmd
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.feedView.Width = m.layout.viewportWidth
		m.feedView.Height = m.layout.viewportHeight
		m.threadView.Width = m.layout.viewportWidth
		m.threadView.Height = m.layout.threadHeight
		m.composer.Width = m.layout.viewportWidth - 4
		m.uploadInput.Width = m.layout.viewportWidth - 4
		m.markViewportDirty()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		switch m.panel {
		case panelFeed:
			m.refreshViewportIfDirty()
			m.feedView, cmd = m.feedView.Update(msg)
			return m, tea.Batch(cmd, m.maybeLoadMore())
		case panelThread:
			m.threadView, cmd = m.threadView.Update(msg)
		}
		return m, cmd
	case jobSignalMsg:
		m.running[msg.Snapshot.ID] = msg.Snapshot
		return m, nil
	case jobResultEnvelope:
		delete(m.running, msg.Snapshot.ID)
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case feedPageMsg:
		return m, m.handleFeedPage(msg)
	case commentCountsMsg:
		for id, count := range msg.counts {
			m.state.SetCommentCount(id, count)
		}
		m.markViewportDirty()
		return m, nil
	case threadMsg:
		if msg.err != nil {
			if m.state.FailThread(msg.req, msg.err) {
				m.log.WithError(msg.err).WithField("quote_id", msg.req.QuoteID).Warn("thread load failed")
			}
		} else {
			m.state.ApplyThread(msg.req, msg.comments)
		}
		m.markThreadDirty()
		m.markViewportDirty()
		return m, nil
	case chatMsg:
		return m, m.handleChat(msg)
	case uploadMsg:
		return m, m.handleUpload(msg)
	case removeBookMsg:
		m.removing = ""
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("book", msg.title).Warn("remove book failed")
			return m, m.showError(toastRemoveFailed)
		}
		books := make([]string, 0)
		for _, title := range m.state.KnownBooks() {
			if title != msg.title {
				books = append(books, title)
			}
		}
		return m, tea.Batch(m.showToast(fmt.Sprintf("Removed %s", msg.title)), m.fullReload(books))
	case shareMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("share failed")
			return m, m.showError(toastShareFailed)
		}
		if msg.method == share.ViaClipboard {
			return m, m.showToast(toastCopied)
		}
		return m, m.showToast(toastShared)
	case exportMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("path", msg.path).Warn("export failed")
			return m, m.showError(toastExportFailed)
		}
		return m, m.showToast(fmt.Sprintf("Exported %d quotes to %s", msg.result.Total, msg.path))
	case persistMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("persist saved quotes failed")
			return m, m.showError(toastPersistFailed)
		}
		return m, nil
	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = ""
			m.toastError = false
		}
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.panel {
	case panelThread:
		return m, m.handleThreadKey(key)
	case panelFilter:
		return m, m.handleFilterKey(key)
	case panelSaved:
		return m, m.handleSavedKey(key)
	case panelUpload:
		return m, m.handleUploadKey(key)
	default:
		return m.handleFeedKey(key)
	}
}

func (m *model) handleFeedKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.helpVisible = false
		return m, nil
	case "up", "k":
		return m, m.moveCursor(-1)
	case "down", "j":
		return m, m.moveCursor(1)
	case "g", "home":
		return m, m.moveCursor(-len(m.state.Items))
	case "G", "end":
		return m, m.moveCursor(len(m.state.Items))
	case "pgdown", "ctrl+d":
		m.refreshViewportIfDirty()
		m.feedView.HalfViewDown()
		return m, m.maybeLoadMore()
	case "pgup", "ctrl+u":
		m.refreshViewportIfDirty()
		m.feedView.HalfViewUp()
		return m, nil
	case "enter", "c":
		return m, m.openThread()
	case "s":
		return m, m.toggleSave()
	case "y":
		item, ok := m.currentItem()
		if !ok {
			return m, nil
		}
		return m, m.share(item.Preview, item.BookTitle)
	case "o":
		item, ok := m.currentItem()
		if !ok {
			return m, nil
		}
		m.state.ToggleSourceVisibility(item.ID)
		m.markViewportDirty()
		return m, nil
	case "f":
		m.panel = panelFilter
		m.filterCursor = 0
		return m, nil
	case "S":
		m.panel = panelSaved
		m.clampSavedCursor()
		return m, nil
	case "u":
		if m.uploading {
			return m, nil
		}
		m.panel = panelUpload
		m.uploadInput.Reset()
		return m, m.uploadInput.Focus()
	case "r":
		return m, m.fetch(false)
	case "n":
		return m, m.fetch(true)
	case "t":
		return m, m.toggleTheme()
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	}
	return m, nil
}

func (m *model) handleThreadKey(key tea.KeyMsg) tea.Cmd {
	switch key.Type {
	case tea.KeyEsc:
		m.closeThread()
		return nil
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyUp, tea.KeyPgUp:
		m.threadView.LineUp(1)
		return nil
	case tea.KeyDown, tea.KeyPgDown:
		m.threadView.LineDown(1)
		return nil
	}
	if m.state.Thread.Submitting {
		return nil
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return cmd
}

func (m *model) filterEntries() []string {
	return append([]string{state.FilterAll}, m.state.KnownBooks()...)
}

func (m *model) handleFilterKey(key tea.KeyMsg) tea.Cmd {
	entries := m.filterEntries()
	switch key.String() {
	case "esc", "f", "q":
		m.panel = panelFeed
		return nil
	case "up", "k":
		if m.filterCursor > 0 {
			m.filterCursor--
		}
	case "down", "j":
		if m.filterCursor < len(entries)-1 {
			m.filterCursor++
		}
	case "enter", " ":
		if m.filterCursor >= len(entries) {
			return nil
		}
		req, _ := m.state.ToggleBookFilter(entries[m.filterCursor])
		m.resetFeedView()
		return m.runFetch(req)
	case "x":
		if m.filterCursor == 0 || m.filterCursor >= len(entries) || m.removing != "" {
			return nil
		}
		m.removing = entries[m.filterCursor]
		return tea.Batch(m.jobs.Start(jobKindRemove, removeBookJob(m.config.Service, m.removing)), m.startSpinner())
	}
	return nil
}

func (m *model) handleSavedKey(key tea.KeyMsg) tea.Cmd {
	switch key.String() {
	case "esc", "S", "q":
		m.panel = panelFeed
		return nil
	case "up", "k":
		if m.savedCursor > 0 {
			m.savedCursor--
		}
	case "down", "j":
		if m.savedCursor < len(m.state.Saved)-1 {
			m.savedCursor++
		}
	case "d":
		if m.savedCursor >= len(m.state.Saved) {
			return nil
		}
		m.state.RemoveSaved(m.state.Saved[m.savedCursor].ID)
		m.clampSavedCursor()
		m.markViewportDirty()
		return tea.Batch(m.showToast(toastRemoved), m.persistSaved())
	case "y":
		if m.savedCursor >= len(m.state.Saved) {
			return nil
		}
		q := m.state.Saved[m.savedCursor]
		return m.share(q.QuoteText, q.BookTitle)
	case "e":
		if len(m.state.Saved) == 0 {
			return m.showToast(toastNothingToExport)
		}
		return m.jobs.Start(jobKindExport, exportJob(m.config.ExportPath, m.state.Saved, m.config.Now()))
	}
	return nil
}

func (m *model) handleUploadKey(key tea.KeyMsg) tea.Cmd {
	switch key.Type {
	case tea.KeyEsc:
		m.uploadInput.Blur()
		m.panel = panelFeed
		return nil
	case tea.KeyEnter:
		paths := parseUploadPaths(m.uploadInput.Value())
		m.uploadInput.Blur()
		m.panel = panelFeed
		if len(paths) == 0 {
			return nil
		}
		m.uploading = true
		return tea.Batch(m.jobs.Start(jobKindUpload, uploadJob(m.config.Service, paths)), m.startSpinner())
	}
	var cmd tea.Cmd
	m.uploadInput, cmd = m.uploadInput.Update(key)
	return cmd
}

// fetch begins a feed request. Appends that the state refuses are no-ops.
func (m *model) fetch(appendPage bool) tea.Cmd {
	req, ok := m.state.BeginFetch(appendPage)
	if !ok {
		return nil
	}
	if !appendPage {
		m.resetFeedView()
	}
	return m.runFetch(req)
}

func (m *model) runFetch(req state.FeedRequest) tea.Cmd {
	m.markViewportDirty()
	return tea.Batch(m.jobs.Start(jobKindFeed, fetchFeedJob(m.config.Service, req)), m.startSpinner())
}

func (m *model) resetFeedView() {
	m.cursor = 0
	m.feedView.GotoTop()
	m.markViewportDirty()
}

func (m *model) handleFeedPage(msg feedPageMsg) tea.Cmd {
	if msg.err != nil {
		if m.state.FailFetch(msg.req, msg.err) {
			m.log.WithError(msg.err).WithFields(logrus.Fields{
				"page":   msg.req.Page,
				"append": msg.req.Append,
			}).Warn("feed fetch failed")
			m.markViewportDirty()
		}
		return nil
	}
	res, ok := m.state.ApplyPage(msg.req, msg.page)
	if !ok {
		m.log.WithField("generation", msg.req.Generation).Debug("stale feed page dropped")
		return nil
	}
	m.markViewportDirty()
	if len(res.Added) == 0 {
		return nil
	}
	ids := make([]string, 0, len(res.Added))
	for _, item := range res.Added {
		ids = append(ids, item.ID)
	}
	return m.jobs.Start(jobKindCounts, commentCountsJob(m.config.Service, m.log, ids))
}

// moveCursor shifts the highlighted quote and asks for the next page once
// the cursor is close to the end of what is rendered.
func (m *model) moveCursor(delta int) tea.Cmd {
	count := len(m.state.Items)
	if count == 0 {
		return nil
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > count-1 {
		m.cursor = count - 1
	}
	m.markViewportDirty()
	m.refreshViewportIfDirty()
	m.ensureCursorVisible()
	if count-1-m.cursor < loadMoreDistance {
		return m.fetch(true)
	}
	return nil
}

// maybeLoadMore asks for the next page once the feed viewport has been
// scrolled to within loadMoreLines of the bottom of the rendered cards.
func (m *model) maybeLoadMore() tea.Cmd {
	if len(m.state.Items) == 0 {
		return nil
	}
	remaining := m.feedView.TotalLineCount() - (m.feedView.YOffset + m.feedView.Height)
	if remaining >= loadMoreLines {
		return nil
	}
	return m.fetch(true)
}

func (m *model) currentItem() (api.FeedItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Items) {
		return api.FeedItem{}, false
	}
	return m.state.Items[m.cursor], true
}

func (m *model) openThread() tea.Cmd {
	item, ok := m.currentItem()
	if !ok {
		return nil
	}
	req, ok := m.state.OpenThread(item.ID)
	if !ok {
		return nil
	}
	m.panel = panelThread
	m.composer.Reset()
	m.threadView.GotoTop()
	m.markThreadDirty()
	return tea.Batch(
		m.composer.Focus(),
		m.jobs.Start(jobKindThread, loadThreadJob(m.config.Service, req)),
		m.startSpinner(),
	)
}

func (m *model) closeThread() {
	m.state.CloseThread()
	m.composer.Blur()
	m.composer.Reset()
	m.panel = panelFeed
	m.markViewportDirty()
}

func (m *model) submit() tea.Cmd {
	req, ok := m.state.BeginSubmit(m.composer.Value())
	if !ok {
		return nil
	}
	m.composer.Blur()
	m.markThreadDirty()
	return tea.Batch(m.jobs.Start(jobKindChat, chatJob(m.config.Service, req)), m.startSpinner())
}

func (m *model) handleChat(msg chatMsg) tea.Cmd {
	current := m.state.FinishSubmit(msg.req)
	m.markThreadDirty()
	if msg.err != nil {
		m.log.WithError(msg.err).WithField("quote_id", msg.req.QuoteID).Warn("chat failed")
		var focus tea.Cmd
		if current {
			focus = m.composer.Focus()
		}
		return tea.Batch(focus, m.showError(toastSendFailed))
	}
	if !current {
		return m.jobs.Start(jobKindCounts, commentCountsJob(m.config.Service, m.log, []string{msg.req.QuoteID}))
	}
	m.composer.Reset()
	focus := m.composer.Focus()
	req, ok := m.state.BeginThreadLoad()
	if !ok {
		return focus
	}
	return tea.Batch(focus, m.jobs.Start(jobKindThread, loadThreadJob(m.config.Service, req)), m.startSpinner())
}

func (m *model) handleUpload(msg uploadMsg) tea.Cmd {
	m.uploading = false
	if msg.err != nil {
		m.log.WithError(msg.err).Warn("upload failed")
		if api.IsBackend(msg.err) {
			return m.showError(errorText(msg.err))
		}
		return m.showError(toastUploadFailed)
	}
	uploaded := len(msg.result.SuccessfulUploads)
	if uploaded == 0 {
		return m.showError("No books were uploaded")
	}
	books := append(m.state.KnownBooks(), msg.result.Books...)
	return tea.Batch(
		m.showToast(fmt.Sprintf("Successfully uploaded %d books", uploaded)),
		m.fullReload(books),
	)
}

// fullReload puts the session back in its start-up shape and loads a fresh
// feed. Saved quotes and the theme survive; books seeds the filter picker.
func (m *model) fullReload(books []string) tea.Cmd {
	m.state.Reset()
	m.state.RememberBooks(books...)
	m.composer.Blur()
	m.composer.Reset()
	m.panel = panelFeed
	m.filterCursor = 0
	m.helpVisible = false
	return m.fetch(false)
}

func (m *model) toggleSave() tea.Cmd {
	item, ok := m.currentItem()
	if !ok {
		return nil
	}
	saved := m.state.ToggleSave(item.ID, item.Preview, item.BookTitle, m.config.Now())
	m.markViewportDirty()
	toast := toastUnsaved
	if saved {
		toast = toastSaved
	}
	return tea.Batch(m.showToast(toast), m.persistSaved())
}

func (m *model) persistSaved() tea.Cmd {
	if m.persister == nil {
		return nil
	}
	return m.jobs.Start(jobKindPersist, m.persister.job(m.state.Saved))
}

func (m *model) share(quote, book string) tea.Cmd {
	return m.jobs.Start(jobKindShare, shareJob(m.config.Sharer, share.Format(quote, book)))
}

func (m *model) toggleTheme() tea.Cmd {
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()
	mode, err := m.theme.Toggle(ctx)
	m.styles = theme.For(mode)
	m.markViewportDirty()
	m.markThreadDirty()
	if err != nil {
		m.log.WithError(err).Warn("theme not persisted")
		return m.showError(toastThemeFailed)
	}
	return nil
}

func (m *model) showToast(text string) tea.Cmd {
	m.toastID++
	m.toast = text
	m.toastError = false
	return clearToastCmd(m.toastID)
}

func (m *model) showError(text string) tea.Cmd {
	cmd := m.showToast(text)
	m.toastError = true
	return cmd
}

func (m *model) busy() bool {
	return m.state.Loading || m.state.Thread.Loading || m.state.Thread.Submitting || m.uploading || m.removing != ""
}

func (m *model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m *model) clampSavedCursor() {
	if m.savedCursor >= len(m.state.Saved) {
		m.savedCursor = len(m.state.Saved) - 1
	}
	if m.savedCursor < 0 {
		m.savedCursor = 0
	}
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) markThreadDirty() {
	m.threadDirty = true
}
