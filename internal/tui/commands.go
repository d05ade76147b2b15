package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/csheth/bookfeed/internal/api"
	"github.com/csheth/bookfeed/internal/export"
	"github.com/csheth/bookfeed/internal/share"
	"github.com/csheth/bookfeed/internal/state"
)

type feedPageMsg struct {
	req  state.FeedRequest
	page api.FeedPage
	err  error
}

type commentCountsMsg struct {
	counts map[string]int
}

type threadMsg struct {
	req      state.ThreadRequest
	comments []api.Comment
	err      error
}

type chatMsg struct {
	req    state.SubmitRequest
	result api.ChatResult
	err    error
}

type uploadMsg struct {
	result api.UploadResult
	err    error
}

type removeBookMsg struct {
	title string
	err   error
}

type shareMsg struct {
	method share.Method
	err    error
}

type exportMsg struct {
	path   string
	result export.Result
	err    error
}

type persistMsg struct {
	err error
}

type clearToastMsg struct {
	id int
}

func fetchFeedJob(svc Service, req state.FeedRequest) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, feedTimeout)
		defer cancel()
		page, err := svc.Feed(ctx, req.Query())
		return feedPageMsg{req: req, page: page, err: err}, err
	}
}

// commentCountsJob refreshes badge counts for ids with a bounded fan-out.
// A failed lookup leaves that badge alone; the rest are still delivered.
func commentCountsJob(svc Service, log logrus.FieldLogger, ids []string) jobRunner {
	ids = append([]string(nil), ids...)
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, feedTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			counts = make(map[string]int, len(ids))
			g      errgroup.Group
		)
		g.SetLimit(countFanOut)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				comments, err := svc.Comments(ctx, id)
				if err != nil {
					log.WithError(err).WithField("quote_id", id).Warn("comment count refresh failed")
					return fmt.Errorf("count %s: %w", id, err)
				}
				mu.Lock()
				counts[id] = len(comments)
				mu.Unlock()
				return nil
			})
		}
		err := g.Wait()
		return commentCountsMsg{counts: counts}, err
	}
}

func loadThreadJob(svc Service, req state.ThreadRequest) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, feedTimeout)
		defer cancel()
		comments, err := svc.Comments(ctx, req.QuoteID)
		return threadMsg{req: req, comments: comments, err: err}, err
	}
}

func chatJob(svc Service, req state.SubmitRequest) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, chatTimeout)
		defer cancel()
		result, err := svc.Chat(ctx, req.Body)
		return chatMsg{req: req, result: result, err: err}, err
	}
}

func uploadJob(svc Service, paths []string) jobRunner {
	paths = append([]string(nil), paths...)
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, uploadTimeout)
		defer cancel()
		result, err := svc.Upload(ctx, paths)
		return uploadMsg{result: result, err: err}, err
	}
}

func removeBookJob(svc Service, title string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, removeTimeout)
		defer cancel()
		err := svc.RemoveBook(ctx, title)
		return removeBookMsg{title: title, err: err}, err
	}
}

func shareJob(sharer Sharer, text string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, localTimeout)
		defer cancel()
		method, err := sharer.Share(ctx, text)
		return shareMsg{method: method, err: err}, err
	}
}

func exportJob(path string, quotes []state.SavedQuote, now time.Time) jobRunner {
	quotes = append([]state.SavedQuote(nil), quotes...)
	return func(context.Context) (tea.Msg, error) {
		result, err := export.Save(path, quotes, now)
		return exportMsg{path: path, result: result, err: err}, err
	}
}

// savedPersister writes the saved list to the store. Writes are numbered so
// a slow older write never overwrites a newer one. Numbering is lock-free;
// the mutex is only taken inside the job goroutine, around the write itself.
type savedPersister struct {
	store   SavedStore
	seq     atomic.Uint64
	mu      sync.Mutex
	written uint64
}

func (p *savedPersister) job(quotes []state.SavedQuote) jobRunner {
	seq := p.seq.Add(1)
	quotes = append([]state.SavedQuote(nil), quotes...)
	return func(parent context.Context) (tea.Msg, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if seq < p.written {
			return persistMsg{}, nil
		}
		ctx, cancel := context.WithTimeout(parent, localTimeout)
		defer cancel()
		if err := p.store.ReplaceSavedQuotes(ctx, quotes); err != nil {
			return persistMsg{err: err}, err
		}
		p.written = seq
		return persistMsg{}, nil
	}
}

func clearToastCmd(id int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return clearToastMsg{id: id}
	})
}

// parseUploadPaths splits the upload prompt into file paths. Paths are
// separated by whitespace or commas; a leading ~ expands to the home dir.
func parseUploadPaths(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	home, _ := os.UserHomeDir()
	paths := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, `"'`)
		if field == "" {
			continue
		}
		if home != "" && (field == "~" || strings.HasPrefix(field, "~/")) {
			field = filepath.Join(home, strings.TrimPrefix(field, "~"))
		}
		paths = append(paths, field)
	}
	return paths
}

// errorText prefers the message the backend sent over the transport error.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	if msg := api.BackendMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}
