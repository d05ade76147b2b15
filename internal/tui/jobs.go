package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

type jobKind string

type jobStatus string

const (
	jobKindFeed    jobKind = "feed"
	jobKindCounts  jobKind = "counts"
	jobKindThread  jobKind = "thread"
	jobKindChat    jobKind = "chat"
	jobKindUpload  jobKind = "upload"
	jobKindRemove  jobKind = "remove-book"
	jobKindShare   jobKind = "share"
	jobKindExport  jobKind = "export"
	jobKindPersist jobKind = "persist-saved"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

// jobRunner does the blocking part of a job. It always returns a payload,
// also on error, so every started job ends in exactly one result message.
type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	counter int64
	log     logrus.FieldLogger
}

func newJobBus(log logrus.FieldLogger) *jobBus {
	return &jobBus{log: log}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	startSnapshot, runCmd := b.prepare(kind, runner)
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}
	return tea.Sequence(startCmd, runCmd)
}

// prepare allocates the job id and wraps runner so its payload comes back
// inside a jobResultEnvelope.
func (b *jobBus) prepare(kind jobKind, runner jobRunner) (jobSnapshot, tea.Cmd) {
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}

	runCmd := func() tea.Msg {
		payload, err := runner(context.Background())
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = jobStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)

		entry := b.log.WithFields(logrus.Fields{
			"job":      id,
			"kind":     kind,
			"status":   snapshot.Status,
			"duration": snapshot.Duration.Round(time.Millisecond).String(),
		})
		if err != nil {
			entry.WithError(err).Warn("[jobs] finished")
		} else {
			entry.Info("[jobs] finished")
		}
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}
	return startSnapshot, runCmd
}
