package sync

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Task is a request sent to the Worker.
type Task int

const (
	TaskSync Task = iota
	TaskEnd
)

// OutcomeKind classifies what the Worker reports back.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
	OutcomeBusy
	OutcomeEnd
)

// OutcomeMsg is a tea.Msg sent when the Worker finishes a task or rejects
// one.
type OutcomeMsg struct {
	Kind     OutcomeKind
	Report   *Report
	Err      error
	Finished time.Time
}

// RunFunc performs one sync pass, including connecting and disconnecting.
type RunFunc func(ctx context.Context) (*Report, error)

// Worker runs sync passes one at a time in the background. Its state is
// owned by a single goroutine; callers only exchange messages with it.
type Worker struct {
	run      RunFunc
	tasks    chan Task
	outcomes chan OutcomeMsg
}

// NewWorker creates a Worker that calls run for every accepted TaskSync.
func NewWorker(run RunFunc) *Worker {
	return &Worker{
		run:      run,
		tasks:    make(chan Task, 4),
		outcomes: make(chan OutcomeMsg, 16),
	}
}

// Start launches the worker loop. It returns when TaskEnd is received or
// ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Submit queues a task without blocking. A full queue drops the task.
func (w *Worker) Submit(t Task) {
	select {
	case w.tasks <- t:
	default:
		log.Printf("[sync] worker queue full, dropping task %d", t)
	}
}

// Outcomes exposes the outcome channel.
func (w *Worker) Outcomes() <-chan OutcomeMsg {
	return w.outcomes
}

// WaitForOutcome returns a tea.Cmd that waits for the next outcome. It
// should be re-issued after every OutcomeMsg to keep listening.
func (w *Worker) WaitForOutcome() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-w.outcomes
		if !ok {
			return nil
		}
		return msg
	}
}

func (w *Worker) loop(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	running := false
	done := make(chan OutcomeMsg, 1)

	for {
		select {
		case <-ctx.Done():
			w.send(OutcomeMsg{Kind: OutcomeEnd, Finished: time.Now()})
			return

		case t := <-w.tasks:
			switch t {
			case TaskSync:
				if running {
					w.send(OutcomeMsg{Kind: OutcomeBusy, Finished: time.Now()})
					continue
				}
				running = true
				go w.pass(ctx, done)
			case TaskEnd:
				cancel()
				if running {
					<-done
				}
				w.send(OutcomeMsg{Kind: OutcomeEnd, Finished: time.Now()})
				return
			}

		case msg := <-done:
			running = false
			w.send(msg)
		}
	}
}

func (w *Worker) pass(ctx context.Context, done chan<- OutcomeMsg) {
	report, err := w.run(ctx)
	if err != nil {
		log.Printf("[sync] pass failed: %v", err)
		done <- OutcomeMsg{Kind: OutcomeFailure, Err: err, Finished: time.Now()}
		return
	}
	done <- OutcomeMsg{Kind: OutcomeSuccess, Report: report, Finished: time.Now()}
}

// send delivers an outcome without blocking the loop.
func (w *Worker) send(msg OutcomeMsg) {
	select {
	case w.outcomes <- msg:
	default:
		// Drop if channel is full to avoid blocking the worker.
	}
}
