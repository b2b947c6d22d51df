package sync

import (
	"context"
	"log"

	"github.com/nhle/notesync/internal/mail"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/store"
)

// Report describes one sync pass.
type Report struct {
	Actions []Action
	Results []Result
	DryRun  bool
}

// Engine runs complete sync passes: fetch remote headers, group them,
// load the local snapshot, plan and execute.
type Engine struct {
	Store   store.Store
	Mail    mail.Service
	Resolve Resolver
}

// NewEngine creates an Engine over the given store and mail service.
func NewEngine(s store.Store, m mail.Service) *Engine {
	return &Engine{Store: s, Mail: m}
}

// Plan fetches both sides and returns the planned actions without
// executing them.
func (e *Engine) Plan(ctx context.Context) ([]Action, error) {
	headers, err := e.Mail.FetchHeaders(ctx)
	if err != nil {
		return nil, model.Wrap(model.UpdateSyncError, err, "fetching remote headers")
	}

	grouped := model.Group(headers)
	for _, c := range grouped.BySize() {
		log.Printf("[sync] remote %s: %d revision(s)", c.UUID(), len(c))
	}

	local, err := e.Store.FetchAllNotes(ctx)
	if err != nil {
		return nil, model.Wrap(model.UpdateIOError, err, "loading local notes")
	}

	actions := Plan(grouped, local)
	log.Printf("[sync] %d remote notes, %d local notes, %d actions",
		len(grouped), len(local), len(actions))
	return actions, nil
}

// Run performs one pass. It fails only when the remote headers or the
// local snapshot cannot be loaded; per-action failures are in the
// report.
func (e *Engine) Run(ctx context.Context, dryRun bool) (*Report, error) {
	actions, err := e.Plan(ctx)
	if err != nil {
		return nil, err
	}

	exec := &Executor{
		Store:   e.Store,
		Mail:    e.Mail,
		Resolve: e.Resolve,
		DryRun:  dryRun,
	}
	return &Report{
		Actions: actions,
		Results: exec.Execute(ctx, actions),
		DryRun:  dryRun,
	}, nil
}
