// Package app is the terminal UI: a note browser that edits through the
// external editor and syncs in the background.
package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/notesync/internal/editor"
	"github.com/nhle/notesync/internal/keys"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
	"github.com/nhle/notesync/internal/sync"
	"github.com/nhle/notesync/internal/ui"
	"github.com/nhle/notesync/internal/ui/detail"
	helpview "github.com/nhle/notesync/internal/ui/help"
	"github.com/nhle/notesync/internal/ui/notelist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
)

// Model is the root Bubble Tea model. It owns view routing and the
// status line; sync runs on the worker and reports back as messages.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	notes        *notes.Service
	editor       *editor.Editor
	noteList     notelist.Model
	detail       detail.Model
	helpView     helpview.Model
	worker       *sync.Worker
	ready        bool

	syncing   bool
	lastSync  string
	status    string
	statusErr bool
}

// New creates the root model. The worker must be started by the caller.
func New(svc *notes.Service, ed *editor.Editor, w *sync.Worker) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewList,
		keys:        k,
		notes:       svc,
		editor:      ed,
		noteList:    notelist.New(svc, k, 80, 22),
		detail:      detail.New(k, 80, 22),
		helpView:    helpview.New(k, 80, 22),
		worker:      w,
	}
}

// Run starts the worker and the UI and blocks until the user quits.
func Run(svc *notes.Service, ed *editor.Editor, run sync.RunFunc) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sync.NewWorker(run)
	w.Start(ctx)

	_, err := tea.NewProgram(New(svc, ed, w), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("running terminal UI: %w", err)
	}
	return nil
}

// Init loads the notes and starts listening to the worker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.noteList.Init(),
		m.worker.WaitForOutcome(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.noteList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m, nil

	case sync.OutcomeMsg:
		return m.handleOutcome(msg)

	case notelist.NotesLoadedMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		var cmd tea.Cmd
		m.noteList, cmd = m.noteList.Update(msg)
		return m, cmd

	case notelist.SelectedNoteMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadNote(msg.UUID)

	case detail.NoteLoadedMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			m.currentView = ViewList
			return m, nil
		}
		m.detail.SetNote(msg.Note)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case editorDoneMsg:
		return m, m.saveEdited(msg)

	case noteSavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(msg.status)
		}
		cmds := []tea.Cmd{m.noteList.LoadNotes()}
		if n, ok := m.detail.Note(); ok && m.currentView == ViewDetail {
			cmds = append(cmds, m.loadNote(n.UUID()))
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.currentView == ViewList && m.noteList.Filtering() {
			break
		}
		if !m.syncing {
			m.status = ""
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleKey runs the global and note keys. It reports false when the key
// belongs to the active view.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewList {
			return m.quit(), true
		}
		m.currentView = ViewList
		return nil, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
		m.currentView = m.previousView
		return nil, true

	case key.Matches(msg, m.keys.Sync):
		if m.syncing {
			m.setStatus("A sync is already running")
			return nil, true
		}
		m.syncing = true
		m.setStatus("Syncing...")
		m.worker.Submit(sync.TaskSync)
		return nil, true

	case key.Matches(msg, m.keys.New):
		return m.openEditor(editNew, "", ""), true
	}

	n, ok := m.current()
	if !ok {
		return nil, false
	}
	switch {
	case key.Matches(msg, m.keys.Edit):
		return m.startEdit(n, editNote), true
	case key.Matches(msg, m.keys.Merge):
		return m.startEdit(n, editMerge), true
	case key.Matches(msg, m.keys.Delete):
		return m.toggleDeleted(n), true
	}
	return nil, false
}

// current returns the note the keys act on: the open one in the detail
// view, the selected one in the list.
func (m Model) current() (model.Note, bool) {
	switch m.currentView {
	case ViewDetail:
		if n, ok := m.detail.Note(); ok {
			return *n, true
		}
	case ViewList:
		return m.noteList.Selected()
	}
	return model.Note{}, false
}

func (m Model) handleOutcome(msg sync.OutcomeMsg) (tea.Model, tea.Cmd) {
	switch msg.Kind {
	case sync.OutcomeEnd:
		return m, nil

	case sync.OutcomeBusy:
		m.setStatus("A sync is already running")
		return m, m.worker.WaitForOutcome()

	case sync.OutcomeFailure:
		m.syncing = false
		m.setError(msg.Err)
		return m, m.worker.WaitForOutcome()
	}

	m.syncing = false
	m.lastSync = msg.Finished.Format("15:04")
	m.setStatus(summarize(msg.Report))
	return m, tea.Batch(m.noteList.LoadNotes(), m.worker.WaitForOutcome())
}

// summarize turns a sync report into one status line.
func summarize(r *sync.Report) string {
	if r == nil || len(r.Results) == 0 {
		return "Sync done, nothing to do"
	}
	failed := sync.Failed(r.Results)
	if failed == 0 {
		return fmt.Sprintf("Sync done, %d change(s)", len(r.Results))
	}
	for _, res := range r.Results {
		if !res.OK() {
			return fmt.Sprintf("Sync done, %d of %d failed: %s", failed, len(r.Results), res)
		}
	}
	return ""
}

func (m *Model) quit() tea.Cmd {
	m.worker.Submit(sync.TaskEnd)
	return tea.Quit
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = describe(err)
	m.statusErr = true
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewList:
		m.noteList, cmd = m.noteList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	}
	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "notesync"
	if m.noteList.ShowingDeleted() {
		title = "notesync [deleted]"
	}
	header := m.layout.RenderHeader(title, m.syncStatus())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.status, m.statusErr)
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return m.noteList.View()
	}
}

// syncStatus returns a short string describing the sync state.
func (m Model) syncStatus() string {
	switch {
	case m.syncing:
		return "syncing"
	case m.lastSync != "":
		return "synced " + m.lastSync
	default:
		return "not synced"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | e edit | m merge | d delete | j/k scroll"
	default:
		return "q quit | ? help | s sync | n new | e edit | m merge | d delete | t trash | / filter"
	}
}
