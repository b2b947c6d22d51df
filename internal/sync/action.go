package sync

import (
	"fmt"

	"github.com/nhle/notesync/internal/model"
)

// ActionKind names what a sync pass does for one note.
type ActionKind string

const (
	AddLocally     ActionKind = "AddLocally"
	AddRemotely    ActionKind = "AddRemotely"
	UpdateRemotely ActionKind = "UpdateRemotely"
	UpdateLocally  ActionKind = "UpdateLocally"
	DeleteLocally  ActionKind = "DeleteLocally"
	DeleteRemote   ActionKind = "DeleteRemote"
	Merge          ActionKind = "Merge"
)

// Action is the single step planned for one note UUID. Local is nil when
// the note only exists remotely; Remote is empty when it only exists
// locally.
type Action struct {
	Kind   ActionKind
	UUID   string
	Local  *model.Note
	Remote model.RemoteNoteHeaderCollection
}

// Subject returns the note title, preferring the local copy.
func (a Action) Subject() string {
	if a.Local != nil {
		if s := a.Local.Subject(); s != "" {
			return s
		}
	}
	if len(a.Remote) > 0 {
		return a.Remote.Subject()
	}
	return a.UUID
}

func (a Action) String() string {
	return fmt.Sprintf("%s %s", a.Kind, a.Subject())
}

// Result records the outcome of one executed action.
type Result struct {
	Kind    ActionKind
	UUID    string
	Subject string
	Err     error
}

// OK reports whether the action succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("Action %s Failed %s (%v)", r.Kind, r.Subject, r.Err)
	}
	return fmt.Sprintf("Action %s Ok [%s]", r.Kind, r.Subject)
}

// Failed counts the failed results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
