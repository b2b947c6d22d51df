package sync

import (
	"sort"

	"github.com/nhle/notesync/internal/model"
)

// Plan decides one action per note UUID from the grouped remote headers
// and the local snapshot. It performs no I/O and its output is ordered by
// UUID, so equal inputs always give equal plans.
func Plan(remote model.GroupedRemoteNoteHeaders, local []model.Note) []Action {
	byUUID := make(map[string]*model.Note, len(local))
	for i := range local {
		byUUID[local[i].UUID()] = &local[i]
	}

	seen := make(map[string]bool, len(remote)+len(local))
	uuids := make([]string, 0, len(remote)+len(local))
	for id := range remote {
		if !seen[id] {
			seen[id] = true
			uuids = append(uuids, id)
		}
	}
	for id := range byUUID {
		if !seen[id] {
			seen[id] = true
			uuids = append(uuids, id)
		}
	}
	sort.Strings(uuids)

	var actions []Action
	for _, id := range uuids {
		kind, ok := decide(byUUID[id], remote[id])
		if !ok {
			continue
		}
		actions = append(actions, Action{
			Kind:   kind,
			UUID:   id,
			Local:  byUUID[id],
			Remote: remote[id],
		})
	}
	return actions
}

// decide applies the rule cascade to one note. The first matching rule
// wins.
func decide(local *model.Note, remote model.RemoteNoteHeaderCollection) (ActionKind, bool) {
	hasLocal := local != nil
	hasRemote := len(remote) > 0

	switch {
	case !hasLocal && !hasRemote:
		return "", false
	case !hasLocal:
		return AddLocally, true
	}

	meta := local.Metadata
	needsMerge := local.NeedsMerge()
	deleted := meta.LocallyDeleted

	if !hasRemote {
		switch {
		case meta.New && !deleted:
			return AddRemotely, true
		case !meta.New && meta.Edited && !deleted && !needsMerge:
			return AddRemotely, true
		case !meta.New && !needsMerge:
			return DeleteLocally, true
		case meta.New && !needsMerge && deleted:
			return DeleteLocally, true
		}
		return "", false
	}

	if !deleted && supersedesRemote(*local, remote) {
		return UpdateRemotely, true
	}

	if !deleted {
		if acknowledged(*local, remote) {
			return UpdateLocally, true
		}
		if !changedLocally(*local) && changedRemotely(*local, remote) {
			return UpdateLocally, true
		}
	}

	if !needsMerge && deleted {
		return DeleteRemote, true
	}

	if divergent(*local, remote) {
		return Merge, true
	}

	return "", false
}

// supersedesRemote reports whether the single local revision was written
// on top of the revisions the remote holds. The remote may already carry
// the local revision itself when an earlier upload got no further, but at
// least one superseded revision must remain.
func supersedesRemote(local model.Note, remote model.RemoteNoteHeaderCollection) bool {
	if local.NeedsMerge() {
		return false
	}
	body := local.FirstBody()
	if !body.HasOldRemote() {
		return false
	}

	old := make(map[string]bool)
	for _, id := range body.Supersedes() {
		old[id] = true
	}
	pending := false
	for _, id := range remote.MessageIDs() {
		switch {
		case id != "" && old[id]:
			pending = true
		case id != "" && id == body.MessageID:
		default:
			return false
		}
	}
	return pending
}

// acknowledged reports whether the remote already holds exactly the local
// revision even though the local side still marks it unsynced. This is
// the state left behind when an upload succeeded but the local commit did
// not.
func acknowledged(local model.Note, remote model.RemoteNoteHeaderCollection) bool {
	if local.NeedsMerge() {
		return false
	}
	id, ok := remote.SingleMessageID()
	if !ok {
		return false
	}
	body := local.FirstBody()
	if body.MessageID != id {
		return false
	}
	return body.HasOldRemote() || local.Metadata.New || local.Metadata.Edited
}

// changedLocally reports whether any local body is an unsynced edit.
func changedLocally(local model.Note) bool {
	for _, b := range local.Bodies {
		if b.HasOldRemote() {
			return true
		}
	}
	return false
}

// changedRemotely reports whether the remote revision set differs from
// the local one.
func changedRemotely(local model.Note, remote model.RemoteNoteHeaderCollection) bool {
	if len(local.Bodies) != len(remote) {
		return true
	}
	have := make(map[string]bool, len(local.Bodies))
	for _, b := range local.Bodies {
		have[b.MessageID] = true
	}
	for _, id := range remote.MessageIDs() {
		if !have[id] {
			return true
		}
	}
	return false
}

// divergent reports whether both sides hold a single, different revision
// and the local one is an unsynced edit.
func divergent(local model.Note, remote model.RemoteNoteHeaderCollection) bool {
	if local.NeedsMerge() {
		return false
	}
	id, ok := remote.SingleMessageID()
	if !ok {
		return false
	}
	body := local.FirstBody()
	return body.HasOldRemote() && body.MessageID != id
}
