package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteMsg(uuid, messageID, folder string, uid uint32, date string) RemoteNoteMetaData {
	return RemoteNoteMetaData{
		Headers: []HeaderField{
			{Key: HeaderTypeIdentifier, Value: NoteTypeIdentifier},
			{Key: HeaderDate, Value: date},
			{Key: HeaderMessageID, Value: messageID},
			{Key: HeaderUUID, Value: uuid},
			{Key: HeaderSubject, Value: "subject " + messageID},
		},
		Folder: folder,
		UID:    uid,
	}
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil))
}

func TestGroup_CollapsesByUUID(t *testing.T) {
	in := []RemoteNoteMetaData{
		remoteMsg("B", "<b1>", "Notes", 3, "Mon, 02 Jan 2006 15:04:05 +0000"),
		remoteMsg("A", "<a2>", "Notes", 2, "Mon, 02 Jan 2006 15:04:05 +0000"),
		remoteMsg("A", "<a1>", "Notes/Work", 1, "Tue, 03 Jan 2006 15:04:05 +0000"),
		{Headers: []HeaderField{{Key: HeaderSubject, Value: "not a note"}}, Folder: "Notes", UID: 9},
	}

	grouped := Group(in)
	require.Len(t, grouped, 2)
	assert.Equal(t, []string{"A", "B"}, grouped.UUIDs())
	assert.Equal(t, []string{"<a1>", "<a2>"}, grouped["A"].MessageIDs())
	assert.Equal(t, "A", grouped["A"].UUID())

	_, single := grouped["A"].SingleMessageID()
	assert.False(t, single)
	id, single := grouped["B"].SingleMessageID()
	assert.True(t, single)
	assert.Equal(t, "<b1>", id)
}

func TestGroup_Deterministic(t *testing.T) {
	a := remoteMsg("A", "<a1>", "Notes", 1, "")
	b := remoteMsg("A", "<a2>", "Notes", 2, "")

	first := Group([]RemoteNoteMetaData{a, b})
	second := Group([]RemoteNoteMetaData{b, a})
	assert.Equal(t, first, second)
}

func TestGroupedRemoteNoteHeaders_BySize(t *testing.T) {
	grouped := Group([]RemoteNoteMetaData{
		remoteMsg("A", "<a1>", "Notes", 1, ""),
		remoteMsg("B", "<b1>", "Notes", 2, ""),
		remoteMsg("B", "<b2>", "Notes", 3, ""),
	})

	bySize := grouped.BySize()
	require.Len(t, bySize, 2)
	assert.Equal(t, "B", bySize[0].UUID())
	assert.Equal(t, "A", bySize[1].UUID())
}

func TestRemoteNoteHeaderCollection_Latest(t *testing.T) {
	c := RemoteNoteHeaderCollection{
		remoteMsg("A", "<a1>", "Notes", 1, "Mon, 02 Jan 2006 15:04:05 +0000"),
		remoteMsg("A", "<a2>", "Notes/Work", 2, "Wed, 04 Jan 2006 15:04:05 +0000"),
		remoteMsg("A", "<a3>", "Notes", 3, "Tue, 03 Jan 2006 15:04:05 +0000"),
	}

	latest := c.Latest()
	assert.Equal(t, "<a2>", latest.MessageID())
	assert.Equal(t, "Notes/Work", latest.Folder)
	assert.Equal(t, time.Date(2006, 1, 4, 15, 4, 5, 0, time.UTC), latest.Date().UTC())
	assert.True(t, c.Contains("<a3>"))
	assert.False(t, c.Contains("<zz>"))
}

func TestRemoteNoteMetaData_HeaderCaseInsensitive(t *testing.T) {
	r := RemoteNoteMetaData{Headers: []HeaderField{
		{Key: "MESSAGE-ID", Value: " <x@y> "},
		{Key: "x-universally-unique-identifier", Value: "U"},
	}}
	assert.Equal(t, "<x@y>", r.MessageID())
	assert.Equal(t, "U", r.NoteUUID())
	assert.True(t, r.Date().IsZero())
}
