package editor

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notesync/internal/model"
)

func TestEdit_ReturnsSavedText(t *testing.T) {
	e := &Editor{Command: "sh", Args: []string{"-c", `printf '# New\n\nbody' > "$0"`}}
	text, err := e.Edit(context.Background(), "# Old")
	require.NoError(t, err)
	assert.Equal(t, "# New\n\nbody", text)
}

func TestEdit_Unchanged(t *testing.T) {
	e := &Editor{Command: "true"}
	text, err := e.Edit(context.Background(), "keep me")
	require.NoError(t, err)
	assert.Equal(t, "keep me", text)
}

func TestEdit_EditorFails(t *testing.T) {
	e := &Editor{Command: "false"}
	_, err := e.Edit(context.Background(), "x")
	assert.Error(t, err)
}

func TestFile_CommandAndCleanup(t *testing.T) {
	e := &Editor{Command: "code --wait", Args: []string{"-n"}}
	f, err := e.Open("hello")
	require.NoError(t, err)

	cmd := f.Command(context.Background())
	assert.Equal(t, []string{"code", "--wait", "-n", f.Path}, cmd.Args)
	assert.False(t, f.Changed(" hello\n"))
	assert.True(t, f.Changed("bye"))

	f.Remove()
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("EDITOR", "")
	e := New(&model.Profile{})
	assert.Equal(t, "vi", e.Command)

	e = New(&model.Profile{Editor: "nano", EditorArguments: []string{"-R"}})
	assert.Equal(t, "nano", e.Command)
	assert.Equal(t, []string{"-R"}, e.Args)
}

func TestNew_BlankEditorFallsBack(t *testing.T) {
	t.Setenv("EDITOR", "  ")
	assert.Equal(t, "vi", New(&model.Profile{Editor: "   "}).Command)

	t.Setenv("EDITOR", "nano")
	assert.Equal(t, "nano", New(&model.Profile{Editor: " \t"}).Command)
}

func TestFile_CommandWithBlankEditor(t *testing.T) {
	e := &Editor{Command: "  "}
	f, err := e.Open("x")
	require.NoError(t, err)
	defer f.Remove()

	cmd := f.Command(context.Background())
	assert.Equal(t, []string{"vi", f.Path}, cmd.Args)
}
