// Package editor runs the user's external editor on a temporary file.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/nhle/notesync/internal/model"
)

const defaultEditor = "vi"

// Editor is the configured editor command plus its extra arguments.
type Editor struct {
	Command string
	Args    []string
}

// New returns the editor configured in the profile, falling back to $EDITOR
// and then vi.
func New(p *model.Profile) *Editor {
	command := strings.TrimSpace(p.Editor)
	if command == "" {
		command = strings.TrimSpace(os.Getenv("EDITOR"))
	}
	if command == "" {
		command = defaultEditor
	}
	return &Editor{Command: command, Args: p.EditorArguments}
}

// File is a temporary Markdown file handed to the editor.
type File struct {
	Path    string
	initial string
	editor  *Editor
}

// Open writes initial into a new temporary file.
func (e *Editor) Open(initial string) (*File, error) {
	f, err := os.CreateTemp("", "notesync-*.md")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(initial); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	return &File{Path: f.Name(), initial: initial, editor: e}, nil
}

// Command builds the editor process for this file without starting it.
func (f *File) Command(ctx context.Context) *exec.Cmd {
	parts := strings.Fields(f.editor.Command)
	if len(parts) == 0 {
		parts = []string{defaultEditor}
	}
	args := append([]string{}, parts[1:]...)
	args = append(args, f.editor.Args...)
	args = append(args, f.Path)
	return exec.CommandContext(ctx, parts[0], args...)
}

// Read returns the file content after editing.
func (f *File) Read() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", f.Path, err)
	}
	return string(b), nil
}

// Changed reports whether text differs from what the file started with.
func (f *File) Changed(text string) bool {
	return strings.TrimSpace(text) != strings.TrimSpace(f.initial)
}

// Remove deletes the temporary file.
func (f *File) Remove() {
	_ = os.Remove(f.Path)
}

// Edit opens initial in the editor attached to the current terminal and
// returns the saved text.
func (e *Editor) Edit(ctx context.Context, initial string) (string, error) {
	if strings.TrimSpace(e.Command) == "" {
		return "", fmt.Errorf("no editor configured")
	}

	f, err := e.Open(initial)
	if err != nil {
		return "", err
	}
	defer f.Remove()

	cmd := f.Command(ctx)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running editor %s: %w", e.Command, err)
	}
	return f.Read()
}
