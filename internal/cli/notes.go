package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
)

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Write a new note in the editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.notes.NewInteractive(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s [%s]\n", note.Subject(), note.UUID())
			return nil
		},
	}
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <uuid|title>",
		Short: "Edit a note in the editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.notes.EditInteractive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", note.Subject())
			return nil
		},
	}
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <uuid|title>",
		Short: "Resolve diverged revisions of a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.notes.MergeInteractive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s\n", note.Subject())
			return nil
		},
	}
}

func newPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <uuid|title>",
		Short: "Print a note as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.notes.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notes.Text(*note))
			return nil
		},
	}
}

// newDeleteCmd builds delete, or undelete when deleted is false.
func newDeleteCmd(deleted bool) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <uuid|title>",
		Short: "Mark a note for deletion on the next sync",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			note, err := e.notes.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if deleted && !yes {
				ok, err := confirm(fmt.Sprintf("Delete %q?", note.Subject()))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			if err := e.notes.SetDeleted(cmd.Context(), note, deleted); err != nil {
				return err
			}

			verb := "Deleted"
			if !deleted {
				verb = "Restored"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, note.Subject())
			return nil
		},
	}
	if deleted {
		cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	} else {
		cmd.Use = "undelete <uuid|title>"
		cmd.Short = "Clear the deletion mark of a note"
	}
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		onlyUUID  bool
		onlyNames bool
		deleted   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			list, err := e.notes.List(cmd.Context(), notes.ListOptions{Deleted: deleted})
			if err != nil {
				return err
			}
			return printList(cmd, list, onlyUUID, onlyNames)
		},
	}
	cmd.Flags().BoolVar(&onlyUUID, "uuid", false, "print only UUIDs")
	cmd.Flags().BoolVar(&onlyNames, "names", false, "print only titles")
	cmd.Flags().BoolVar(&deleted, "deleted", false, "list notes marked for deletion")
	cmd.MarkFlagsMutuallyExclusive("uuid", "names")
	return cmd
}

func printList(cmd *cobra.Command, list []model.Note, onlyUUID, onlyNames bool) error {
	out := cmd.OutOrStdout()
	if len(list) == 0 && !onlyUUID && !onlyNames {
		fmt.Fprintln(cmd.ErrOrStderr(), "No notes.")
		return nil
	}

	switch {
	case onlyUUID:
		for _, n := range list {
			fmt.Fprintln(out, n.UUID())
		}
		return nil
	case onlyNames:
		for _, n := range list {
			fmt.Fprintln(out, n.Subject())
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, n := range list {
		flag := ""
		if n.NeedsMerge() {
			flag = "[merge]"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.UUID(), n.Subject(), n.Folder(), flag)
	}
	return w.Flush()
}
