package cli

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var (
		dryRun bool
		noEdit bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync notes with the IMAP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			report, err := e.runSync(cmd.Context(), syncOptions{dryRun: dryRun, resolve: !noEdit})
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "print the planned actions without executing them")
	cmd.Flags().BoolVar(&noEdit, "no-edit", false, "leave diverged notes for a later merge")
	return cmd
}

// printReport prints the plan for a dry run and one line per action
// otherwise. Failed actions do not change the exit status; they are
// retried on the next sync.
func printReport(cmd *cobra.Command, report *sync.Report) {
	out := cmd.OutOrStdout()
	if report.DryRun {
		if len(report.Actions) == 0 {
			fmt.Fprintln(out, "Nothing to do.")
		}
		for _, a := range report.Actions {
			fmt.Fprintln(out, a)
		}
		return
	}

	for _, r := range report.Results {
		fmt.Fprintln(out, r)
	}
	if n := sync.Failed(report.Results); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d actions failed, they will be retried on the next sync\n",
			n, len(report.Results))
	}
}

func newPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "password",
		Short: "Store the IMAP password in the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			if e.profile.PasswordType != model.PasswordSecretService {
				return model.Errorf(model.ProfileNoPasswordProvided,
					"password_type is %s, set password in the profile instead", e.profile.PasswordType)
			}

			var password string
			err = huh.NewInput().
				Title(fmt.Sprintf("IMAP password for %s", e.profile.Username)).
				EchoMode(huh.EchoModePassword).
				Value(&password).
				Run()
			if err != nil {
				return err
			}
			if password == "" {
				return model.Errorf(model.ProfileNoPasswordProvided, "empty password")
			}
			if err := e.creds.Store(e.profile, password); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Password saved.")
			return nil
		},
	}
}
