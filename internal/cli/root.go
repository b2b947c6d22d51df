package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/notesync/internal/app"
	"github.com/nhle/notesync/internal/credential"
	"github.com/nhle/notesync/internal/editor"
	"github.com/nhle/notesync/internal/mail"
	"github.com/nhle/notesync/internal/model"
	"github.com/nhle/notesync/internal/notes"
	"github.com/nhle/notesync/internal/store"
	"github.com/nhle/notesync/internal/sync"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string
	verbose bool
)

// NewRootCmd builds the command tree. Without a subcommand the terminal
// UI starts.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notesync",
		Short:         "Sync notes with an IMAP mailbox",
		Long:          "Keep Markdown notes in a local database and sync them with the Notes folder of an IMAP account.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(io.Discard)
			if verbose {
				log.SetOutput(os.Stderr)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			log.SetOutput(io.Discard)
			return app.Run(e.notes, editor.New(e.profile), func(ctx context.Context) (*sync.Report, error) {
				return e.runSync(ctx, syncOptions{})
			})
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("notesync %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log sync progress to stderr")

	root.AddCommand(newNewCmd())
	root.AddCommand(newEditCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newMergeCmd())
	root.AddCommand(newDeleteCmd(true))
	root.AddCommand(newDeleteCmd(false))
	root.AddCommand(newPrintCmd())
	root.AddCommand(newPasswordCmd())
	root.AddCommand(newInitCmd())
	return root
}

// Execute runs the CLI and exits with the status of the error family.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "notesync: %v\n", err)
		os.Exit(model.ExitCode(err))
	}
}

// env holds what every command needs: the profile, the store and the
// note operations bound to the editor.
type env struct {
	profile *model.Profile
	store   *store.SQLiteStore
	notes   *notes.Service
	creds   *credential.Resolver
}

func openEnv() (*env, error) {
	path := cfgFile
	if path == "" {
		path = model.DefaultConfigPath()
	}
	profile, err := model.LoadProfile(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(profile.Database), 0o700); err != nil {
		return nil, model.Wrap(model.UpdateIOError, err, "creating data directory")
	}
	s, err := store.NewSQLiteStore(profile.Database)
	if err != nil {
		return nil, model.Wrap(model.UpdateIOError, err, "opening database")
	}

	svc := notes.NewService(s, profile)
	svc.Edit = editor.New(profile).Edit
	svc.Confirm = confirm

	return &env{
		profile: profile,
		store:   s,
		notes:   svc,
		creds:   credential.NewResolver(),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		log.Printf("[store] closing database: %v", err)
	}
}

// runSync connects, runs one pass and disconnects.
func (e *env) runSync(ctx context.Context, opts syncOptions) (*sync.Report, error) {
	if err := e.profile.Validate(); err != nil {
		return nil, err
	}
	password, err := e.creds.Password(e.profile)
	if err != nil {
		return nil, err
	}

	session, err := mail.Dial(ctx, mail.ConfigFromProfile(e.profile, password))
	if err != nil {
		return nil, model.Wrap(model.UpdateSyncError, err, "connecting")
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("[imap] %v", err)
		}
	}()

	engine := sync.NewEngine(e.store, session)
	if opts.resolve {
		engine.Resolve = e.notes.ResolveByUUID
	}
	return engine.Run(ctx, opts.dryRun)
}

type syncOptions struct {
	dryRun  bool
	resolve bool
}

// confirm asks a yes/no question on the terminal.
func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
