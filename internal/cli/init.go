package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/notesync/internal/credential"
	"github.com/nhle/notesync/internal/model"
)

// profileForm holds the raw answers of the setup form.
type profileForm struct {
	username     string
	email        string
	server       string
	port         string
	passwordType string
	password     string
	editor       string
	folder       string
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a profile interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				path = model.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to replace it", path)
			}

			f := &profileForm{port: "993", passwordType: string(model.PasswordSecretService), editor: "vi", folder: model.DefaultFolder}
			if err := f.build().Run(); err != nil {
				return err
			}

			p, err := f.profile()
			if err != nil {
				return err
			}
			if p.PasswordType == model.PasswordSecretService {
				if err := credential.NewResolver().Store(p, f.password); err != nil {
					return err
				}
			}
			if err := model.SaveProfile(path, p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing profile")
	return cmd
}

func (f *profileForm) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Description("Sender address of uploaded notes").
				Placeholder("me@example.com").
				Value(&f.email).
				Validate(validateRequired("Email")),
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.example.com").
				Value(&f.server).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("993 for TLS, 143 for STARTTLS").
				Value(&f.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("IMAP login").
				Value(&f.username).
				Validate(validateRequired("Username")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Password storage").
				Options(
					huh.NewOption("System keyring", string(model.PasswordSecretService)),
					huh.NewOption("Plain text in the profile", string(model.PasswordPlain)),
				).
				Value(&f.passwordType),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password).
				Validate(validateRequired("Password")),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Editor").
				Description("Command used to edit notes").
				Value(&f.editor).
				Validate(validateRequired("Editor")),
			huh.NewInput().
				Title("Folder").
				Description("Mailbox new notes are created in").
				Value(&f.folder).
				Validate(validateRequired("Folder")),
		),
	)
}

// profile converts the answers into a Profile.
func (f *profileForm) profile() (*model.Profile, error) {
	port, err := strconv.Atoi(strings.TrimSpace(f.port))
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", f.port, err)
	}

	p := &model.Profile{
		Username:     strings.TrimSpace(f.username),
		PasswordType: model.PasswordType(f.passwordType),
		IMAPServer:   strings.TrimSpace(f.server),
		IMAPPort:     port,
		Email:        strings.TrimSpace(f.email),
		Editor:       strings.TrimSpace(f.editor),
		Folder:       strings.TrimSpace(f.folder),
	}
	if p.PasswordType == model.PasswordPlain {
		p.Password = f.password
	} else {
		p.SecretServiceAttribute = "notesync"
		p.SecretServiceValue = p.Username + "@" + p.IMAPServer
	}
	return p, p.Validate()
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
