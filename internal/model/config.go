package model

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// PasswordType selects where the IMAP password comes from.
type PasswordType string

const (
	PasswordPlain         PasswordType = "PLAIN"
	PasswordSecretService PasswordType = "SECRET_SERVICE"
)

// Profile is the user configuration: account, server and editor.
type Profile struct {
	// Username is the IMAP login.
	Username string `mapstructure:"username" yaml:"username"`

	PasswordType PasswordType `mapstructure:"password_type" yaml:"password_type"`

	// Password is only read when PasswordType is PLAIN.
	Password string `mapstructure:"password" yaml:"password"`

	// SecretServiceAttribute and SecretServiceValue locate the password in
	// the system keyring when PasswordType is SECRET_SERVICE.
	SecretServiceAttribute string `mapstructure:"secret_service_attribute" yaml:"secret_service_attribute"`
	SecretServiceValue     string `mapstructure:"secret_service_value" yaml:"secret_service_value"`

	IMAPServer string `mapstructure:"imap_server" yaml:"imap_server"`
	IMAPPort   int    `mapstructure:"imap_port" yaml:"imap_port"`

	// IMAPInsecure connects without TLS. Meant for local bridges.
	IMAPInsecure bool `mapstructure:"imap_insecure" yaml:"imap_insecure"`

	// Email is used as the From address and Message-Id domain.
	Email string `mapstructure:"email" yaml:"email"`

	Editor          string   `mapstructure:"editor" yaml:"editor"`
	EditorArguments []string `mapstructure:"editor_arguments" yaml:"editor_arguments"`

	// Database is the path of the local SQLite note store.
	Database string `mapstructure:"database" yaml:"database"`

	// Folder is the mailbox new notes are created in.
	Folder string `mapstructure:"folder" yaml:"folder"`
}

// Address returns host:port of the IMAP server.
func (p Profile) Address() string {
	return fmt.Sprintf("%s:%d", p.IMAPServer, p.IMAPPort)
}

// Domain returns the domain part of the configured email, used to mint
// message ids.
func (p Profile) Domain() string {
	addr := p.Email
	if parsed, err := mail.ParseAddress(p.Email); err == nil {
		addr = parsed.Address
	}
	if i := strings.LastIndex(addr, "@"); i >= 0 && i < len(addr)-1 {
		return addr[i+1:]
	}
	return "localhost"
}

// Validate checks the fields the sync engine cannot work without.
func (p Profile) Validate() error {
	switch p.PasswordType {
	case PasswordPlain:
		if p.Password == "" {
			return Errorf(ProfileNoPasswordProvided, "password_type is PLAIN but no password is set")
		}
	case PasswordSecretService:
		if p.SecretServiceAttribute == "" || p.SecretServiceValue == "" {
			return Errorf(ProfileNoPasswordProvided,
				"password_type is SECRET_SERVICE but secret_service_attribute or secret_service_value is missing")
		}
	default:
		return Errorf(ProfileNoPasswordProvided, "unknown password_type %q", p.PasswordType)
	}
	if p.IMAPServer == "" {
		return Errorf(ProfileNotFound, "imap_server is not set")
	}
	return nil
}

// DefaultConfigPath returns ~/.config/notesync/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "notesync", "config.yaml")
}

// DefaultDatabasePath returns ~/.local/share/notesync/notes.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "notes.db")
	}
	return filepath.Join(home, ".local", "share", "notesync", "notes.db")
}

// LoadProfile reads the profile from the YAML file at path using Viper.
// A missing file is a ProfileError of kind NotFound.
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("password_type", string(PasswordPlain))
	v.SetDefault("imap_port", 993)
	v.SetDefault("editor", "vi")
	v.SetDefault("database", DefaultDatabasePath())
	v.SetDefault("folder", DefaultFolder)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return nil, Wrap(ProfileNotFound, err, fmt.Sprintf("no profile at %s", path))
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	p := &Profile{}
	if err := v.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	p.PasswordType = PasswordType(strings.ToUpper(string(p.PasswordType)))

	if strings.HasPrefix(p.Database, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p.Database = filepath.Join(home, p.Database[2:])
		}
	}

	return p, nil
}

// SaveProfile writes p as YAML to path, creating the directory. An
// existing file is replaced.
func SaveProfile(path string, p *Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("username", p.Username)
	v.Set("password_type", string(p.PasswordType))
	if p.PasswordType == PasswordPlain {
		v.Set("password", p.Password)
	} else {
		v.Set("secret_service_attribute", p.SecretServiceAttribute)
		v.Set("secret_service_value", p.SecretServiceValue)
	}
	v.Set("imap_server", p.IMAPServer)
	v.Set("imap_port", p.IMAPPort)
	if p.IMAPInsecure {
		v.Set("imap_insecure", true)
	}
	v.Set("email", p.Email)
	v.Set("editor", p.Editor)
	if len(p.EditorArguments) > 0 {
		v.Set("editor_arguments", p.EditorArguments)
	}
	if p.Database != "" {
		v.Set("database", p.Database)
	}
	if p.Folder != "" {
		v.Set("folder", p.Folder)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
