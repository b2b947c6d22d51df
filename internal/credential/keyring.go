package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"github.com/nhle/notesync/internal/model"
)

// Opener opens the keyring for a service name. Tests swap it for an
// in-memory ring.
type Opener func(service string) (keyring.Keyring, error)

// openKeyring returns a configured keyring instance for service.
func openKeyring(service string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KeychainBackend,
			keyring.KWalletBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		LibSecretCollectionName:  "login",
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Resolver looks up the IMAP password for a profile.
type Resolver struct {
	Open Opener
}

// NewResolver returns a Resolver backed by the system keyring.
func NewResolver() *Resolver {
	return &Resolver{Open: openKeyring}
}

// Password returns the plain password or the keyring secret the profile
// points at. Failures are profile errors: a missing secret is
// NoPasswordProvided, an unusable keyring is AgentLocked.
func (r *Resolver) Password(p *model.Profile) (string, error) {
	switch p.PasswordType {
	case model.PasswordPlain:
		if p.Password == "" {
			return "", model.Errorf(model.ProfileNoPasswordProvided, "no password in profile")
		}
		return p.Password, nil

	case model.PasswordSecretService:
		ring, err := r.Open(p.SecretServiceAttribute)
		if err != nil {
			return "", model.Wrap(model.ProfileAgentLocked, err, "keyring unavailable")
		}
		item, err := ring.Get(p.SecretServiceValue)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", model.Wrap(model.ProfileNoPasswordProvided, err,
				fmt.Sprintf("no secret %q in %q", p.SecretServiceValue, p.SecretServiceAttribute))
		}
		if err != nil {
			return "", model.Wrap(model.ProfileAgentLocked, err, "reading keyring")
		}
		if len(item.Data) == 0 {
			return "", model.Errorf(model.ProfileNoPasswordProvided,
				"secret %q in %q is empty", p.SecretServiceValue, p.SecretServiceAttribute)
		}
		return string(item.Data), nil
	}

	return "", model.Errorf(model.ProfileNoPasswordProvided, "unknown password_type %q", p.PasswordType)
}

// Store saves password in the keyring entry the profile points at.
func (r *Resolver) Store(p *model.Profile, password string) error {
	if p.PasswordType != model.PasswordSecretService {
		return model.Errorf(model.ProfileNoPasswordProvided,
			"password_type is %s, set password in the profile instead", p.PasswordType)
	}
	ring, err := r.Open(p.SecretServiceAttribute)
	if err != nil {
		return model.Wrap(model.ProfileAgentLocked, err, "keyring unavailable")
	}

	err = ring.Set(keyring.Item{
		Key:   p.SecretServiceValue,
		Data:  []byte(password),
		Label: fmt.Sprintf("%s IMAP password", p.Username),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", p.SecretServiceValue, err)
	}
	return nil
}
