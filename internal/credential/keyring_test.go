package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/notesync/internal/model"
)

func secretProfile() *model.Profile {
	return &model.Profile{
		Username:               "me",
		PasswordType:           model.PasswordSecretService,
		SecretServiceAttribute: "notesync",
		SecretServiceValue:     "imap",
	}
}

func TestPassword_Plain(t *testing.T) {
	r := &Resolver{}
	pw, err := r.Password(&model.Profile{PasswordType: model.PasswordPlain, Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)

	_, err = r.Password(&model.Profile{PasswordType: model.PasswordPlain})
	assert.ErrorIs(t, err, model.ErrNoPasswordProvided)
}

func TestPassword_SecretService(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	r := &Resolver{Open: func(service string) (keyring.Keyring, error) {
		assert.Equal(t, "notesync", service)
		return ring, nil
	}}

	_, err := r.Password(secretProfile())
	assert.ErrorIs(t, err, model.ErrNoPasswordProvided)
	assert.Equal(t, 2, model.ExitCode(err))

	require.NoError(t, r.Store(secretProfile(), "s3cret"))
	pw, err := r.Password(secretProfile())
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
}

func TestPassword_KeyringLocked(t *testing.T) {
	r := &Resolver{Open: func(string) (keyring.Keyring, error) {
		return nil, errors.New("dbus: no session bus")
	}}
	_, err := r.Password(secretProfile())
	assert.ErrorIs(t, err, model.ErrAgentLocked)
	assert.Equal(t, 3, model.ExitCode(err))
}

func TestStore_RequiresSecretService(t *testing.T) {
	r := &Resolver{}
	err := r.Store(&model.Profile{PasswordType: model.PasswordPlain}, "x")
	assert.ErrorIs(t, err, model.ErrNoPasswordProvided)
}
