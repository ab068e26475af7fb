// Package credstore stores the user's portal credentials encrypted at rest.
// The file is an age ciphertext under a passphrase-derived (scrypt) key, so
// credentials are never written to disk in plaintext. Decrypted passwords are
// handed out with a release function that zeroes them after use.
package credstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

var (
	// ErrNoCredentials means no credential file has been saved yet.
	ErrNoCredentials = errors.New("no stored credentials: run savecreds first")

	// ErrBadPassphrase means the credential file exists but the supplied
	// passphrase cannot decrypt it.
	ErrBadPassphrase = errors.New("stored credentials could not be decrypted: wrong passphrase")

	// ErrNoPassphrase means stored credentials exist but no passphrase was
	// available to decrypt them.
	ErrNoPassphrase = errors.New("no passphrase available for stored credentials")
)

// Credentials are the portal login. Password is a byte slice so it can be
// zeroed once the run no longer needs it.
type Credentials struct {
	User     string
	Password []byte
}

// Zero overwrites the password bytes.
func (c *Credentials) Zero() {
	for i := range c.Password {
		c.Password[i] = 0
	}
}

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Exists reports whether a credential file has been saved.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

type payload struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// Save encrypts the credentials under the passphrase and writes them with
// owner-only permissions.
func (s *Store) Save(creds Credentials, passphrase []byte) error {
	recipient, err := age.NewScryptRecipient(string(passphrase))
	if err != nil {
		return fmt.Errorf("credstore save: %w", err)
	}

	plain, err := json.Marshal(payload{User: creds.User, Password: string(creds.Password)})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return fmt.Errorf("credstore save: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	zero(plain)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, buf.Bytes(), 0600)
}

// Acquire decrypts the stored credentials. The returned release function
// zeroes the password; callers must invoke it as soon as the credentials have
// been used.
func (s *Store) Acquire(passphrase []byte) (Credentials, func(), error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil, ErrNoCredentials
		}
		return Credentials{}, nil, err
	}

	identity, err := age.NewScryptIdentity(string(passphrase))
	if err != nil {
		return Credentials{}, nil, fmt.Errorf("credstore acquire: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) {
			return Credentials{}, nil, ErrBadPassphrase
		}
		return Credentials{}, nil, fmt.Errorf("credstore acquire: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return Credentials{}, nil, ErrBadPassphrase
	}
	defer zero(plain)

	var p payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return Credentials{}, nil, fmt.Errorf("credstore acquire: corrupt credential file: %w", err)
	}

	creds := Credentials{User: p.User, Password: []byte(p.Password)}
	return creds, creds.Zero, nil
}

// Delete removes the credential file.
func (s *Store) Delete() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
