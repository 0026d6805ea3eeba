package config

import (
	"fmt"

	"github.com/mistio/mist/internal/errors"
)

// Backend returns the backend at index, the way request handlers address them.
func (s *Settings) Backend(index int) (Backend, error) {
	if index < 0 || index >= len(s.Backends) {
		return Backend{}, errors.New(errors.ErrLookup,
			fmt.Sprintf("No backend at index %d (%d configured)", index, len(s.Backends)),
			"List configured backends with: mist backends list")
	}
	return s.Backends[index], nil
}

// AddBackend appends a backend and returns its index.
func (s *Settings) AddBackend(b Backend) int {
	s.Backends = append(s.Backends, b)
	return len(s.Backends) - 1
}

// RemoveBackend deletes the backend at index, shifting later backends down.
func (s *Settings) RemoveBackend(index int) error {
	if _, err := s.Backend(index); err != nil {
		return err
	}
	s.Backends = append(s.Backends[:index], s.Backends[index+1:]...)
	return nil
}

// Keypair returns the named keypair.
func (s *Settings) Keypair(name string) (Keypair, error) {
	kp, ok := s.Keypairs[name]
	if !ok {
		return Keypair{}, errors.New(errors.ErrLookup,
			fmt.Sprintf("Keypair '%s' not found", name),
			"List stored keypairs with: mist keys list")
	}
	return kp, nil
}

// AddKeypair stores a keypair under name, replacing any previous one.
func (s *Settings) AddKeypair(name, public, private string) error {
	if name == "" {
		return errors.New(errors.ErrConfig,
			"Keypair name can't be empty",
			"Pass a name, e.g. mist keys add default --public ~/.ssh/id_rsa.pub")
	}
	if s.Keypairs == nil {
		s.Keypairs = make(map[string]Keypair)
	}
	s.Keypairs[name] = Keypair{Public: public, Private: private}
	return nil
}
