package provider

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"github.com/fioncat/vbrowse/types"
)

// KeyringToken is the auths value that defers the token to the system
// keyring.
const KeyringToken = "keyring"

const keyringService = "vbrowse"

// ResolveToken returns the token configured for domain. A value of
// "keyring" is looked up from the system keyring instead.
func ResolveToken(cfg *types.Config, domain string) (string, error) {
	if cfg == nil || cfg.Auths == nil {
		return "", nil
	}
	token := cfg.Auths[domain]
	if token != KeyringToken {
		return token, nil
	}

	ring, err := openKeyring()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(domain)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("no token for %q in keyring, please use `vbrowse auth set` to save one", domain)
		}
		return "", fmt.Errorf("get token from keyring: %w", err)
	}
	return string(item.Data), nil
}

func SaveToken(domain, token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	err = ring.Set(keyring.Item{
		Key:   domain,
		Data:  []byte(token),
		Label: fmt.Sprintf("vbrowse token for %s", domain),
	})
	if err != nil {
		return fmt.Errorf("save token to keyring: %w", err)
	}
	return nil
}

func RemoveToken(domain string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	err = ring.Remove(domain)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("remove token from keyring: %w", err)
	}
	return nil
}

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}
