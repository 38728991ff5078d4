package secrets

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the engine's secrets in the OS keychain.
const KeyringService = "jobingest"

var ErrNoPassword = errors.New("database password not found in keychain")

func GetDBPassword(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	pw, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(pw) == "") {
		return "", fmt.Errorf("%w (account %q)", ErrNoPassword, account)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %q: %w", account, err)
	}
	return pw, nil
}

func SetDBPassword(account, password string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, account, password)
}

func DeleteDBPassword(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}

// DatabaseURL fills the password of a postgres URL from the keychain. URLs that
// already carry a password are returned unchanged.
func DatabaseURL(raw, account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	if u.User == nil {
		return "", errors.New("database url has no user to attach a password to")
	}
	if _, ok := u.User.Password(); ok {
		return raw, nil
	}
	pw, err := GetDBPassword(account)
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String(), nil
}
