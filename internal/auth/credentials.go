package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"shop-catalog-service/internal/domain"
	"shop-catalog-service/internal/store"
)

const (
	// UsernamePrefix is the fixed prefix of generated admin usernames.
	UsernamePrefix = "admin"

	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
	passwordLength   = 16

	// bootstrapRetries bounds how often a colliding username is regenerated
	// before BootstrapAdmin gives up.
	bootstrapRetries = 5
)

// ErrBootstrapExhausted is returned when every generated username collided.
var ErrBootstrapExhausted = errors.New("auth: could not generate a unique admin username")

// GenerateUsername returns "<prefix>_<8 hex chars>" using crypto/rand.
func GenerateUsername(prefix string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("auth: failed to generate username suffix: %w", err)
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(suffix)), nil
}

// GeneratePassword returns a random password of the given length drawn from
// letters, digits and a fixed symbol set, using a cryptographically secure
// source.
func GeneratePassword(length int) (string, error) {
	password := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(passwordAlphabet)))
	for i := range password {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("auth: failed to generate password: %w", err)
		}
		password[i] = passwordAlphabet[n.Int64()]
	}
	return string(password), nil
}

// BootstrapAdmin creates a privileged account with freshly generated random
// credentials and returns the plaintext pair exactly once. The caller is the
// only place the password ever exists in the clear; it is never logged and
// only its bcrypt hash is persisted. Username collisions regenerate the
// username up to a bounded number of attempts.
func BootstrapAdmin(ctx context.Context, users store.UserStorer) (username, password string, err error) {
	password, err = GeneratePassword(passwordLength)
	if err != nil {
		return "", "", err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return "", "", fmt.Errorf("auth: failed to hash generated password: %w", err)
	}

	for attempt := 0; attempt < bootstrapRetries; attempt++ {
		username, err = GenerateUsername(UsernamePrefix)
		if err != nil {
			return "", "", err
		}
		exists, err := users.UsernameExists(ctx, username)
		if err != nil {
			return "", "", err
		}
		if exists {
			continue
		}

		_, err = users.CreateUser(ctx, &domain.User{
			Username:     username,
			PasswordHash: hash,
			IsAdmin:      true,
		})
		if err == nil {
			return username, password, nil
		}
		// A concurrent writer can still win the race between the existence
		// check and the insert; regenerate on that conflict too.
		if errors.Is(err, store.ErrUsernameExists) {
			continue
		}
		return "", "", err
	}
	return "", "", ErrBootstrapExhausted
}
