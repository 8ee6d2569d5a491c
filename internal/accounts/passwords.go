package accounts

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 32
	// bcrypt only accepts up to 72 bytes of input.
	maxPasswordBytes = 72
)

// ValidatePasswordFormat requires 8-32 characters with at least one digit,
// one lowercase letter, one uppercase letter and one special character, and
// no more than 72 bytes once encoded.
func ValidatePasswordFormat(password string) error {
	length := len([]rune(password))
	if length < minPasswordLength || length > maxPasswordLength {
		return fmt.Errorf("password must be %d to %d characters: %w", minPasswordLength, maxPasswordLength, ErrWeakPassword)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes: %w", maxPasswordBytes, ErrWeakPassword)
	}
	var hasDigit, hasLower, hasUpper, hasSpecial bool
	for _, character := range password {
		switch {
		case unicode.IsDigit(character):
			hasDigit = true
		case unicode.IsLower(character):
			hasLower = true
		case unicode.IsUpper(character):
			hasUpper = true
		case unicode.IsPunct(character) || unicode.IsSymbol(character):
			hasSpecial = true
		}
	}
	if !hasDigit || !hasLower || !hasUpper || !hasSpecial {
		return fmt.Errorf("password needs a digit, a lowercase letter, an uppercase letter and a special character: %w", ErrWeakPassword)
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("accounts.password.hash: %w: %w", ErrWeakPassword, err)
	}
	if err != nil {
		return "", fmt.Errorf("accounts.password.hash: %w", err)
	}
	return string(hashed), nil
}

func passwordMatches(encodedHash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
