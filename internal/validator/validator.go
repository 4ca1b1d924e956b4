package validator

import (
	"errors"
	"regexp"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrInvalidPair     = errors.New("invalid currency pair")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3,5}$`)
	pairRegex     = regexp.MustCompile(`^[A-Z]{3,5}/[A-Z]{3,5}$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateCurrency(code string) error {
	if !currencyRegex.MatchString(code) {
		return ErrInvalidCurrency
	}
	return nil
}

// ValidatePair accepts pairs like EUR/USD or BTC/USDT.
func ValidatePair(pair string) error {
	if !pairRegex.MatchString(pair) {
		return ErrInvalidPair
	}
	return nil
}
