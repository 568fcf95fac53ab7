package utils

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmail is returned when a message body is not an email address.
var ErrInvalidEmail = errors.New("invalid email address")

var validate = validator.New()

// ValidateEmail trims the raw message body and checks that what remains is a
// single email address. It returns the normalized address.
func ValidateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// RandomTicketNumber returns a ticket number in [0, 999] for deployments
// without a sequence store.
func RandomTicketNumber() string {
	return strconv.Itoa(rand.IntN(1000))
}

// RandomNumberer hands out random ticket numbers.
type RandomNumberer struct{}

func (RandomNumberer) NextTicketNumber(context.Context) (string, error) {
	return RandomTicketNumber(), nil
}
