package util

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// ValidateEmail rejects blank or malformed addresses.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obligatorio")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// RequireString ensures a non-blank value.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obligatorio")
	}
	return nil
}

// OneOf ensures value is one of the allowed options.
func OneOf(value, field string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s inválido", field)
}

// ParseCoordinate parses decimal degrees within [-limit, limit].
func ParseCoordinate(value, field string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%s inválida", field)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%s fuera de rango", field)
	}
	return v, nil
}
