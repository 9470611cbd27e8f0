// Package id identifies employee records handed to the generator. Callers
// pass the id of the employee a number is issued for; it is logged and
// recorded next to the number but never influences the number itself.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is an employee record id.
type ID = uuid.UUID

// New returns a time-ordered UUIDv7 so directory files list employees in
// the order they were recorded.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse reads an employee id. An empty string is the zero id, meaning the
// caller did not supply one.
func Parse(s string) (ID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	v, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid employee id %q: %w", s, err)
	}
	return v, nil
}
