package session

import (
	"errors"
	"fmt"
)

var (
	ErrSelfReference       = errors.New("a character cannot have a pronoun rule to itself")
	ErrDuplicatePair       = errors.New("pronoun rule for this pair already exists")
	ErrEmptyName           = errors.New("name must not be empty")
	ErrEmptyValue          = errors.New("pronoun value must not be empty")
	ErrDuplicateCharacter  = errors.New("character already exists")
	ErrUnknownCharacter    = errors.New("unknown character")
	ErrDuplicateExpression = errors.New("expression already exists")
	ErrUnknownExpression   = errors.New("unknown expression")
	ErrReservedExpression  = errors.New("expression is reserved")
	ErrNotFound            = errors.New("not found")
)

// ConsistencyError is returned when a pronoun edit would break pair uniqueness
// or create a self reference. Err is ErrSelfReference or ErrDuplicatePair.
type ConsistencyError struct {
	From string
	To   string
	Err  error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("pronoun rule %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}
