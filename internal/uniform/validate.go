package uniform

import (
	"errors"
	"fmt"
	"strings"

	"finitefield.org/uniform-studio/internal/catalog"
)

// ErrKeywordRequired is returned when the keyword is empty after trimming.
var ErrKeywordRequired = errors.New("uniform: keyword is required")

// FieldError reports a field that failed its native constraints.
type FieldError struct {
	Field     string
	Violation catalog.Violation
	Message   string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("uniform: %s: %s", e.Field, e.Violation)
}

// Validate runs the pre-submission checks in order: keyword, player name, player number.
// It stops at the first failure.
func Validate(f FormState, c *catalog.Catalog) error {
	if strings.TrimSpace(f.Keyword.Or("")) == "" {
		return ErrKeywordRequired
	}
	checks := []struct {
		name  string
		field Field
	}{
		{FieldPlayerName, f.PlayerName},
		{FieldPlayerNumber, f.PlayerNumber},
	}
	for _, chk := range checks {
		cons := c.Constraint(chk.name)
		if v, ok := cons.Check(chk.field.Or("")); !ok {
			return &FieldError{Field: chk.name, Violation: v, Message: cons.Message(v)}
		}
	}
	return nil
}
