package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const maxEmailLen = 254

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes a single rejected input field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseEventID checks that id is a canonical UUID and returns it in its
// lower-case string form.
func ParseEventID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &FieldError{Field: "event_id", Reason: "required"}
	}

	u, err := uuid.Parse(id)
	if err != nil {
		return "", &FieldError{Field: "event_id", Reason: "must be a uuid"}
	}

	return u.String(), nil
}

// NormalizeEmail trims and lower-cases email, then checks its shape:
// a local part, an @ and a domain containing a dot.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", &FieldError{Field: "participant_email", Reason: "required"}
	}

	if err := validate.Var(email, fmt.Sprintf("email,max=%d", maxEmailLen)); err != nil {
		return "", &FieldError{Field: "participant_email", Reason: "malformed email"}
	}

	at := strings.LastIndexByte(email, '@')
	host := email[at+1:]
	if dot := strings.IndexByte(host, '.'); dot <= 0 || dot == len(host)-1 {
		return "", &FieldError{Field: "participant_email", Reason: "malformed email"}
	}

	return email, nil
}

// ValidateNewEvent trims text fields in place and validates them.
func ValidateNewEvent(e *NewEvent) error {
	e.Title = strings.TrimSpace(e.Title)
	e.Venue = strings.TrimSpace(e.Venue)

	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &FieldError{
				Field:  strings.ToLower(verrs[0].Field()),
				Reason: "failed " + verrs[0].Tag(),
			}
		}
		return err
	}

	return nil
}
