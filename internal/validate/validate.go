// Package validate checks user input before it reaches the network.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report json names ("title") rather than Go field names ("Title").
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
}

// Error is a client-side validation failure. It is never sent to the server.
type Error struct {
	Fields map[string]string
	order  []string
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.order))
	for _, f := range e.order {
		parts = append(parts, f+" "+e.Fields[f])
	}
	return strings.Join(parts, "; ")
}

// Field builds a single-field validation error.
func Field(name, msg string) *Error {
	return &Error{Fields: map[string]string{name: msg}, order: []string{name}}
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return err
	}
	out := &Error{Fields: make(map[string]string, len(valErrs))}
	for _, fe := range valErrs {
		if _, seen := out.Fields[fe.Field()]; seen {
			continue
		}
		out.Fields[fe.Field()] = message(fe)
		out.order = append(out.order, fe.Field())
	}
	return out
}

// Var validates a single value against tag.
func Var(name string, val any, tag string) error {
	err := v.Var(val, tag)
	if err == nil {
		return nil
	}
	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) && len(valErrs) > 0 {
		return Field(name, message(valErrs[0]))
	}
	return err
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "eqfield":
		return "does not match"
	case "hexcolor":
		return "must be a color like #6366f1"
	}
	return "is invalid"
}
