// Package validation checks archive configuration and path segments.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/arthur-debert/nanoarchive/formats"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// instance returns the shared validator with the archive-specific tags
// registered:
//
//	recordformat  the value names a registered formats.RecordFormat
//	segment       the value is usable as a single path component
func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("recordformat", func(fl validator.FieldLevel) bool {
			_, err := formats.Get(fl.Field().String())
			return err == nil
		})
		_ = validate.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
			return Segment(fl.Field().String()) == nil
		})
	})
	return validate
}

// Struct validates s against its `validate` struct tags and flattens the
// result into one readable error.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "recordformat":
		return fmt.Sprintf("%s: unknown format %q (available: %s)",
			fe.Field(), fe.Value(), strings.Join(formats.List(), ", "))
	case "segment":
		return fmt.Sprintf("%s: %q is not a valid path segment", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

// Segment checks that name can be used as exactly one path component: it
// must be non-empty, must not be "." or "..", and must not contain a path
// separator or NUL byte.
func Segment(name string) error {
	switch {
	case name == "":
		return errors.New("must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is reserved", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q contains a path separator", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%q contains a NUL byte", name)
	}
	return nil
}
