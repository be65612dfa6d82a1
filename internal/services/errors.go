package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidFilter is returned when a list filter value is not one of the accepted values.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Form error messages, worded the way operators see them next to the field.
const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
	msgInvalidDate   = "Enter a valid date."
	msgNotChild      = "The inline foreign key did not match the parent instance primary key."
)

// ValidationError collects per-field messages. Inline rows use "<prefix>.<index>.<field>" keys.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e as an error, or nil when nothing was recorded.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Merge copies every message recorded on other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	if other.Empty() {
		return
	}
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			e.Add(field, msg)
		}
	}
}

// InvalidDate records that field did not hold a parseable date.
func (e *ValidationError) InvalidDate(field string) {
	e.Add(field, msgInvalidDate)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation on in and records failures under prefix.
func check(v *validator.Validate, in any, prefix string, verr *ValidationError) {
	err := v.Struct(in)
	if err == nil {
		return
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		verr.Add(prefix+"__all__", err.Error())
		return
	}
	for _, fe := range ves {
		verr.Add(prefix+fe.Field(), message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return msgRequired
	case "max":
		if s, ok := fe.Value().(string); ok {
			return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), utf8.RuneCountInString(s))
		}
		return fmt.Sprintf("Ensure this value is at most %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	}
	return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
}

// notFound converts a repository lookup miss into ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}
