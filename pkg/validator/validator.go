// Package validator wires go-playground/validator with the booking specific
// tags and turns binding failures into readable messages.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/booking-api/pkg/timeslot"
)

const (
	TagClock        = "clock"
	TagCalendarDate = "calendar_date"
)

// FieldError describes one invalid field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var messages = map[string]string{
	"required":      "is required",
	"email":         "must be a valid email",
	"min":           "is too small",
	"max":           "is too large",
	"gt":            "must be greater than %s",
	"oneof":         "must be one of [%s]",
	"uuid":          "must be a valid UUID",
	"url":           "must be a valid URL",
	TagClock:        "must be a time in HH:MM format",
	TagCalendarDate: "must be a date in YYYY-MM-DD format",
}

// New returns a validator with the custom tags registered
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := Register(v); err != nil {
		panic(err)
	}
	return v
}

// Register adds the custom tags and json field naming to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation(TagClock, validateClock); err != nil {
		return fmt.Errorf("register %s: %w", TagClock, err)
	}
	if err := v.RegisterValidation(TagCalendarDate, validateCalendarDate); err != nil {
		return fmt.Errorf("register %s: %w", TagCalendarDate, err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return nil
}

// RegisterGinBindings installs the custom tags on gin's default validator
func RegisterGinBindings() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	return Register(v)
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timeslot.ParseClock(fl.Field().String())
	return err == nil
}

func validateCalendarDate(fl validator.FieldLevel) bool {
	return timeslot.ValidateDate(fl.Field().String()) == nil
}

// Fields converts a binding error into per field messages. Errors that are
// not validation failures produce nil.
func Fields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := messages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			msg = fmt.Sprintf(msg, fe.Param())
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// Message flattens a binding error into one line
func Message(err error) string {
	if fields := Fields(err); len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f.Field+" "+f.Message)
		}
		return strings.Join(parts, "; ")
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		return "malformed JSON body"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s has the wrong type", typeErr.Field)
	case err != nil && err.Error() == "EOF":
		return "request body is required"
	}
	return "invalid request"
}
