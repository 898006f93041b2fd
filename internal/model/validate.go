package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalized returns in with its free text fields trimmed.
func (in NewReminder) Normalized() NewReminder {
	out := in
	out.Title = strings.TrimSpace(in.Title)
	out.Description = strings.TrimSpace(in.Description)
	out.Subject = strings.TrimSpace(in.Subject)
	out.Type = ReminderType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	return out
}

// ValidateNewReminder checks already normalized input. The due date must be
// strictly after now. The returned error is a *ValidationError for the first
// rejected field.
func ValidateNewReminder(in NewReminder, now time.Time) error {
	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return &ValidationError{Field: "reminder", Message: err.Error()}
	}
	if err := ValidateDueDate(in.DueDate, now); err != nil {
		return err
	}
	return ValidateOffsets(in.Offsets)
}

func ValidateDueDate(due, now time.Time) error {
	if due.IsZero() {
		return &ValidationError{Field: "dueDate", Message: "Due date is required"}
	}
	if !due.After(now) {
		return &ValidationError{Field: "dueDate", Message: "Due date must be in the future"}
	}
	return nil
}

func ValidateOffsets(offsets []Offset) error {
	for i, o := range offsets {
		if o.Validate() != nil {
			return &ValidationError{
				Field:   "reminderTimes",
				Message: fmt.Sprintf("Reminder time %d is invalid", i+1),
			}
		}
	}
	return nil
}

func fieldError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	label := fieldLabel(field)
	var msg string
	switch fe.Tag() {
	case "required":
		msg = label + " is required"
	case "max":
		msg = fmt.Sprintf("%s must be %s characters or less", label, fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		msg = fmt.Sprintf("%s is invalid", label)
	}
	return &ValidationError{Field: field, Message: msg}
}

func fieldLabel(field string) string {
	switch field {
	case "title":
		return "Title"
	case "type":
		return "Type"
	case "description":
		return "Description"
	case "subject":
		return "Subject"
	default:
		return field
	}
}
