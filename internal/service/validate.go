package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrValidation = errors.New("validation error")
)

// ValidationError несет сообщение для клиента и совпадает с ErrValidation через errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// В сообщениях используем имена полей из json
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}

	fe := fieldErrs[0]
	field := capitalize(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", field)
	case "email":
		return invalid("%s must be a valid email address", field)
	case "oneof":
		return invalid("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return invalid("%s must be at least %s characters", field, fe.Param())
	case "max":
		return invalid("%s must be at most %s characters", field, fe.Param())
	case "excludesall":
		return invalid("%s contains forbidden characters", field)
	default:
		return invalid("%s is invalid", field)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var dueDateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// parseDueDate понимает RFC3339 и дату из формы. Нераспознанное значение
// игнорируется, а не отклоняется.
func parseDueDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, true
		}
	}
	return nil, false
}
