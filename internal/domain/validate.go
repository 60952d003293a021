package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Compare decimals as numbers so gte tags work on prices.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		d, ok := v.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
}

// Validate runs struct-level validation using go-playground/validator tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// ValidateItem checks a line item and wraps any failure in ErrInvalidItem.
func ValidateItem(item LineItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if err := Validate(item); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidItem, describe(err))
	}
	return nil
}

// FormatValidationErrors converts validator.ValidationErrors into a map of
// field name to human-readable message.
func FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return errs
	}
	for _, e := range ve {
		errs[e.Field()] = formatFieldError(e)
	}
	return errs
}

func describe(err error) string {
	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, field+": "+fields[field])
	}
	return strings.Join(parts, "; ")
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", e.Param())
	case "min":
		return fmt.Sprintf("Must contain at least %s", e.Param())
	case "max":
		return fmt.Sprintf("Maximum length is %s", e.Param())
	default:
		return fmt.Sprintf("Validation failed on '%s'", e.Tag())
	}
}
