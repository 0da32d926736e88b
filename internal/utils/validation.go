package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PinRule is the validate tag for a staff PIN: exactly four digits.
const PinRule = "len=4,number"

var (
	postcodeRegex = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9R][0-9A-Z]?[0-9][A-Z]{2}$`)
	handlerRegex  = regexp.MustCompile(`(?i)on\w+=`)
)

// Validate checks `validate` struct tags for every handler and service.
// Field names in its errors are the JSON names.
var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// UK postcodes are accepted with or without the inner space.
	if err := v.RegisterValidation("uk_postcode", func(fl validator.FieldLevel) bool {
		return postcodeRegex.MatchString(strings.ReplaceAll(fl.Field().String(), " ", ""))
	}); err != nil {
		panic(err)
	}
	return v
}

// FieldErrors maps a form field to a human readable problem.
type FieldErrors map[string]string

// Add records msg for field unless the field already has an error.
func (f FieldErrors) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Merge adds every error in other with its field prefixed.
func (f FieldErrors) Merge(prefix string, other FieldErrors) {
	for field, msg := range other {
		if prefix != "" {
			field = prefix + "." + field
		}
		f.Add(field, msg)
	}
}

// Summary joins the messages in field order.
func (f FieldErrors) Summary() string {
	fields := make([]string, 0, len(f))
	for field := range f {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msgs := make([]string, len(fields))
	for i, field := range fields {
		msgs[i] = f[field]
	}
	return strings.Join(msgs, "; ")
}

// ValidateStruct runs s's validate tags. Errors are keyed by the JSON path
// below s, e.g. "members[1].member.email".
func ValidateStruct(s any) FieldErrors {
	errs := FieldErrors{}
	err := Validate.Struct(s)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fieldPath(fe), fieldMessage(fe))
	}
	return errs
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldLabel(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email format"
	case "uk_postcode":
		return "Invalid UK postcode"
	case "number":
		return label + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("%s cannot be less than %s", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", label, fe.Param())
	case "min", "max":
		bound := "at least"
		if fe.Tag() == "max" {
			bound = "at most"
		}
		unit := "characters"
		if k := fe.Kind(); k == reflect.Slice || k == reflect.Array {
			unit = "entries"
		}
		return fmt.Sprintf("%s must have %s %s %s", label, bound, fe.Param(), unit)
	}
	return label + " is invalid"
}

// SanitizeInput strips markup that could be replayed into an HTML view.
func SanitizeInput(input string) string {
	if input == "" {
		return ""
	}
	out := strings.NewReplacer("<", "", ">", "").Replace(input)
	out = strings.ReplaceAll(strings.ReplaceAll(out, "javascript:", ""), "JAVASCRIPT:", "")
	out = handlerRegex.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
