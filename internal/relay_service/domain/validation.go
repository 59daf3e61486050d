package domain

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ruMobilePattern accepts 7XXXXXXXXXX with an optional leading plus.
var ruMobilePattern = regexp.MustCompile(`^\+?7\d{10}$`)

// NewValidator returns a validator with the relay's custom tags registered
// and JSON field names used in errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("ru_mobile", func(fl validator.FieldLevel) bool {
		return IsRuMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// IsRuMobile reports whether phone matches ^\+?7\d{10}$.
func IsRuMobile(phone string) bool {
	return ruMobilePattern.MatchString(phone)
}

// ValidationMessage renders validator errors as "field: message" pairs
// joined by ", ". Non-validation errors are returned as-is.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fieldMessage(fe))
	}
	return strings.Join(parts, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() + "/" + fe.Tag() {
	case "phone/required":
		return "phone number is required"
	case "phone/ru_mobile":
		return "phone number must be in format +7XXXXXXXXXX or 7XXXXXXXXXX"
	case "text/notblank", "text/required":
		return "message text is required"
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}
