package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var courseHourPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("courseday", func(fl validator.FieldLevel) bool {
		day := fl.Field().String()
		if day == "" {
			return true
		}
		_, ok := ParseWeekday(day)
		return ok
	})
	_ = v.RegisterValidation("coursehour", func(fl validator.FieldLevel) bool {
		hour := fl.Field().String()
		return hour == "" || courseHourPattern.MatchString(hour)
	})
	return v
}

// ValidateStruct runs the shared validator, registered with the course day and
// course hour tags.
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationMessage flattens validator errors into "field: rule" pairs.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
