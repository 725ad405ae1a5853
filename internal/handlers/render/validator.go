package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	otpMinLen = 4
	otpMaxLen = 8
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("otp", validateOTP)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Report fields by their json names
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

// One time codes are short digit strings
func validateOTP(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < otpMinLen || len(code) > otpMaxLen {
		return false
	}

	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
