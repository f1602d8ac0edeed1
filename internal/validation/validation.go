// Package validation holds the struct rules shared by the HTTP payloads and
// the CSV import rows, so both entry points accept the same records.
package validation

import (
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// New returns a validator with the custom rules registered:
//
//	maxbytes=N  string length in bytes, not runes (bcrypt stops at 72 bytes)
func New() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return len(field.String()) <= limit
}
