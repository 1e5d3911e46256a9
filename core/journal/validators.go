package journal

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

// RegisterValidators registers this package's custom types on validate.
func RegisterValidators(validate *validator.Validate) {
	// let `required` treat Date like time.Time
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(Date); ok {
			return d.Time
		}
		return nil
	}, Date{})
}
