package validator

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var once sync.Once
var validate *validator.Validate

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func ValidateStruct(s interface{}) error {
	return getValidator().Struct(s)
}

// TranslateError flattens validation errors into field -> message. Errors
// that are not validation errors end up under the empty key.
func TranslateError(err error) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[""] = err.Error()
		return out
	}
	for _, e := range verrs {
		out[e.Field()] = e.Error()
	}
	return out
}
