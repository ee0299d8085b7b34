package repository

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their json name so errors read like the schema
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateMessage enforces field presence before anything reaches a store.
func validateMessage(m *message.Message) error {
	if m == nil {
		return fmt.Errorf("%w: message is nil", gql_errors.ErrValidation)
	}
	err := validate.Struct(m)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		return fmt.Errorf("%w: missing required field(s) %s", gql_errors.ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", gql_errors.ErrValidation, err)
}
