package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every error returned by Config.Validate.
var ErrInvalid = errors.New("invalid configuration")

// validate names fields after their koanf keys, so a message reads
// "worker_pool.size must be at least 1" just as the key is written in YAML.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("koanf"), ","); name != "" {
			return name
		}

		return f.Name
	})

	return v
}()

// Validate checks c and lists every violation. The service refuses to start
// on error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	lines := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		lines[i] = describe(fe)
	}

	return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(lines, "\n  "))
}

func describe(fe validator.FieldError) string {
	key := keyPath(fe.Namespace())

	var rule string

	switch fe.Tag() {
	case "required":
		rule = "is required"
	case "required_if":
		rule = "is required when " + fe.Param()
	case "min":
		rule = "must be at least " + fe.Param()
	case "max":
		rule = "must be at most " + fe.Param()
	case "oneof":
		rule = "must be one of: " + fe.Param()
	case "nefield":
		rule = "must differ from " + fe.Param()
	case "url":
		rule = "must be a valid URL"
	default:
		rule = "failed validation: " + fe.Tag()
	}

	return key + " " + rule
}

// keyPath drops the root struct name: "Config.worker_pool.size" becomes
// "worker_pool.size".
func keyPath(namespace string) string {
	_, key, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return key
}
