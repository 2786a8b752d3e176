package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their koanf keys, so messages name the same
// path an operator sets in YAML or through APP_ variables.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("koanf"); name != "" && name != "-" {
			return name
		}

		return f.Name
	})

	return v
}

// Validate checks field rules and then rules spanning sections. The service
// refuses to start on any failure.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	return c.validateDependencies()
}

func (c *Config) validateDependencies() error {
	var problems []string

	if c.Storage.Driver == StoragePostgres && c.Postgres.DSN == "" {
		problems = append(problems, "postgres.dsn is required when storage.driver is postgres")
	}

	if c.Postgres.MaxConns > 0 && c.Postgres.MinConns > c.Postgres.MaxConns {
		problems = append(problems, "postgres.min_conns must not exceed postgres.max_conns")
	}

	if c.Redis.RateLimit.Enabled && !c.Redis.Enabled {
		problems = append(problems, "redis.rate_limit requires redis.enabled")
	}

	if c.Search.ReindexOnStart && !c.Search.Enabled {
		problems = append(problems, "search.reindex_on_start requires search.enabled")
	}

	return joinProblems(problems)
}

func formatValidationErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	problems := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		problems[i] = describe(fe)
	}

	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}

	return errors.New("config validation failed:\n  " + strings.Join(problems, "\n  "))
}

func describe(fe validator.FieldError) string {
	key := formatFieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		// Param is "<GoField> <value>", e.g. "Mode jwt".
		if field, value, ok := strings.Cut(fe.Param(), " "); ok {
			return fmt.Sprintf("%s is required when %s is %s", key, snakeCase(field), value)
		}

		return key + " is required"
	case "min", "gtefield":
		bound := fe.Param()
		if fe.Tag() == "gtefield" {
			bound = snakeCase(bound)
		}

		return fmt.Sprintf("%s must be at least %s", key, bound)
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "url":
		return key + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation: %s", key, fe.Tag())
	}
}

// formatFieldPath drops the root type from a namespace:
// "Config.auth.jwt_secret" becomes "auth.jwt_secret".
func formatFieldPath(namespace string) string {
	_, path, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}

	return path
}

// snakeCase turns a Go field name into its koanf key, e.g.
// DefaultPageSize into default_page_size.
func snakeCase(name string) string {
	var b strings.Builder

	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}

			r = unicode.ToLower(r)
		}

		b.WriteRune(r)
	}

	return b.String()
}
