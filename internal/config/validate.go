package config

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/shineum/dispatch/internal/email"
)

var errTranslatorNotFound = errors.New("translator not found")

type structValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var loadValidator = sync.OnceValues(newStructValidator)

func newStructValidator() (*structValidator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their config file names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, errTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}
	if err := registerReasons(validate, enTrans); err != nil {
		return nil, err
	}

	return &structValidator{validate: validate, translator: enTrans}, nil
}

// registerReasons replaces the default messages for the tags used by
// DispatchConfig with messages that omit the field name, since ConfigError
// already carries it.
func registerReasons(validate *validator.Validate, enTrans ut.Translator) error {
	reasons := map[string]string{
		"required": "missing from config",
		"oneof":    "must be one of [{0}]",
		"min":      "must be at least {0}",
		"max":      "must be at most {0}",
	}

	for tag, text := range reasons {
		err := validate.RegisterTranslation(tag, enTrans,
			func(trans ut.Translator) error {
				return trans.Add(tag, text, true)
			},
			func(trans ut.Translator, fe validator.FieldError) string {
				t, err := trans.T(fe.Tag(), fe.Param())
				if err != nil {
					return fe.Error()
				}
				return t
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the config and reports every violation as an
// *email.ConfigError, joined when there are several.
func (c *DispatchConfig) Validate() error {
	v, err := loadValidator()
	if err != nil {
		return err
	}

	var errs []error
	if err := v.validate.Struct(c); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}
		for _, fe := range validateErrs {
			errs = append(errs, &email.ConfigError{
				Field:  fieldPath(fe.Namespace()),
				Reason: fe.Translate(v.translator),
			})
		}
	}

	if c.Body != "" && (c.BodyHTML != "" || c.BodyText != "") {
		errs = append(errs, &email.ConfigError{
			Field:  "body",
			Reason: "cannot be combined with body_html or body_text",
		})
	}

	return errors.Join(errs...)
}

// fieldPath strips the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
