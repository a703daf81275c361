package nethttp

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	en2 "github.com/go-playground/validator/translations/en"
	"github.com/gofiber/fiber/v2"
	"gopkg.in/go-playground/validator.v9"
)

// DecodeHandlerFunc receives a struct decoded and validated by WithBody.
type DecodeHandlerFunc func(p any, c *fiber.Ctx) error

// WithBody decodes the request JSON body into a fresh instance of the type
// pointed to by s, validates it against its `validate` struct tags, and only
// then invokes h. Malformed JSON or a failed validation short-circuits with
// a 400 and never reaches h.
func WithBody(s any, h DecodeHandlerFunc) fiber.Handler {
	t := reflect.TypeOf(s).Elem()

	return func(c *fiber.Ctx) error {
		v := reflect.New(t).Interface()

		if err := json.Unmarshal(c.Body(), v); err != nil {
			return BadRequest(c, "Client Error", "the request body is not valid JSON")
		}

		if err := ValidateStruct(v); err != nil {
			return BadRequest(c, "Client Error", err.Error())
		}

		return h(v, c)
	}
}

// ValidateStruct validates s against its `validate` struct tags using
// go-playground/validator, returning a single human-readable error summarizing
// every failed field.
func ValidateStruct(s any) error {
	k := reflect.ValueOf(s).Kind()
	if k == reflect.Ptr {
		k = reflect.ValueOf(s).Elem().Kind()
	}

	if k != reflect.Struct {
		return nil
	}

	v, trans := newValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Translate(trans))
	}

	return &ValidationError{Message: strings.Join(msgs, "; ")}
}

// ValidationError wraps one or more failed field validations.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

//nolint:ireturn
func newValidator() (*validator.Validate, ut.Translator) {
	locale := en.New()
	uni := ut.New(locale, locale)

	trans, _ := uni.GetTranslator("en")

	v := validator.New()

	if err := en2.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v, trans
}
