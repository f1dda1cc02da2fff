package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"
	entranslations "gopkg.in/go-playground/validator.v9/translations/en"
)

// validate holds the settings and caches for validating protocol payloads.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator *ut.UniversalTranslator

func init() {
	validate = validator.New()

	enLocale := en.New()
	translator = ut.New(enLocale, enLocale)

	lang, _ := translator.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, lang)

	// Use JSON tag names for errors instead of Go struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// FieldError is a validation failure of a single field, addressed by its JSON path.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error lists every field that failed validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return "field validation error: " + strings.Join(msgs, "; ")
}

// Path returns the JSON path of the first failing field.
func (e *Error) Path() string {
	if len(e.Fields) == 0 {
		return ""
	}
	return e.Fields[0].Field
}

// Struct validates the struct, or pointer to struct, against its validate tags. Validation
// failures are returned as *Error.
func Struct(val any) error {
	err := validate.Struct(val)
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) {
		return err
	}

	lang, _ := translator.GetTranslator("en")
	fieldErrors := make([]FieldError, 0, len(vErrors))
	for _, vError := range vErrors {
		fieldErrors = append(fieldErrors, FieldError{
			Field: jsonPath(vError.Namespace()),
			Error: vError.Translate(lang),
		})
	}
	return &Error{Fields: fieldErrors}
}

// jsonPath drops the root struct name from a validator namespace.
func jsonPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
