package http

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var (
	validate  = validator.New()
	symbolRe  = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._/-]{0,31}$`)
	timeframe = map[string]bool{"15m": true, "1h": true, "4h": true, "1d": true}
)

func init() {
	_ = validate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("timeframe", func(fl validator.FieldLevel) bool {
		return timeframe[fl.Field().String()]
	})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			if name := strings.Split(f.Tag.Get(tag), ",")[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}

// ValidateStruct runs the shared validator outside a request (CLI flags).
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// ValidationErrors converts a bind/default/validator error into the
// response detail list.
func ValidationErrors(err error) []ValidationError {
	return validatorDefaultRules(err)
}

// ReadAndValidateRequest reads and validates request body.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	// Bind request
	if err := c.Bind(req); err != nil {
		return validatorDefaultRules(err)
	}

	// Set default values
	if err := defaults.Set(req); err != nil {
		return validatorDefaultRules(err)
	}

	// Validate struct
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return validatorDefaultRules(err)
	}

	return nil
}

func validatorDefaultRules(err error) []ValidationError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg = fmt.Sprint(he.Message)
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: msg}}
}

// tagMessages maps a validator tag to a format taking (field, param).
var tagMessages = map[string]string{
	"required":      "%s is required",
	"symbol":        "%s must be an upper-case ticker",
	"timeframe":     "%s must be one of: 15m, 1h, 4h, 1d",
	"required_with": "%s must be set together with %s",
	"gtfield":       "%s must be after %s",
	"gt":            "%s must be greater than %s",
	"gte":           "%s must be greater than or equal to %s",
	"lt":            "%s must be less than %s",
	"lte":           "%s must be less than or equal to %s",
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	switch tag := fe.Tag(); tag {
	case "min", "max":
		bound := "at least"
		if tag == "max" {
			bound = "at most"
		}
		switch fe.Kind() {
		case reflect.String:
			return fmt.Sprintf("%s must be %s %s characters", field, bound, param)
		case reflect.Slice:
			return fmt.Sprintf("%s must have %s %s items", field, bound, param)
		}
		return fmt.Sprintf("%s must be %s %s", field, bound, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	default:
		if format, ok := tagMessages[tag]; ok {
			if strings.Count(format, "%s") == 1 {
				return fmt.Sprintf(format, field)
			}
			return fmt.Sprintf(format, field, param)
		}
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	key := map[string]string{
		"min": "min", "gte": "min",
		"max": "max", "lte": "max",
		"gt": "value", "lt": "value",
		"gtfield": "field", "required_with": "field",
	}[fe.Tag()]
	switch {
	case fe.Tag() == "oneof":
		return map[string]interface{}{"options": strings.Fields(fe.Param())}
	case key != "":
		return map[string]interface{}{key: fe.Param()}
	}
	return map[string]interface{}{}
}
