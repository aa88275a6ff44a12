package internal

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/gclaussn/go-cmmn/engine"
	"github.com/go-playground/validator/v10"
)

var (
	RegexpTenantId     = regexp.MustCompile("^[a-zA-Z0-9_-]+$")
	RegexpVariableName = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

	validate = newValidate()
)

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0] // e.g. `json:"businessKey,omitempty"` -> businessKey
	})

	validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		return gronx.IsValid(v)
	})
	validate.RegisterValidation("tenant_id", func(fl validator.FieldLevel) bool {
		return RegexpTenantId.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("variable_name", func(fl validator.FieldLevel) bool {
		return RegexpVariableName.MatchString(fl.Field().String())
	})

	return validate
}

// validateCmd validates a command, using its struct tags.
// Validation errors are returned as [engine.Error] of type [engine.ErrorValidation], with one cause per field error.
func validateCmd(title string, cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("failed to validate command: %v", err)
	}

	causes := make([]engine.ErrorCause, len(fieldErrors))
	for i, fieldError := range fieldErrors {
		var detail string
		switch fieldError.Tag() {
		case "excluded_with":
			detail = fmt.Sprintf("must not be set together with %s", fieldError.Param())
		case "gt":
			detail = fmt.Sprintf("must be greater than %s", fieldError.Param())
		case "gte":
			detail = fmt.Sprintf("must be greater than or equal to %s", fieldError.Param())
		case "lte":
			detail = fmt.Sprintf("must be less than or equal to %s", fieldError.Param())
		case "max":
			detail = fmt.Sprintf("exceeds a maximum of %s", fieldError.Param())
		case "min":
			detail = fmt.Sprintf("falls below a minimum of %s", fieldError.Param())
		case "required", "required_without":
			detail = "is required"
		case "unique":
			detail = "must be unique"
		// custom validation
		case "cron":
			detail = fmt.Sprintf("CRON expression %s is invalid", fieldError.Value())
		case "tenant_id":
			detail = fmt.Sprintf("must match regex %s", RegexpTenantId)
		case "variable_name":
			detail = fmt.Sprintf("must match regex %s", RegexpVariableName)
		default:
			detail = "is invalid"
		}

		causes[i] = engine.ErrorCause{
			Pointer: namespacePointer(fieldError.Namespace()),
			Type:    fieldError.Tag(),
			Detail:  detail,
		}
	}

	return engine.Error{
		Type:   engine.ErrorValidation,
		Title:  title,
		Detail: "invalid command",
		Causes: causes,
	}
}

// namespacePointer converts a validator namespace into a pointer.
// e.g. CreateBatchCmd.variables[a b] -> /variables/a b
func namespacePointer(namespace string) string {
	var sb strings.Builder

	i := strings.IndexRune(namespace, '.')
	if i == -1 {
		return "/"
	}

	for _, r := range namespace[i:] {
		switch r {
		case '.', '[':
			sb.WriteRune('/')
		case ']':
			continue
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}
