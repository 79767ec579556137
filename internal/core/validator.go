package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"weatheralert/internal/types"
)

// Validator wraps go-playground/validator with the domain tags used by
// request payloads.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator and registers custom tags:
//
//	alert_kind  the string is a known types.AlertKind
//	iana_tz     the string resolves with time.LoadLocation
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("alert_kind", func(fl validator.FieldLevel) bool {
		_, err := types.ParseAlertKind(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("iana_tz", func(fl validator.FieldLevel) bool {
		_, err := types.UserLocation{Timezone: fl.Field().String()}.LoadLocation()
		return err == nil
	})

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct runs struct tag validation. Failures are returned as a
// validation_invalid_request AppError whose details map each JSON field name
// to the rule it broke.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fields := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fieldPath(fe)] = rule
	}

	return types.NewAppError(types.ErrCodeValidationRequest, "request validation failed", err).
		WithDetails(map[string]any{"fields": fields})
}

// fieldPath strips the root struct name from the namespace so details read
// "user_ids[0]" rather than "CycleRequest.user_ids[0]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}
