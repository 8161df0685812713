package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/tipoca/internal/models"
	pkgauth "github.com/BradenHooton/tipoca/pkg/auth"
	pkghttp "github.com/BradenHooton/tipoca/pkg/http"
)

const maxBodyBytes = 1 << 20

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return pkgauth.ValidatePassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("accountstatus", func(fl validator.FieldLevel) bool {
		return models.AccountStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("skintone", func(fl validator.FieldLevel) bool {
		return models.SkinTone(fl.Field().String()).Valid()
	})
	return v
}

// ValidateRequest validates req and returns one detail per failing field,
// or nil when req is valid.
func ValidateRequest(req any) []pkghttp.ErrorDetail {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []pkghttp.ErrorDetail{{Message: pkghttp.MsgInvalidBody}}
	}

	details := make([]pkghttp.ErrorDetail, 0, len(ve))
	for _, fe := range ve {
		details = append(details, pkghttp.ErrorDetail{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return details
}

// fieldPath drops the root struct name, so nested fields read "deviceInfo.model".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must have a maximum of %s characters", fe.Param())
	case "strongpassword":
		return fmt.Sprintf("Must be %d-%d characters with a lowercase letter, an uppercase letter, a number and a symbol",
			pkgauth.MinPasswordLen, pkgauth.MaxPasswordLen)
	case "accountstatus":
		return fmt.Sprintf("Must be one of: %s, %s", models.StatusEnabled, models.StatusLocked)
	case "skintone":
		return "Must be a valid skin tone"
	default:
		return fmt.Sprintf("Failed validation: %s", fe.Tag())
	}
}

// decodeAndValidate reads the JSON body into dst and validates it. On
// failure it writes the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		pkghttp.WriteBadRequest(w, pkghttp.MsgInvalidBody)
		return false
	}

	if details := ValidateRequest(dst); details != nil {
		pkghttp.WriteValidationErrors(w, details)
		return false
	}
	return true
}

// writeServiceError maps a service sentinel to its response. Anything
// unrecognised is a 500 with no detail.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w)
	case errors.Is(err, models.ErrPermissionDenied):
		pkghttp.WritePermissionError(w)
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteInvalidToken(w)
	default:
		pkghttp.WriteInternalError(w)
	}
}
