package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"hrpay/internal/transport/http/api"
)

var validate = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON reads a JSON body into dst and runs its validate tags. It
// writes the 400 response itself and returns false on any problem.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
		case errors.Is(err, io.EOF):
			api.Fail(w, http.StatusBadRequest, "invalid_json", "request body is empty", requestID)
		default:
			api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload: "+err.Error(), requestID)
		}
		return false
	}
	if err := validate.Struct(dst); err != nil {
		FailValidation(w, requestID, StructIssues(err))
		return false
	}
	return true
}

// StructIssues maps validator errors onto field issues keyed by JSON name.
func StructIssues(err error) []ValidationIssue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationIssue{{Field: "", Reason: err.Error()}}
	}
	v := NewValidator()
	for _, fe := range verrs {
		v.Add(fieldPath(fe), reason(fe))
	}
	return v.Issues()
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "email":
		return "must be a valid email"
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "decimal":
		return "must be a decimal amount"
	default:
		return "is invalid"
	}
}
