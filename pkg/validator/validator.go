package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedBody is returned by DecodeJSON when the body is not a JSON document.
var ErrMalformedBody = errors.New("request body must be valid JSON")

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds the limit
// set with http.MaxBytesReader.
var ErrBodyTooLarge = errors.New("request body too large")

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so nested paths read "device.deviceId".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseISODate(fl.Field().String())
		return err == nil
	})

	return v
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseISODate parses an ISO 8601 date or date-time string. Values without a
// zone are read as UTC.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not an ISO date", s)
}

// FieldMessager is implemented by request types that want specific wording
// for a failing field. Keys are JSON paths such as "device.deviceId".
type FieldMessager interface {
	FieldMessages() map[string]string
}

// Validate validates a struct using go-playground/validator tags.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			valErr := &ValidationError{Errors: validationErrors}
			if m, ok := s.(FieldMessager); ok {
				valErr.messages = m.FieldMessages()
			}
			return valErr
		}
		return err
	}
	return nil
}

// ValidationError wraps validator.ValidationErrors with a user-friendly message.
type ValidationError struct {
	Errors   validator.ValidationErrors
	messages map[string]string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Details(), "; ")
}

// Details returns one message per failing field, in struct order. A field
// reported by several rules is listed once.
func (e *ValidationError) Details() []string {
	details := make([]string, 0, len(e.Errors))
	seen := make(map[string]bool, len(e.Errors))
	for _, fe := range e.Errors {
		path := fieldPath(fe)
		if seen[path] {
			continue
		}
		seen[path] = true
		if msg, ok := e.messages[path]; ok {
			details = append(details, msg)
			continue
		}
		details = append(details, path+" "+msgForTag(fe))
	}
	return details
}

// Fields returns a map of field paths to error messages.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fieldPath(fe)] = msgForTag(fe)
	}
	return fields
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "isodate":
		return "must be an ISO date string"
	case "hostname", "fqdn":
		return "must be a valid hostname"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

// DecodeJSON decodes the request body into dst. An empty body decodes as {}.
// Values of the wrong JSON type are skipped and leave the field at its zero
// value, so the following Validate reports them as missing.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return nil
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrBodyTooLarge
	}
	return ErrMalformedBody
}

// DecodeAndValidate reads JSON from the request body, decodes it into dst,
// and validates it.
func DecodeAndValidate(r *http.Request, dst any) error {
	if err := DecodeJSON(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}
