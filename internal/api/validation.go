package api

import (
	"bytes"         // Null detection
	"encoding/json" // JSON decode error types
	"errors"        // Error inspection
	"fmt"           // Message formatting
	"io"            // Empty body detection
	"reflect"       // Struct tag lookup
	"strings"       // String manipulation

	"restaurant_reviews/internal/response" // Uniform error bodies

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Struct validation
)

// Violations collects field level validation messages keyed by JSON field name
type Violations map[string][]string

// Add records a message for field
func (v Violations) Add(field, message string) {
	v[field] = append(v[field], message)
}

// Has reports whether field already failed
func (v Violations) Has(field string) bool {
	return len(v[field]) > 0
}

// Malformed reports whether the body could not be decoded at all
func (v Violations) Malformed() bool {
	return v.Has(requestField)
}

// Empty reports whether nothing failed
func (v Violations) Empty() bool {
	return len(v) == 0
}

// requestField keys violations that concern the body as a whole
const requestField = "request"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name
	v.RegisterTagNameFunc(jsonName)
	// filled rejects a present but blank string
	_ = v.RegisterValidation("filled", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// bindJSON decodes the request body into req and validates it. Each field is
// decoded on its own so every wrongly typed field is reported; a field sent
// as null counts as present and empty. An empty body is an empty object.
func bindJSON(c *gin.Context, req any) Violations {
	violations := Violations{}
	raw := map[string]json.RawMessage{}
	if err := json.NewDecoder(c.Request.Body).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		violations.Add(requestField, "The request body must be a valid JSON object.")
		return violations
	}
	decodeFields(raw, req, violations)
	if t, ok := req.(trimmer); ok {
		t.trim()
	}
	validateStruct(req, violations)
	return violations
}

// decodeFields fills the fields of the struct req points to from raw
func decodeFields(raw map[string]json.RawMessage, req any, violations Violations) {
	v := reflect.ValueOf(req).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := jsonName(sf)
		value, ok := raw[name]
		if name == "" || !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			// Present but null fails like a blank value
			if sf.Tag.Get("validate") != "" {
				violations.Add(name, fmt.Sprintf("The %s field is required.", label(name)))
			}
			continue
		}
		if err := json.Unmarshal(value, v.Field(i).Addr().Interface()); err != nil {
			violations.Add(name, typeMessage(name, indirectKind(sf.Type)))
		}
	}
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func indirectKind(t reflect.Type) reflect.Kind {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Kind()
}

// validateStruct runs the struct tags of req, skipping fields that already failed decoding
func validateStruct(req any, violations Violations) {
	err := validate.Struct(req)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		violations.Add(requestField, err.Error())
		return
	}
	failed := map[string]bool{}
	for field := range violations {
		failed[field] = true
	}
	for _, fe := range fieldErrs {
		if failed[fe.Field()] {
			continue
		}
		violations.Add(fe.Field(), messageFor(fe))
	}
}

// trimmer is implemented by requests that normalise their string fields before validation
type trimmer interface {
	trim()
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func messageFor(fe validator.FieldError) string {
	name := label(fe.Field())
	switch fe.Tag() {
	case "required", "filled":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", name)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", name, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", name, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

func typeMessage(field string, want reflect.Kind) string {
	switch want {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("The %s field must be an integer.", label(field))
	case reflect.String:
		return fmt.Sprintf("The %s field must be a string.", label(field))
	default:
		return fmt.Sprintf("The %s field is invalid.", label(field))
	}
}

// respondValidation writes a 422 with the collected violations
func respondValidation(c *gin.Context, violations Violations) {
	response.Validation(c, response.MsgValidationFailed, violations)
}
