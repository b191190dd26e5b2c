package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// ErrInvalid is matched by every *Error returned from Struct.
var ErrInvalid = errors.New("validation failed")

// imgurPattern accepts direct i.imgur.com image links.
var imgurPattern = regexp.MustCompile(`^https://i\.imgur\.com/[A-Za-z0-9]\w+\.(jpeg|png|gif|jpg)$`)

const maxPlateLength = 255

// validate is shared by every request payload. Custom rules are registered in init.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterCustomTypeFunc(nullableValue,
		Nullable[string]{}, Nullable[int]{}, Nullable[bool]{},
		Nullable[domain.VehicleTaxStatus]{}, Nullable[domain.VehicleInspectionStatus]{},
	)

	_ = validate.RegisterValidation("plate", validatePlate)
	_ = validate.RegisterValidation("imgururl", validateImgurURL)
	_ = validate.RegisterValidation("status_code", validateStatusCode)
}

// Error lists every invalid field of a payload keyed by its JSON path.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalid.Error()
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalid) succeed.
func (e *Error) Is(target error) bool {
	return target == ErrInvalid
}

// FieldError builds a single-field validation error.
func FieldError(field, message string) *Error {
	return &Error{Fields: map[string]string{field: message}}
}

// Struct validates payload against its `validate` tags. Either every field
// passes or an *Error describing all failures is returned.
func Struct(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate payload: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fieldPath(fe)
		if _, exists := fields[path]; exists {
			continue
		}
		fields[path] = Message(fe)
	}
	return &Error{Fields: fields}
}

// Message converts a validator failure into a user-facing message.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Minimum length is %s", fe.Param())
		}
		return fmt.Sprintf("Minimum value is %s", fe.Param())
	case "max":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("Maximum length is %s", fe.Param())
		}
		return fmt.Sprintf("Maximum value is %s", fe.Param())
	case "len":
		return fmt.Sprintf("Length must be %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "plate":
		return "Invalid plate"
	case "imgururl":
		return "Must be a direct i.imgur.com image link"
	case "status_code":
		return "Unknown status code"
	default:
		return fmt.Sprintf("Validation failed on %s", fe.Tag())
	}
}

// ImgurURL reports whether raw is an accepted image link.
func ImgurURL(raw string) bool {
	return imgurPattern.MatchString(raw)
}

func isSized(kind reflect.Kind) bool {
	switch kind {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// fieldPath drops the root struct name from the namespace, so
// "OfficerInput.divisions[1]" becomes "divisions[1]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.IndexByte(ns, '.'); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

func validatePlate(fl validator.FieldLevel) bool {
	plate := strings.TrimSpace(fl.Field().String())
	if plate == "" || len(plate) > maxPlateLength {
		return false
	}
	for _, r := range plate {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func validateImgurURL(fl validator.FieldLevel) bool {
	return ImgurURL(fl.Field().String())
}

func validateStatusCode(fl validator.FieldLevel) bool {
	return domain.ShouldDoType(fl.Field().String()).Valid()
}
