package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "gradecli/internal/errors"
)

// ValidationMiddleware decodes and validates request parameters using struct tags
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()

	// Register custom validators
	_ = v.RegisterValidation("filename", isValidFilename)

	// Use query tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("query")
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		}
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
	}
}

// DecodeQuery fills the string and bool fields of dst, a pointer to a struct,
// from the URL query using their `query` tags, then validates dst.
// On failure the error response has already been written and false is returned.
func (m *ValidationMiddleware) DecodeQuery(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := m.decodeQuery(r, dst); err != nil {
		m.reject(w, r, err)
		return false
	}
	if err := m.ValidateStruct(dst); err != nil {
		m.reject(w, r, err)
		return false
	}
	return true
}

func (m *ValidationMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.DebugContext(r.Context(), "query validation failed",
		slog.String("query", r.URL.RawQuery),
		slog.String("error", err.Error()),
	)
	m.errorHandler.HandleError(w, r, err)
}

func (m *ValidationMiddleware) decodeQuery(r *http.Request, dst interface{}) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode query: destination must be a pointer to a struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()
	values := r.URL.Query()

	var fieldErrors []apierrors.ValidationError
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		name := field.Tag.Get("query")
		if name == "" || name == "-" || !values.Has(name) {
			continue
		}
		raw := strings.TrimSpace(values.Get(name))

		switch field.Type.Kind() {
		case reflect.String:
			rv.Field(i).SetString(strings.ToLower(raw))
		case reflect.Bool:
			// A bare flag such as ?anonymized counts as true
			if raw == "" {
				rv.Field(i).SetBool(true)
				continue
			}
			b, err := strconv.ParseBool(raw)
			if err != nil {
				fieldErrors = append(fieldErrors, apierrors.ValidationError{
					Field:   name,
					Message: fmt.Sprintf("%s must be a boolean", name),
				})
				continue
			}
			rv.Field(i).SetBool(b)
		}
	}

	if len(fieldErrors) > 0 {
		return apierrors.NewValidationErrors(fieldErrors)
	}
	return nil
}

// ValidateStruct validates a struct and returns validation errors
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ValidateFilename rejects upload names that could escape a directory
func (m *ValidationMiddleware) ValidateFilename(name string) error {
	if err := m.validator.Var(name, "filename"); err != nil {
		return apierrors.ErrValidation("file", "file must have a plain filename")
	}
	return nil
}

// ContentTypeValidator ensures requests have proper content type
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip for GET, HEAD, DELETE
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, apierrors.New(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}

			valid := false
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					valid = true
					break
				}
			}

			if !valid {
				render.Status(r, http.StatusUnsupportedMediaType)
				render.JSON(w, r, apierrors.NewWithDetails(
					http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE",
					"Unsupported content type",
					map[string]interface{}{
						"content_type": contentType,
						"allowed":      contentTypes,
					},
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isValidFilename validates filename format
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" {
		return false
	}
	// Prevent directory traversal
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return false
	}
	return len(filename) <= 255
}
