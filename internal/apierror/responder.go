package apierror

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tyemirov/storekeep/pkg/sessiontoken"
	"go.uber.org/zap"
)

var registerFieldNamesOnce sync.Once

// Abort records the error on the gin context and stops the handler chain.
// The Responder renders it once the chain unwinds.
func Abort(contextGin *gin.Context, err error) {
	_ = contextGin.Error(err)
	contextGin.Abort()
}

// FromBinding converts a request binding failure into a 422 error.
func FromBinding(err error) *Error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]FieldError, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fields = append(fields, FieldError{
				Path:    fieldErr.Field(),
				Message: describeValidation(fieldErr),
			})
		}
		return UnprocessableEntity("", fields...).Wrap(err)
	}
	return UnprocessableEntity("Request body must be valid JSON").Wrap(err)
}

func describeValidation(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return fieldErr.Field() + " is required"
	case "email":
		return fieldErr.Field() + " must be a valid email"
	case "max":
		return fieldErr.Field() + " must be at most " + fieldErr.Param() + " characters"
	default:
		return fieldErr.Field() + " is invalid"
	}
}

// Responder renders the last recorded error as {name, message}. It must be
// registered before any middleware that may fail.
func Responder(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerFieldNamesOnce.Do(registerJSONFieldNames)

	return func(contextGin *gin.Context) {
		contextGin.Next()

		if len(contextGin.Errors) == 0 || contextGin.Writer.Written() {
			return
		}
		err := contextGin.Errors.Last().Err
		resolved := Resolve(err)
		if resolved.Status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("code", "api.error.internal"),
				zap.String("path", contextGin.Request.URL.Path),
				zap.Error(err))
		}
		contextGin.JSON(resolved.Status, resolved.Body())
	}
}

// Resolve maps any error onto the taxonomy.
func Resolve(err error) *Error {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, sessiontoken.ErrTokenExpired):
		return &Error{Status: http.StatusUnauthorized, Name: NameTokenExpired, Message: "jwt expired", cause: err}
	case errors.Is(err, sessiontoken.ErrTokenMalformed):
		return &Error{Status: http.StatusUnauthorized, Name: NameTokenMalformed, Message: "invalid token", cause: err}
	default:
		return &Error{Status: http.StatusInternalServerError, Name: NameInternal, Message: "Something went wrong", cause: err}
	}
}

// Body returns the JSON payload for the error.
func (apiErr *Error) Body() gin.H {
	if len(apiErr.Fields) > 0 {
		return gin.H{"name": apiErr.Name, "message": apiErr.Fields}
	}
	return gin.H{"name": apiErr.Name, "message": apiErr.Message}
}

// NoRoute answers unknown routes with a NotFound error.
func NoRoute(contextGin *gin.Context) {
	Abort(contextGin, NotFound(""))
}

func registerJSONFieldNames() {
	validate, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
}
