package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/tutorbase/internal/errs"
	obslogger "github.com/smallbiznis/tutorbase/internal/observability/logger"
	"go.uber.org/zap"
)

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  []errs.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Error   errorPayload `json:"error"`
}

var (
	ErrMissingToken  = errs.New(errs.ErrUnauthenticated, "missing_token")
	ErrInvalidToken  = errs.New(errs.ErrUnauthenticated, "invalid_token")
	ErrRouteNotFound = errs.New(errs.ErrNotFound, "route_not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status >= http.StatusInternalServerError {
			obslogger.FromContext(c.Request.Context()).Error("request failed", zap.Error(lastErr.Err))
		}
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return errs.Invalid("request", "invalid_request", "request body is malformed")
}

func newValidationError(field, code, message string) error {
	return errs.Invalid(field, code, message)
}

func mapError(err error) (int, errorPayload) {
	if vErr, ok := errs.AsValidation(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    errs.CodeOf(vErr),
			Message: "validation error",
			Errors:  vErr.Fields,
		}
	}

	code := errs.CodeOf(err)
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    code,
			Message: "validation error",
		}
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthenticated",
			Code:    code,
			Message: "authentication required",
		}
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Code:    code,
			Message: "forbidden",
		}
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    code,
			Message: "not found",
		}
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Code:    code,
			Message: err.Error(),
		}
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    code,
			Message: "conflict",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}

// bindError converts a gin binding failure into a validation error.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]errs.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, errs.FieldError{
				Field:   fieldPath(fe),
				Code:    fe.Tag(),
				Message: validationMessage(fe),
			})
		}
		return &errs.ValidationError{Fields: fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return newValidationError(typeErr.Field, "invalid_type", typeErr.Field+" has the wrong type")
	}
	if errors.Is(err, io.EOF) {
		return newValidationError("request", "invalid_request", "request body is empty")
	}
	if vErr, ok := errs.AsValidation(err); ok {
		return vErr
	}
	return invalidRequestError()
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

var registerTagNamesOnce sync.Once

// registerValidatorTagNames reports field errors by their json names.
func registerValidatorTagNames() {
	registerTagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})
}
