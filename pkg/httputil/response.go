package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/validator"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int                    `json:"code"`
	Kind    errors.Kind            `json:"kind"`
	Message string                 `json:"message"`
	Fields  []validator.FieldError `json:"fields,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithMessage sends a success response carrying only a message
func RespondWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
	})
}

// RespondWithError sends an error response. Anything that is not an AppError
// is reported as a generic internal error.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternal(err)
	}

	body := &Error{
		Code:    appErr.StatusCode(),
		Kind:    appErr.Kind,
		Message: appErr.Message,
	}
	if appErr.Kind == errors.KindValidation {
		body.Fields = validator.Fields(appErr.Err)
	}

	c.AbortWithStatusJSON(body.Code, Response{
		Success: false,
		Error:   body,
	})
}

// BindError converts a gin binding failure into a validation error
func BindError(err error) *errors.AppError {
	return errors.NewValidation(validator.Message(err), err)
}

// NotFound is used as the engine's NoRoute handler
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{
		Success: false,
		Error: &Error{
			Code:    http.StatusNotFound,
			Kind:    errors.KindNotFound,
			Message: "route not found",
		},
	})
}
