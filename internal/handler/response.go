package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/smilecare/clinic-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps a service error onto the HTTP response. Business-rule
// errors surface their own message; system failures collapse to a generic
// one and are logged by the error middleware.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse("operation failed"))
		return
	}

	if !appErr.Expected() {
		c.Error(err)
		c.JSON(appErr.StatusCode(), NewErrorResponse("operation failed"))
		return
	}

	c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
}

// RespondMaybeNoop treats AlreadyInState as success with the unchanged
// entity, so double-submits are harmless.
func RespondMaybeNoop(c *gin.Context, data interface{}, err error) {
	if err != nil && !apperrors.IsKind(err, apperrors.KindAlreadyInState) {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(data))
}
