package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// Fail writes an error response derived from a service error. Domain errors
// keep their kind-specific status and code; anything else becomes a 500 with
// the detail logged but never echoed to the caller.
func Fail(ctx *gin.Context, err error) {
	var ae *AppError
	if errors.As(err, &ae) {
		if ae.Kind == KindInternal && Sugar != nil {
			Sugar.Errorw("internal error", "path", ctx.FullPath(), "err", ae.Detail)
		}
		Error(ctx, ae.Status(), ae.Code(), ae.Message)
		return
	}
	if Sugar != nil {
		Sugar.Errorw("unclassified error", "path", ctx.FullPath(), "err", err)
	}
	Error(ctx, 500, 50000, "internal error")
}
