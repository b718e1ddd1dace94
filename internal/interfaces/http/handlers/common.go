// Package handlers implements the HTTP endpoints of the orthology API.
// Every response uses one of two envelopes: {"data": ...} on success and
// {"error": {code, message, request_id}} on failure, with the HTTP status
// derived from the application error code.
package handlers

import (
	stderrors "errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/interfaces/http/middleware"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, DataResponse{Data: data})
}

func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	message := err.Error()
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
		if appErr.Detail != "" {
			message += ": " + appErr.Detail
		}
	}
	c.JSON(errors.HTTPStatusForCode(code), ErrorResponse{
		Error: ErrorInfo{
			Code:      string(code),
			Message:   message,
			RequestID: middleware.GetRequestID(c),
		},
	})
}

// parseLimit reads the optional "limit" query parameter.  Zero means
// unlimited; anything non-numeric or negative is a bad request.
func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.Newf(errors.ErrCodeBadRequest, "invalid limit %q", raw)
	}
	return limit, nil
}
