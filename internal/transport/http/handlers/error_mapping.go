package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/logger"
	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code, a kind tag and a response message.
type ErrorCase struct {
	Err     error
	Status  int
	Kind    string
	Message string
}

// DefaultErrorCases is the usecase error taxonomy as seen over HTTP.
var DefaultErrorCases = []ErrorCase{
	{Err: usecase.ErrValidation, Status: http.StatusBadRequest, Kind: "validation", Message: "validation failed"},
	{Err: usecase.ErrPermissionDenied, Status: http.StatusForbidden, Kind: "permission_denied", Message: "insufficient permissions"},
	{Err: usecase.ErrNotFound, Status: http.StatusNotFound, Kind: "not_found", Message: "resource not found"},
	{Err: usecase.ErrConflict, Status: http.StatusConflict, Kind: "conflict", Message: "resource conflict"},
	{Err: usecase.ErrLimitExceeded, Status: http.StatusBadRequest, Kind: "limit_exceeded", Message: "limit exceeded"},
	{Err: usecase.ErrPrecondition, Status: http.StatusPreconditionFailed, Kind: "precondition", Message: "precondition failed"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			resp := NewErrorResponse(c, cs.Message)
			resp.Kind = cs.Kind
			resp.Fields = errorFields(err)
			c.JSON(cs.Status, resp)
			return
		}
	}

	logger.WithContext(c.Request.Context()).Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	_ = c.Error(err)

	resp := NewErrorResponse(c, fallbackMessage)
	resp.Kind = "internal"
	c.JSON(fallbackStatus, resp)
}

// RespondError maps err with DefaultErrorCases.
func RespondError(c *gin.Context, err error) {
	RespondWithMappedError(c, err, DefaultErrorCases, http.StatusInternalServerError, "internal server error")
}

func errorFields(err error) map[string]string {
	var verr *validation.Error
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		return verr.Fields
	}

	var ferr *usecase.FieldError
	if errors.As(err, &ferr) && ferr.Code != "" {
		field := ferr.Field
		if field == "" {
			field = "_"
		}
		return map[string]string{field: ferr.Code}
	}
	return nil
}

func respondBadBody(c *gin.Context, err error) {
	resp := NewErrorResponse(c, "invalid request body")
	resp.Kind = "validation"
	resp.Fields = map[string]string{"body": err.Error()}
	c.JSON(http.StatusBadRequest, resp)
}
