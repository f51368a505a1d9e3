package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/1dlvb/async-bank-app/internal/model"
)

type APIError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// DomainToHTTPError converts a domain error to an API error with appropriate HTTP status
func DomainToHTTPError(err error) *APIError {
	if err == nil {
		return nil
	}

	var batch *model.BatchError
	switch {
	case errors.Is(err, model.ErrAccountNotFound), errors.Is(err, model.ErrDepositNotFound):
		return &APIError{
			HTTPStatus: http.StatusNotFound,
			Code:       "NOT_FOUND",
			Message:    err.Error(),
		}

	case errors.Is(err, model.ErrInsufficientFunds):
		return &APIError{
			HTTPStatus: http.StatusUnprocessableEntity,
			Code:       "INSUFFICIENT_FUNDS",
			Message:    err.Error(),
		}

	case errors.Is(err, model.ErrLockTimeout):
		// Recoverable: the caller should retry with backoff.
		return &APIError{
			HTTPStatus: http.StatusConflict,
			Code:       "LOCK_TIMEOUT",
			Message:    err.Error(),
		}

	case errors.Is(err, model.ErrInvalidAmount):
		return &APIError{
			HTTPStatus: http.StatusBadRequest,
			Code:       "INVALID_ARGUMENT",
			Message:    err.Error(),
		}

	case errors.As(err, &batch):
		return &APIError{
			HTTPStatus: http.StatusUnprocessableEntity,
			Code:       "BATCH_PARTIAL_FAILURE",
			Message:    batch.Error(),
		}

	default:
		return &APIError{
			HTTPStatus: http.StatusInternalServerError,
			Code:       "INTERNAL_ERROR",
			Message:    "Internal server error",
		}
	}
}

func respondError(c *gin.Context, err error) {
	apiErr := DomainToHTTPError(err)
	c.JSON(apiErr.HTTPStatus, gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	})
}
