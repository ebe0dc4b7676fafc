package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swapPay/internal/model"
	"swapPay/internal/server/httputil"
	"swapPay/internal/swap"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrMalformedIntent),
		errors.Is(err, model.ErrAmountRequired),
		errors.Is(err, model.ErrEncodingFailure),
		errors.Is(err, swap.ErrUnknownToken):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrTerminalState),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrCancelNotAllowed):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrQuoteFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrSubmissionFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c *gin.Context, err error) {
	_ = c.Error(err)
	httputil.Error(c, statusFor(err), err.Error())
}
