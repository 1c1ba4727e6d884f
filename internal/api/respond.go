package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeDomainError переводит ошибки домена в HTTP-статусы.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEventNotFound), errors.Is(err, domain.ErrOrderNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case domain.IsConflict(err),
		errors.Is(err, domain.ErrInvalidOrderState),
		errors.Is(err, domain.ErrInvalidEventState),
		errors.Is(err, domain.ErrPricingLocked),
		errors.Is(err, domain.ErrIdempotencyHashMismatch):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEventClosed),
		errors.Is(err, domain.ErrCutoffPassed),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrPaymentRefMismatch):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrGatewayDeclined):
		writeError(c, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable):
		writeError(c, http.StatusBadGateway, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
