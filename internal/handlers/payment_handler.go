package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/payments"
)

// GetPaymentStatus is the polling endpoint the payment-status page hits every
// few seconds after the gateway redirects back. Reconciliation happens inside
// the payments service; this handler only translates errors to HTTP.
func GetPaymentStatus(c *gin.Context) {
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	purchaseID, err := helpers.ParseUUIDParam(c, "purchaseId")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid purchase ID.")
		return
	}

	svc := middleware.GetPaymentService(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment service not found.")
		return
	}

	result, err := svc.GetStatus(c.Request.Context(), purchaseID, userID)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrPurchaseNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Purchase not found.")
		case errors.Is(err, payments.ErrPaymentRecordMissing):
			helpers.RespondWithError(c, http.StatusNotFound, "Payment record not found.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Error checking payment status.")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
