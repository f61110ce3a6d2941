package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/payments"
)

// PayTabsWebhook receives asynchronous gateway callbacks. PayTabs retries
// deliveries, so this endpoint must answer success for a payload it has
// already applied.
func PayTabsWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	if client := middleware.GetPayTabsClient(c); client != nil {
		if !client.ValidateCallbackSignature(body, c.GetHeader("Signature")) {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid callback signature.")
			return
		}
	}

	var payload payments.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid callback payload.")
		return
	}

	svc := middleware.GetPaymentService(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment service not found.")
		return
	}

	if err := svc.HandleCallback(c.Request.Context(), payload); err != nil {
		switch {
		case errors.Is(err, payments.ErrMalformedCallback):
			helpers.RespondWithError(c, http.StatusBadRequest, "Missing transaction reference.")
		case errors.Is(err, payments.ErrPaymentNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
		default:
			log.Printf("[WEBHOOK] callback processing failed for %s: %v", payload.TranRef, err)
			helpers.RespondWithError(c, http.StatusInternalServerError, "Internal error.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
