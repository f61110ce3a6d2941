package payments

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/amrabdelsalam/madrasti/internal/models"
)

// CallbackPayload is the webhook body PayTabs delivers after a transaction
// settles. Only tran_ref and the response codes matter here.
type CallbackPayload struct {
	TranRef     string `json:"tran_ref" binding:"required"`
	RespStatus  string `json:"respStatus"`
	RespCode    string `json:"respCode"`
	RespMessage string `json:"respMessage"`
}

// PurchaseInfo is the purchase slice of a status response.
type PurchaseInfo struct {
	ID     uuid.UUID             `json:"id"`
	Status models.PurchaseStatus `json:"status"`
}

// StatusResult is what the polling client sees.
type StatusResult struct {
	ID                   uuid.UUID            `json:"id"`
	Status               models.PaymentStatus `json:"status"`
	Amount               float64              `json:"amount"`
	Currency             string               `json:"currency"`
	TransactionReference string               `json:"transactionReference"`
	CreatedAt            time.Time            `json:"createdAt"`
	Purchase             PurchaseInfo         `json:"purchase"`
}

// classify maps a gateway response onto the payment state machine:
// approved -> COMPLETED, explicit decline/error/cancel -> FAILED, anything
// else (hold, unknown) -> PENDING, which is a no-op. Both the webhook and the
// polling path classify through this one table.
func classify(respStatus string) models.PaymentStatus {
	switch respStatus {
	case "A":
		return models.PaymentCompleted
	case "D", "E", "X", "C", "V":
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

// apply moves the payment and its parent purchase to the target status.
// Terminal payments never transition again: re-applying the same result is a
// no-op success (webhook senders retry), and a settled payment is never
// downgraded. A FAILED purchase only changes by being deleted and replaced.
func (s *Service) apply(ctx context.Context, payment *models.Payment, target models.PaymentStatus) error {
	if target == models.PaymentPending {
		return nil
	}
	if payment.Status != models.PaymentPending {
		return nil
	}

	if err := s.ledger.SetPaymentStatus(ctx, payment.ID, target); err != nil {
		return err
	}

	purchaseStatus := models.PurchaseActive
	if target == models.PaymentFailed {
		purchaseStatus = models.PurchaseFailed
	}
	if err := s.ledger.SetPurchaseStatus(ctx, payment.PurchaseID, purchaseStatus); err != nil {
		return err
	}

	payment.Status = target
	return nil
}

// HandleCallback reconciles a webhook delivery. The callback is corroborated
// against payment/query before its codes are trusted; if verification is
// unavailable the callback's own codes still classify, since the payload is
// signature-checked at the HTTP boundary.
func (s *Service) HandleCallback(ctx context.Context, payload CallbackPayload) error {
	if payload.TranRef == "" {
		return ErrMalformedCallback
	}

	respStatus := payload.RespStatus
	verified, err := s.gateway.VerifyPayment(ctx, payload.TranRef)
	if err != nil {
		log.Printf("[RECONCILE] verification unavailable for %s: %v", payload.TranRef, err)
	} else if verified.PaymentResult.ResponseStatus != "" {
		respStatus = verified.PaymentResult.ResponseStatus
	}

	payment, err := s.ledger.FindPaymentByReference(ctx, payload.TranRef)
	if err != nil {
		return err
	}

	return s.apply(ctx, payment, classify(respStatus))
}

// GetStatus is the poll-driven entry point. An ACTIVE purchase short-circuits
// without a gateway round trip; otherwise the transaction is re-verified and
// the same classify/apply path as the webhook runs. If verification is
// unavailable the last persisted status is returned untouched so the client
// keeps polling.
func (s *Service) GetStatus(ctx context.Context, purchaseID, userID uuid.UUID) (*StatusResult, error) {
	purchase, err := s.ledger.FindPurchaseForUser(ctx, purchaseID, userID)
	if err != nil {
		return nil, err
	}

	if purchase.Status == models.PurchaseActive {
		result := &StatusResult{
			Status:   models.PaymentCompleted,
			Currency: "EGP",
			Purchase: PurchaseInfo{ID: purchase.ID, Status: purchase.Status},
		}
		if payment, err := s.ledger.FindPaymentByPurchase(ctx, purchase.ID); err == nil {
			result.ID = payment.ID
			result.Amount = payment.Amount
			result.Currency = payment.Currency
			result.TransactionReference = payment.TransactionReference
			result.CreatedAt = payment.CreatedAt
		}
		return result, nil
	}

	payment, err := s.ledger.FindPaymentByPurchase(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}

	verified, err := s.gateway.VerifyPayment(ctx, payment.TransactionReference)
	if err != nil {
		log.Printf("[RECONCILE] verification unavailable for %s: %v", payment.TransactionReference, err)
		return statusResult(payment, purchase.Status), nil
	}

	if err := s.apply(ctx, payment, classify(verified.PaymentResult.ResponseStatus)); err != nil {
		return nil, err
	}

	purchaseStatus := purchase.Status
	switch payment.Status {
	case models.PaymentCompleted:
		purchaseStatus = models.PurchaseActive
	case models.PaymentFailed:
		purchaseStatus = models.PurchaseFailed
	}

	return statusResult(payment, purchaseStatus), nil
}

func statusResult(payment *models.Payment, purchaseStatus models.PurchaseStatus) *StatusResult {
	return &StatusResult{
		ID:                   payment.ID,
		Status:               payment.Status,
		Amount:               payment.Amount,
		Currency:             payment.Currency,
		TransactionReference: payment.TransactionReference,
		CreatedAt:            payment.CreatedAt,
		Purchase:             PurchaseInfo{ID: payment.PurchaseID, Status: purchaseStatus},
	}
}
