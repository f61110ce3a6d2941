package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/amrabdelsalam/madrasti/internal/models"
	"github.com/amrabdelsalam/madrasti/internal/paytabs"
)

// Gateway is the slice of the PayTabs client the payment flow needs.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, in paytabs.CreatePaymentLinkInput) (*paytabs.PaymentLink, error)
	VerifyPayment(ctx context.Context, tranRef string) (*paytabs.TransactionStatus, error)
}

// Service orchestrates purchase initiation and payment reconciliation against
// the ledger and the external gateway.
type Service struct {
	ledger  Ledger
	gateway Gateway
}

func NewService(ledger Ledger, gateway Gateway) *Service {
	return &Service{ledger: ledger, gateway: gateway}
}

type InitiateInput struct {
	UserID        uuid.UUID
	CourseID      uuid.UUID
	CourseTitle   string
	Amount        float64
	Currency      string
	CustomerEmail string
	CustomerName  string
	CallbackURL   string
	// ReturnURL may contain {purchaseId}, replaced once the purchase row
	// exists so the browser lands back on the right poll page.
	ReturnURL string
}

type InitiateResult struct {
	PurchaseID uuid.UUID
	PaymentURL string
}

// InitiatePurchase creates a PENDING purchase, asks the gateway for a payment
// link and records the payment row. Every failure after the purchase row is
// created is paired with a compensating delete so no orphaned PENDING rows
// survive. The delete is best effort: if the gateway call timed out after
// succeeding upstream, the webhook for that transaction is the backstop.
func (s *Service) InitiatePurchase(ctx context.Context, in InitiateInput) (*InitiateResult, error) {
	existing, err := s.ledger.FindPurchase(ctx, in.UserID, in.CourseID)
	switch {
	case err == nil:
		switch existing.Status {
		case models.PurchaseActive:
			return nil, ErrAlreadyPurchased
		case models.PurchasePending:
			return nil, ErrPurchaseInProgress
		case models.PurchaseFailed:
			// Clear the failed attempt so the unique index admits a retry.
			if err := s.clearFailedPurchase(ctx, existing); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, ErrPurchaseNotFound):
		// First attempt for this user and course.
	default:
		return nil, err
	}

	purchase := &models.Purchase{
		ID:       uuid.New(),
		UserID:   in.UserID,
		CourseID: in.CourseID,
		Status:   models.PurchasePending,
	}
	if err := s.ledger.CreatePurchase(ctx, purchase); err != nil {
		return nil, err
	}

	link, err := s.gateway.CreatePaymentLink(ctx, paytabs.CreatePaymentLinkInput{
		CourseID:      in.CourseID.String(),
		CourseTitle:   in.CourseTitle,
		Amount:        in.Amount,
		CustomerEmail: in.CustomerEmail,
		CustomerName:  in.CustomerName,
		CallbackURL:   in.CallbackURL,
		ReturnURL:     strings.ReplaceAll(in.ReturnURL, "{purchaseId}", purchase.ID.String()),
	})
	if err != nil {
		s.compensate(ctx, purchase.ID)
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiation, err)
	}

	payment := &models.Payment{
		ID:                   uuid.New(),
		TransactionReference: link.TranRef,
		Amount:               in.Amount,
		Currency:             in.Currency,
		Status:               models.PaymentPending,
		PurchaseID:           purchase.ID,
	}
	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		s.compensate(ctx, purchase.ID)
		return nil, fmt.Errorf("storing payment record: %w", err)
	}

	return &InitiateResult{PurchaseID: purchase.ID, PaymentURL: link.RedirectURL}, nil
}

func (s *Service) clearFailedPurchase(ctx context.Context, purchase *models.Purchase) error {
	payment, err := s.ledger.FindPaymentByPurchase(ctx, purchase.ID)
	switch {
	case err == nil:
		if err := s.ledger.DeletePayment(ctx, payment.ID); err != nil {
			return fmt.Errorf("clearing failed payment: %w", err)
		}
	case errors.Is(err, ErrPaymentRecordMissing):
		// Nothing to clean up.
	default:
		return err
	}

	if err := s.ledger.DeletePurchase(ctx, purchase.ID); err != nil {
		return fmt.Errorf("clearing failed purchase: %w", err)
	}
	return nil
}

func (s *Service) compensate(ctx context.Context, purchaseID uuid.UUID) {
	if err := s.ledger.DeletePurchase(ctx, purchaseID); err != nil {
		log.Printf("[PAYMENTS] compensating delete failed for purchase %s: %v", purchaseID, err)
	}
}
