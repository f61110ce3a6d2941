package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/amrabdelsalam/madrasti/internal/models"
)

// Ledger is the persistent source of truth for purchases and payments.
// Only this package writes purchase/payment status.
type Ledger interface {
	FindPurchase(ctx context.Context, userID, courseID uuid.UUID) (*models.Purchase, error)
	FindPurchaseForUser(ctx context.Context, purchaseID, userID uuid.UUID) (*models.Purchase, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	DeletePurchase(ctx context.Context, purchaseID uuid.UUID) error

	FindPaymentByReference(ctx context.Context, tranRef string) (*models.Payment, error)
	FindPaymentByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, paymentID uuid.UUID) error

	SetPaymentStatus(ctx context.Context, paymentID uuid.UUID, status models.PaymentStatus) error
	SetPurchaseStatus(ctx context.Context, purchaseID uuid.UUID, status models.PurchaseStatus) error
}
