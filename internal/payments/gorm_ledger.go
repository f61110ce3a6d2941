package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/models"
)

// GormLedger implements Ledger on top of the shared *gorm.DB. It relies on
// the database translating unique violations (TranslateError is enabled at
// connection time) so concurrent purchase creation surfaces as
// ErrPurchaseInProgress instead of a raw driver error.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) FindPurchase(ctx context.Context, userID, courseID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := l.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (l *GormLedger) FindPurchaseForUser(ctx context.Context, purchaseID, userID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := l.db.WithContext(ctx).Where("id = ? AND user_id = ?", purchaseID, userID).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (l *GormLedger) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if err := l.db.WithContext(ctx).Create(purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrPurchaseInProgress
		}
		return err
	}
	return nil
}

func (l *GormLedger) DeletePurchase(ctx context.Context, purchaseID uuid.UUID) error {
	return l.db.WithContext(ctx).Where("id = ?", purchaseID).Delete(&models.Purchase{}).Error
}

func (l *GormLedger) FindPaymentByReference(ctx context.Context, tranRef string) (*models.Payment, error) {
	var payment models.Payment
	err := l.db.WithContext(ctx).Where("transaction_reference = ?", tranRef).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

func (l *GormLedger) FindPaymentByPurchase(ctx context.Context, purchaseID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := l.db.WithContext(ctx).Where("purchase_id = ?", purchaseID).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentRecordMissing
		}
		return nil, err
	}
	return &payment, nil
}

func (l *GormLedger) CreatePayment(ctx context.Context, payment *models.Payment) error {
	return l.db.WithContext(ctx).Create(payment).Error
}

func (l *GormLedger) DeletePayment(ctx context.Context, paymentID uuid.UUID) error {
	return l.db.WithContext(ctx).Where("id = ?", paymentID).Delete(&models.Payment{}).Error
}

func (l *GormLedger) SetPaymentStatus(ctx context.Context, paymentID uuid.UUID, status models.PaymentStatus) error {
	return l.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", paymentID).Update("status", status).Error
}

func (l *GormLedger) SetPurchaseStatus(ctx context.Context, purchaseID uuid.UUID, status models.PurchaseStatus) error {
	return l.db.WithContext(ctx).Model(&models.Purchase{}).Where("id = ?", purchaseID).Update("status", status).Error
}
