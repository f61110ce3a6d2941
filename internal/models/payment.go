package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment records one gateway transaction attempt, owned 1:1 by its Purchase.
// TransactionReference is the gateway's id and is how webhook callbacks find
// their way back to the right purchase.
type Payment struct {
	ID                   uuid.UUID     `gorm:"type:uuid;primary_key"`
	TransactionReference string        `gorm:"not null;unique"`
	Amount               float64       `gorm:"not null"`
	Currency             string        `gorm:"not null;default:'EGP'"`
	Status               PaymentStatus `gorm:"not null;default:'PENDING'"`
	PurchaseID           uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex"`
	Purchase             *Purchase
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}
