package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PurchaseStatus string

const (
	PurchasePending PurchaseStatus = "PENDING"
	PurchaseActive  PurchaseStatus = "ACTIVE"
	PurchaseFailed  PurchaseStatus = "FAILED"
)

// Purchase links a user to a course they paid (or are paying) for. The unique
// index on (user_id, course_id) is what stops two concurrent purchase attempts
// from both creating a PENDING row. Purchases are hard-deleted: a soft-deleted
// row would keep blocking the unique index and make retry after failure
// impossible.
type Purchase struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_user_course"`
	CourseID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_user_course"`
	Status    PurchaseStatus `gorm:"not null;default:'PENDING'"`
	User      User
	Course    Course
	Payment   *Payment `gorm:"foreignKey:PurchaseID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (purchase *Purchase) BeforeCreate(tx *gorm.DB) (err error) {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	return
}
