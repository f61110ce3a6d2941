package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	Name          string    `gorm:"not null"`
	Email         string    `gorm:"unique;not null"`
	PhoneNumber   string    `gorm:"unique;not null"`
	Password      string    `gorm:"not null" json:"-"`
	EmailVerified bool      `gorm:"not null;default:false"`
	Otp           *string    `json:"-"`
	OtpExpires    *time.Time `json:"-"`
	ResetToken    *string    `gorm:"index" json:"-"`
	ResetExpires  *time.Time `json:"-"`
	RoleID        uuid.UUID
	Role          Role
	Courses       []Course `gorm:"foreignKey:UserID"`
	Purchases     []Purchase
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}
