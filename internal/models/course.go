package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Course struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Title       string    `gorm:"not null"`
	Description string
	ImagePath   string
	Price       float64 `gorm:"not null;default:0"`
	IsPublished bool    `gorm:"not null;default:false"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	User        User
	CategoryID  *uuid.UUID `gorm:"type:uuid"`
	Category    *Category
	Chapters    []Chapter
	Attachments []Attachment
	Purchases   []Purchase
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (course *Course) BeforeCreate(tx *gorm.DB) (err error) {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	return
}
