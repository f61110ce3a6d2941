package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chapter struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Title        string    `gorm:"not null"`
	Description  string
	VideoURL     string
	Position     int  `gorm:"not null"`
	IsPublished  bool `gorm:"not null;default:false"`
	IsFree       bool `gorm:"not null;default:false"`
	CourseID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Course       Course
	UserProgress []UserProgress
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (chapter *Chapter) BeforeCreate(tx *gorm.DB) (err error) {
	if chapter.ID == uuid.Nil {
		chapter.ID = uuid.New()
	}
	return
}
