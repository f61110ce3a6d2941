package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserProgress struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_chapter"`
	ChapterID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_chapter"`
	Chapter     Chapter
	IsCompleted bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
