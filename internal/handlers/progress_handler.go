package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/models"
)

type UpdateProgressRequest struct {
	IsCompleted *bool `json:"is_completed" binding:"required"`
}

func GetCourseProgress(c *gin.Context) {
	courseID := c.Param("courseId")
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, dbExists := c.Get("db")
	if !dbExists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var progress []models.UserProgress
	err := gormDB.
		Joins("JOIN chapters ON chapters.id = user_progress.chapter_id").
		Where("user_progress.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Preload("Chapter").
		Find(&progress).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving progress.")
		return
	}

	var totalChapters int64
	gormDB.Model(&models.Chapter{}).Where("course_id = ? AND is_published = ?", courseID, true).Count(&totalChapters)

	completed := 0
	for _, p := range progress {
		if p.IsCompleted {
			completed++
		}
	}

	percentage := 0.0
	if totalChapters > 0 {
		percentage = float64(completed) / float64(totalChapters) * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":   progress,
		"completed":  completed,
		"total":      totalChapters,
		"percentage": percentage,
	})
}

func UpdateChapterProgress(c *gin.Context) {
	chapterID := c.Param("chapterId")
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, dbExists := c.Get("db")
	if !dbExists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var chapter models.Chapter
	if err := gormDB.Where("id = ?", chapterID).First(&chapter).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Chapter not found.")
		return
	}

	var progress models.UserProgress
	err := gormDB.Where("user_id = ? AND chapter_id = ?", userID, chapter.ID).
		FirstOrCreate(&progress, models.UserProgress{UserID: userID, ChapterID: chapter.ID}).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to record progress.")
		return
	}

	if err := gormDB.Model(&progress).Update("is_completed", *req.IsCompleted).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to record progress.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Progress updated successfully.",
		"progress": progress,
	})
}
