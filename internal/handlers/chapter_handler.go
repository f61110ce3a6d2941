package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/models"
)

type CreateChapterRequest struct {
	Title string `json:"title" binding:"required"`
}

type UpdateChapterRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"video_url"`
	IsPublished *bool   `json:"is_published"`
	IsFree      *bool   `json:"is_free"`
}

type ReorderChaptersRequest struct {
	List []struct {
		ID       uuid.UUID `json:"id" binding:"required"`
		Position int       `json:"position"`
	} `json:"list" binding:"required"`
}

func courseOwnedBy(gormDB *gorm.DB, courseID string, userID uuid.UUID) (*models.Course, error) {
	var course models.Course
	err := gormDB.Where("id = ? AND user_id = ?", courseID, userID).First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func CreateChapter(c *gin.Context) {
	courseID := c.Param("courseId")
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req CreateChapterRequest
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

	course, err := courseOwnedBy(gormDB, courseID, userID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to update.")
		return
	}

	var lastPosition int
	gormDB.Model(&models.Chapter{}).Where("course_id = ?", course.ID).Select("COALESCE(MAX(position), 0)").Scan(&lastPosition)

	chapter := models.Chapter{
		ID:       uuid.New(),
		Title:    req.Title,
		Position: lastPosition + 1,
		CourseID: course.ID,
	}

	if err := gormDB.Create(&chapter).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create chapter.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Chapter created successfully.",
		"chapter_id": chapter.ID,
	})
}

// GetChapter returns a chapter with the caller's progress and the neighbouring
// chapter ids for navigation. The video URL is withheld unless the chapter is
// free, the caller owns the course, or the caller holds an ACTIVE purchase.
func GetChapter(c *gin.Context) {
	courseID := c.Param("courseId")
	chapterID := c.Param("chapterId")
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

	var chapter models.Chapter
	err := gormDB.Preload("Course").Where("id = ? AND course_id = ?", chapterID, courseID).First(&chapter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Chapter not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving chapter.")
		return
	}

	isOwner := chapter.Course.UserID == userID

	hasAccess := chapter.IsFree || isOwner
	if !hasAccess {
		var purchase models.Purchase
		err := gormDB.Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, models.PurchaseActive).First(&purchase).Error
		hasAccess = err == nil
	}

	videoURL := chapter.VideoURL
	if !hasAccess {
		videoURL = ""
	}

	var nextChapter models.Chapter
	var nextChapterID *uuid.UUID
	if err := gormDB.Where("course_id = ? AND position > ? AND is_published = ?", courseID, chapter.Position, true).
		Order("position ASC").First(&nextChapter).Error; err == nil {
		nextChapterID = &nextChapter.ID
	}

	var previousChapter models.Chapter
	var previousChapterID *uuid.UUID
	if err := gormDB.Where("course_id = ? AND position < ? AND is_published = ?", courseID, chapter.Position, true).
		Order("position DESC").First(&previousChapter).Error; err == nil {
		previousChapterID = &previousChapter.ID
	}

	var progress models.UserProgress
	isCompleted := false
	if err := gormDB.Where("user_id = ? AND chapter_id = ?", userID, chapter.ID).First(&progress).Error; err == nil {
		isCompleted = progress.IsCompleted
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                  chapter.ID,
		"title":               chapter.Title,
		"description":         chapter.Description,
		"video_url":           videoURL,
		"position":            chapter.Position,
		"is_published":        chapter.IsPublished,
		"is_free":             chapter.IsFree,
		"has_access":          hasAccess,
		"is_completed":        isCompleted,
		"next_chapter_id":     nextChapterID,
		"previous_chapter_id": previousChapterID,
	})
}

func UpdateChapter(c *gin.Context) {
	courseID := c.Param("courseId")
	chapterID := c.Param("chapterId")
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req UpdateChapterRequest
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

	if _, err := courseOwnedBy(gormDB, courseID, userID); err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to update.")
		return
	}

	var chapter models.Chapter
	if err := gormDB.Where("id = ? AND course_id = ?", chapterID, courseID).First(&chapter).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Chapter not found.")
		return
	}

	if req.Title != nil {
		chapter.Title = *req.Title
	}
	if req.Description != nil {
		chapter.Description = *req.Description
	}
	if req.VideoURL != nil {
		chapter.VideoURL = *req.VideoURL
	}
	if req.IsPublished != nil {
		chapter.IsPublished = *req.IsPublished
	}
	if req.IsFree != nil {
		chapter.IsFree = *req.IsFree
	}

	if err := gormDB.Save(&chapter).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update chapter.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Chapter updated successfully.",
		"chapter": chapter,
	})
}

func DeleteChapter(c *gin.Context) {
	courseID := c.Param("courseId")
	chapterID := c.Param("chapterId")
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

	if _, err := courseOwnedBy(gormDB, courseID, userID); err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to delete.")
		return
	}

	result := gormDB.Where("id = ? AND course_id = ?", chapterID, courseID).Delete(&models.Chapter{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete chapter.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Chapter not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chapter deleted successfully."})
}

func ReorderChapters(c *gin.Context) {
	courseID := c.Param("courseId")
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req ReorderChaptersRequest
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

	if _, err := courseOwnedBy(gormDB, courseID, userID); err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to update.")
		return
	}

	for _, item := range req.List {
		if err := gormDB.Model(&models.Chapter{}).
			Where("id = ? AND course_id = ?", item.ID, courseID).
			Update("position", item.Position).Error; err != nil {
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to reorder chapters.")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Chapters reordered successfully."})
}
