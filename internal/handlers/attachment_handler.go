package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/models"
)

func CreateAttachment(c *gin.Context) {
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

	course, err := courseOwnedBy(gormDB, courseID, userID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to update.")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Attachment file is required.")
		return
	}

	filePath, err := helpers.UploadFile(c, file, "course_attachments", helpers.DefaultDocumentUploadConfig)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	attachment := models.Attachment{
		Name:     file.Filename,
		FilePath: filePath,
		CourseID: course.ID,
	}

	if err := gormDB.Create(&attachment).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create attachment.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Attachment uploaded successfully.",
		"attachment": attachment,
	})
}

func ListAttachments(c *gin.Context) {
	courseID := c.Param("courseId")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var attachments []models.Attachment
	if err := gormDB.Where("course_id = ?", courseID).Order("created_at DESC").Find(&attachments).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving attachments.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": attachments})
}

func DeleteAttachment(c *gin.Context) {
	courseID := c.Param("courseId")
	attachmentID := c.Param("attachmentId")
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

	var attachment models.Attachment
	if err := gormDB.Where("id = ? AND course_id = ?", attachmentID, courseID).First(&attachment).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Attachment not found.")
		return
	}

	if err := gormDB.Delete(&attachment).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete attachment.")
		return
	}

	if err := helpers.DeleteFile(attachment.FilePath); err != nil {
		fmt.Printf("Error deleting attachment file: %v\n", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully."})
}
