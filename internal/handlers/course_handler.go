package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/models"
)

type CreateCourseRequest struct {
	Title string `json:"title" binding:"required"`
}

type UpdateCourseRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Price       *float64   `json:"price"`
	CategoryID  *uuid.UUID `json:"category_id"`
}

func CreateCourse(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

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

	course := models.Course{
		ID:     uuid.New(),
		Title:  req.Title,
		UserID: userID,
	}

	if err := gormDB.Create(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create course.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Course created successfully.",
		"course_id": course.ID,
	})
}

func UpdateCourse(c *gin.Context) {
	courseID := c.Param("courseId")
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req UpdateCourseRequest
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

	var course models.Course
	if err := gormDB.Where("id = ? AND user_id = ?", courseID, userID).First(&course).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to update.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding course.")
		return
	}

	if req.Title != nil {
		course.Title = *req.Title
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Price != nil {
		course.Price = *req.Price
	}
	if req.CategoryID != nil {
		course.CategoryID = req.CategoryID
	}

	if err := gormDB.Save(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update course.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course updated successfully.",
		"course":  course,
	})
}

func UploadCourseImage(c *gin.Context) {
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

	var course models.Course
	if err := gormDB.Where("id = ? AND user_id = ?", courseID, userID).First(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to update.")
		return
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Image file is required.")
		return
	}

	imagePath, err := helpers.UploadFile(c, imageFile, "course_images")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	if course.ImagePath != "" {
		if err := helpers.DeleteFile(course.ImagePath); err != nil {
			fmt.Printf("Error deleting old course image: %v\n", err)
		}
	}

	course.ImagePath = imagePath
	if err := gormDB.Save(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update course image.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Course image updated successfully.",
		"image_path": imagePath,
	})
}

// PublishCourse flips a course live once it has everything students need:
// description, price, category and at least one published chapter.
func PublishCourse(c *gin.Context) {
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

	var course models.Course
	if err := gormDB.Preload("Chapters").Where("id = ? AND user_id = ?", courseID, userID).First(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to publish.")
		return
	}

	hasPublishedChapter := false
	for _, chapter := range course.Chapters {
		if chapter.IsPublished {
			hasPublishedChapter = true
			break
		}
	}

	if course.Description == "" || course.CategoryID == nil || !hasPublishedChapter {
		helpers.RespondWithError(c, http.StatusBadRequest, "Course needs a description, a category and at least one published chapter.")
		return
	}

	if err := gormDB.Model(&course).Update("is_published", true).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to publish course.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course published successfully."})
}

func UnpublishCourse(c *gin.Context) {
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

	result := gormDB.Model(&models.Course{}).Where("id = ? AND user_id = ?", courseID, userID).Update("is_published", false)
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to unpublish course.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to unpublish.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course unpublished successfully."})
}

func DeleteCourse(c *gin.Context) {
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

	result := gormDB.Where("id = ? AND user_id = ?", courseID, userID).Delete(&models.Course{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete course.")
		return
	}
	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusForbidden, "Course not found or you don't have permission to delete.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Course deleted successfully."})
}

func GetCourse(c *gin.Context) {
	courseID := c.Param("courseId")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var course models.Course
	err := gormDB.
		Preload("Category").
		Preload("Attachments").
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_published = ?", true).Order("position ASC")
		}).
		Where("id = ? AND is_published = ?", courseID, true).
		First(&course).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Course not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving course.")
		return
	}

	c.JSON(http.StatusOK, course)
}

func ListCourses(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")
	title := c.Query("title")
	categoryID := c.Query("categoryId")

	pageNum, err := helpers.StringToInt(page)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	query := gormDB.Model(&models.Course{}).Where("is_published = ?", true)
	if title != "" {
		query = query.Where("title ILIKE ?", "%"+title+"%")
	}
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var totalCount int64
	query.Count(&totalCount)

	var courses []models.Course
	offset := (pageNum - 1) * limitNum
	err = query.Preload("Category").Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&courses).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving courses.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"courses":     courses,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func ListTeacherCourses(c *gin.Context) {
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

	var courses []models.Course
	err := gormDB.Preload("Category").Preload("Chapters").Where("user_id = ?", userID).Order("created_at DESC").Find(&courses).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving courses.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}
