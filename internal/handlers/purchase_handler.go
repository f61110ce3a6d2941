package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/models"
	"github.com/amrabdelsalam/madrasti/internal/payments"
)

// InitiatePurchase starts a paid enrollment: it validates the course and the
// caller at the boundary, then hands off to the payments service which owns
// the create-purchase / payment-link / compensating-delete choreography.
func InitiatePurchase(c *gin.Context) {
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	courseID, err := helpers.ParseUUIDParam(c, "courseId")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid course ID.")
		return
	}

	db, dbExists := c.Get("db")
	if !dbExists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	svc := middleware.GetPaymentService(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment service not found.")
		return
	}

	var course models.Course
	if err := gormDB.Where("id = ? AND is_published = ?", courseID, true).First(&course).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Course not found or not available for purchase.")
		return
	}

	var user models.User
	if err := gormDB.Where("id = ?", userID).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}
	if user.Email == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Your account email is required for payment processing.")
		return
	}

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ptClient := middleware.GetPayTabsClient(c)
	currency := "EGP"
	if ptClient != nil {
		currency = ptClient.Currency()
	}

	result, err := svc.InitiatePurchase(c.Request.Context(), payments.InitiateInput{
		UserID:        userID,
		CourseID:      course.ID,
		CourseTitle:   course.Title,
		Amount:        course.Price,
		Currency:      currency,
		CustomerEmail: user.Email,
		CustomerName:  user.Name,
		CallbackURL:   fmt.Sprintf("%s/v1/webhooks/paytabs", baseURL),
		ReturnURL:     fmt.Sprintf("%s/courses/%s/payment-status?purchaseId={purchaseId}&courseId=%s", baseURL, course.ID, course.ID),
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrAlreadyPurchased):
			helpers.RespondWithError(c, http.StatusBadRequest, "You have already purchased this course.")
		case errors.Is(err, payments.ErrPurchaseInProgress):
			helpers.RespondWithError(c, http.StatusBadRequest, "You have a pending purchase for this course. Please complete the payment or try again later.")
		case errors.Is(err, payments.ErrPaymentInitiation):
			helpers.RespondWithError(c, http.StatusInternalServerError, fmt.Sprintf("Payment Error: %v", err))
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create purchase.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"purchaseId": result.PurchaseID,
		"paymentUrl": result.PaymentURL,
	})
}

// GenerateReceiptQR renders a signed QR receipt for an ACTIVE purchase so
// enrollment can be verified offline.
func GenerateReceiptQR(c *gin.Context) {
	userID, exists := middleware.UserID(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	purchaseID, err := helpers.ParseUUIDParam(c, "purchaseId")
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid purchase ID.")
		return
	}

	db, dbExists := c.Get("db")
	if !dbExists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var purchase models.Purchase
	if err := gormDB.Where("id = ?", purchaseID).First(&purchase).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Purchase not found.")
		return
	}

	if purchase.UserID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to generate a receipt for this purchase.")
		return
	}

	if purchase.Status != models.PurchaseActive {
		helpers.RespondWithError(c, http.StatusForbidden, "Receipts are only available for completed purchases.")
		return
	}

	receiptData := helpers.BuildReceiptData(purchase.ID, purchase.CourseID, purchase.UserID, os.Getenv("JWT_SECRET"))

	qrImage, err := qrcode.Encode(receiptData, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate receipt QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// ValidateReceipt lets the course owner check a scanned receipt QR.
func ValidateReceipt(c *gin.Context) {
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

	var validationRequest struct {
		QRData string `json:"qr_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&validationRequest); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	purchaseID, err := helpers.ExtractPurchaseIDFromReceipt(validationRequest.QRData)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid receipt format.")
		return
	}

	var purchase models.Purchase
	if err := gormDB.Preload("Course").Preload("User").Where("id = ?", purchaseID).First(&purchase).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Purchase not found.")
		return
	}

	if !helpers.ValidateReceiptSignature(purchase.ID, purchase.CourseID, purchase.UserID, validationRequest.QRData, os.Getenv("JWT_SECRET")) {
		helpers.RespondWithError(c, http.StatusForbidden, "Invalid receipt signature.")
		return
	}

	if purchase.Course.UserID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to validate this receipt.")
		return
	}

	if purchase.Status != models.PurchaseActive {
		helpers.RespondWithError(c, http.StatusForbidden, "Purchase is not active.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Receipt validated successfully.",
		"enrollment": gin.H{
			"course_title": purchase.Course.Title,
			"student_name": purchase.User.Name,
		},
	})
}
