package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/internal/helpers"
	"github.com/amrabdelsalam/madrasti/internal/mailer"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/models"
)

const otpValidity = 10 * time.Minute

type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	RoleName    string `json:"role_name"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Otp   string `json:"otp" binding:"required,len=6"`
}

type ResendOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	roleName := req.RoleName
	if roleName == "" {
		roleName = "student"
	}
	var role models.Role
	if err := gormDB.Where("name = ?", roleName).First(&role).Error; err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid role.")
		return
	}

	var existingUser models.User
	if result := gormDB.Where("email = ? OR phone_number = ?", req.Email, req.PhoneNumber).First(&existingUser); result.Error == nil {
		if existingUser.Email == req.Email {
			helpers.RespondWithError(c, http.StatusConflict, "Email already exists.")
		} else {
			helpers.RespondWithError(c, http.StatusConflict, "Phone number already exists.")
		}
		return
	}

	otp, err := generateOtp()
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate verification code.")
		return
	}

	// Only create the account once the verification mail went out.
	m := middleware.GetMailer(c)
	if m == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Mailer not configured.")
		return
	}
	subject, body := mailer.OTPEmail(req.Name, otp)
	if err := m.Send(req.Email, subject, body); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to send verification email.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to hash the password.")
		return
	}

	expires := time.Now().Add(otpValidity)
	user := models.User{
		ID:          uuid.New(),
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    string(hashedPassword),
		Otp:         &otp,
		OtpExpires:  &expires,
		RoleID:      role.ID,
	}

	if err := gormDB.Create(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create user.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered. Please verify your email."})
}

func VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	if user.EmailVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Email already verified."})
		return
	}

	if user.Otp == nil || user.OtpExpires == nil || *user.Otp != req.Otp || time.Now().After(*user.OtpExpires) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid or expired verification code.")
		return
	}

	updates := map[string]interface{}{
		"email_verified": true,
		"otp":            nil,
		"otp_expires":    nil,
	}
	if err := gormDB.Model(&user).Updates(updates).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to verify email.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully."})
}

func ResendOtp(c *gin.Context) {
	var req ResendOtpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	if user.EmailVerified {
		helpers.RespondWithError(c, http.StatusBadRequest, "Email already verified.")
		return
	}

	otp, err := generateOtp()
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate verification code.")
		return
	}

	m := middleware.GetMailer(c)
	if m == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Mailer not configured.")
		return
	}
	subject, body := mailer.OTPEmail(user.Name, otp)
	if err := m.Send(user.Email, subject, body); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to send verification email.")
		return
	}

	expires := time.Now().Add(otpValidity)
	if err := gormDB.Model(&user).Updates(map[string]interface{}{"otp": otp, "otp_expires": expires}).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to store verification code.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent."})
}

func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Preload("Role").Where("email = ?", req.Email).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	if !user.EmailVerified {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Please verify your email before signing in.")
		return
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		helpers.RespondWithError(c, http.StatusInternalServerError, "JWT_SECRET not configured.")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.String(),
		"role":    user.Role.Name,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": tokenString,
		"user": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role.Name,
		},
	})
}

func ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// Do not reveal whether the address exists.
		c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent."})
		return
	}

	token := uuid.New().String()
	expires := time.Now().Add(time.Hour)

	baseURL := os.Getenv("APP_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", baseURL, token)

	m := middleware.GetMailer(c)
	if m == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Mailer not configured.")
		return
	}
	subject, body := mailer.ResetPasswordEmail(user.Name, resetURL)
	if err := m.Send(user.Email, subject, body); err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to send reset email.")
		return
	}

	if err := gormDB.Model(&user).Updates(map[string]interface{}{"reset_token": token, "reset_expires": expires}).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to store reset token.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset link has been sent."})
}

func ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Where("reset_token = ?", req.Token).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid or expired reset token.")
		return
	}

	if user.ResetExpires == nil || time.Now().After(*user.ResetExpires) {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid or expired reset token.")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to hash the password.")
		return
	}

	updates := map[string]interface{}{
		"password":      string(hashedPassword),
		"reset_token":   nil,
		"reset_expires": nil,
	}
	if err := gormDB.Model(&user).Updates(updates).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to reset password.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}
