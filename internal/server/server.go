package server

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/amrabdelsalam/madrasti/config"
	"github.com/amrabdelsalam/madrasti/internal/handlers"
	"github.com/amrabdelsalam/madrasti/internal/mailer"
	"github.com/amrabdelsalam/madrasti/internal/middleware"
	"github.com/amrabdelsalam/madrasti/internal/payments"
	"github.com/amrabdelsalam/madrasti/internal/paytabs"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	ptClient, err := paytabs.NewClient(config.LoadPayTabsConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize paytabs client: %v", err)
	}

	paymentService := payments.NewService(payments.NewGormLedger(db), ptClient)

	r := gin.Default()

	setupRoutes(r, db, ptClient, paymentService, mailer.FromEnv())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, ptClient *paytabs.Client, paymentService *payments.Service, m mailer.Mailer) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.PayTabsMiddleware(ptClient))
	r.Use(middleware.PaymentServiceMiddleware(paymentService))
	r.Use(middleware.MailerMiddleware(m))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)
		public.POST("/verify-email", handlers.VerifyEmail)
		public.POST("/resend-otp", handlers.ResendOtp)
		public.POST("/forgot-password", handlers.ForgotPassword)
		public.POST("/reset-password", handlers.ResetPassword)

		public.GET("/categories", handlers.ListCategories)

		coursePublic := public.Group("/courses")
		{
			coursePublic.GET("", handlers.ListCourses)
			coursePublic.GET("/:courseId", handlers.GetCourse)
			coursePublic.GET("/:courseId/attachments", handlers.ListAttachments)
		}

		// Gateway callbacks are authenticated by signature, not by JWT.
		public.POST("/webhooks/paytabs", handlers.PayTabsWebhook)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/profile", handlers.GetProfile)
		protected.PUT("/profile", handlers.UpdateProfile)

		protected.GET("/teacher/courses", handlers.ListTeacherCourses)

		courseProtected := protected.Group("/courses")
		{
			courseProtected.POST("", handlers.CreateCourse)
			courseProtected.PATCH("/:courseId", handlers.UpdateCourse)
			courseProtected.DELETE("/:courseId", handlers.DeleteCourse)
			courseProtected.POST("/:courseId/image", handlers.UploadCourseImage)
			courseProtected.PATCH("/:courseId/publish", handlers.PublishCourse)
			courseProtected.PATCH("/:courseId/unpublish", handlers.UnpublishCourse)

			courseProtected.POST("/:courseId/chapters", handlers.CreateChapter)
			courseProtected.PUT("/:courseId/chapters/reorder", handlers.ReorderChapters)
			courseProtected.GET("/:courseId/chapters/:chapterId", handlers.GetChapter)
			courseProtected.PATCH("/:courseId/chapters/:chapterId", handlers.UpdateChapter)
			courseProtected.DELETE("/:courseId/chapters/:chapterId", handlers.DeleteChapter)

			courseProtected.POST("/:courseId/attachments", handlers.CreateAttachment)
			courseProtected.DELETE("/:courseId/attachments/:attachmentId", handlers.DeleteAttachment)

			courseProtected.GET("/:courseId/progress", handlers.GetCourseProgress)

			courseProtected.POST("/:courseId/purchase", handlers.InitiatePurchase)
		}

		protected.PUT("/chapters/:chapterId/progress", handlers.UpdateChapterProgress)

		protected.GET("/payments/:purchaseId", handlers.GetPaymentStatus)

		protected.GET("/purchases/:purchaseId/receipt", handlers.GenerateReceiptQR)
		protected.POST("/receipts/validate", handlers.ValidateReceipt)
	}
}
