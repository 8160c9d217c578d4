package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentdesk/controllers"
	"rentdesk/database"
	"rentdesk/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes (no authentication required)
	public := r.Group("/api")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/register", controllers.Register)
			auth.POST("/forgot-password", controllers.ForgotPassword)
			auth.POST("/reset-password", controllers.ResetPassword)
		}
	}

	// Protected routes (authentication required)
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/auth/refresh", controllers.RefreshToken)

		protected.GET("/profile", controllers.GetProfile)
		protected.PUT("/profile", controllers.UpdateProfile)
		protected.POST("/profile/change-password", controllers.ChangePassword)

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(middleware.SuperAdminAuthMiddleware())
		{
			admin.POST("/owners", controllers.CreateOwner)
			admin.GET("/owners", controllers.GetOwners)
			admin.PUT("/owners/:id", controllers.UpdateOwner)
			admin.DELETE("/owners/:id", controllers.DeleteOwner)
			admin.DELETE("/users/:id", controllers.DeleteUser)
			admin.GET("/dashboard", controllers.GetAdminDashboard)
		}

		// Managers
		managers := protected.Group("/managers")
		{
			managers.POST("", middleware.OwnerAuthMiddleware(), controllers.CreateManager)
			managers.GET("", middleware.OwnerAuthMiddleware(), controllers.GetManagers)
			managers.PUT("/:id/permissions", middleware.OwnerAuthMiddleware(), controllers.UpdateManagerPermissions)
			managers.DELETE("/:id", middleware.OwnerAuthMiddleware(), controllers.DeleteManager)
		}

		// Tenants
		tenants := protected.Group("/tenants")
		{
			tenants.POST("", middleware.StaffAuthMiddleware(), controllers.CreateTenant)
			tenants.GET("", middleware.StaffAuthMiddleware(), controllers.GetTenants)
			tenants.PUT("/:id", middleware.StaffAuthMiddleware(), controllers.UpdateTenant)
			tenants.DELETE("/:id", middleware.OwnerAuthMiddleware(), controllers.DeleteTenant)
		}

		// Properties
		properties := protected.Group("/properties")
		{
			properties.POST("", middleware.OwnerAuthMiddleware(), controllers.CreateProperty)
			properties.GET("", controllers.GetProperties)
			properties.GET("/:id", controllers.GetPropertyByID)
			properties.PUT("/:id", middleware.StaffAuthMiddleware(), controllers.UpdateProperty)
			properties.DELETE("/:id", middleware.StaffAuthMiddleware(), controllers.DeleteProperty)
		}

		// Leases
		leases := protected.Group("/leases")
		{
			leases.POST("", middleware.StaffAuthMiddleware(), controllers.CreateLease)
			leases.GET("", controllers.GetLeases)
			leases.GET("/:id", controllers.GetLeaseByID)
			leases.POST("/:id/terminate", middleware.StaffAuthMiddleware(), controllers.TerminateLease)
			leases.POST("/:id/renew", middleware.StaffAuthMiddleware(), controllers.RenewLease)
			leases.DELETE("/:id", middleware.OwnerAuthMiddleware(), controllers.DeleteLease)
		}

		// Payments
		payments := protected.Group("/payments")
		{
			payments.POST("", middleware.StaffAuthMiddleware(), controllers.CreatePayment)
			payments.GET("", controllers.GetPayments)
			payments.GET("/summary", controllers.PaymentSummary)
			payments.GET("/:id", controllers.GetPaymentByID)
			payments.PUT("/:id", middleware.StaffAuthMiddleware(), controllers.UpdatePayment)
			payments.DELETE("/:id", middleware.OwnerAuthMiddleware(), controllers.DeletePayment)
			payments.POST("/:id/mark-paid", middleware.StaffAuthMiddleware(), controllers.MarkPaymentPaid)
			payments.POST("/generate-order", middleware.TenantAuthMiddleware(), controllers.GenerateOnlinePayment)
			payments.POST("/verify", middleware.TenantAuthMiddleware(), controllers.VerifyOnlinePayment)
			payments.POST("/:id/refund", middleware.OwnerAuthMiddleware(), controllers.RefundPayment)
		}

		// Complaints
		complaints := protected.Group("/complaints")
		{
			complaints.POST("", controllers.CreateComplaint)
			complaints.GET("", controllers.GetComplaints)
			complaints.GET("/:id", controllers.GetComplaintByID)
			complaints.PUT("/:id", middleware.StaffAuthMiddleware(), controllers.UpdateComplaint)
			complaints.DELETE("/:id", middleware.OwnerAuthMiddleware(), controllers.DeleteComplaint)
		}

		// Maintenance requests
		maintenance := protected.Group("/maintenance")
		{
			maintenance.POST("", controllers.CreateMaintenanceRequest)
			maintenance.GET("", controllers.GetMaintenanceRequests)
			maintenance.GET("/:id", controllers.GetMaintenanceRequestByID)
			maintenance.PUT("/:id", middleware.StaffAuthMiddleware(), controllers.UpdateMaintenanceRequest)
			maintenance.DELETE("/:id", middleware.OwnerAuthMiddleware(), controllers.DeleteMaintenanceRequest)
		}

		// Notifications
		notifications := protected.Group("/notifications")
		{
			notifications.GET("", controllers.GetNotifications)
			notifications.PATCH("/:id/read", controllers.MarkNotificationRead)
		}

		// Dashboards and reports
		protected.GET("/dashboard", middleware.OwnerAuthMiddleware(), controllers.GetOwnerDashboard)
		reports := protected.Group("/reports")
		reports.Use(middleware.OwnerAuthMiddleware())
		{
			reports.GET("/revenue", controllers.GetRevenueReport)
			reports.GET("/snapshots", controllers.GetAnalyticsSnapshots)
		}
	}
}
