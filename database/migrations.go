package database

import (
	"github.com/sirupsen/logrus"

	"rentdesk/utils"
)

// RunMigrations runs all database migrations
func RunMigrations() error {
	logrus.Info("Running database migrations...")

	// AutoMigrate will create tables if they don't exist
	if err := DB.AutoMigrate(
		&User{},
		&Owner{},
		&Manager{},
		&Tenant{},
		&Property{},
		&Lease{},
		&Payment{},
		&Receipt{},
		&Complaint{},
		&MaintenanceRequest{},
		&Notification{},
		&AuditLog{},
		&LoginAttempt{},
		&AnalyticsSnapshot{},
		&PasswordReset{},
		&FeatureFlag{},
	); err != nil {
		logrus.Errorf("Migration failed: %v", err)
		return err
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

// SeedSuperAdmin creates a default super admin if none exists
func SeedSuperAdmin() {
	var count int64
	if err := DB.Model(&User{}).Where("role = ?", RoleSuperAdmin).Count(&count).Error; err != nil {
		logrus.Errorf("Failed to check existing super admin: %v", err)
		return
	}

	if count > 0 {
		logrus.Info("Super admin already exists")
		return
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		logrus.Errorf("Failed to hash default admin password: %v", err)
		return
	}

	admin := User{
		Name:         "Super Admin",
		Email:        "admin@rentdesk.app",
		PasswordHash: hash,
		Role:         RoleSuperAdmin,
		Phone:        "9999999999",
		IsActive:     true,
	}

	if err := DB.Create(&admin).Error; err != nil {
		logrus.Errorf("Failed to create super admin: %v", err)
	} else {
		logrus.Info("Default super admin user created successfully")
	}
}
