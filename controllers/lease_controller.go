package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentdesk/database"
	"rentdesk/notifications"
)

// LeaseRequest contains data for creating a lease
type LeaseRequest struct {
	TenantID         uint      `json:"tenant_id" binding:"required"`
	PropertyID       uint      `json:"property_id" binding:"required"`
	StartDate        time.Time `json:"start_date" binding:"required"`
	EndDate          time.Time `json:"end_date" binding:"required"`
	MonthlyRentCents int64     `json:"monthly_rent_cents" binding:"required"`
	DepositCents     int64     `json:"deposit_cents"`
	Notes            string    `json:"notes"`
}

// RenewLeaseRequest contains data for renewing a lease
type RenewLeaseRequest struct {
	NewEndDate       time.Time `json:"new_end_date" binding:"required"`
	MonthlyRentCents *int64    `json:"monthly_rent_cents"`
}

// TerminateLeaseRequest contains data for terminating a lease
type TerminateLeaseRequest struct {
	Reason string `json:"reason"`
}

// CreateLease creates an active lease binding a tenant to a property.
// The transaction locks the property and tenant rows before the
// single-active-lease and no-overlap checks, so concurrent creations
// against the same property or tenant serialize instead of both
// passing the checks under READ COMMITTED.
func CreateLease(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	if !scope.HasPermission(database.PermManageLeases) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var request LeaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !request.EndDate.After(request.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "End date must be after start date"})
		return
	}
	if request.MonthlyRentCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Monthly rent must be positive"})
		return
	}

	var property database.Property
	if err := scope.Properties(database.DB).Where("properties.id = ?", request.PropertyID).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var tenant database.Tenant
	if err := scope.Tenants(database.DB).Where("tenants.id = ?", request.TenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	lease := database.Lease{
		TenantID:         tenant.ID,
		PropertyID:       property.ID,
		StartDate:        request.StartDate,
		EndDate:          request.EndDate,
		MonthlyRentCents: request.MonthlyRentCents,
		DepositCents:     request.DepositCents,
		Status:           database.LeaseStatusActive,
		Notes:            request.Notes,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		// Row locks serialize concurrent creations on the same
		// property or tenant. The sqlite driver drops the clause.
		var lockedProperty database.Property
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&lockedProperty, property.ID).Error; err != nil {
			return err
		}
		var lockedTenant database.Tenant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&lockedTenant, tenant.ID).Error; err != nil {
			return err
		}

		var activeCount int64
		if err := tx.Model(&database.Lease{}).
			Where("tenant_id = ? AND status = ?", tenant.ID, database.LeaseStatusActive).
			Count(&activeCount).Error; err != nil {
			return err
		}
		if activeCount > 0 {
			return errTenantHasActiveLease
		}

		// Closed-open interval overlap: [s1,e1) and [s2,e2) overlap
		// iff s1 < e2 and s2 < e1.
		var overlapCount int64
		if err := tx.Model(&database.Lease{}).
			Where("property_id = ? AND status = ? AND start_date < ? AND end_date > ?",
				property.ID, database.LeaseStatusActive, request.EndDate, request.StartDate).
			Count(&overlapCount).Error; err != nil {
			return err
		}
		if overlapCount > 0 {
			return errLeaseOverlap
		}

		if err := tx.Create(&lease).Error; err != nil {
			return err
		}
		if err := tx.Model(&database.Tenant{}).Where("id = ?", tenant.ID).
			Update("is_active", true).Error; err != nil {
			return err
		}
		return tx.Model(&database.Property{}).Where("id = ?", property.ID).
			Update("status", database.PropertyStatusOccupied).Error
	})

	if err != nil {
		switch {
		case errors.Is(err, errTenantHasActiveLease):
			c.JSON(http.StatusConflict, gin.H{"error": "Tenant already has an active lease"})
		case errors.Is(err, errLeaseOverlap):
			c.JSON(http.StatusConflict, gin.H{"error": "Lease dates overlap an active lease on this property"})
		default:
			logrus.Errorf("Lease creation error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create lease"})
		}
		return
	}

	leaseID := lease.ID
	notifications.Notify(notifications.Event{
		UserID:      tenant.UserID,
		Title:       "Lease created",
		Message:     "A new lease has been created for your tenancy.",
		Type:        "lease",
		RelatedID:   &leaseID,
		RelatedType: "lease",
	})

	c.JSON(http.StatusCreated, lease)
}

var (
	errTenantHasActiveLease = errors.New("tenant has active lease")
	errLeaseOverlap         = errors.New("lease overlap")
)

// GetLeases lists the leases inside the caller's scope.
func GetLeases(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	query := scope.Leases(database.DB)
	if status := c.Query("status"); status != "" {
		query = query.Where("leases.status = ?", status)
	}

	var leases []database.Lease
	if err := query.Preload("Tenant.User").Preload("Property").
		Order("leases.created_at DESC").Find(&leases).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, leases)
}

// GetLeaseByID returns one lease resolved inside the caller's scope.
func GetLeaseByID(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	leaseID, ok := idParam(c)
	if !ok {
		return
	}

	var lease database.Lease
	if err := scope.Leases(database.DB).Where("leases.id = ?", leaseID).
		Preload("Tenant.User").Preload("Property").First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, lease)
}

// TerminateLease ends a lease early. Re-terminating is an error, not a
// no-op.
func TerminateLease(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() || !scope.HasPermission(database.PermManageLeases) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	leaseID, ok := idParam(c)
	if !ok {
		return
	}

	// body is optional for termination
	var request TerminateLeaseRequest
	_ = c.ShouldBindJSON(&request)

	var lease database.Lease
	if err := scope.Leases(database.DB).Where("leases.id = ?", leaseID).First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if lease.Status == database.LeaseStatusTerminated {
		c.JSON(http.StatusConflict, gin.H{"error": "Lease is already terminated"})
		return
	}

	previousStatus := lease.Status
	now := time.Now()
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&lease).Updates(map[string]interface{}{
			"status":             database.LeaseStatusTerminated,
			"terminated_at":      now,
			"termination_reason": request.Reason,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&database.Tenant{}).Where("id = ?", lease.TenantID).
			Update("is_active", false).Error
	})
	if err != nil {
		logrus.Errorf("Lease termination error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to terminate lease"})
		return
	}

	userID := scope.UserID
	audit := database.AuditLog{
		UserID:     &userID,
		Action:     "terminate",
		EntityType: "lease",
		EntityID:   lease.ID,
		OldValue:   previousStatus,
		NewValue:   database.LeaseStatusTerminated,
		IPAddress:  c.ClientIP(),
	}
	if err := database.DB.Create(&audit).Error; err != nil {
		logrus.Warnf("Audit log write failed: %v", err)
	}

	var tenant database.Tenant
	if err := database.DB.First(&tenant, lease.TenantID).Error; err == nil {
		relatedID := lease.ID
		notifications.Notify(notifications.Event{
			UserID:      tenant.UserID,
			Title:       "Lease terminated",
			Message:     "Your lease has been terminated.",
			Type:        "lease",
			RelatedID:   &relatedID,
			RelatedType: "lease",
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lease terminated"})
}

// RenewLease extends an active lease's end date, optionally changing the
// rent. Renewal never resets due dates of payments already generated.
func RenewLease(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() || !scope.HasPermission(database.PermManageLeases) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	leaseID, ok := idParam(c)
	if !ok {
		return
	}

	var request RenewLeaseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var lease database.Lease
	if err := scope.Leases(database.DB).Where("leases.id = ?", leaseID).First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if lease.Status != database.LeaseStatusActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Only an active lease can be renewed"})
		return
	}
	if !request.NewEndDate.After(lease.EndDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New end date must extend the lease"})
		return
	}

	updates := map[string]interface{}{"end_date": request.NewEndDate}
	if request.MonthlyRentCents != nil {
		if *request.MonthlyRentCents <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Monthly rent must be positive"})
			return
		}
		updates["monthly_rent_cents"] = *request.MonthlyRentCents
	}

	if err := database.DB.Model(&lease).Updates(updates).Error; err != nil {
		logrus.Errorf("Lease renewal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to renew lease"})
		return
	}

	var tenant database.Tenant
	if err := database.DB.First(&tenant, lease.TenantID).Error; err == nil {
		relatedID := lease.ID
		notifications.Notify(notifications.Event{
			UserID:      tenant.UserID,
			Title:       "Lease renewed",
			Message:     "Your lease has been renewed.",
			Type:        "lease",
			RelatedID:   &relatedID,
			RelatedType: "lease",
		})
	}

	c.JSON(http.StatusOK, lease)
}

// DeleteLease removes a lease that has no payment trail. A lease with
// payments is never deleted.
func DeleteLease(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	leaseID, ok := idParam(c)
	if !ok {
		return
	}

	var lease database.Lease
	if err := scope.Leases(database.DB).Where("leases.id = ?", leaseID).First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var paymentCount int64
	if err := database.DB.Model(&database.Payment{}).
		Where("lease_id = ?", lease.ID).Count(&paymentCount).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if paymentCount > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete a lease with payment history"})
		return
	}

	if err := database.DB.Delete(&lease).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete lease"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Lease deleted"})
}
