package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentdesk/database"
)

// MaintenanceRequestInput contains data for opening a maintenance request
type MaintenanceRequestInput struct {
	PropertyID  uint   `json:"property_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

var maintenanceTransitions = map[string][]string{
	database.MaintenanceStatusOpen:       {database.MaintenanceStatusInProgress, database.MaintenanceStatusCancelled},
	database.MaintenanceStatusInProgress: {database.MaintenanceStatusCompleted, database.MaintenanceStatusCancelled},
}

func maintenanceTransitionAllowed(from, to string) bool {
	for _, allowed := range maintenanceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateMaintenanceRequest opens a maintenance request on a property
// inside the caller's scope.
func CreateMaintenanceRequest(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	var request MaintenanceRequestInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
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

	userID := scope.UserID
	mr := database.MaintenanceRequest{
		PropertyID:    property.ID,
		RequestedByID: &userID,
		Title:         request.Title,
		Description:   request.Description,
		Priority:      request.Priority,
		Status:        database.MaintenanceStatusOpen,
	}

	if err := database.DB.Create(&mr).Error; err != nil {
		logrus.Errorf("Maintenance request creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create maintenance request"})
		return
	}

	c.JSON(http.StatusCreated, mr)
}

// GetMaintenanceRequests lists the requests inside the caller's scope.
func GetMaintenanceRequests(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	query := scope.MaintenanceRequests(database.DB)
	if status := c.Query("status"); status != "" {
		query = query.Where("maintenance_requests.status = ?", status)
	}

	var requests []database.MaintenanceRequest
	if err := query.Preload("Property").Order("maintenance_requests.created_at DESC").
		Find(&requests).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, requests)
}

// GetMaintenanceRequestByID returns one request resolved inside the
// caller's scope.
func GetMaintenanceRequestByID(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	requestID, ok := idParam(c)
	if !ok {
		return
	}

	var mr database.MaintenanceRequest
	if err := scope.MaintenanceRequests(database.DB).
		Where("maintenance_requests.id = ?", requestID).
		Preload("Property").Preload("AssignedTo").First(&mr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Maintenance request not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, mr)
}

// UpdateMaintenanceRequest moves a request through its status machine,
// assigns it, schedules it, or records the cost. Staff only; managers
// need the manage_maintenance capability.
func UpdateMaintenanceRequest(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() || !scope.HasPermission(database.PermManageMaintenance) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	requestID, ok := idParam(c)
	if !ok {
		return
	}

	var request struct {
		Status       string     `json:"status"`
		AssignedToID *uint      `json:"assigned_to_id"`
		ScheduledFor *time.Time `json:"scheduled_for"`
		CostCents    *int64     `json:"cost_cents"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var mr database.MaintenanceRequest
	if err := scope.MaintenanceRequests(database.DB).
		Where("maintenance_requests.id = ?", requestID).First(&mr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Maintenance request not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	updates := map[string]interface{}{}
	if request.Status != "" {
		if !maintenanceTransitionAllowed(mr.Status, request.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot move request from " + mr.Status + " to " + request.Status})
			return
		}
		updates["status"] = request.Status
		if request.Status == database.MaintenanceStatusCompleted {
			updates["completed_at"] = time.Now()
		}
	}
	if request.AssignedToID != nil {
		updates["assigned_to_id"] = *request.AssignedToID
	}
	if request.ScheduledFor != nil {
		updates["scheduled_for"] = *request.ScheduledFor
	}
	if request.CostCents != nil {
		updates["cost_cents"] = *request.CostCents
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&mr).Updates(updates).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update maintenance request"})
		return
	}

	c.JSON(http.StatusOK, mr)
}

// DeleteMaintenanceRequest removes a maintenance request inside the
// caller's scope. Owners only.
func DeleteMaintenanceRequest(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	requestID, ok := idParam(c)
	if !ok {
		return
	}

	var mr database.MaintenanceRequest
	if err := scope.MaintenanceRequests(database.DB).Where("maintenance_requests.id = ?", requestID).First(&mr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Maintenance request not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := database.DB.Delete(&mr).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete maintenance request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Maintenance request deleted"})
}
