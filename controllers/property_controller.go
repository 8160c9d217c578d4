package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentdesk/authz"
	"rentdesk/database"
)

// PropertyRequest contains data for creating or updating a property
type PropertyRequest struct {
	Name         string `json:"name" binding:"required"`
	Address      string `json:"address" binding:"required"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	PropertyType string `json:"property_type"`
	Bedrooms     int    `json:"bedrooms"`
	Bathrooms    int    `json:"bathrooms"`
	MonthlyRent  int64  `json:"monthly_rent"`
	Description  string `json:"description"`
	// OwnerID is honored only for super admin callers
	OwnerID uint `json:"owner_id"`
}

// CreateProperty creates a property inside the caller's owner scope.
func CreateProperty(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var request PropertyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ownerID := scope.OwnerID
	if scope.IsSuperAdmin() {
		ownerID = request.OwnerID
	}
	if ownerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Owner is required"})
		return
	}

	property := database.Property{
		OwnerID:      ownerID,
		Name:         request.Name,
		Address:      request.Address,
		City:         request.City,
		State:        request.State,
		ZipCode:      request.ZipCode,
		PropertyType: request.PropertyType,
		Bedrooms:     request.Bedrooms,
		Bathrooms:    request.Bathrooms,
		MonthlyRent:  request.MonthlyRent,
		Status:       database.PropertyStatusAvailable,
		Description:  request.Description,
	}

	if err := database.DB.Create(&property).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create property"})
		return
	}

	c.JSON(http.StatusCreated, property)
}

// GetProperties lists the properties inside the caller's scope.
func GetProperties(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	query := scope.Properties(database.DB)
	if status := c.Query("status"); status != "" {
		query = query.Where("properties.status = ?", status)
	}

	var properties []database.Property
	if err := query.Order("properties.created_at DESC").Find(&properties).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, properties)
}

// GetPropertyByID returns one property resolved inside the caller's
// scope. An out-of-scope id reads as not found.
func GetPropertyByID(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	propertyID, ok := idParam(c)
	if !ok {
		return
	}

	var property database.Property
	if err := scope.Properties(database.DB).Where("properties.id = ?", propertyID).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// UpdateProperty amends a property inside the caller's scope.
func UpdateProperty(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	propertyID, ok := idParam(c)
	if !ok {
		return
	}

	if err := scope.CanWriteProperty(false); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var property database.Property
	if err := scope.Properties(database.DB).Where("properties.id = ?", propertyID).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var request struct {
		Name        string `json:"name"`
		Address     string `json:"address"`
		MonthlyRent *int64 `json:"monthly_rent"`
		Status      string `json:"status"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.Name != "" {
		updates["name"] = request.Name
	}
	if request.Address != "" {
		updates["address"] = request.Address
	}
	if request.MonthlyRent != nil {
		updates["monthly_rent"] = *request.MonthlyRent
	}
	if request.Description != "" {
		updates["description"] = request.Description
	}
	if request.Status != "" {
		switch request.Status {
		case database.PropertyStatusAvailable, database.PropertyStatusOccupied,
			database.PropertyStatusMaintenance, database.PropertyStatusUnavailable:
			updates["status"] = request.Status
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property status"})
			return
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&property).Updates(updates).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update property"})
		return
	}

	c.JSON(http.StatusOK, property)
}

// DeleteProperty removes a property. Owners only (managers can never
// delete a property), and only when it has no active tenants or leases.
func DeleteProperty(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	propertyID, ok := idParam(c)
	if !ok {
		return
	}

	var property database.Property
	if err := scope.Properties(database.DB).Where("properties.id = ?", propertyID).First(&property).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := scope.CanWriteProperty(true); err != nil {
		if errors.Is(err, authz.ErrForbidden) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Managers cannot delete properties"})
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var activeTenants int64
	if err := database.DB.Model(&database.Tenant{}).
		Where("property_id = ? AND is_active = ?", property.ID, true).
		Count(&activeTenants).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var activeLeases int64
	if err := database.DB.Model(&database.Lease{}).
		Where("property_id = ? AND status = ?", property.ID, database.LeaseStatusActive).
		Count(&activeLeases).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if activeTenants > 0 || activeLeases > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete a property with active tenants or leases"})
		return
	}

	if err := database.DB.Delete(&property).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete property"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Property deleted"})
}
