package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentdesk/database"
	"rentdesk/notifications"
)

// ComplaintRequest contains data for filing a complaint
type ComplaintRequest struct {
	PropertyID  uint   `json:"property_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category"`
}

// complaint status transitions; a missing entry means the transition is
// not permitted
var complaintTransitions = map[string][]string{
	database.ComplaintStatusOpen:       {database.ComplaintStatusInProgress, database.ComplaintStatusClosed},
	database.ComplaintStatusInProgress: {database.ComplaintStatusResolved, database.ComplaintStatusClosed},
	database.ComplaintStatusResolved:   {database.ComplaintStatusClosed},
}

func complaintTransitionAllowed(from, to string) bool {
	for _, allowed := range complaintTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateComplaint files a complaint against a property. Tenants file
// against their own property; staff against any property in scope.
func CreateComplaint(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	var request ComplaintRequest
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

	complaint := database.Complaint{
		PropertyID:  property.ID,
		Title:       request.Title,
		Description: request.Description,
		Category:    request.Category,
		Status:      database.ComplaintStatusOpen,
	}
	if scope.Role == database.RoleTenant {
		tenantID := scope.TenantID
		complaint.TenantID = &tenantID
	}

	if err := database.DB.Create(&complaint).Error; err != nil {
		logrus.Errorf("Complaint creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create complaint"})
		return
	}

	// tell the owner's account about the new complaint
	var owner database.Owner
	if err := database.DB.First(&owner, property.OwnerID).Error; err == nil {
		relatedID := complaint.ID
		notifications.Notify(notifications.Event{
			UserID:      owner.UserID,
			Title:       "New complaint filed",
			Message:     request.Title,
			Type:        "complaint",
			RelatedID:   &relatedID,
			RelatedType: "complaint",
		})
	}

	c.JSON(http.StatusCreated, complaint)
}

// GetComplaints lists the complaints inside the caller's scope.
func GetComplaints(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	query := scope.Complaints(database.DB)
	if status := c.Query("status"); status != "" {
		query = query.Where("complaints.status = ?", status)
	}

	var complaints []database.Complaint
	if err := query.Preload("Property").Order("complaints.created_at DESC").
		Find(&complaints).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, complaints)
}

// GetComplaintByID returns one complaint resolved inside the caller's
// scope.
func GetComplaintByID(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	complaintID, ok := idParam(c)
	if !ok {
		return
	}

	var complaint database.Complaint
	if err := scope.Complaints(database.DB).Where("complaints.id = ?", complaintID).
		Preload("Property").Preload("AssignedTo").First(&complaint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, complaint)
}

// UpdateComplaint moves a complaint through its status machine and
// optionally assigns it. Staff only; managers need the
// manage_complaints capability.
func UpdateComplaint(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() || !scope.HasPermission(database.PermManageComplaints) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	complaintID, ok := idParam(c)
	if !ok {
		return
	}

	var request struct {
		Status       string `json:"status"`
		AssignedToID *uint  `json:"assigned_to_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var complaint database.Complaint
	if err := scope.Complaints(database.DB).Where("complaints.id = ?", complaintID).First(&complaint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	updates := map[string]interface{}{}
	if request.Status != "" {
		if !complaintTransitionAllowed(complaint.Status, request.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot move complaint from " + complaint.Status + " to " + request.Status})
			return
		}
		updates["status"] = request.Status
		if request.Status == database.ComplaintStatusResolved {
			updates["resolved_at"] = time.Now()
		}
	}
	if request.AssignedToID != nil {
		updates["assigned_to_id"] = *request.AssignedToID
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&complaint).Updates(updates).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update complaint"})
		return
	}

	if request.Status == database.ComplaintStatusResolved && complaint.TenantID != nil {
		var tenant database.Tenant
		if err := database.DB.First(&tenant, *complaint.TenantID).Error; err == nil {
			relatedID := complaint.ID
			notifications.Notify(notifications.Event{
				UserID:      tenant.UserID,
				Title:       "Complaint resolved",
				Message:     complaint.Title,
				Type:        "complaint",
				RelatedID:   &relatedID,
				RelatedType: "complaint",
			})
		}
	}

	c.JSON(http.StatusOK, complaint)
}

// DeleteComplaint removes a complaint inside the caller's scope.
// Owners only.
func DeleteComplaint(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	complaintID, ok := idParam(c)
	if !ok {
		return
	}

	var complaint database.Complaint
	if err := scope.Complaints(database.DB).Where("complaints.id = ?", complaintID).First(&complaint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Complaint not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := database.DB.Delete(&complaint).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete complaint"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Complaint deleted"})
}
