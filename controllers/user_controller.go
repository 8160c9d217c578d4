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
	"rentdesk/utils"
)

// CreateOwnerRequest contains data for creating an owner account
type CreateOwnerRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zip_code"`
}

// CreateManagerRequest contains data for creating a manager under an owner
type CreateManagerRequest struct {
	Name        string          `json:"name" binding:"required"`
	Email       string          `json:"email" binding:"required,email"`
	Phone       string          `json:"phone" binding:"required"`
	Password    string          `json:"password" binding:"required,min=6"`
	Permissions map[string]bool `json:"permissions"`
	// OwnerID is honored only for super admin callers; owners always
	// create managers under themselves.
	OwnerID uint `json:"owner_id"`
}

// CreateTenantRequest contains data for creating a tenant on a property
type CreateTenantRequest struct {
	Name             string    `json:"name" binding:"required"`
	Email            string    `json:"email" binding:"required,email"`
	Phone            string    `json:"phone" binding:"required"`
	Password         string    `json:"password" binding:"required,min=6"`
	PropertyID       uint      `json:"property_id" binding:"required"`
	MoveInDate       time.Time `json:"move_in_date"`
	EmergencyContact string    `json:"emergency_contact"`
}

// createUser inserts the login row shared by every profile kind.
func createUser(tx *gorm.DB, name, email, phone, password, role string) (*database.User, error) {
	var existing database.User
	err := tx.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, errors.New("email already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := database.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateOwner creates an owner account. Super admin only (enforced at
// the route).
func CreateOwner(c *gin.Context) {
	var request CreateOwnerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx := database.DB.Begin()
	if tx.Error != nil {
		logrus.Errorf("Transaction error: %v", tx.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user, err := createUser(tx, request.Name, request.Email, request.Phone, request.Password, database.RoleOwner)
	if err != nil {
		tx.Rollback()
		if err.Error() == "email already in use" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
			return
		}
		logrus.Errorf("Owner user creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create owner"})
		return
	}

	owner := database.Owner{
		UserID:      user.ID,
		CompanyName: request.CompanyName,
		Address:     request.Address,
		City:        request.City,
		State:       request.State,
		ZipCode:     request.ZipCode,
	}
	if err := tx.Create(&owner).Error; err != nil {
		tx.Rollback()
		logrus.Errorf("Owner profile creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create owner"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		logrus.Errorf("Transaction commit error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	notifications.Notify(notifications.Event{
		UserID:  user.ID,
		Title:   "Owner account created",
		Message: "Your RentDesk owner account is ready.",
		Type:    "account",
	})

	c.JSON(http.StatusCreated, owner)
}

// GetOwners lists all owner accounts. Super admin only.
func GetOwners(c *gin.Context) {
	var owners []database.Owner
	if err := database.DB.Preload("User").Order("created_at DESC").Find(&owners).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, owners)
}

// CreateManager creates a manager under the calling owner's scope.
func CreateManager(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsSuperAdmin() && scope.Role != database.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var request CreateManagerRequest
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

	tx := database.DB.Begin()
	if tx.Error != nil {
		logrus.Errorf("Transaction error: %v", tx.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user, err := createUser(tx, request.Name, request.Email, request.Phone, request.Password, database.RoleManager)
	if err != nil {
		tx.Rollback()
		if err.Error() == "email already in use" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
			return
		}
		logrus.Errorf("Manager user creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create manager"})
		return
	}

	manager := database.Manager{
		UserID:  user.ID,
		OwnerID: ownerID,
	}
	if request.Permissions != nil {
		if err := manager.SetPermissions(request.Permissions); err != nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid permissions map"})
			return
		}
	}
	if err := tx.Create(&manager).Error; err != nil {
		tx.Rollback()
		logrus.Errorf("Manager profile creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create manager"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		logrus.Errorf("Transaction commit error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	notifications.Notify(notifications.Event{
		UserID:  user.ID,
		Title:   "Manager account created",
		Message: "You have been added as a property manager.",
		Type:    "account",
	})

	c.JSON(http.StatusCreated, manager)
}

// GetManagers lists the managers inside the caller's owner scope.
func GetManagers(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	query := database.DB.Model(&database.Manager{}).Preload("User")
	if !scope.IsSuperAdmin() {
		query = query.Where("owner_id = ?", scope.OwnerID)
	}

	var managers []database.Manager
	if err := query.Order("created_at DESC").Find(&managers).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, managers)
}

// UpdateManagerPermissions replaces a manager's capability map. Owners
// only; a manager can never touch their own permissions.
func UpdateManagerPermissions(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role == database.RoleManager || scope.Role == database.RoleTenant {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	managerID, ok := idParam(c)
	if !ok {
		return
	}

	var request struct {
		Permissions map[string]bool `json:"permissions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := database.DB.Where("id = ?", managerID)
	if !scope.IsSuperAdmin() {
		query = query.Where("owner_id = ?", scope.OwnerID)
	}

	var manager database.Manager
	if err := query.First(&manager).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Manager not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := manager.SetPermissions(request.Permissions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid permissions map"})
		return
	}
	if err := database.DB.Model(&manager).Update("permissions", manager.PermissionsJSON).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update permissions"})
		return
	}

	c.JSON(http.StatusOK, manager)
}

// CreateTenant creates a tenant account attached to a property inside
// the caller's scope.
func CreateTenant(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var request CreateTenantRequest
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

	tx := database.DB.Begin()
	if tx.Error != nil {
		logrus.Errorf("Transaction error: %v", tx.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user, err := createUser(tx, request.Name, request.Email, request.Phone, request.Password, database.RoleTenant)
	if err != nil {
		tx.Rollback()
		if err.Error() == "email already in use" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already in use"})
			return
		}
		logrus.Errorf("Tenant user creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tenant"})
		return
	}

	tenant := database.Tenant{
		UserID:           user.ID,
		PropertyID:       property.ID,
		IsActive:         true,
		MoveInDate:       request.MoveInDate,
		EmergencyContact: request.EmergencyContact,
	}
	if err := tx.Create(&tenant).Error; err != nil {
		tx.Rollback()
		logrus.Errorf("Tenant profile creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tenant"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		logrus.Errorf("Transaction commit error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	notifications.Notify(notifications.Event{
		UserID:  user.ID,
		Title:   "Tenant account created",
		Message: "Your RentDesk tenant account is ready.",
		Type:    "account",
	})

	c.JSON(http.StatusCreated, tenant)
}

// GetTenants lists the tenants inside the caller's scope.
func GetTenants(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	var tenants []database.Tenant
	if err := scope.Tenants(database.DB).Preload("User").Preload("Property").
		Order("tenants.created_at DESC").Find(&tenants).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, tenants)
}

// GetProfile returns the caller's own user row.
func GetProfile(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDUint, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return
	}

	var user database.User
	if err := database.DB.First(&user, userIDUint).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the caller's own contact details.
func UpdateProfile(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDUint, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return
	}

	var request struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.Name != "" {
		updates["name"] = request.Name
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&database.User{}).Where("id = ?", userIDUint).Updates(updates).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated"})
}

// DeleteUser removes a user record and its attached profile. The
// deletion is refused while the profile still anchors active rows.
// Super admin only.
func DeleteUser(c *gin.Context) {
	userID, ok := idParam(c)
	if !ok {
		return
	}

	var user database.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		switch user.Role {
		case database.RoleOwner:
			var owner database.Owner
			if err := tx.Where("user_id = ?", user.ID).First(&owner).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					break
				}
				return err
			}
			var properties int64
			if err := tx.Model(&database.Property{}).
				Where("owner_id = ?", owner.ID).Count(&properties).Error; err != nil {
				return err
			}
			if properties > 0 {
				return errUserHasDependents
			}
			if err := tx.Delete(&owner).Error; err != nil {
				return err
			}
		case database.RoleManager:
			if err := tx.Where("user_id = ?", user.ID).
				Delete(&database.Manager{}).Error; err != nil {
				return err
			}
		case database.RoleTenant:
			var tenant database.Tenant
			if err := tx.Where("user_id = ?", user.ID).First(&tenant).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					break
				}
				return err
			}
			var activeLeases int64
			if err := tx.Model(&database.Lease{}).
				Where("tenant_id = ? AND status = ?", tenant.ID, database.LeaseStatusActive).
				Count(&activeLeases).Error; err != nil {
				return err
			}
			if activeLeases > 0 {
				return errUserHasDependents
			}
			if err := tx.Delete(&tenant).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, errUserHasDependents) {
			c.JSON(http.StatusConflict, gin.H{"error": "User still has active records"})
			return
		}
		logrus.Errorf("User deletion error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

var errUserHasDependents = errors.New("user has dependent rows")

// UpdateOwner updates an owner's company details. Super admin only.
func UpdateOwner(c *gin.Context) {
	ownerID, ok := idParam(c)
	if !ok {
		return
	}

	var request struct {
		CompanyName *string `json:"company_name"`
		Address     *string `json:"address"`
		City        *string `json:"city"`
		State       *string `json:"state"`
		ZipCode     *string `json:"zip_code"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var owner database.Owner
	if err := database.DB.First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Owner not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	updates := map[string]interface{}{}
	if request.CompanyName != nil {
		updates["company_name"] = *request.CompanyName
	}
	if request.Address != nil {
		updates["address"] = *request.Address
	}
	if request.City != nil {
		updates["city"] = *request.City
	}
	if request.State != nil {
		updates["state"] = *request.State
	}
	if request.ZipCode != nil {
		updates["zip_code"] = *request.ZipCode
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&owner).Updates(updates).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update owner"})
		return
	}

	c.JSON(http.StatusOK, owner)
}

// DeleteOwner removes an owner and its login. Refused while the owner
// still holds properties. Super admin only.
func DeleteOwner(c *gin.Context) {
	ownerID, ok := idParam(c)
	if !ok {
		return
	}

	var owner database.Owner
	if err := database.DB.First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Owner not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var properties int64
	if err := database.DB.Model(&database.Property{}).
		Where("owner_id = ?", owner.ID).Count(&properties).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if properties > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Owner still holds properties"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&owner).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", owner.UserID).Delete(&database.User{}).Error
	})
	if err != nil {
		logrus.Errorf("Owner deletion error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete owner"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Owner deleted"})
}

// DeleteManager removes a manager and its login from the caller's
// owner scope.
func DeleteManager(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	managerID, ok := idParam(c)
	if !ok {
		return
	}

	query := database.DB.Where("id = ?", managerID)
	if !scope.IsSuperAdmin() {
		query = query.Where("owner_id = ?", scope.OwnerID)
	}

	var manager database.Manager
	if err := query.First(&manager).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Manager not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&manager).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", manager.UserID).Delete(&database.User{}).Error
	})
	if err != nil {
		logrus.Errorf("Manager deletion error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete manager"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Manager deleted"})
}

// UpdateTenant updates a tenant's contact details inside the caller's
// scope.
func UpdateTenant(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	tenantID, ok := idParam(c)
	if !ok {
		return
	}

	var request struct {
		MoveInDate       *time.Time `json:"move_in_date"`
		EmergencyContact *string    `json:"emergency_contact"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tenant database.Tenant
	if err := scope.Tenants(database.DB).Where("tenants.id = ?", tenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	updates := map[string]interface{}{}
	if request.MoveInDate != nil {
		updates["move_in_date"] = *request.MoveInDate
	}
	if request.EmergencyContact != nil {
		updates["emergency_contact"] = *request.EmergencyContact
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(&tenant).Updates(updates).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tenant"})
		return
	}

	c.JSON(http.StatusOK, tenant)
}

// DeleteTenant removes a tenant and its login. Refused while the
// tenant has an active lease.
func DeleteTenant(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	tenantID, ok := idParam(c)
	if !ok {
		return
	}

	var tenant database.Tenant
	if err := scope.Tenants(database.DB).Where("tenants.id = ?", tenantID).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tenant not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var activeLeases int64
	if err := database.DB.Model(&database.Lease{}).
		Where("tenant_id = ? AND status = ?", tenant.ID, database.LeaseStatusActive).
		Count(&activeLeases).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if activeLeases > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Tenant still has an active lease"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&tenant).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", tenant.UserID).Delete(&database.User{}).Error
	})
	if err != nil {
		logrus.Errorf("Tenant deletion error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tenant"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tenant deleted"})
}
