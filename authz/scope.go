// Package authz resolves the caller's ownership scope once per request
// and narrows every entity query to it. All role and capability
// decisions live here so the per-handler checks cannot drift apart.
package authz

import (
	"errors"

	"gorm.io/gorm"

	"rentdesk/database"
)

var (
	// ErrForbidden means the caller can see the row but may not act on it.
	ErrForbidden = errors.New("permission denied")
	// ErrNotFound means the row does not resolve inside the caller's scope.
	// Out-of-scope rows read as not found so their existence is never
	// disclosed.
	ErrNotFound = errors.New("not found")
)

// Scope is the caller's identity resolved to its owning ids. It is
// derived once per request from the authenticated user id and role.
type Scope struct {
	UserID    uint
	Role      string
	OwnerID   uint // set for owner and manager roles
	ManagerID uint // set for manager role
	TenantID  uint // set for tenant role
	perms     map[string]bool
}

// Resolve loads the profile row matching the caller's role and returns
// the populated scope. A user whose profile row is missing fails closed.
func Resolve(db *gorm.DB, userID uint, role string) (*Scope, error) {
	scope := &Scope{UserID: userID, Role: role}

	switch role {
	case database.RoleSuperAdmin:
		return scope, nil

	case database.RoleOwner:
		var owner database.Owner
		if err := db.Where("user_id = ?", userID).First(&owner).Error; err != nil {
			return nil, err
		}
		scope.OwnerID = owner.ID
		return scope, nil

	case database.RoleManager:
		var manager database.Manager
		if err := db.Where("user_id = ?", userID).First(&manager).Error; err != nil {
			return nil, err
		}
		scope.OwnerID = manager.OwnerID
		scope.ManagerID = manager.ID
		scope.perms = manager.Permissions()
		return scope, nil

	case database.RoleTenant:
		var tenant database.Tenant
		if err := db.Where("user_id = ?", userID).First(&tenant).Error; err != nil {
			return nil, err
		}
		scope.TenantID = tenant.ID
		return scope, nil
	}

	return nil, errors.New("unknown role: " + role)
}

// IsSuperAdmin reports whether the caller bypasses all scoping.
func (s *Scope) IsSuperAdmin() bool {
	return s.Role == database.RoleSuperAdmin
}

// IsStaff reports whether the caller manages properties (any role but
// tenant).
func (s *Scope) IsStaff() bool {
	return s.Role != database.RoleTenant
}

// HasPermission checks a manager capability. Super admins and owners
// hold every capability; managers hold only what their permissions map
// grants; tenants hold none.
func (s *Scope) HasPermission(capability string) bool {
	switch s.Role {
	case database.RoleSuperAdmin, database.RoleOwner:
		return true
	case database.RoleManager:
		return s.perms[capability]
	}
	return false
}

// Properties returns a query narrowed to the properties the caller may
// see.
func (s *Scope) Properties(db *gorm.DB) *gorm.DB {
	q := db.Model(&database.Property{})
	switch s.Role {
	case database.RoleSuperAdmin:
		return q
	case database.RoleOwner, database.RoleManager:
		return q.Where("properties.owner_id = ?", s.OwnerID)
	case database.RoleTenant:
		return q.Where("properties.id IN (SELECT property_id FROM tenants WHERE id = ? AND deleted_at IS NULL)", s.TenantID)
	}
	return q.Where("1 = 0")
}

// Tenants returns a query narrowed to the tenants the caller may see.
func (s *Scope) Tenants(db *gorm.DB) *gorm.DB {
	q := db.Model(&database.Tenant{})
	switch s.Role {
	case database.RoleSuperAdmin:
		return q
	case database.RoleOwner, database.RoleManager:
		return q.Joins("JOIN properties ON tenants.property_id = properties.id").
			Where("properties.owner_id = ?", s.OwnerID)
	case database.RoleTenant:
		return q.Where("tenants.id = ?", s.TenantID)
	}
	return q.Where("1 = 0")
}

// Leases returns a query narrowed through Lease -> Property to the
// caller's owner chain, or to the caller's own tenancy.
func (s *Scope) Leases(db *gorm.DB) *gorm.DB {
	q := db.Model(&database.Lease{})
	switch s.Role {
	case database.RoleSuperAdmin:
		return q
	case database.RoleOwner, database.RoleManager:
		return q.Joins("JOIN properties ON leases.property_id = properties.id").
			Where("properties.owner_id = ?", s.OwnerID)
	case database.RoleTenant:
		return q.Where("leases.tenant_id = ?", s.TenantID)
	}
	return q.Where("1 = 0")
}

// Payments returns a query narrowed through Payment -> Lease -> Property.
func (s *Scope) Payments(db *gorm.DB) *gorm.DB {
	q := db.Model(&database.Payment{})
	switch s.Role {
	case database.RoleSuperAdmin:
		return q
	case database.RoleOwner, database.RoleManager:
		return q.Joins("JOIN leases ON payments.lease_id = leases.id").
			Joins("JOIN properties ON leases.property_id = properties.id").
			Where("properties.owner_id = ?", s.OwnerID)
	case database.RoleTenant:
		return q.Where("payments.tenant_id = ?", s.TenantID)
	}
	return q.Where("1 = 0")
}

// Complaints returns a query narrowed through Complaint -> Property.
func (s *Scope) Complaints(db *gorm.DB) *gorm.DB {
	q := db.Model(&database.Complaint{})
	switch s.Role {
	case database.RoleSuperAdmin:
		return q
	case database.RoleOwner, database.RoleManager:
		return q.Joins("JOIN properties ON complaints.property_id = properties.id").
			Where("properties.owner_id = ?", s.OwnerID)
	case database.RoleTenant:
		return q.Where("complaints.tenant_id = ?", s.TenantID)
	}
	return q.Where("1 = 0")
}

// MaintenanceRequests returns a query narrowed through the owning
// property, or to the tenant's own requests.
func (s *Scope) MaintenanceRequests(db *gorm.DB) *gorm.DB {
	q := db.Model(&database.MaintenanceRequest{})
	switch s.Role {
	case database.RoleSuperAdmin:
		return q
	case database.RoleOwner, database.RoleManager:
		return q.Joins("JOIN properties ON maintenance_requests.property_id = properties.id").
			Where("properties.owner_id = ?", s.OwnerID)
	case database.RoleTenant:
		return q.Where("maintenance_requests.requested_by_id = ?", s.UserID)
	}
	return q.Where("1 = 0")
}

// CanWriteProperty decides write access to a property already resolved
// inside the caller's scope. Managers never delete properties regardless
// of their capability map.
func (s *Scope) CanWriteProperty(deleting bool) error {
	switch s.Role {
	case database.RoleSuperAdmin:
		return nil
	case database.RoleOwner:
		return nil
	case database.RoleManager:
		if deleting {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}
