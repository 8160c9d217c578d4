package controllers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rentdesk/database"
)

func leaseBody(tenantID, propertyID uint, start, end time.Time) map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":          tenantID,
		"property_id":        propertyID,
		"start_date":         start.Format(time.RFC3339),
		"end_date":           end.Format(time.RFC3339),
		"monthly_rent_cents": 150000,
	}
}

func TestCreateLease(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, map[string]bool{database.PermManageLeases: true})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	resp := doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, w.property.ID, start, end), CreateLease)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var lease database.Lease
	assert.NoError(t, db.Where("tenant_id = ?", w.tenant.ID).First(&lease).Error)
	assert.Equal(t, database.LeaseStatusActive, lease.Status)
	assert.Equal(t, int64(150000), lease.MonthlyRentCents)

	var property database.Property
	assert.NoError(t, db.First(&property, w.property.ID).Error)
	assert.Equal(t, database.PropertyStatusOccupied, property.Status)

	var tenant database.Tenant
	assert.NoError(t, db.First(&tenant, w.tenant.ID).Error)
	assert.True(t, tenant.IsActive)
}

func TestCreateLeaseRejectsSecondActiveLease(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	resp := doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, w.property.ID, start, end), CreateLease)
	assert.Equal(t, http.StatusCreated, resp.Code)

	// second property, same tenant
	other := database.Property{OwnerID: w.property.OwnerID, Name: "Oak Avenue 3", Status: database.PropertyStatusAvailable}
	assert.NoError(t, db.Create(&other).Error)

	resp = doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, other.ID, end, end.AddDate(1, 0, 0)), CreateLease)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, responseError(t, resp), "active lease")
}

func TestCreateLeaseRejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	resp := doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, w.property.ID, start, end), CreateLease)
	assert.Equal(t, http.StatusCreated, resp.Code)

	// second tenant tries the same property with overlapping dates
	otherUser := database.User{Name: "Second Tenant", Email: "tenant2@test.local", Role: database.RoleTenant, IsActive: true}
	assert.NoError(t, db.Create(&otherUser).Error)
	otherTenant := database.Tenant{UserID: otherUser.ID, PropertyID: w.property.ID}
	assert.NoError(t, db.Create(&otherTenant).Error)

	resp = doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(otherTenant.ID, w.property.ID, start.AddDate(0, 6, 0), end.AddDate(0, 6, 0)), CreateLease)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, responseError(t, resp), "overlap")
}

func TestCreateLeaseAllowsBackToBack(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	resp := doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, w.property.ID, start, end), CreateLease)
	assert.Equal(t, http.StatusCreated, resp.Code)

	otherUser := database.User{Name: "Next Tenant", Email: "tenant3@test.local", Role: database.RoleTenant, IsActive: true}
	assert.NoError(t, db.Create(&otherUser).Error)
	otherTenant := database.Tenant{UserID: otherUser.ID, PropertyID: w.property.ID}
	assert.NoError(t, db.Create(&otherTenant).Error)

	// [start, end) then [end, end+1y) share only the boundary instant
	resp = doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(otherTenant.ID, w.property.ID, end, end.AddDate(1, 0, 0)), CreateLease)
	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestCreateLeaseManagerNeedsCapability(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, map[string]bool{database.PermManageLeases: false})

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := doRequest(t, w.managerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, w.property.ID, start, start.AddDate(1, 0, 0)), CreateLease)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestCreateLeaseHidesForeignProperty(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	// property under a different owner
	foreignOwnerUser := database.User{Name: "Other Owner", Email: "owner2@test.local", Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&foreignOwnerUser).Error)
	foreignOwner := database.Owner{UserID: foreignOwnerUser.ID}
	assert.NoError(t, db.Create(&foreignOwner).Error)
	foreignProperty := database.Property{OwnerID: foreignOwner.ID, Name: "Hidden House"}
	assert.NoError(t, db.Create(&foreignProperty).Error)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, foreignProperty.ID, start, start.AddDate(1, 0, 0)), CreateLease)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTerminateLease(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	lease := database.Lease{
		TenantID:   w.tenant.ID,
		PropertyID: w.property.ID,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     database.LeaseStatusActive,
	}
	assert.NoError(t, db.Create(&lease).Error)

	path := fmt.Sprintf("/leases/%d/terminate", lease.ID)
	resp := doRequest(t, w.ownerUser, "POST", "/leases/:id/terminate", path,
		map[string]interface{}{"reason": "tenant moved out"}, TerminateLease)
	assert.Equal(t, http.StatusOK, resp.Code)

	var got database.Lease
	assert.NoError(t, db.First(&got, lease.ID).Error)
	assert.Equal(t, database.LeaseStatusTerminated, got.Status)
	assert.NotNil(t, got.TerminatedAt)
	assert.Equal(t, "tenant moved out", got.TerminationReason)

	var tenant database.Tenant
	assert.NoError(t, db.First(&tenant, w.tenant.ID).Error)
	assert.False(t, tenant.IsActive)

	var audits int64
	assert.NoError(t, db.Model(&database.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "lease", lease.ID, "terminate").
		Count(&audits).Error)
	assert.Equal(t, int64(1), audits)

	// a second termination is a conflict, not a silent no-op
	resp = doRequest(t, w.ownerUser, "POST", "/leases/:id/terminate", path, nil, TerminateLease)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRenewLease(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	end := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	lease := database.Lease{
		TenantID:         w.tenant.ID,
		PropertyID:       w.property.ID,
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          end,
		MonthlyRentCents: 150000,
		Status:           database.LeaseStatusActive,
	}
	assert.NoError(t, db.Create(&lease).Error)

	newRent := int64(160000)
	path := fmt.Sprintf("/leases/%d/renew", lease.ID)
	resp := doRequest(t, w.ownerUser, "POST", "/leases/:id/renew", path, map[string]interface{}{
		"new_end_date":       end.AddDate(1, 0, 0).Format(time.RFC3339),
		"monthly_rent_cents": newRent,
	}, RenewLease)
	assert.Equal(t, http.StatusOK, resp.Code)

	var got database.Lease
	assert.NoError(t, db.First(&got, lease.ID).Error)
	assert.Equal(t, newRent, got.MonthlyRentCents)
	assert.True(t, got.EndDate.After(end))

	// a shorter end date never renews
	resp = doRequest(t, w.ownerUser, "POST", "/leases/:id/renew", path, map[string]interface{}{
		"new_end_date": end.AddDate(0, -1, 0).Format(time.RFC3339),
	}, RenewLease)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteLeaseWithPayments(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	lease := database.Lease{
		TenantID:   w.tenant.ID,
		PropertyID: w.property.ID,
		StartDate:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     database.LeaseStatusActive,
	}
	assert.NoError(t, db.Create(&lease).Error)
	payment := database.Payment{
		LeaseID:     lease.ID,
		TenantID:    w.tenant.ID,
		AmountCents: 150000,
		Status:      database.PaymentStatusPending,
		DueDate:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, db.Create(&payment).Error)

	path := fmt.Sprintf("/leases/%d", lease.ID)
	resp := doRequest(t, w.ownerUser, "DELETE", "/leases/:id", path, nil, DeleteLease)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, responseError(t, resp), "payment history")
}

func TestCreateLeaseNeverLeavesOverlappingActive(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	resp := doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
		leaseBody(w.tenant.ID, w.property.ID, start, end), CreateLease)
	assert.Equal(t, http.StatusCreated, resp.Code)

	// a burst of conflicting creations from other tenants must all lose
	for i := 0; i < 3; i++ {
		otherUser := database.User{Name: "Rival Tenant", Email: fmt.Sprintf("rival%d@test.local", i), Role: database.RoleTenant, IsActive: true}
		assert.NoError(t, db.Create(&otherUser).Error)
		otherTenant := database.Tenant{UserID: otherUser.ID, PropertyID: w.property.ID}
		assert.NoError(t, db.Create(&otherTenant).Error)

		resp = doRequest(t, w.ownerUser, "POST", "/leases", "/leases",
			leaseBody(otherTenant.ID, w.property.ID, start.AddDate(0, i, 0), end.AddDate(0, i, 0)), CreateLease)
		assert.Equal(t, http.StatusConflict, resp.Code)
	}

	var active int64
	assert.NoError(t, db.Model(&database.Lease{}).
		Where("property_id = ? AND status = ?", w.property.ID, database.LeaseStatusActive).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

func TestTerminateExpiredLeaseAuditsPriorStatus(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)

	lease := database.Lease{
		TenantID:   w.tenant.ID,
		PropertyID: w.property.ID,
		StartDate:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:     database.LeaseStatusExpired,
	}
	assert.NoError(t, db.Create(&lease).Error)

	path := fmt.Sprintf("/leases/%d/terminate", lease.ID)
	resp := doRequest(t, w.ownerUser, "POST", "/leases/:id/terminate", path, nil, TerminateLease)
	assert.Equal(t, http.StatusOK, resp.Code)

	var audit database.AuditLog
	assert.NoError(t, db.Where("entity_type = ? AND entity_id = ?", "lease", lease.ID).First(&audit).Error)
	assert.Equal(t, database.LeaseStatusExpired, audit.OldValue)
	assert.Equal(t, database.LeaseStatusTerminated, audit.NewValue)
}
