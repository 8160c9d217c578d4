package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rentdesk/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)

	err = db.AutoMigrate(
		&database.User{},
		&database.Owner{},
		&database.Manager{},
		&database.Tenant{},
		&database.Property{},
		&database.Lease{},
		&database.Payment{},
		&database.Complaint{},
		&database.MaintenanceRequest{},
	)
	assert.NoError(t, err)
	return db
}

// two owners, one property each, with a tenant living in the first
type graph struct {
	ownerA, ownerB       database.Owner
	userA, userB         database.User
	propertyA, propertyB database.Property
	tenant               database.Tenant
	tenantUser           database.User
}

func seedGraph(t *testing.T, db *gorm.DB) *graph {
	g := &graph{}

	g.userA = database.User{Name: "Owner A", Email: "a@test.local", Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&g.userA).Error)
	g.ownerA = database.Owner{UserID: g.userA.ID}
	assert.NoError(t, db.Create(&g.ownerA).Error)

	g.userB = database.User{Name: "Owner B", Email: "b@test.local", Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&g.userB).Error)
	g.ownerB = database.Owner{UserID: g.userB.ID}
	assert.NoError(t, db.Create(&g.ownerB).Error)

	g.propertyA = database.Property{OwnerID: g.ownerA.ID, Name: "A1"}
	assert.NoError(t, db.Create(&g.propertyA).Error)
	g.propertyB = database.Property{OwnerID: g.ownerB.ID, Name: "B1"}
	assert.NoError(t, db.Create(&g.propertyB).Error)

	g.tenantUser = database.User{Name: "Tenant", Email: "t@test.local", Role: database.RoleTenant, IsActive: true}
	assert.NoError(t, db.Create(&g.tenantUser).Error)
	g.tenant = database.Tenant{UserID: g.tenantUser.ID, PropertyID: g.propertyA.ID, IsActive: true, MoveInDate: time.Now()}
	assert.NoError(t, db.Create(&g.tenant).Error)

	return g
}

func TestResolveOwner(t *testing.T) {
	db := setupTestDB(t)
	g := seedGraph(t, db)

	scope, err := Resolve(db, g.userA.ID, database.RoleOwner)
	assert.NoError(t, err)
	assert.Equal(t, g.ownerA.ID, scope.OwnerID)
	assert.True(t, scope.IsStaff())
	assert.False(t, scope.IsSuperAdmin())
}

func TestResolveManager(t *testing.T) {
	db := setupTestDB(t)
	g := seedGraph(t, db)

	managerUser := database.User{Name: "Manager", Email: "m@test.local", Role: database.RoleManager, IsActive: true}
	assert.NoError(t, db.Create(&managerUser).Error)
	manager := database.Manager{UserID: managerUser.ID, OwnerID: g.ownerA.ID}
	assert.NoError(t, manager.SetPermissions(map[string]bool{database.PermManageLeases: true}))
	assert.NoError(t, db.Create(&manager).Error)

	scope, err := Resolve(db, managerUser.ID, database.RoleManager)
	assert.NoError(t, err)
	assert.Equal(t, g.ownerA.ID, scope.OwnerID)
	assert.Equal(t, manager.ID, scope.ManagerID)
	assert.True(t, scope.HasPermission(database.PermManageLeases))
	assert.False(t, scope.HasPermission(database.PermApprovePayments))
}

func TestResolveMissingProfileFailsClosed(t *testing.T) {
	db := setupTestDB(t)

	user := database.User{Name: "Orphan", Email: "orphan@test.local", Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&user).Error)

	_, err := Resolve(db, user.ID, database.RoleOwner)
	assert.Error(t, err)
}

func TestResolveUnknownRole(t *testing.T) {
	db := setupTestDB(t)

	_, err := Resolve(db, 1, "janitor")
	assert.Error(t, err)
}

func TestPropertyScopeContainment(t *testing.T) {
	db := setupTestDB(t)
	g := seedGraph(t, db)

	scopeA, err := Resolve(db, g.userA.ID, database.RoleOwner)
	assert.NoError(t, err)

	var visible []database.Property
	assert.NoError(t, scopeA.Properties(db).Find(&visible).Error)
	assert.Len(t, visible, 1)
	assert.Equal(t, g.propertyA.ID, visible[0].ID)

	// the other owner's property does not resolve at all
	var count int64
	assert.NoError(t, scopeA.Properties(db).Where("properties.id = ?", g.propertyB.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSuperAdminSeesEverything(t *testing.T) {
	db := setupTestDB(t)
	seedGraph(t, db)

	scope, err := Resolve(db, 999, database.RoleSuperAdmin)
	assert.NoError(t, err)
	assert.True(t, scope.IsSuperAdmin())
	assert.True(t, scope.HasPermission(database.PermApprovePayments))

	var visible []database.Property
	assert.NoError(t, scope.Properties(db).Find(&visible).Error)
	assert.Len(t, visible, 2)
}

func TestTenantScopes(t *testing.T) {
	db := setupTestDB(t)
	g := seedGraph(t, db)

	lease := database.Lease{TenantID: g.tenant.ID, PropertyID: g.propertyA.ID, Status: database.LeaseStatusActive}
	assert.NoError(t, db.Create(&lease).Error)
	payment := database.Payment{LeaseID: lease.ID, TenantID: g.tenant.ID, AmountCents: 1000, Status: database.PaymentStatusPending}
	assert.NoError(t, db.Create(&payment).Error)

	scope, err := Resolve(db, g.tenantUser.ID, database.RoleTenant)
	assert.NoError(t, err)
	assert.False(t, scope.IsStaff())
	assert.False(t, scope.HasPermission(database.PermManageLeases))

	var leases []database.Lease
	assert.NoError(t, scope.Leases(db).Find(&leases).Error)
	assert.Len(t, leases, 1)

	var payments []database.Payment
	assert.NoError(t, scope.Payments(db).Find(&payments).Error)
	assert.Len(t, payments, 1)

	var properties []database.Property
	assert.NoError(t, scope.Properties(db).Find(&properties).Error)
	assert.Len(t, properties, 1)
	assert.Equal(t, g.propertyA.ID, properties[0].ID)
}

func TestCanWriteProperty(t *testing.T) {
	owner := &Scope{Role: database.RoleOwner}
	assert.NoError(t, owner.CanWriteProperty(false))
	assert.NoError(t, owner.CanWriteProperty(true))

	manager := &Scope{Role: database.RoleManager}
	assert.NoError(t, manager.CanWriteProperty(false))
	assert.ErrorIs(t, manager.CanWriteProperty(true), ErrForbidden)

	tenant := &Scope{Role: database.RoleTenant}
	assert.ErrorIs(t, tenant.CanWriteProperty(false), ErrForbidden)
}
