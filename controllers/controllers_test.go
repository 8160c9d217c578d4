package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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
		&database.Receipt{},
		&database.Complaint{},
		&database.MaintenanceRequest{},
		&database.Notification{},
		&database.AuditLog{},
		&database.LoginAttempt{},
		&database.AnalyticsSnapshot{},
		&database.PasswordReset{},
		&database.FeatureFlag{},
	)
	assert.NoError(t, err)

	database.DB = db
	return db
}

// world is the minimal tenancy graph most handler tests need: one owner
// with a manager, a property, and a tenant living in it.
type world struct {
	ownerUser   database.User
	managerUser database.User
	tenantUser  database.User
	owner       database.Owner
	manager     database.Manager
	tenant      database.Tenant
	property    database.Property
}

func seedWorld(t *testing.T, db *gorm.DB, managerPerms map[string]bool) *world {
	w := &world{}

	w.ownerUser = database.User{Name: "Olive Owner", Email: "owner@test.local", Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&w.ownerUser).Error)
	w.owner = database.Owner{UserID: w.ownerUser.ID, CompanyName: "Olive Estates"}
	assert.NoError(t, db.Create(&w.owner).Error)

	w.managerUser = database.User{Name: "Manny Manager", Email: "manager@test.local", Role: database.RoleManager, IsActive: true}
	assert.NoError(t, db.Create(&w.managerUser).Error)
	w.manager = database.Manager{UserID: w.managerUser.ID, OwnerID: w.owner.ID}
	assert.NoError(t, w.manager.SetPermissions(managerPerms))
	assert.NoError(t, db.Create(&w.manager).Error)

	w.property = database.Property{
		OwnerID:     w.owner.ID,
		Name:        "Elm Street 12",
		Address:     "12 Elm Street",
		City:        "Springfield",
		MonthlyRent: 150000,
		Status:      database.PropertyStatusAvailable,
	}
	assert.NoError(t, db.Create(&w.property).Error)

	w.tenantUser = database.User{Name: "Tess Tenant", Email: "tenant@test.local", Role: database.RoleTenant, IsActive: true}
	assert.NoError(t, db.Create(&w.tenantUser).Error)
	w.tenant = database.Tenant{UserID: w.tenantUser.ID, PropertyID: w.property.ID, IsActive: true, MoveInDate: time.Now()}
	assert.NoError(t, db.Create(&w.tenant).Error)

	return w
}

func asUser(user database.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Set("email", user.Email)
		c.Set("role", user.Role)
		c.Next()
	}
}

// doRequest serves a single handler through a throwaway router so path
// parameters and the auth context behave as in production.
func doRequest(t *testing.T, user database.User, method, route, path string, body interface{}, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser(user))
	r.Handle(method, route, handler)

	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func responseError(t *testing.T, w *httptest.ResponseRecorder) string {
	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}
