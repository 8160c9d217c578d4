package controllers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rentdesk/config"
	"rentdesk/database"
	"rentdesk/utils"
)

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	config.AppConfig.JWTSecret = "test-secret"

	hash, err := utils.HashPassword("correct-horse")
	assert.NoError(t, err)
	user := database.User{Name: "Alex", Email: "alex@test.local", PasswordHash: hash, Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&user).Error)

	resp := doRequest(t, database.User{}, "POST", "/auth/login", "/auth/login", map[string]interface{}{
		"email":    "alex@test.local",
		"password": "correct-horse",
	}, Login)
	assert.Equal(t, http.StatusOK, resp.Code)

	var body LoginResponse
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, user.ID, body.User.ID)

	claims, err := utils.ValidateJWT(body.Token)
	assert.NoError(t, err)
	assert.Equal(t, database.RoleOwner, claims.Role)

	// the attempt is recorded as a success
	var attempt database.LoginAttempt
	assert.NoError(t, db.Where("email = ?", "alex@test.local").First(&attempt).Error)
	assert.True(t, attempt.Success)

	var refreshed database.User
	assert.NoError(t, db.First(&refreshed, user.ID).Error)
	assert.NotNil(t, refreshed.LastLogin)
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)

	hash, err := utils.HashPassword("correct-horse")
	assert.NoError(t, err)
	user := database.User{Name: "Alex", Email: "alex@test.local", PasswordHash: hash, Role: database.RoleOwner, IsActive: true}
	assert.NoError(t, db.Create(&user).Error)

	resp := doRequest(t, database.User{}, "POST", "/auth/login", "/auth/login", map[string]interface{}{
		"email":    "alex@test.local",
		"password": "wrong",
	}, Login)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var attempt database.LoginAttempt
	assert.NoError(t, db.Where("email = ?", "alex@test.local").First(&attempt).Error)
	assert.False(t, attempt.Success)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	db := setupTestDB(t)

	hash, err := utils.HashPassword("correct-horse")
	assert.NoError(t, err)
	user := database.User{Name: "Gone", Email: "gone@test.local", PasswordHash: hash, Role: database.RoleTenant, IsActive: false}
	assert.NoError(t, db.Create(&user).Error)
	// the model's gorm default:true overrides a zero-value IsActive on insert
	assert.NoError(t, db.Model(&user).Update("is_active", false).Error)

	resp := doRequest(t, database.User{}, "POST", "/auth/login", "/auth/login", map[string]interface{}{
		"email":    "gone@test.local",
		"password": "correct-horse",
	}, Login)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, responseError(t, resp), "deactivated")
}

func TestRegisterCreatesTenantOnly(t *testing.T) {
	db := setupTestDB(t)
	config.AppConfig.JWTSecret = "test-secret"

	resp := doRequest(t, database.User{}, "POST", "/auth/register", "/auth/register", map[string]interface{}{
		"name":     "New Tenant",
		"email":    "new@test.local",
		"phone":    "5551234",
		"password": "secret99",
	}, Register)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var user database.User
	assert.NoError(t, db.Where("email = ?", "new@test.local").First(&user).Error)
	assert.Equal(t, database.RoleTenant, user.Role)
	assert.True(t, user.IsActive)

	// duplicate email is refused
	resp = doRequest(t, database.User{}, "POST", "/auth/register", "/auth/register", map[string]interface{}{
		"name":     "Again",
		"email":    "new@test.local",
		"phone":    "5551234",
		"password": "secret99",
	}, Register)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	db := setupTestDB(t)

	hash, err := utils.HashPassword("old-password")
	assert.NoError(t, err)
	user := database.User{Name: "Resetter", Email: "reset@test.local", PasswordHash: hash, Role: database.RoleTenant, IsActive: true}
	assert.NoError(t, db.Create(&user).Error)

	resp := doRequest(t, database.User{}, "POST", "/auth/forgot-password", "/auth/forgot-password",
		map[string]interface{}{"email": "reset@test.local"}, ForgotPassword)
	assert.Equal(t, http.StatusOK, resp.Code)

	var reset database.PasswordReset
	assert.NoError(t, db.Where("user_id = ?", user.ID).First(&reset).Error)
	assert.True(t, reset.ExpiresAt.After(time.Now()))

	resp = doRequest(t, database.User{}, "POST", "/auth/reset-password", "/auth/reset-password", map[string]interface{}{
		"token":        reset.Token,
		"new_password": "brand-new",
	}, ResetPassword)
	assert.Equal(t, http.StatusOK, resp.Code)

	var updated database.User
	assert.NoError(t, db.First(&updated, user.ID).Error)
	assert.True(t, utils.CheckPasswordHash("brand-new", updated.PasswordHash))

	// the token is single-use
	resp = doRequest(t, database.User{}, "POST", "/auth/reset-password", "/auth/reset-password", map[string]interface{}{
		"token":        reset.Token,
		"new_password": "another-one",
	}, ResetPassword)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestForgotPasswordDoesNotLeakExistence(t *testing.T) {
	setupTestDB(t)

	resp := doRequest(t, database.User{}, "POST", "/auth/forgot-password", "/auth/forgot-password",
		map[string]interface{}{"email": "nobody@test.local"}, ForgotPassword)
	assert.Equal(t, http.StatusOK, resp.Code)
}
