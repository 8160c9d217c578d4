package receipts

import (
	"bytes"
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
		&database.Tenant{},
		&database.Property{},
		&database.Lease{},
		&database.Payment{},
		&database.Receipt{},
	)
	assert.NoError(t, err)
	return db
}

func TestGeneratePDF(t *testing.T) {
	paid := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	payment := &database.Payment{
		AmountCents:   150000,
		Method:        database.PaymentMethodCash,
		TransactionID: "manual-abc",
		PaidDate:      &paid,
	}

	data, err := GeneratePDF(payment, "RCPT-20260301-TEST", "Tess Tenant", "Elm Street 12")
	assert.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestLocalStorePut(t *testing.T) {
	store := &LocalStore{Dir: t.TempDir()}

	url, err := store.Put("receipt.pdf", []byte("%PDF-1.4 test"))
	assert.NoError(t, err)
	assert.Contains(t, url, "file://")
	assert.Contains(t, url, "receipt.pdf")
}

func TestIssue(t *testing.T) {
	db := setupTestDB(t)

	user := database.User{Name: "Tess Tenant", Email: "tess@test.local", Role: database.RoleTenant}
	assert.NoError(t, db.Create(&user).Error)
	property := database.Property{Name: "Elm Street 12"}
	assert.NoError(t, db.Create(&property).Error)
	tenant := database.Tenant{UserID: user.ID, PropertyID: property.ID}
	assert.NoError(t, db.Create(&tenant).Error)
	lease := database.Lease{TenantID: tenant.ID, PropertyID: property.ID, Status: database.LeaseStatusActive}
	assert.NoError(t, db.Create(&lease).Error)

	paid := time.Now()
	payment := database.Payment{
		LeaseID:     lease.ID,
		TenantID:    tenant.ID,
		AmountCents: 150000,
		Status:      database.PaymentStatusPaid,
		Method:      database.PaymentMethodCash,
		PaidDate:    &paid,
	}
	assert.NoError(t, db.Create(&payment).Error)

	store := &LocalStore{Dir: t.TempDir()}
	receipt, err := Issue(db, store, &payment)
	assert.NoError(t, err)
	assert.Equal(t, payment.ID, receipt.PaymentID)
	assert.Equal(t, int64(150000), receipt.AmountCents)
	assert.Contains(t, receipt.ReceiptNumber, "RCPT-")
	assert.NotEmpty(t, receipt.URL)

	// a second settlement issues a fresh receipt, never reuses the first
	second, err := Issue(db, store, &payment)
	assert.NoError(t, err)
	assert.NotEqual(t, receipt.ReceiptNumber, second.ReceiptNumber)

	var count int64
	assert.NoError(t, db.Model(&database.Receipt{}).Where("payment_id = ?", payment.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
