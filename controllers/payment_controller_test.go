package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"rentdesk/database"
)

func seedLeaseWithPayment(t *testing.T, db *gorm.DB, w *world, status string) (database.Lease, database.Payment) {
	lease := database.Lease{
		TenantID:         w.tenant.ID,
		PropertyID:       w.property.ID,
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		MonthlyRentCents: 150000,
		Status:           database.LeaseStatusActive,
	}
	assert.NoError(t, db.Create(&lease).Error)

	payment := database.Payment{
		LeaseID:     lease.ID,
		TenantID:    w.tenant.ID,
		AmountCents: 150000,
		Status:      status,
		DueDate:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, db.Create(&payment).Error)
	return lease, payment
}

func TestCreatePayment(t *testing.T) {
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

	resp := doRequest(t, w.ownerUser, "POST", "/payments", "/payments", map[string]interface{}{
		"lease_id":     lease.ID,
		"tenant_id":    w.tenant.ID,
		"amount_cents": 150000,
		"due_date":     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}, CreatePayment)
	assert.Equal(t, http.StatusCreated, resp.Code)

	var payment database.Payment
	assert.NoError(t, db.Where("lease_id = ?", lease.ID).First(&payment).Error)
	assert.Equal(t, database.PaymentStatusPending, payment.Status)
	assert.NotEmpty(t, payment.InvoiceNumber)

	// the due reminder lands as an in-app notification
	var notes int64
	assert.NoError(t, db.Model(&database.Notification{}).
		Where("user_id = ?", w.tenantUser.ID).Count(&notes).Error)
	assert.Equal(t, int64(1), notes)
}

func TestCreatePaymentTenantMismatch(t *testing.T) {
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

	resp := doRequest(t, w.ownerUser, "POST", "/payments", "/payments", map[string]interface{}{
		"lease_id":     lease.ID,
		"tenant_id":    w.tenant.ID + 99,
		"amount_cents": 150000,
		"due_date":     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
	}, CreatePayment)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkPaymentPaidSettlesOnce(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPending)

	path := fmt.Sprintf("/payments/%d/mark-paid", payment.ID)
	body := map[string]interface{}{"method": database.PaymentMethodCash}

	resp := doRequest(t, w.ownerUser, "POST", "/payments/:id/mark-paid", path, body, MarkPaymentPaid)
	assert.Equal(t, http.StatusOK, resp.Code)

	var settled database.Payment
	assert.NoError(t, db.First(&settled, payment.ID).Error)
	assert.Equal(t, database.PaymentStatusPaid, settled.Status)
	assert.NotNil(t, settled.PaidDate)
	firstPaidDate := *settled.PaidDate
	firstTransaction := settled.TransactionID

	// second settlement attempt conflicts and changes nothing
	resp = doRequest(t, w.ownerUser, "POST", "/payments/:id/mark-paid", path, body, MarkPaymentPaid)
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, responseError(t, resp), "already paid")

	assert.NoError(t, db.First(&settled, payment.ID).Error)
	assert.Equal(t, firstTransaction, settled.TransactionID)
	assert.True(t, settled.PaidDate.Equal(firstPaidDate))

	var audits int64
	assert.NoError(t, db.Model(&database.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "payment", payment.ID, "settle").
		Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestMarkPaymentPaidSettlesOverdue(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusOverdue)

	path := fmt.Sprintf("/payments/%d/mark-paid", payment.ID)
	resp := doRequest(t, w.ownerUser, "POST", "/payments/:id/mark-paid", path,
		map[string]interface{}{"method": database.PaymentMethodBank}, MarkPaymentPaid)
	assert.Equal(t, http.StatusOK, resp.Code)

	var settled database.Payment
	assert.NoError(t, db.First(&settled, payment.ID).Error)
	assert.Equal(t, database.PaymentStatusPaid, settled.Status)
}

func TestMarkPaymentPaidManagerCapability(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, map[string]bool{database.PermApprovePayments: false})
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPending)

	path := fmt.Sprintf("/payments/%d/mark-paid", payment.ID)
	body := map[string]interface{}{"method": database.PaymentMethodCash}

	// manager without the capability is refused outright
	resp := doRequest(t, w.managerUser, "POST", "/payments/:id/mark-paid", path, body, MarkPaymentPaid)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	var unchanged database.Payment
	assert.NoError(t, db.First(&unchanged, payment.ID).Error)
	assert.Equal(t, database.PaymentStatusPending, unchanged.Status)

	// granting approve_payments flips the outcome
	assert.NoError(t, w.manager.SetPermissions(map[string]bool{database.PermApprovePayments: true}))
	assert.NoError(t, db.Save(&w.manager).Error)

	resp = doRequest(t, w.managerUser, "POST", "/payments/:id/mark-paid", path, body, MarkPaymentPaid)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestUpdatePaymentOnlyPending(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPaid)

	path := fmt.Sprintf("/payments/%d", payment.ID)
	resp := doRequest(t, w.ownerUser, "PUT", "/payments/:id", path,
		map[string]interface{}{"amount_cents": 99}, UpdatePayment)
	assert.Equal(t, http.StatusConflict, resp.Code)

	var unchanged database.Payment
	assert.NoError(t, db.First(&unchanged, payment.ID).Error)
	assert.Equal(t, int64(150000), unchanged.AmountCents)
}

func TestDeletePaidPayment(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPaid)

	path := fmt.Sprintf("/payments/%d", payment.ID)
	resp := doRequest(t, w.ownerUser, "DELETE", "/payments/:id", path, nil, DeletePayment)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRefundPayment(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPaid)

	path := fmt.Sprintf("/payments/%d/refund", payment.ID)
	resp := doRequest(t, w.ownerUser, "POST", "/payments/:id/refund", path, nil, RefundPayment)
	assert.Equal(t, http.StatusOK, resp.Code)

	var refunded database.Payment
	assert.NoError(t, db.First(&refunded, payment.ID).Error)
	assert.Equal(t, database.PaymentStatusRefunded, refunded.Status)

	// refunded is terminal
	resp = doRequest(t, w.ownerUser, "POST", "/payments/:id/refund", path, nil, RefundPayment)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRefundPendingPaymentRejected(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPending)

	path := fmt.Sprintf("/payments/%d/refund", payment.ID)
	resp := doRequest(t, w.ownerUser, "POST", "/payments/:id/refund", path, nil, RefundPayment)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestTenantCannotSeeForeignPayment(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPending)

	// a tenant from another property cannot even learn the payment exists
	otherUser := database.User{Name: "Stranger", Email: "stranger@test.local", Role: database.RoleTenant, IsActive: true}
	assert.NoError(t, db.Create(&otherUser).Error)
	otherTenant := database.Tenant{UserID: otherUser.ID}
	assert.NoError(t, db.Create(&otherTenant).Error)

	path := fmt.Sprintf("/payments/%d", payment.ID)
	resp := doRequest(t, otherUser, "GET", "/payments/:id", path, nil, GetPaymentByID)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// while the owning tenant can
	resp = doRequest(t, w.tenantUser, "GET", "/payments/:id", path, nil, GetPaymentByID)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestVerifyOnlinePaymentSignature(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	_, payment := seedLeaseWithPayment(t, db, w, database.PaymentStatusPending)

	body := map[string]interface{}{
		"payment_id":         payment.ID,
		"gateway_order_id":   "order_test123",
		"gateway_payment_id": "pay_test456",
		"signature":          "bogus",
	}
	resp := doRequest(t, w.tenantUser, "POST", "/payments/verify", "/payments/verify", body, VerifyOnlinePayment)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, responseError(t, resp), "signature")

	// a correctly signed callback settles the payment
	mac := hmac.New(sha256.New, []byte(""))
	mac.Write([]byte("order_test123|pay_test456"))
	body["signature"] = hex.EncodeToString(mac.Sum(nil))

	resp = doRequest(t, w.tenantUser, "POST", "/payments/verify", "/payments/verify", body, VerifyOnlinePayment)
	assert.Equal(t, http.StatusOK, resp.Code)

	var settled database.Payment
	assert.NoError(t, db.First(&settled, payment.ID).Error)
	assert.Equal(t, database.PaymentStatusPaid, settled.Status)
	assert.Equal(t, database.PaymentMethodOnline, settled.Method)
	assert.Equal(t, "pay_test456", settled.TransactionID)
}

func TestPaymentSummary(t *testing.T) {
	db := setupTestDB(t)
	w := seedWorld(t, db, nil)
	lease, _ := seedLeaseWithPayment(t, db, w, database.PaymentStatusPending)

	for _, status := range []string{database.PaymentStatusPaid, database.PaymentStatusPaid, database.PaymentStatusOverdue} {
		p := database.Payment{
			LeaseID:     lease.ID,
			TenantID:    w.tenant.ID,
			AmountCents: 150000,
			Status:      status,
			DueDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		}
		assert.NoError(t, db.Create(&p).Error)
	}

	resp := doRequest(t, w.ownerUser, "GET", "/payments/summary", "/payments/summary", nil, PaymentSummary)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), database.PaymentStatusPaid)
	assert.Contains(t, resp.Body.String(), "300000")
}
