package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentdesk/authz"
	"rentdesk/config"
	"rentdesk/database"
	"rentdesk/notifications"
	"rentdesk/receipts"
)

var receiptStore receipts.Store

// SetReceiptStore wires the document store used for settlement receipts.
func SetReceiptStore(store receipts.Store) {
	receiptStore = store
}

// PaymentRequest contains data for creating a payment
type PaymentRequest struct {
	LeaseID     uint      `json:"lease_id" binding:"required"`
	TenantID    uint      `json:"tenant_id" binding:"required"`
	AmountCents int64     `json:"amount_cents" binding:"required"`
	DueDate     time.Time `json:"due_date" binding:"required"`
	Notes       string    `json:"notes"`
}

// MarkPaidRequest contains data for manual settlement
type MarkPaidRequest struct {
	Method        string `json:"method" binding:"required"`
	TransactionID string `json:"transaction_id"`
	Notes         string `json:"notes"`
}

// OnlinePaymentRequest names the payment to settle through the gateway
type OnlinePaymentRequest struct {
	PaymentID uint `json:"payment_id" binding:"required"`
}

// OnlineVerificationRequest carries the gateway callback data
type OnlineVerificationRequest struct {
	PaymentID        uint   `json:"payment_id" binding:"required"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// CreatePayment records a rent payment due against a lease. Staff only;
// the supplied tenant must match the lease's tenant.
func CreatePayment(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var request PaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if request.AmountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}

	var lease database.Lease
	if err := scope.Leases(database.DB).Where("leases.id = ?", request.LeaseID).First(&lease).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if lease.TenantID != request.TenantID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant does not match the lease"})
		return
	}

	payment := database.Payment{
		LeaseID:       lease.ID,
		TenantID:      lease.TenantID,
		AmountCents:   request.AmountCents,
		Status:        database.PaymentStatusPending,
		DueDate:       request.DueDate,
		InvoiceNumber: generateInvoiceNumber(lease.ID),
		Notes:         request.Notes,
	}

	if err := database.DB.Create(&payment).Error; err != nil {
		logrus.Errorf("Payment creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}

	var tenant database.Tenant
	if err := database.DB.First(&tenant, lease.TenantID).Error; err == nil {
		relatedID := payment.ID
		notifications.Notify(notifications.Event{
			UserID:      tenant.UserID,
			Title:       "Rent payment due",
			Message:     fmt.Sprintf("A rent payment is due on %s.", payment.DueDate.Format("2006-01-02")),
			Type:        "payment",
			RelatedID:   &relatedID,
			RelatedType: "payment",
		})
	}

	c.JSON(http.StatusCreated, payment)
}

// GetPayments lists the payments inside the caller's scope.
func GetPayments(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	query := scope.Payments(database.DB)
	if status := c.Query("status"); status != "" {
		query = query.Where("payments.status = ?", status)
	}
	if leaseID := c.Query("lease_id"); leaseID != "" {
		if id, err := strconv.ParseUint(leaseID, 10, 64); err == nil {
			query = query.Where("payments.lease_id = ?", uint(id))
		}
	}

	var payments []database.Payment
	if err := query.Order("payments.due_date DESC").Limit(200).Find(&payments).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, payments)
}

// GetPaymentByID returns one payment resolved inside the caller's scope.
func GetPaymentByID(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	paymentID, ok := idParam(c)
	if !ok {
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, payment)
}

// UpdatePayment amends amount, due date or notes. Only a pending
// payment can be edited; anything further along rejects outright.
func UpdatePayment(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	paymentID, ok := idParam(c)
	if !ok {
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if payment.Status != database.PaymentStatusPending {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cannot update a %s payment", payment.Status)})
		return
	}

	var request struct {
		AmountCents *int64     `json:"amount_cents"`
		DueDate     *time.Time `json:"due_date"`
		Notes       *string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.AmountCents != nil {
		if *request.AmountCents <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
			return
		}
		updates["amount_cents"] = *request.AmountCents
	}
	if request.DueDate != nil {
		updates["due_date"] = *request.DueDate
	}
	if request.Notes != nil {
		updates["notes"] = *request.Notes
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	// Guarded update: the status may have progressed since the read.
	result := database.DB.Model(&database.Payment{}).
		Where("id = ? AND status = ?", payment.ID, database.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		logrus.Errorf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment is no longer pending"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment updated"})
}

// DeletePayment removes a payment that was never settled. A paid
// payment is never deleted, only refunded.
func DeletePayment(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	paymentID, ok := idParam(c)
	if !ok {
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if payment.Status == database.PaymentStatusPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete a paid payment"})
		return
	}

	if err := database.DB.Delete(&payment).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
}

// settle flips a payment to paid with a conditional update so that
// concurrent settlement attempts cannot both succeed. The receipt and
// notification that follow are best-effort.
func settle(c *gin.Context, scope *authz.Scope, payment *database.Payment, method, transactionID, notes string) bool {
	now := time.Now()
	updates := map[string]interface{}{
		"status":         database.PaymentStatusPaid,
		"method":         method,
		"transaction_id": transactionID,
		"paid_date":      now,
	}
	if notes != "" {
		updates["notes"] = notes
	}

	result := database.DB.Model(&database.Payment{}).
		Where("id = ? AND status IN ?", payment.ID,
			[]string{database.PaymentStatusPending, database.PaymentStatusOverdue}).
		Updates(updates)
	if result.Error != nil {
		logrus.Errorf("Settlement error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to settle payment"})
		return false
	}
	if result.RowsAffected == 0 {
		// re-read for an accurate conflict message
		var current database.Payment
		if err := database.DB.First(&current, payment.ID).Error; err == nil {
			if current.Status == database.PaymentStatusPaid {
				c.JSON(http.StatusConflict, gin.H{"error": "Payment is already paid"})
			} else {
				c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cannot settle a %s payment", current.Status)})
			}
		} else {
			c.JSON(http.StatusConflict, gin.H{"error": "Payment is already settled"})
		}
		return false
	}

	payment.Status = database.PaymentStatusPaid
	payment.Method = method
	payment.TransactionID = transactionID
	payment.PaidDate = &now

	userID := scope.UserID
	audit := database.AuditLog{
		UserID:     &userID,
		Action:     "settle",
		EntityType: "payment",
		EntityID:   payment.ID,
		NewValue:   database.PaymentStatusPaid,
		IPAddress:  c.ClientIP(),
	}
	if err := database.DB.Create(&audit).Error; err != nil {
		logrus.Warnf("Audit log write failed: %v", err)
	}

	// Receipt failure never reverts the settlement: payment confirmation
	// is authoritative even when the artifact is missing.
	if receiptStore != nil {
		if _, err := receipts.Issue(database.DB, receiptStore, payment); err != nil {
			logrus.Warnf("Receipt issuance failed for payment %d: %v", payment.ID, err)
		}
	}

	var tenant database.Tenant
	if err := database.DB.First(&tenant, payment.TenantID).Error; err == nil {
		relatedID := payment.ID
		notifications.Notify(notifications.Event{
			UserID:      tenant.UserID,
			Title:       "Payment confirmed",
			Message:     "Your rent payment has been processed successfully.",
			Type:        "payment",
			RelatedID:   &relatedID,
			RelatedType: "payment",
		})
	}

	return true
}

// MarkPaymentPaid settles a payment manually. Owners may always do
// this; managers need the approve_payments capability.
func MarkPaymentPaid(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	if !scope.HasPermission(database.PermApprovePayments) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	paymentID, ok := idParam(c)
	if !ok {
		return
	}

	var request MarkPaidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	transactionID := request.TransactionID
	if transactionID == "" {
		transactionID = "manual-" + uuid.New().String()
	}

	if !settle(c, scope, &payment, request.Method, transactionID, request.Notes) {
		return
	}

	c.JSON(http.StatusOK, payment)
}

// GenerateOnlinePayment creates a gateway order for the tenant's own
// payment.
func GenerateOnlinePayment(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleTenant {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	// operational kill switch for the gateway integration
	if flagEnabled(c, "disable_online_payments") {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Online payments are temporarily unavailable"})
		return
	}

	var request OnlinePaymentRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", request.PaymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if payment.Status == database.PaymentStatusPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment is already paid"})
		return
	}
	if payment.Status != database.PaymentStatusPending && payment.Status != database.PaymentStatusOverdue {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cannot settle a %s payment", payment.Status)})
		return
	}

	client := razorpay.NewClient(config.AppConfig.RazorpayKey, config.AppConfig.RazorpaySecret)

	// Gateway takes the amount in the smallest currency unit, which is
	// how amounts are stored already.
	data := map[string]interface{}{
		"amount":   payment.AmountCents,
		"currency": "INR",
		"receipt":  fmt.Sprintf("payment_%d", payment.ID),
		"notes": map[string]interface{}{
			"payment_id": payment.ID,
			"lease_id":   payment.LeaseID,
		},
	}

	gatewayOrder, err := client.Order.Create(data, nil)
	if err != nil {
		logrus.Errorf("Gateway order creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating payment order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"gateway_order_id": gatewayOrder["id"],
		"amount_cents":     payment.AmountCents,
		"currency":         "INR",
		"key":              config.AppConfig.RazorpayKey,
		"payment_id":       payment.ID,
	})
}

// VerifyOnlinePayment checks the gateway signature and settles the
// tenant's payment.
func VerifyOnlinePayment(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleTenant {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var request OnlineVerificationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !verifyGatewaySignature(request.GatewayOrderID+"|"+request.GatewayPaymentID,
		request.Signature, config.AppConfig.RazorpaySecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment signature"})
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", request.PaymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if !settle(c, scope, &payment, database.PaymentMethodOnline, request.GatewayPaymentID, "") {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment verified successfully",
	})
}

// RefundPayment reverses a paid payment. The only transition allowed
// out of paid.
func RefundPayment(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if scope.Role != database.RoleOwner && !scope.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	paymentID, ok := idParam(c)
	if !ok {
		return
	}

	var payment database.Payment
	if err := scope.Payments(database.DB).Where("payments.id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
			return
		}
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	result := database.DB.Model(&database.Payment{}).
		Where("id = ? AND status = ?", payment.ID, database.PaymentStatusPaid).
		Update("status", database.PaymentStatusRefunded)
	if result.Error != nil {
		logrus.Errorf("Refund error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refund payment"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cannot refund a %s payment", payment.Status)})
		return
	}

	userID := scope.UserID
	audit := database.AuditLog{
		UserID:     &userID,
		Action:     "refund",
		EntityType: "payment",
		EntityID:   payment.ID,
		OldValue:   database.PaymentStatusPaid,
		NewValue:   database.PaymentStatusRefunded,
		IPAddress:  c.ClientIP(),
	}
	if err := database.DB.Create(&audit).Error; err != nil {
		logrus.Warnf("Audit log write failed: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment refunded"})
}

// PaymentSummary aggregates payment amounts by status within the
// caller's scope. Amounts stay in minor units so sums are exact.
func PaymentSummary(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}

	type bucket struct {
		Status      string `json:"status"`
		Count       int64  `json:"count"`
		AmountCents int64  `json:"amount_cents"`
	}

	var buckets []bucket
	if err := scope.Payments(database.DB).
		Select("payments.status, COUNT(*) as count, COALESCE(SUM(payments.amount_cents), 0) as amount_cents").
		Group("payments.status").
		Scan(&buckets).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"by_status": buckets})
}

// Helper function to generate an invoice number
func generateInvoiceNumber(leaseID uint) string {
	timestamp := time.Now().Format("20060102")
	return "INV-" + timestamp + "-" + strconv.FormatUint(uint64(leaseID), 10) +
		"-" + uuid.New().String()[:8]
}

func verifyGatewaySignature(data, signature, secret string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	expectedSignature := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expectedSignature), []byte(signature))
}
