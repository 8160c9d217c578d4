package controllers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"

	"rentdesk/database"
	"rentdesk/utils"
)

// revenueRow is one line of the revenue report
type revenueRow struct {
	PropertyID   uint   `json:"property_id"`
	PropertyName string `json:"property_name"`
	Payments     int64  `json:"payments"`
	AmountCents  int64  `json:"amount_cents"`
}

// GetOwnerDashboard summarizes the caller's portfolio: occupancy and
// outstanding rent.
func GetOwnerDashboard(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	var totalProperties int64
	if err := scope.Properties(database.DB).Count(&totalProperties).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var occupied int64
	if err := scope.Properties(database.DB).
		Where("properties.id IN (SELECT property_id FROM leases WHERE status = ? AND deleted_at IS NULL)",
			database.LeaseStatusActive).
		Count(&occupied).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	type outstanding struct {
		Count       int64 `json:"count"`
		AmountCents int64 `json:"amount_cents"`
	}
	var due outstanding
	if err := scope.Payments(database.DB).
		Where("payments.status IN ?", []string{database.PaymentStatusPending, database.PaymentStatusOverdue}).
		Select("COUNT(*) as count, COALESCE(SUM(payments.amount_cents), 0) as amount_cents").
		Scan(&due).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var openComplaints int64
	if err := scope.Complaints(database.DB).
		Where("complaints.status IN ?", []string{database.ComplaintStatusOpen, database.ComplaintStatusInProgress}).
		Count(&openComplaints).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_properties":    totalProperties,
		"occupied_properties": occupied,
		"outstanding":         due,
		"open_complaints":     openComplaints,
	})
}

// GetAdminDashboard reports global counts. Super admin only.
func GetAdminDashboard(c *gin.Context) {
	counts := gin.H{}
	for name, model := range map[string]interface{}{
		"users":      &database.User{},
		"owners":     &database.Owner{},
		"properties": &database.Property{},
		"leases":     &database.Lease{},
		"payments":   &database.Payment{},
		"complaints": &database.Complaint{},
	} {
		var n int64
		if err := database.DB.Model(model).Count(&n).Error; err != nil {
			logrus.Errorf("Database error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		counts[name] = n
	}
	c.JSON(http.StatusOK, counts)
}

// GetRevenueReport aggregates paid rent per property over a date range
// within the caller's scope, optionally exported as CSV or PDF.
func GetRevenueReport(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	from, to, okRange := reportRange(c)
	if !okRange {
		return
	}

	query := scope.Payments(database.DB).
		Where("payments.status = ? AND payments.paid_date >= ? AND payments.paid_date < ?",
			database.PaymentStatusPaid, from, to)
	if propertyID := c.Query("property_id"); propertyID != "" {
		query = query.Where("leases.property_id = ?", propertyID)
	}

	var rows []revenueRow
	if err := query.
		Joins("JOIN properties prop ON prop.id = leases.property_id").
		Select("prop.id as property_id, prop.name as property_name, COUNT(*) as payments, COALESCE(SUM(payments.amount_cents), 0) as amount_cents").
		Group("prop.id, prop.name").
		Order("amount_cents DESC").
		Scan(&rows).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	switch c.Query("format") {
	case "csv":
		writeReportCSV(c, rows)
	case "pdf":
		writeReportPDF(c, rows, from, to)
	default:
		c.JSON(http.StatusOK, gin.H{
			"from": from,
			"to":   to,
			"rows": rows,
		})
	}
}

func reportRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := now.AddDate(0, -1, 0)
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
			return from, to, false
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
			return from, to, false
		}
		to = parsed
	}
	if !to.After(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date range is empty"})
		return from, to, false
	}
	return from, to, true
}

func writeReportCSV(c *gin.Context, rows []revenueRow) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"property_id", "property_name", "payments", "amount"})
	for _, row := range rows {
		_ = w.Write([]string{
			uintString(row.PropertyID),
			row.PropertyName,
			int64String(row.Payments),
			utils.FormatCents(row.AmountCents),
		})
	}
	w.Flush()

	c.Header("Content-Disposition", `attachment; filename="revenue.csv"`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func writeReportPDF(c *gin.Context, rows []revenueRow, from, to time.Time) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Revenue Report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, from.Format("2006-01-02")+" to "+to.Format("2006-01-02"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 8, "Property", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Payments", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 8, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.CellFormat(90, 8, row.PropertyName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, int64String(row.Payments), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 8, utils.FormatCents(row.AmountCents), "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		logrus.Errorf("Report render error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="revenue.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// GetAnalyticsSnapshots lists the stored monthly snapshots for the
// caller's owner scope.
func GetAnalyticsSnapshots(c *gin.Context) {
	scope, ok := currentScope(c)
	if !ok {
		return
	}
	if !scope.IsStaff() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	query := database.DB.Model(&database.AnalyticsSnapshot{})
	if !scope.IsSuperAdmin() {
		query = query.Where("owner_id = ?", scope.OwnerID)
	}

	var snapshots []database.AnalyticsSnapshot
	if err := query.Order("period_start DESC").Limit(24).Find(&snapshots).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

func uintString(v uint) string   { return strconv.FormatUint(uint64(v), 10) }
func int64String(v int64) string { return strconv.FormatInt(v, 10) }
