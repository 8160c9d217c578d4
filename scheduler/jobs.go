// Package scheduler runs the time-triggered sweeps: overdue detection,
// upcoming-due reminders, the monthly per-owner report, and retention
// cleanup. Sweeps are idempotent, isolate failures per unit of work,
// and never let a panic escape the sweep boundary.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"rentdesk/database"
	"rentdesk/notifications"
)

// Start registers the sweeps and starts the cron runner. The returned
// cron can be stopped on shutdown.
func Start(db *gorm.DB) *cron.Cron {
	c := cron.New()

	mustAdd(c, "0 1 * * *", "overdue-detection", func(now time.Time) error {
		n, err := RunOverdueSweep(db, now)
		if err == nil {
			logrus.Infof("Overdue sweep moved %d payments", n)
		}
		return err
	})

	mustAdd(c, "0 8 * * *", "upcoming-due-reminders", func(now time.Time) error {
		n, err := RunUpcomingReminders(db, now)
		if err == nil {
			logrus.Infof("Sent %d upcoming-due reminders", n)
		}
		return err
	})

	mustAdd(c, "0 2 1 * *", "monthly-owner-report", func(now time.Time) error {
		return RunMonthlyReports(db, now)
	})

	mustAdd(c, "0 3 * * 0", "retention-cleanup", func(now time.Time) error {
		return RunRetentionCleanup(db, now)
	})

	c.Start()
	logrus.Info("Scheduler started with 4 sweeps")
	return c
}

func mustAdd(c *cron.Cron, spec, name string, job func(now time.Time) error) {
	_, err := c.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Errorf("Sweep %s panicked: %v", name, r)
			}
		}()
		logrus.Infof("Sweep %s starting", name)
		if err := job(time.Now()); err != nil {
			logrus.Errorf("Sweep %s failed: %v", name, err)
			return
		}
		logrus.Infof("Sweep %s finished", name)
	})
	if err != nil {
		// a bad spec is a programming error caught at boot
		panic(fmt.Sprintf("invalid cron spec %q for %s: %v", spec, name, err))
	}
}

// RunOverdueSweep bulk-transitions pending payments past their due date
// to overdue. This is the only actor allowed to make that transition,
// and it runs unscoped: it is system maintenance, not a caller
// operation. Re-running on the same data is a no-op.
func RunOverdueSweep(db *gorm.DB, now time.Time) (int64, error) {
	var newlyOverdue []database.Payment
	if err := db.Where("status = ? AND due_date < ?", database.PaymentStatusPending, now).
		Find(&newlyOverdue).Error; err != nil {
		return 0, err
	}

	result := db.Model(&database.Payment{}).
		Where("status = ? AND due_date < ?", database.PaymentStatusPending, now).
		Update("status", database.PaymentStatusOverdue)
	if result.Error != nil {
		return 0, result.Error
	}

	// reminder per newly-overdue payment; one failed notification must
	// not abort the rest
	for _, payment := range newlyOverdue {
		var tenant database.Tenant
		if err := db.First(&tenant, payment.TenantID).Error; err != nil {
			logrus.Warnf("Overdue reminder skipped for payment %d: %v", payment.ID, err)
			continue
		}
		relatedID := payment.ID
		notifications.Notify(notifications.Event{
			UserID:      tenant.UserID,
			Title:       "Rent payment overdue",
			Message:     fmt.Sprintf("Your rent payment due on %s is now overdue.", payment.DueDate.Format("2006-01-02")),
			Type:        "payment",
			RelatedID:   &relatedID,
			RelatedType: "payment",
		})
	}

	return result.RowsAffected, nil
}

// RunUpcomingReminders notifies tenants of pending payments due within
// the next three days. No state mutation.
func RunUpcomingReminders(db *gorm.DB, now time.Time) (int, error) {
	horizon := now.AddDate(0, 0, 3)

	var upcoming []database.Payment
	if err := db.Where("status = ? AND due_date >= ? AND due_date < ?",
		database.PaymentStatusPending, now, horizon).
		Find(&upcoming).Error; err != nil {
		return 0, err
	}

	sent := 0
	for _, payment := range upcoming {
		var tenant database.Tenant
		if err := db.First(&tenant, payment.TenantID).Error; err != nil {
			logrus.Warnf("Due reminder skipped for payment %d: %v", payment.ID, err)
			continue
		}
		relatedID := payment.ID
		notifications.Notify(notifications.Event{
			UserID:      tenant.UserID,
			Title:       "Rent payment due soon",
			Message:     fmt.Sprintf("Your rent payment is due on %s.", payment.DueDate.Format("2006-01-02")),
			Type:        "payment",
			RelatedID:   &relatedID,
			RelatedType: "payment",
		})
		sent++
	}

	return sent, nil
}

// RunMonthlyReports persists one immutable analytics snapshot per owner
// for the trailing month. A failure for one owner never aborts the
// rest.
func RunMonthlyReports(db *gorm.DB, now time.Time) error {
	periodEnd := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	periodStart := periodEnd.AddDate(0, -1, 0)

	var owners []database.Owner
	if err := db.Find(&owners).Error; err != nil {
		return err
	}

	for _, owner := range owners {
		if err := snapshotOwner(db, owner.ID, periodStart, periodEnd); err != nil {
			logrus.Errorf("Monthly report failed for owner %d: %v", owner.ID, err)
			continue
		}
	}
	return nil
}

func snapshotOwner(db *gorm.DB, ownerID uint, periodStart, periodEnd time.Time) error {
	// idempotent: skip when this owner already has a snapshot for the
	// period
	var existing int64
	if err := db.Model(&database.AnalyticsSnapshot{}).
		Where("owner_id = ? AND period_start = ?", ownerID, periodStart).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	var revenue int64
	if err := db.Model(&database.Payment{}).
		Joins("JOIN leases ON payments.lease_id = leases.id").
		Joins("JOIN properties ON leases.property_id = properties.id").
		Where("properties.owner_id = ? AND payments.status = ? AND payments.paid_date >= ? AND payments.paid_date < ?",
			ownerID, database.PaymentStatusPaid, periodStart, periodEnd).
		Select("COALESCE(SUM(payments.amount_cents), 0)").
		Scan(&revenue).Error; err != nil {
		return err
	}

	var totalProperties int64
	if err := db.Model(&database.Property{}).
		Where("owner_id = ?", ownerID).Count(&totalProperties).Error; err != nil {
		return err
	}

	var occupied int64
	if err := db.Model(&database.Property{}).
		Where("owner_id = ? AND id IN (SELECT property_id FROM leases WHERE status = ? AND deleted_at IS NULL)",
			ownerID, database.LeaseStatusActive).
		Count(&occupied).Error; err != nil {
		return err
	}

	snapshot := database.AnalyticsSnapshot{
		OwnerID:            ownerID,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		RevenueCents:       revenue,
		TotalProperties:    totalProperties,
		OccupiedProperties: occupied,
	}
	return db.Create(&snapshot).Error
}

// RunRetentionCleanup deletes login attempts older than 30 days and
// read notifications older than 90 days. Storage hygiene only.
func RunRetentionCleanup(db *gorm.DB, now time.Time) error {
	loginCutoff := now.AddDate(0, 0, -30)
	result := db.Unscoped().Where("created_at < ?", loginCutoff).Delete(&database.LoginAttempt{})
	if result.Error != nil {
		return result.Error
	}
	logrus.Infof("Retention cleanup removed %d login attempts", result.RowsAffected)

	notificationCutoff := now.AddDate(0, 0, -90)
	result = db.Unscoped().Where("is_read = ? AND created_at < ?", true, notificationCutoff).
		Delete(&database.Notification{})
	if result.Error != nil {
		return result.Error
	}
	logrus.Infof("Retention cleanup removed %d read notifications", result.RowsAffected)

	return nil
}
