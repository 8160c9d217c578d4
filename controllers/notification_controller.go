package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentdesk/database"
)

// GetNotifications lists the caller's own notifications.
func GetNotifications(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDUint, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return
	}

	query := database.DB.Where("user_id = ?", userIDUint)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var items []database.Notification
	if err := query.Order("created_at DESC").Limit(100).Find(&items).Error; err != nil {
		logrus.Errorf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// MarkNotificationRead flips the read flag on the caller's own
// notification. The read flag is the only mutable part of a
// notification, and only its recipient may touch it.
func MarkNotificationRead(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDUint, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return
	}

	notificationID, ok := idParam(c)
	if !ok {
		return
	}

	result := database.DB.Model(&database.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userIDUint).
		Update("is_read", true)
	if result.Error != nil {
		logrus.Errorf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
