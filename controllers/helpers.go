package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentdesk/authz"
	"rentdesk/cache"
	"rentdesk/database"
)

var flagCache *cache.FlagCache

// SetFlagCache injects the feature-flag cache used to gate optional
// behavior such as the online payment flow.
func SetFlagCache(f *cache.FlagCache) {
	flagCache = f
}

// flagEnabled reports a feature flag, treating a missing cache as all
// flags off.
func flagEnabled(c *gin.Context, name string) bool {
	if flagCache == nil {
		return false
	}
	return flagCache.Enabled(c.Request.Context(), name)
}

// currentScope resolves the authenticated caller's ownership scope. It
// aborts the request itself on failure, so callers just bail on !ok.
func currentScope(c *gin.Context) (*authz.Scope, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}

	userIDUint, ok := userID.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in context"})
		return nil, false
	}

	scope, err := authz.Resolve(database.DB, userIDUint, c.GetString("role"))
	if err != nil {
		logrus.Errorf("Scope resolution failed for user %d: %v", userIDUint, err)
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return nil, false
	}

	return scope, true
}

// idParam parses the :id path parameter.
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}
