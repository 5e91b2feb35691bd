package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/rivo-booking/engine/internal/actor"
)

// GetUserID returns the authenticated caller's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetActor returns the authenticated caller as an actor.Actor, for
// attributing lifecycle transitions in the audit log (spec §3 AuditLog
// "actor id").
func GetActor(c *gin.Context) actor.Actor {
	if id := GetUserID(c); id != "" {
		return actor.User(id)
	}
	return actor.SystemActor
}
