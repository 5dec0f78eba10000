// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Gin is a gin.HandlerFunc that calls c.Next() to
// continue the chain, or c.Abort() to stop processing.
package middleware

import "github.com/gin-gonic/gin"

// callerContextKey is where the authenticated caller's ID is stored.
const callerContextKey = "caller"

// AnonymousCaller owns every session when authentication is disabled.
const AnonymousCaller = "anonymous"

// NoAuth returns middleware for local development: every request is the
// same anonymous caller.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(callerContextKey, AnonymousCaller)
		c.Next()
	}
}

// GetCaller retrieves the caller ID set by the auth middleware.
func GetCaller(c *gin.Context) string {
	val, exists := c.Get(callerContextKey)
	if !exists {
		return ""
	}
	// Go Pattern: The comma-ok type assertion won't panic on a wrong type.
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
