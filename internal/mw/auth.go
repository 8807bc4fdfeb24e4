package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"table-booking-backend/internal/auth"
	"table-booking-backend/internal/rejection"
)

const principalKey = "principal"

// Authenticate resolves the caller from an "Authorization: Bearer" header or,
// failing that, the session cookie. Requests without valid credentials are
// rejected with UNAUTHENTICATED.
func Authenticate(gate auth.Gate, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := gate.Authenticate(credentials(c, cookieName))
		if err != nil {
			abortWith(c, http.StatusUnauthorized, rejection.Unauthenticated, "authentication required")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// AdminRequired must run after Authenticate.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p.IsZero() {
			abortWith(c, http.StatusUnauthorized, rejection.Unauthenticated, "authentication required")
			return
		}
		if !p.IsAdmin() {
			abortWith(c, http.StatusForbidden, rejection.Unauthorized, "admin role required")
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Authenticate, or the zero Principal.
func PrincipalFrom(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Principal{}
}

func credentials(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookieName != "" {
		if token, err := c.Cookie(cookieName); err == nil {
			return token
		}
	}
	return ""
}

func abortWith(c *gin.Context, status int, reason rejection.Reason, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"reason": reason, "message": message}})
}
