package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/response"
)

// RequireRole admits only callers whose identity carries role.
// Must be mounted after RequireAuth; a missing identity is a 403.
func RequireRole(role model.Role) gin.HandlerFunc {
	return RequireAnyRole(role)
}

// RequireAnyRole admits callers holding at least one of roles.
func RequireAnyRole(roles ...model.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	required := strings.Join(names, ",")

	return func(c *gin.Context) {
		id := GetIdentity(c)
		if id == nil {
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}

		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}

		response.AbortFailWithFields(c, http.StatusForbidden, response.ErrForbidden,
			map[string]string{"required_role": required})
	}
}
