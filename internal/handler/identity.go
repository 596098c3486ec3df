package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tractorbid/internal/models"
	"tractorbid/internal/repository"
)

const currentUserKey = "current_user"

// Identity resolves the caller from the X-User-ID header set by the edge
// gateway after session validation. Requests without the header stay
// anonymous; read endpoints decide per-endpoint whether that is acceptable.
func Identity(repo repository.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if raw == "" {
			c.Next()
			return
		}
		id := parseUint64(raw)
		if id == 0 {
			Error(c, http.StatusUnauthorized, "invalid user id", nil)
			c.Abort()
			return
		}
		user, err := repo.GetUserByID(c.Request.Context(), id)
		if err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			c.Abort()
			return
		}
		if user == nil {
			Error(c, http.StatusUnauthorized, "unknown user", nil)
			c.Abort()
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the resolved caller, nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// requireUser aborts with 401 when the request is anonymous.
func requireUser(c *gin.Context) (*models.User, bool) {
	user := CurrentUser(c)
	if user == nil {
		Error(c, http.StatusUnauthorized, "authentication required", nil)
		return nil, false
	}
	return user, true
}
