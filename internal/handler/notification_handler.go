package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tractorbid/internal/repository"
)

type NotificationHandler struct {
	Repo repository.Repository
}

func (h *NotificationHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/notifications", h.list)
}

// list returns the caller's notifications. Admins may inspect another user's
// feed via the user_id query param.
func (h *NotificationHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	user, ok := requireUser(c)
	if !ok {
		return
	}

	userID := user.ID
	if user.IsAdmin() {
		if id := parseUint64(c.Query("user_id")); id > 0 {
			userID = id
		}
	}

	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListNotifications(c.Request.Context(), repository.ListNotificationsParams{
		Limit:  limit,
		Offset: offset,
		UserID: &userID,
		Kind:   strQueryPtr(c, "kind"),
		Status: strQueryPtr(c, "status"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"limit": limit, "offset": offset})
}
