package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa-backend/internal/shared/server/middleware"
	"docqa-backend/internal/shared/server/respond"
)

type meResponse struct {
	UserID  string `json:"userId"`
	IsGuest bool   `json:"isGuest"`
	GuestID string `json:"guestId,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// meHandler echoes the identity the auth middleware resolved for this request.
func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
		return
	}

	resp := meResponse{
		UserID:  userID,
		IsGuest: c.GetBool("isGuest"),
		Email:   middleware.UserEmailFromContext(c),
		Name:    middleware.UserNameFromContext(c),
	}
	if resp.IsGuest {
		resp.GuestID = strings.TrimPrefix(userID, "guest:")
	}
	respond.OK(c, resp)
}
