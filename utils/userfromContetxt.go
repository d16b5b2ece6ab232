package utils

import (
	"net/http"

	"agromart/globals"
	"agromart/models"
)

func GetUserIDFromRequest(r *http.Request) string {
	requestingUserID, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}

func GetRoleFromRequest(r *http.Request) models.Role {
	role, _ := r.Context().Value(globals.RoleKey).(models.Role)
	return role
}
