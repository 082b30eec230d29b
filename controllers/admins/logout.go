package admins

import (
	"net/http"
	"strings"
	"time"

	"github.com/godaddy/spree-ccavenue-api/utils"
)

// POST /api/admin/logout
// Revokes the presented token by blacklisting its jti until it expires.
func Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	_, claims, err := utils.ValidateAccessToken(tokenString)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Unauthorized: Invalid token",
		})
		return
	}

	jti, _ := claims["jti"].(string)
	ttl := time.Hour
	if expRaw, ok := claims["exp"].(float64); ok {
		if until := time.Until(time.Unix(int64(expRaw), 0)); until > 0 {
			ttl = until
		}
	}
	if err := utils.RevokeJTI(jti, ttl); err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to revoke token",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Logged out",
	})
}
