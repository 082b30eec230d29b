package admins

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/godaddy/spree-ccavenue-api/middleware"
	"github.com/godaddy/spree-ccavenue-api/models"
	"github.com/godaddy/spree-ccavenue-api/utils"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /api/admin/login
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Username and password are required",
		})
		return
	}

	if locked, ttl := middleware.IsLoginLocked(req.Username); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: fmt.Sprintf("Account temporarily locked. Try again in %d seconds", int(ttl.Seconds())+1),
		})
		return
	}

	admin, err := models.GetAdminByUsername(req.Username)
	if err != nil || !admin.ValidatePassword(req.Password) {
		middleware.RecordFailedLogin(req.Username)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}
	middleware.ResetFailedLogin(req.Username)

	token, err := utils.GenerateAdminToken(admin.ID, admin.Username)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to issue token",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Login successful",
		Data: map[string]interface{}{
			"token": token,
			"admin": admin,
		},
	})
}
