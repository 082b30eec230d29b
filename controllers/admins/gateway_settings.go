package admins

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/godaddy/spree-ccavenue-api/ccavenue"
	"github.com/godaddy/spree-ccavenue-api/database"
	"github.com/godaddy/spree-ccavenue-api/models"
	"github.com/godaddy/spree-ccavenue-api/utils"
)

type GatewaySettingsRequest struct {
	MerchantID string `json:"merchant_id" validate:"required"`
	AccessCode string `json:"access_code" validate:"required"`
	// Empty keeps the currently stored key; the key is never echoed back.
	EncryptionKey  string `json:"encryption_key"`
	TestMode       bool   `json:"test_mode"`
	TransactionURL string `json:"transaction_url" validate:"omitempty,url"`
	APIURL         string `json:"api_url" validate:"omitempty,url"`
	SignupURL      string `json:"signup_url" validate:"omitempty,url"`
}

func settingsResponse(gs *models.GatewaySettings) map[string]interface{} {
	return map[string]interface{}{
		"merchant_id":        gs.MerchantID,
		"access_code":        gs.AccessCode,
		"has_encryption_key": gs.EncryptionKey != "",
		"test_mode":          gs.TestMode,
		"transaction_url":    gs.TransactionURL,
		"api_url":            gs.APIURL,
		"signup_url":         gs.SignupURL,
		"configured":         gs.Configured(),
	}
}

// GET /api/admin/gateway_settings
func GetGatewaySettingsHandler(w http.ResponseWriter, r *http.Request) {
	gs, err := models.GetGatewaySettings(database.DB)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
				Success: true,
				Message: "Gateway is not configured yet",
				Data:    settingsResponse(&models.GatewaySettings{}),
			})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to load gateway settings",
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    settingsResponse(gs),
	})
}

// PUT /api/admin/gateway_settings
// Saves the credential set. Unless skip_validation=true, the candidate
// credentials are probed against the live API first and a failed probe
// refuses the save.
func UpdateGatewaySettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req GatewaySettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "merchant_id and access_code are required",
		})
		return
	}

	db := database.DB
	var gs models.GatewaySettings
	if err := db.First(&gs).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to load gateway settings",
		})
		return
	}

	gs.MerchantID = req.MerchantID
	gs.AccessCode = req.AccessCode
	if req.EncryptionKey != "" {
		gs.EncryptionKey = req.EncryptionKey
	}
	gs.TestMode = req.TestMode
	gs.TransactionURL = req.TransactionURL
	gs.APIURL = req.APIURL
	gs.SignupURL = req.SignupURL

	if !gs.Configured() {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "encryption_key is required",
		})
		return
	}

	warning := ""
	if r.URL.Query().Get("skip_validation") != "true" {
		check, err := probeCredentials(r.Context(), &gs)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
				Success: false,
				Message: "Credential check failed: " + err.Error(),
			})
			return
		}
		if !check.Valid {
			if !check.TransportOK {
				// Gateway unreachable; save anyway, the admin can re-validate later
				warning = "Saved, but the gateway could not be reached to verify the credentials"
			} else {
				utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.APIResponse{
					Success: false,
					Message: "The gateway rejected these credentials: " + check.Reason,
				})
				return
			}
		}
	}

	if err := db.Save(&gs).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to save gateway settings",
		})
		return
	}

	msg := "Gateway settings saved"
	if warning != "" {
		msg = warning
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: msg,
		Data:    settingsResponse(&gs),
	})
}

// POST /api/admin/gateway_settings/validate
// Probes the stored credentials against the live API without mutating state.
func ValidateGatewaySettingsHandler(w http.ResponseWriter, r *http.Request) {
	gs, err := models.GetGatewaySettings(database.DB)
	if err != nil || !gs.Configured() {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.APIResponse{
			Success: false,
			Message: "Gateway is not configured yet",
		})
		return
	}
	check, err := probeCredentials(r.Context(), gs)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Credential check failed: " + err.Error(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: check.Valid,
		Message: credentialCheckMessage(check),
		Data:    check,
	})
}

func probeCredentials(ctx context.Context, gs *models.GatewaySettings) (ccavenue.CredentialCheckResult, error) {
	client, err := ccavenue.NewClient(gs.ClientConfig())
	if err != nil {
		return ccavenue.CredentialCheckResult{}, err
	}
	return client.ValidateCredentials(ctx, gs.AccessCode, gs.EncryptionKey)
}

func credentialCheckMessage(check ccavenue.CredentialCheckResult) string {
	if check.Valid {
		return "Credentials verified against the gateway"
	}
	if !check.TransportOK {
		return "The gateway could not be reached: " + check.Reason
	}
	return "The gateway rejected the credentials: " + check.Reason
}
