package models

import (
	"gorm.io/gorm"

	"github.com/godaddy/spree-ccavenue-api/ccavenue"
)

// GatewaySettings is the singleton row holding the merchant's CCAvenue
// credentials and endpoint configuration. Admins edit it through the
// settings endpoint; the working key never leaves the server.
type GatewaySettings struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	MerchantID    string `gorm:"size:191" json:"merchant_id" validate:"required"`
	AccessCode    string `gorm:"size:191" json:"access_code" validate:"required"`
	EncryptionKey string `gorm:"size:191" json:"-" validate:"required"`
	TestMode      bool   `gorm:"not null;default:false" json:"test_mode"`

	// Optional endpoint overrides; empty means the built-in URL table.
	TransactionURL string `gorm:"type:text" json:"transaction_url,omitempty" validate:"omitempty,url"`
	APIURL         string `gorm:"type:text" json:"api_url,omitempty" validate:"omitempty,url"`
	SignupURL      string `gorm:"type:text" json:"signup_url,omitempty" validate:"omitempty,url"`
}

func (GatewaySettings) TableName() string { return "gateway_settings" }

// Configured reports whether a full credential set has been saved. Payment
// initiation is blocked entirely until it has.
func (gs *GatewaySettings) Configured() bool {
	return gs != nil && gs.MerchantID != "" && gs.AccessCode != "" && gs.EncryptionKey != ""
}

// ClientConfig maps the persisted settings onto a gateway client config.
func (gs *GatewaySettings) ClientConfig() ccavenue.Config {
	return ccavenue.Config{
		MerchantID:     gs.MerchantID,
		AccessCode:     gs.AccessCode,
		WorkingKey:     gs.EncryptionKey,
		TestMode:       gs.TestMode,
		TransactionURL: gs.TransactionURL,
		APIURL:         gs.APIURL,
		SignupURL:      gs.SignupURL,
	}
}

// GetGatewaySettings loads the singleton settings row.
func GetGatewaySettings(db *gorm.DB) (*GatewaySettings, error) {
	var gs GatewaySettings
	if err := db.First(&gs).Error; err != nil {
		return nil, err
	}
	return &gs, nil
}
