package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/godaddy/spree-ccavenue-api/database"
)

// Admin is a back-office operator account. Admins manage gateway settings
// and inspect payment transactions; there is no customer login.
type Admin struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"unique;not null"`
	Password  string    `json:"-" gorm:"not null"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email" gorm:"unique"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HashPassword replaces the plaintext password with its bcrypt hash
func (a *Admin) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashed)
	return nil
}

// ValidatePassword checks the provided password against the stored hash
func (a *Admin) ValidatePassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) == nil
}

// GetAdminByUsername retrieves an active admin by username
func GetAdminByUsername(username string) (*Admin, error) {
	var admin Admin
	if err := database.DB.Where("username = ? AND is_active = ?", username, true).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
