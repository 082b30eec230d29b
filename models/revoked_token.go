package models

import "time"

// RevokedToken is the database fallback for JWT revocation when Redis is not
// configured. The primary key is the token's jti.
type RevokedToken struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	RevokedAt time.Time `json:"revoked_at"`
}

func (RevokedToken) TableName() string { return "revoked_tokens" }
