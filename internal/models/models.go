package models

import (
	"time"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string `gorm:"not null"                 json:"name"`
	Surname      string `gorm:"not null"                 json:"surname"`
	Email        string `gorm:"unique;not null"          json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

type Product struct {
	ID           int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Price        float64   `gorm:"not null"                 json:"price"`
	CreatorID    uint      `gorm:"index;not null"           json:"creator_id"`
	CreatorEmail string    `gorm:"not null"                 json:"creator_email"`
	IsActive     bool      `gorm:"not null"                 json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"     json:"created_at"`
}

type Comment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int       `gorm:"index;not null"           json:"product_id"`
	UserEmail string    `gorm:"not null"                 json:"user_email"`
	Text      string    `gorm:"not null"                 json:"text"`
	CreatedAt time.Time `gorm:"autoCreateTime"           json:"created_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}
