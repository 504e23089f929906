package models

import (
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the identity record the ledger reads names and emails from.
// Account management lives outside this service.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"not null" json:"-"`
	Name         string `gorm:"not null"`
	Phone        string `gorm:"index"`
	Role         string `gorm:"default:'user'"`
	Status       string `gorm:"default:'active'"`
	TokenVersion int    `gorm:"default:1"`
}
