package repo

import (
	"gorm.io/gorm"
)

// GormRepo is the persistence layer shared by the HTTP handlers and the
// product lifecycle services.
type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
