package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// User is an account known to the backend.
type User struct {
	ID              int64       `gorm:"primaryKey"`
	Email           null.String `gorm:"uniqueIndex;size:256"`
	FavouriteSpotID null.Int    `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FavouriteResult is the outcome of a favourite spot update.
type FavouriteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
