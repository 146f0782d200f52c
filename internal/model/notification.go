package model

import "time"

// Subscription links a user to a spot they want "spot is free" notifications for.
type Subscription struct {
	ID        int64 `gorm:"primaryKey"`
	UserID    int64 `gorm:"not null;uniqueIndex:idx_subscription_user_spot"`
	SpotID    int64 `gorm:"not null;uniqueIndex:idx_subscription_user_spot;index"`
	CreatedAt time.Time

	// Associations
	Spot Spot `gorm:"constraint:OnDelete:CASCADE"`
}

// SpotNotification is an active subscription as listed to its owner.
type SpotNotification struct {
	ID       int64  `json:"notificationId"`
	SpotName string `json:"parkingSpotName"`
}
