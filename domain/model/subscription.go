package model

import "time"

// Subscription is read from the billing database; this service never writes it.
type Subscription struct {
	ID               int64      `gorm:"primaryKey"`
	OwnerID          string     `gorm:"column:owner_id;index"`
	Plan             string     `gorm:"column:plan"`
	Status           string     `gorm:"column:status"`
	CurrentPeriodEnd *time.Time `gorm:"column:current_period_end"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) Active(now time.Time) bool {
	if s.Status != "active" && s.Status != "trialing" {
		return false
	}
	return s.CurrentPeriodEnd == nil || s.CurrentPeriodEnd.After(now)
}
