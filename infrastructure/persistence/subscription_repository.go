package persistence

import (
	"context"
	"errors"
	"fmt"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/configuration"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewBillingDB opens the MySQL billing database that owns subscriptions.
func NewBillingDB() (*gorm.DB, error) {
	cfg := configuration.C.Database.MySql
	if cfg.Host == "" {
		return nil, errors.New("billing database host not configured")
	}
	port := cfg.Port
	if port == "" {
		port = "3306"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC", cfg.User, cfg.Password, cfg.Host, port, cfg.Name)
	return gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

type SubscriptionRepository struct{ db *gorm.DB }

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetByOwner returns the newest subscription row for the owner, or nil when none exists.
func (r *SubscriptionRepository) GetByOwner(ctx context.Context, ownerID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("id DESC").First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

var _ repository.ISubscription = (*SubscriptionRepository)(nil)
