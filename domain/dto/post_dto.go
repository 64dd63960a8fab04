package dto

import "time"

type CreatePostRequest struct {
	Provider    string     `json:"provider" binding:"required"`
	Content     string     `json:"content" binding:"required"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

type UpdatePostRequest struct {
	Content     string     `json:"content" binding:"required"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

type SchedulePostRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}
