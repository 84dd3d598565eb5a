// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for scheduled
// tasks and their execution history.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// CreateTask inserts t, assigning an ID and timestamps when unset.
func CreateTask(ctx context.Context, db *gorm.DB, t *domain.ScheduledTask) error {
	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	return db.WithContext(ctx).Create(t).Error
}

// GetTask fetches an owned task.
func GetTask(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ScheduledTask, error) {
	var t domain.ScheduledTask
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns the tasks of a user, soonest next run first.
func ListTasks(ctx context.Context, db *gorm.DB, userID string) ([]domain.ScheduledTask, error) {
	var out []domain.ScheduledTask
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_active DESC, next_run_at ASC, created_at DESC").
		Find(&out).Error
	return out, err
}

// SaveTask writes every column of an owned task.
func SaveTask(ctx context.Context, db *gorm.DB, t *domain.ScheduledTask) error {
	t.UpdatedAt = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.ScheduledTask{}).
		Where("id = ? AND user_id = ?", t.ID, t.UserID).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteTask removes an owned task and its history.
func DeleteTask(ctx context.Context, tx *gorm.DB, id, userID string) error {
	tx = tx.WithContext(ctx)
	if _, err := GetTask(ctx, tx, id, userID); err != nil {
		return err
	}
	if err := tx.Where("task_id = ?", id).Delete(&domain.TaskHistory{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.ScheduledTask{}).Error
}

// DueTasks returns active tasks whose next run is at or before now.
func DueTasks(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.ScheduledTask, error) {
	var out []domain.ScheduledTask
	q := db.WithContext(ctx).
		Where("is_active = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ClaimTask advances a due task from prev to next in one conditional update.
// It reports false when another worker already advanced it. A nil next
// deactivates the task.
func ClaimTask(ctx context.Context, db *gorm.DB, id string, prev time.Time, next *time.Time, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ScheduledTask{}).
		Where("id = ? AND is_active = ? AND next_run_at = ?", id, true, prev).
		Updates(map[string]any{
			"next_run_at": next,
			"is_active":   next != nil,
			"last_run_at": now,
			"run_count":   gorm.Expr("run_count + 1"),
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// StartTaskHistory records the start of an execution.
func StartTaskHistory(ctx context.Context, db *gorm.DB, taskID, userID string, at time.Time) (*domain.TaskHistory, error) {
	h := &domain.TaskHistory{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    userID,
		Status:    domain.TaskRunning,
		StartedAt: at,
	}
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, err
	}
	return h, nil
}

// FinishTaskHistory stores the outcome of an execution.
func FinishTaskHistory(ctx context.Context, db *gorm.DB, id, status string, chatID *string, errMsg string, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.TaskHistory{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"chat_id":     chatID,
			"error":       errMsg,
			"finished_at": at,
		}).Error
}

// ListTaskHistory returns the most recent executions of an owned task.
func ListTaskHistory(ctx context.Context, db *gorm.DB, taskID, userID string, limit int) ([]domain.TaskHistory, error) {
	var out []domain.TaskHistory
	q := db.WithContext(ctx).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Order("started_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
