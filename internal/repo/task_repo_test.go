package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

func newTask(userID string, next *time.Time) *domain.ScheduledTask {
	return &domain.ScheduledTask{
		UserID: userID, Title: "digest", Prompt: "summarise", Recurrence: domain.RecurDaily,
		TimeOfDay: "09:00", Timezone: "UTC", IsActive: true, NextRunAt: next,
	}
}

func TestTasks_CRUD(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledTask{}, &domain.TaskHistory{})
	ctx := context.Background()
	next := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	task := newTask("u1", &next)
	if err := CreateTask(ctx, db, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if _, err := GetTask(ctx, db, task.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTask foreign: %v", err)
	}

	task.Title = "renamed"
	task.IsActive = false
	if err := SaveTask(ctx, db, task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	got, _ := GetTask(ctx, db, task.ID, "u1")
	if got.Title != "renamed" || got.IsActive {
		t.Fatalf("SaveTask did not persist zero values: %+v", got)
	}
	foreign := *task
	foreign.UserID = "u2"
	if err := SaveTask(ctx, db, &foreign); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SaveTask foreign: %v", err)
	}
	if list, _ := ListTasks(ctx, db, "u1"); len(list) != 1 {
		t.Fatalf("ListTasks = %d", len(list))
	}

	if _, err := StartTaskHistory(ctx, db, task.ID, "u1", time.Now().UTC()); err != nil {
		t.Fatalf("StartTaskHistory: %v", err)
	}
	if err := DeleteTask(ctx, db, task.ID, "u1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	var n int64
	db.Model(&domain.TaskHistory{}).Count(&n)
	if n != 0 {
		t.Fatalf("history not removed: %d", n)
	}
	if err := DeleteTask(ctx, db, task.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteTask: %v", err)
	}
}

func TestDueTasks_ClaimOnce(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledTask{}, &domain.TaskHistory{})
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := newTask("u1", &past)
	later := newTask("u1", &future)
	idle := newTask("u1", &past)
	for _, tk := range []*domain.ScheduledTask{due, later, idle} {
		if err := CreateTask(ctx, db, tk); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}
	idle.IsActive = false
	_ = SaveTask(ctx, db, idle)

	list, err := DueTasks(ctx, db, now, 10)
	if err != nil || len(list) != 1 || list[0].ID != due.ID {
		t.Fatalf("DueTasks = %+v err=%v", list, err)
	}

	next := now.Add(24 * time.Hour)
	ok, err := ClaimTask(ctx, db, due.ID, *list[0].NextRunAt, &next, now)
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = ClaimTask(ctx, db, due.ID, *list[0].NextRunAt, &next, now)
	if err != nil || ok {
		t.Fatalf("second claim must lose: ok=%v err=%v", ok, err)
	}
	got, _ := GetTask(ctx, db, due.ID, "u1")
	if got.RunCount != 1 || got.LastRunAt == nil || got.NextRunAt == nil || !got.NextRunAt.Equal(next) {
		t.Fatalf("claim did not advance task: %+v", got)
	}

	// nil next deactivates.
	ok, _ = ClaimTask(ctx, db, due.ID, next, nil, now)
	got, _ = GetTask(ctx, db, due.ID, "u1")
	if !ok || got.IsActive || got.NextRunAt != nil {
		t.Fatalf("once-style claim should deactivate: %+v", got)
	}
}

func TestTaskHistory_StartFinishList(t *testing.T) {
	db := newTestDB(t, &domain.ScheduledTask{}, &domain.TaskHistory{})
	ctx := context.Background()
	task := newTask("u1", nil)
	_ = CreateTask(ctx, db, task)

	t0 := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	h1, _ := StartTaskHistory(ctx, db, task.ID, "u1", t0)
	h2, _ := StartTaskHistory(ctx, db, task.ID, "u1", t0.Add(time.Hour))

	chatID := "c1"
	if err := FinishTaskHistory(ctx, db, h1.ID, domain.TaskSucceeded, &chatID, "", t0.Add(time.Minute)); err != nil {
		t.Fatalf("FinishTaskHistory: %v", err)
	}
	_ = FinishTaskHistory(ctx, db, h2.ID, domain.TaskFailed, nil, "boom", t0.Add(61*time.Minute))

	list, err := ListTaskHistory(ctx, db, task.ID, "u1", 10)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListTaskHistory = %+v err=%v", list, err)
	}
	if list[0].ID != h2.ID || list[0].Status != domain.TaskFailed || list[0].Error != "boom" {
		t.Fatalf("newest first expected: %+v", list[0])
	}
	if list[1].ChatID == nil || *list[1].ChatID != "c1" || list[1].FinishedAt == nil {
		t.Fatalf("finished row wrong: %+v", list[1])
	}
	if other, _ := ListTaskHistory(ctx, db, task.ID, "u2", 10); len(other) != 0 {
		t.Fatalf("history leaked to another user")
	}
}
