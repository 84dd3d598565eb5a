// Package services – TaskService
//
// TaskService manages scheduled prompts. A task stores a prompt and a
// recurrence; the scheduler runner picks due tasks and hands them back to
// TaskService.Execute, which answers the prompt in a fresh chat.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/scheduler"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TaskService implements task CRUD and the scheduler.Executor contract.
type TaskService struct {
	DB          *gorm.DB
	Models      ModelCatalog // nil accepts any model id
	Completions *CompletionService

	MaxPromptRunes int // 0 = 8000
	HistoryLimit   int // 0 = 50

	// Now is overridable in tests.
	Now func() time.Time
}

var _ scheduler.Executor = (*TaskService)(nil)

// TaskInput is the writable part of a task. IsActive nil means active.
type TaskInput struct {
	Title      string
	Prompt     string
	Model      string
	Recurrence string
	TimeOfDay  string
	Weekday    int
	MonthDay   int
	Timezone   string
	IsActive   *bool
}

func (s *TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create validates in, computes the first run and stores the task.
func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*domain.ScheduledTask, error) {
	tr := otel.Tracer("services/TaskService")
	ctx, span := tr.Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("task.recurrence", in.Recurrence),
	))
	defer span.End()

	t := &domain.ScheduledTask{UserID: userID}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if err := repo.CreateTask(ctx, s.DB, t); err != nil {
		return nil, err
	}
	// is_active defaults to true in the schema, so a paused task needs a
	// second write.
	if !t.IsActive {
		if err := repo.SaveTask(ctx, s.DB, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Update replaces the writable fields of an owned task. The next run is
// recomputed from now.
func (s *TaskService) Update(ctx context.Context, userID, id string, in TaskInput) (*domain.ScheduledTask, error) {
	tr := otel.Tracer("services/TaskService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("task.id", id),
	))
	defer span.End()

	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(t, in); err != nil {
		return nil, err
	}
	if err := repo.SaveTask(ctx, s.DB, t); err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// apply validates in and copies it onto t with a fresh NextRunAt.
func (s *TaskService) apply(t *domain.ScheduledTask, in TaskInput) error {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return fmt.Errorf("%w: prompt is required", ErrInvalidTask)
	}
	maxRunes := s.MaxPromptRunes
	if maxRunes <= 0 {
		maxRunes = 8000
	}
	if utf8.RuneCountInString(prompt) > maxRunes {
		return fmt.Errorf("%w: prompt too long", ErrInvalidTask)
	}
	model := strings.TrimSpace(in.Model)
	if model != "" && s.Models != nil && !s.Models.Known(model) {
		return ErrUnknownModel
	}
	title := Titles{}.Clean(in.Title, prompt)
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	monthDay := in.MonthDay
	if monthDay == 0 {
		monthDay = 1
	}
	sched := scheduler.Schedule{
		Recurrence: strings.ToLower(strings.TrimSpace(in.Recurrence)),
		TimeOfDay:  strings.TrimSpace(in.TimeOfDay),
		Weekday:    in.Weekday,
		MonthDay:   monthDay,
		Timezone:   tz,
	}
	next, err := sched.Next(s.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}

	t.Title = title
	t.Prompt = prompt
	t.Model = model
	t.Recurrence = sched.Recurrence
	t.TimeOfDay = sched.TimeOfDay
	t.Weekday = sched.Weekday
	t.MonthDay = sched.MonthDay
	t.Timezone = sched.Timezone
	t.IsActive = in.IsActive == nil || *in.IsActive
	t.NextRunAt = &next
	return nil
}

// Get returns an owned task.
func (s *TaskService) Get(ctx context.Context, userID, id string) (*domain.ScheduledTask, error) {
	t, err := repo.GetTask(ctx, s.DB, id, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns the tasks of a user.
func (s *TaskService) List(ctx context.Context, userID string) ([]domain.ScheduledTask, error) {
	return repo.ListTasks(ctx, s.DB, userID)
}

// Delete removes an owned task and its history.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.DeleteTask(ctx, tx, id, userID)
	})
	if isNotFound(err) {
		return ErrTaskNotFound
	}
	return err
}

// History returns the most recent executions of an owned task.
func (s *TaskService) History(ctx context.Context, userID, id string) ([]domain.TaskHistory, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	return repo.ListTaskHistory(ctx, s.DB, id, userID, limit)
}

// Execute runs one occurrence of task: a new chat titled after the task
// receives the prompt and the model's answer. The chat id is returned even
// when the completion fails so that the history row can point at it.
func (s *TaskService) Execute(ctx context.Context, task domain.ScheduledTask) (string, error) {
	tr := otel.Tracer("services/TaskService")
	ctx, span := tr.Start(ctx, "Execute", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("user.id", task.UserID),
	))
	defer span.End()

	who := Identity{UserID: task.UserID}
	if u, err := repo.GetUser(ctx, s.DB, task.UserID); err == nil {
		who.Email, who.Anonymous = u.Email, u.IsAnonymous
	}

	chat := &domain.Chat{UserID: task.UserID, Title: clipRunes(task.Title, 255), Model: task.Model}
	if err := repo.InsertChat(ctx, s.DB, chat); err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("chat.id", chat.ID))

	if _, err := s.Completions.Complete(ctx, who, chat.ID, CompletionRequest{Content: task.Prompt}); err != nil {
		return chat.ID, err
	}
	return chat.ID, nil
}

func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
