package domain

import "time"

// Recurrence values for ScheduledTask.
const (
	RecurOnce    = "once"
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

// Task run statuses.
const (
	TaskRunning   = "running"
	TaskSucceeded = "succeeded"
	TaskFailed    = "failed"
)

// ScheduledTask is a natural-language prompt executed on a recurrence.
//
// TimeOfDay is "HH:MM" in Timezone. Weekday (0=Sunday) applies to weekly
// tasks and MonthDay (1..31, clamped to the month length) to monthly ones.
// For "once" tasks NextRunAt is the single execution instant.
type ScheduledTask struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string     `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	Title      string     `json:"title"       gorm:"type:varchar(255);not null"`
	Prompt     string     `json:"prompt"      gorm:"type:text;not null"`
	Model      string     `json:"model,omitempty" gorm:"type:varchar(128)"`
	Recurrence string     `json:"recurrence"  gorm:"type:varchar(16);not null"`
	TimeOfDay  string     `json:"time_of_day" gorm:"type:varchar(5);not null"`
	Weekday    int        `json:"weekday"     gorm:"not null;default:0"`
	MonthDay   int        `json:"month_day"   gorm:"not null;default:1"`
	Timezone   string     `json:"timezone"    gorm:"type:varchar(64);not null;default:'UTC'"`
	IsActive   bool       `json:"is_active"   gorm:"not null;default:true;index:idx_task_due,priority:1"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty" gorm:"index:idx_task_due,priority:2"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	RunCount   int        `json:"run_count"   gorm:"not null;default:0"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ScheduledTask.
func (ScheduledTask) TableName() string { return "scheduled_tasks" }

// TaskHistory records one execution of a ScheduledTask.
type TaskHistory struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	TaskID     string     `json:"task_id"     gorm:"type:char(36);not null;index"`
	UserID     string     `json:"user_id"     gorm:"type:varchar(64);not null;index"`
	Status     string     `json:"status"      gorm:"type:varchar(16);not null"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ChatID     *string    `json:"chat_id,omitempty" gorm:"type:char(36)"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`

	Task ScheduledTask `json:"-" gorm:"foreignKey:TaskID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TaskHistory.
func (TaskHistory) TableName() string { return "task_history" }
