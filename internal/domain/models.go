// Package domain defines the persistence models for users, chats, messages,
// and the satellite records hanging off them (attachments, connectors,
// scheduled tasks, API keys, shares). These types are mapped with GORM and
// form the core data layer of the chat backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// User is the account record for both anonymous and authenticated callers.
// It is created on demand the first time an identity touches a metered
// operation and carries the usage counters consulted by the quota gate.
//
// Fields:
//   - ID: identity issued by the auth provider (or an anonymous session id).
//   - IsAnonymous: true for guest sessions; selects the anonymous quota tier.
//   - IsPremium / PlanRenewsAt: subscription state maintained by billing webhooks.
//   - Daily*/Monthly*: message counters and the instant they roll over.
//   - PremiumCreditsUsed / PremiumResetAt: secondary quota for premium models.
type User struct {
	ID           string     `json:"id"           gorm:"type:varchar(64);primaryKey"`
	Email        string     `json:"email,omitempty" gorm:"type:varchar(320);index"`
	IsAnonymous  bool       `json:"is_anonymous" gorm:"not null;default:false"`
	IsPremium    bool       `json:"is_premium"   gorm:"not null;default:false"`
	PlanRenewsAt *time.Time `json:"plan_renews_at,omitempty"`

	DailyMessageCount   int       `json:"daily_message_count"   gorm:"not null;default:0"`
	DailyResetAt        time.Time `json:"daily_reset_at"`
	MonthlyMessageCount int       `json:"monthly_message_count" gorm:"not null;default:0"`
	MonthlyResetAt      time.Time `json:"monthly_reset_at"`
	PremiumCreditsUsed  int       `json:"premium_credits_used"  gorm:"not null;default:0"`
	PremiumResetAt      time.Time `json:"premium_reset_at"`

	Preferences datatypes.JSONType[Preferences] `json:"preferences"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Preferences holds per-user UI and model defaults.
type Preferences struct {
	DefaultModel       string `json:"default_model,omitempty"`
	Theme              string `json:"theme,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
	ShowReasoning      bool   `json:"show_reasoning,omitempty"`
}

// Chat represents a conversation owned by a user.
//
// A chat created by branching points back at its source through ParentChatID
// and remembers the message it was cut at in BranchedFromMessageID.
type Chat struct {
	ID                    string     `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID                string     `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_chats"`
	Title                 string     `json:"title"      gorm:"type:varchar(255);not null;default:'New chat'"`
	Model                 string     `json:"model,omitempty" gorm:"type:varchar(128)"`
	SystemPrompt          string     `json:"system_prompt,omitempty" gorm:"type:text"`
	ParentChatID          *string    `json:"parent_chat_id,omitempty" gorm:"type:char(36);index"`
	BranchedFromMessageID *string    `json:"branched_from_message_id,omitempty" gorm:"type:char(36)"`
	IsPinned              bool       `json:"is_pinned"  gorm:"not null;default:false"`
	PinnedAt              *time.Time `json:"pinned_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message is a single node in a chat's message tree. ParentMessageID links a
// reply to the message it answers; regenerated replies are siblings sharing
// the same parent.
type Message struct {
	ID              string                              `json:"id"        gorm:"type:char(36);primaryKey"`
	ChatID          string                              `json:"chat_id"   gorm:"type:char(36);not null;index:idx_chat_msgs,priority:1"`
	UserID          *string                             `json:"user_id,omitempty" gorm:"type:varchar(64)"`
	Role            string                              `json:"role"      gorm:"type:varchar(16);not null;check:role IN ('user','assistant','system')"`
	Content         string                              `json:"content"   gorm:"type:text;not null"`
	Parts           datatypes.JSONSlice[Part]           `json:"parts,omitempty"`
	ParentMessageID *string                             `json:"parent_message_id,omitempty" gorm:"type:char(36);index"`
	Metadata        datatypes.JSONType[MessageMetadata] `json:"metadata"`
	CreatedAt       time.Time                           `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`
	UpdatedAt       time.Time                           `json:"updated_at"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// MessageMetadata records how an assistant message was produced.
type MessageMetadata struct {
	Model           string `json:"model,omitempty"`
	Provider        string `json:"provider,omitempty"`
	InputTokens     int    `json:"input_tokens,omitempty"`
	OutputTokens    int    `json:"output_tokens,omitempty"`
	ReasoningTokens int    `json:"reasoning_tokens,omitempty"`
	DurationMs      int64  `json:"duration_ms,omitempty"`
	Cached          bool   `json:"cached,omitempty"`
	UserKey         bool   `json:"user_key,omitempty"`
}

// Part kinds.
const (
	PartText           = "text"
	PartReasoning      = "reasoning"
	PartToolInvocation = "tool-invocation"
	PartFile           = "file"
	PartSource         = "source"
)

// Part is one element of a message's structured content. Only the fields
// relevant to Type are populated.
type Part struct {
	Type string `json:"type"`

	// text / reasoning
	Text string `json:"text,omitempty"`

	// tool-invocation
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	Input      any    `json:"input,omitempty"`
	Output     any    `json:"output,omitempty"`
	Error      any    `json:"error,omitempty"`

	// file
	URL       string `json:"url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Filename  string `json:"filename,omitempty"`

	// source
	SourceID string `json:"source_id,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Feedback represents a user-provided rating on a specific assistant message.
// A user can only leave one feedback entry per message (enforced by unique index).
type Feedback struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	MessageID string    `json:"message_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_message_user"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_message_user"`
	Value     int       `json:"value"      gorm:"not null;check:value IN (-1,1)"`
	Comment   string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Message Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }
