package domain

import (
	"time"

	"github.com/google/uuid"
)

type Folder string

const (
	FolderInbox  Folder = "inbox"
	FolderSent   Folder = "sent"
	FolderDrafts Folder = "drafts"
	FolderTrash  Folder = "trash"
	FolderSpam   Folder = "spam"
)

// SyncFolders are the folders one sync attempt traverses, in order.
// Fixed in the current design; not configurable.
var SyncFolders = []Folder{FolderInbox, FolderSent}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority converts a string to Priority, defaulting to Normal.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

type Category string

const (
	CategoryGeneral    Category = "general"
	CategoryMeeting    Category = "meeting"
	CategoryProject    Category = "project"
	CategoryDecision   Category = "decision"
	CategoryAction     Category = "action"
	CategoryReport     Category = "report"
	CategoryFYI        Category = "fyi"
	CategoryNewsletter Category = "newsletter"
)

// ParseCategory converts a string to Category, defaulting to General.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryGeneral, CategoryMeeting, CategoryProject, CategoryDecision,
		CategoryAction, CategoryReport, CategoryFYI, CategoryNewsletter:
		return Category(s)
	default:
		return CategoryGeneral
	}
}

type Sentiment string

const (
	SentimentVeryNegative Sentiment = "very_negative"
	SentimentNegative     Sentiment = "negative"
	SentimentNeutral      Sentiment = "neutral"
	SentimentPositive     Sentiment = "positive"
	SentimentVeryPositive Sentiment = "very_positive"
)

// ParseSentiment converts a string to Sentiment, defaulting to Neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentVeryNegative, SentimentNegative, SentimentNeutral,
		SentimentPositive, SentimentVeryPositive:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

// EmailMessage is one synced email. MessageId is the provider-assigned id
// and the global dedup key: persisting a duplicate is a no-op.
type EmailMessage struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	UserID    uuid.UUID `json:"user_id"`
	MessageID string    `json:"message_id"`

	Subject     string   `json:"subject"`
	FromAddress string   `json:"from_address"`
	ToAddresses []string `json:"to_addresses"`
	CcAddresses []string `json:"cc_addresses,omitempty"`

	SentAt     time.Time `json:"sent_at"`
	ReceivedAt time.Time `json:"received_at"`

	BodyText    string `json:"body_text"`
	BodyHTML    string `json:"body_html,omitempty"`
	BodyPreview string `json:"body_preview"`

	Folder         Folder `json:"folder"`
	IsRead         bool   `json:"is_read"`
	IsFlagged      bool   `json:"is_flagged"`
	IsDraft        bool   `json:"is_draft"`
	HasAttachments bool   `json:"has_attachments"`

	AI AIBlock `json:"ai"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AIBlock holds the classification results attached to a message.
type AIBlock struct {
	Priority            Priority   `json:"priority"`
	Category            Category   `json:"category"`
	Sentiment           Sentiment  `json:"sentiment"`
	ContainsActionItems bool       `json:"contains_action_items"`
	RequiresResponse    bool       `json:"requires_response"`
	SuggestedResponseBy *time.Time `json:"suggested_response_by,omitempty"`
	Summary             string     `json:"summary"`
	Keywords            []string   `json:"keywords,omitempty"`
	ActionItems         []string   `json:"action_items,omitempty"`
	Confidence          float64    `json:"confidence"`
	IsProcessed         bool       `json:"is_processed"`
}

// ApplyClassification copies a classification result onto the message.
func (m *EmailMessage) ApplyClassification(c *Classification) {
	m.AI = AIBlock{
		Priority:            c.Priority,
		Category:            c.Category,
		Sentiment:           c.Sentiment,
		ContainsActionItems: c.ContainsActionItems,
		RequiresResponse:    c.RequiresResponse,
		SuggestedResponseBy: c.SuggestedResponseBy,
		Summary:             c.Summary,
		Keywords:            c.Keywords,
		ActionItems:         c.ActionItems,
		Confidence:          c.Confidence,
		IsProcessed:         true,
	}
}

// MessageFilter narrows message queries.
type MessageFilter struct {
	AccountID *int64
	Folder    *Folder
	Category  *Category
	Priority  *Priority
	IsRead    *bool
	Search    *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}
