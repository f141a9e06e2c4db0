// Package persistence provides PostgreSQL adapters implementing outbound ports.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

// =============================================================================
// Message Adapter (PostgreSQL)
// =============================================================================

// MessageAdapter implements out.MessageRepository. Dedup on the provider
// message id is enforced here by the unique index on
// (account_id, message_id): a duplicate insert is a no-op, not an error.
type MessageAdapter struct {
	db *sqlx.DB
}

func NewMessageAdapter(db *sqlx.DB) *MessageAdapter {
	return &MessageAdapter{db: db}
}

// =============================================================================
// Row Mapping
// =============================================================================

const messageSelectColumns = `
	e.id, e.account_id, e.user_id, e.message_id,
	e.subject, e.from_address, e.to_addresses, e.cc_addresses,
	e.sent_at, e.received_at,
	e.body_text, e.body_html, e.body_preview,
	e.folder, e.is_read, e.is_flagged, e.is_draft, e.has_attachments,
	e.ai_priority, e.ai_category, e.ai_sentiment,
	e.ai_contains_action_items, e.ai_requires_response, e.ai_suggested_response_by,
	e.ai_summary, e.ai_keywords, e.ai_action_items, e.ai_confidence, e.ai_is_processed,
	e.created_at, e.updated_at`

type messageRow struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	UserID    uuid.UUID `db:"user_id"`
	MessageID string    `db:"message_id"`

	Subject     string         `db:"subject"`
	FromAddress string         `db:"from_address"`
	ToAddresses pq.StringArray `db:"to_addresses"`
	CcAddresses pq.StringArray `db:"cc_addresses"`

	SentAt     time.Time `db:"sent_at"`
	ReceivedAt time.Time `db:"received_at"`

	BodyText    string         `db:"body_text"`
	BodyHTML    sql.NullString `db:"body_html"`
	BodyPreview string         `db:"body_preview"`

	Folder         string `db:"folder"`
	IsRead         bool   `db:"is_read"`
	IsFlagged      bool   `db:"is_flagged"`
	IsDraft        bool   `db:"is_draft"`
	HasAttachments bool   `db:"has_attachments"`

	AIPriority            string         `db:"ai_priority"`
	AICategory            string         `db:"ai_category"`
	AISentiment           string         `db:"ai_sentiment"`
	AIContainsActionItems bool           `db:"ai_contains_action_items"`
	AIRequiresResponse    bool           `db:"ai_requires_response"`
	AISuggestedResponseBy sql.NullTime   `db:"ai_suggested_response_by"`
	AISummary             sql.NullString `db:"ai_summary"`
	AIKeywords            pq.StringArray `db:"ai_keywords"`
	AIActionItems         pq.StringArray `db:"ai_action_items"`
	AIConfidence          float64        `db:"ai_confidence"`
	AIIsProcessed         bool           `db:"ai_is_processed"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// messageRowWithCount carries the COUNT(*) OVER() window result for paged
// queries so list and total come back in one round trip.
type messageRowWithCount struct {
	messageRow
	TotalCount int `db:"total_count"`
}

func (r *messageRow) toEntity() *domain.EmailMessage {
	msg := &domain.EmailMessage{
		ID:          r.ID,
		AccountID:   r.AccountID,
		UserID:      r.UserID,
		MessageID:   r.MessageID,
		Subject:     r.Subject,
		FromAddress: r.FromAddress,
		ToAddresses: r.ToAddresses,
		CcAddresses: r.CcAddresses,
		SentAt:      r.SentAt,
		ReceivedAt:  r.ReceivedAt,
		BodyText:    r.BodyText,
		BodyHTML:    r.BodyHTML.String,
		BodyPreview: r.BodyPreview,

		Folder:         domain.Folder(r.Folder),
		IsRead:         r.IsRead,
		IsFlagged:      r.IsFlagged,
		IsDraft:        r.IsDraft,
		HasAttachments: r.HasAttachments,

		AI: domain.AIBlock{
			Priority:            domain.ParsePriority(r.AIPriority),
			Category:            domain.ParseCategory(r.AICategory),
			Sentiment:           domain.ParseSentiment(r.AISentiment),
			ContainsActionItems: r.AIContainsActionItems,
			RequiresResponse:    r.AIRequiresResponse,
			Summary:             r.AISummary.String,
			Keywords:            r.AIKeywords,
			ActionItems:         r.AIActionItems,
			Confidence:          r.AIConfidence,
			IsProcessed:         r.AIIsProcessed,
		},

		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.AISuggestedResponseBy.Valid {
		t := r.AISuggestedResponseBy.Time
		msg.AI.SuggestedResponseBy = &t
	}
	return msg
}

// =============================================================================
// Queries
// =============================================================================

func (a *MessageAdapter) Exists(ctx context.Context, accountID int64, messageID string) (bool, error) {
	var exists bool
	err := a.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM emails WHERE account_id = $1 AND message_id = $2)`,
		accountID, messageID)
	if err != nil {
		return false, apperr.DatabaseError("failed to check message existence", err)
	}
	return exists, nil
}

// Add inserts the message and backfills its generated id. The ON CONFLICT
// clause makes a duplicate a silent no-op; the caller's counters treat it
// the same as a skip.
func (a *MessageAdapter) Add(ctx context.Context, msg *domain.EmailMessage) error {
	query := `
		INSERT INTO emails (
			account_id, user_id, message_id,
			subject, from_address, to_addresses, cc_addresses,
			sent_at, received_at,
			body_text, body_html, body_preview,
			folder, is_read, is_flagged, is_draft, has_attachments,
			ai_priority, ai_category, ai_sentiment,
			ai_contains_action_items, ai_requires_response, ai_suggested_response_by,
			ai_summary, ai_keywords, ai_action_items, ai_confidence, ai_is_processed,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
			NOW(), NOW()
		)
		ON CONFLICT (account_id, message_id) DO NOTHING
		RETURNING id`

	err := a.db.QueryRowxContext(ctx, query,
		msg.AccountID, msg.UserID, msg.MessageID,
		msg.Subject, msg.FromAddress, pq.Array(msg.ToAddresses), pq.Array(msg.CcAddresses),
		msg.SentAt, msg.ReceivedAt,
		msg.BodyText, nullString(msg.BodyHTML), msg.BodyPreview,
		string(msg.Folder), msg.IsRead, msg.IsFlagged, msg.IsDraft, msg.HasAttachments,
		string(msg.AI.Priority), string(msg.AI.Category), string(msg.AI.Sentiment),
		msg.AI.ContainsActionItems, msg.AI.RequiresResponse, msg.AI.SuggestedResponseBy,
		nullString(msg.AI.Summary), pq.Array(msg.AI.Keywords), pq.Array(msg.AI.ActionItems),
		msg.AI.Confidence, msg.AI.IsProcessed,
	).Scan(&msg.ID)

	if errors.Is(err, sql.ErrNoRows) {
		// Conflict path: the row already exists.
		return nil
	}
	if err != nil {
		return apperr.DatabaseError("failed to insert message", err)
	}
	return nil
}

func (a *MessageAdapter) Update(ctx context.Context, msg *domain.EmailMessage) error {
	query := `
		UPDATE emails SET
			is_read = $2, is_flagged = $3,
			ai_priority = $4, ai_category = $5, ai_sentiment = $6,
			ai_contains_action_items = $7, ai_requires_response = $8, ai_suggested_response_by = $9,
			ai_summary = $10, ai_keywords = $11, ai_action_items = $12,
			ai_confidence = $13, ai_is_processed = $14,
			updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query,
		msg.ID,
		msg.IsRead, msg.IsFlagged,
		string(msg.AI.Priority), string(msg.AI.Category), string(msg.AI.Sentiment),
		msg.AI.ContainsActionItems, msg.AI.RequiresResponse, msg.AI.SuggestedResponseBy,
		nullString(msg.AI.Summary), pq.Array(msg.AI.Keywords), pq.Array(msg.AI.ActionItems),
		msg.AI.Confidence, msg.AI.IsProcessed,
	)
	if err != nil {
		return apperr.DatabaseError("failed to update message", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperr.NotFound(fmt.Sprintf("message %d not found", msg.ID))
	}
	return nil
}

func (a *MessageAdapter) Query(ctx context.Context, userID uuid.UUID, filter *domain.MessageFilter) ([]*domain.EmailMessage, int, error) {
	var (
		conditions = []string{"e.user_id = $1"}
		args       = []any{userID}
	)
	if filter == nil {
		filter = &domain.MessageFilter{}
	}

	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.AccountID != nil {
		addCondition("e.account_id = $%d", *filter.AccountID)
	}
	if filter.Folder != nil {
		addCondition("e.folder = $%d", string(*filter.Folder))
	}
	if filter.Category != nil {
		addCondition("e.ai_category = $%d", string(*filter.Category))
	}
	if filter.Priority != nil {
		addCondition("e.ai_priority = $%d", string(*filter.Priority))
	}
	if filter.IsRead != nil {
		addCondition("e.is_read = $%d", *filter.IsRead)
	}
	if filter.Search != nil && *filter.Search != "" {
		addCondition("(e.subject ILIKE $%d OR e.body_preview ILIKE $%[1]d)", "%"+*filter.Search+"%")
	}
	if filter.DateFrom != nil {
		addCondition("e.received_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		addCondition("e.received_at <= $%d", *filter.DateTo)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM emails e
		WHERE %s
		ORDER BY e.received_at DESC
		LIMIT %d OFFSET %d`,
		messageSelectColumns, strings.Join(conditions, " AND "), limit, filter.Offset)

	var rows []messageRowWithCount
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperr.DatabaseError("failed to query messages", err)
	}

	messages := make([]*domain.EmailMessage, 0, len(rows))
	total := 0
	for i := range rows {
		messages = append(messages, rows[i].toEntity())
		total = rows[i].TotalCount
	}
	return messages, total, nil
}

func (a *MessageAdapter) ListUnprocessed(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]*domain.EmailMessage, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM emails e
		WHERE e.user_id = $1 AND e.created_at >= $2 AND e.ai_is_processed = FALSE
		ORDER BY e.created_at ASC
		LIMIT $3`, messageSelectColumns)

	var rows []messageRow
	if err := a.db.SelectContext(ctx, &rows, query, userID, since, limit); err != nil {
		return nil, apperr.DatabaseError("failed to list unprocessed messages", err)
	}

	messages := make([]*domain.EmailMessage, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].toEntity())
	}
	return messages, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
