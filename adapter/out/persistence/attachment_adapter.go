package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

// =============================================================================
// Attachment Adapter (PostgreSQL)
// =============================================================================

// AttachmentAdapter implements out.AttachmentRepository.
type AttachmentAdapter struct {
	db *sqlx.DB
}

func NewAttachmentAdapter(db *sqlx.DB) *AttachmentAdapter {
	return &AttachmentAdapter{db: db}
}

type attachmentRow struct {
	ID        int64 `db:"id"`
	MessageID int64 `db:"message_id"`

	Filename    string         `db:"filename"`
	ContentType string         `db:"content_type"`
	Size        int64          `db:"size"`
	StoragePath sql.NullString `db:"storage_path"`

	Status          string         `db:"status"`
	ProcessingError sql.NullString `db:"processing_error"`

	ExtractedText sql.NullString `db:"extracted_text"`
	Summary       sql.NullString `db:"summary"`
	Keywords      pq.StringArray `db:"keywords"`
	Category      sql.NullString `db:"category"`
	Confidence    float64        `db:"confidence"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *attachmentRow) toEntity() *domain.EmailAttachment {
	return &domain.EmailAttachment{
		ID:              r.ID,
		MessageID:       r.MessageID,
		Filename:        r.Filename,
		ContentType:     r.ContentType,
		Size:            r.Size,
		StoragePath:     r.StoragePath.String,
		Status:          domain.ProcessingStatus(r.Status),
		ProcessingError: r.ProcessingError.String,
		ExtractedText:   r.ExtractedText.String,
		Summary:         r.Summary.String,
		Keywords:        r.Keywords,
		Category:        domain.DocumentCategory(r.Category.String),
		Confidence:      r.Confidence,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (a *AttachmentAdapter) Create(ctx context.Context, att *domain.EmailAttachment) error {
	query := `
		INSERT INTO email_attachments (
			message_id, filename, content_type, size, storage_path,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`

	status := att.Status
	if status == "" {
		status = domain.ProcessingPending
	}

	err := a.db.QueryRowxContext(ctx, query,
		att.MessageID, att.Filename, att.ContentType, att.Size,
		nullString(att.StoragePath), string(status),
	).Scan(&att.ID)
	if err != nil {
		return apperr.DatabaseError("failed to insert attachment", err)
	}
	return nil
}

func (a *AttachmentAdapter) Update(ctx context.Context, att *domain.EmailAttachment) error {
	query := `
		UPDATE email_attachments SET
			status = $2, processing_error = $3,
			extracted_text = $4, summary = $5, keywords = $6,
			category = $7, confidence = $8,
			updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query,
		att.ID,
		string(att.Status), nullString(att.ProcessingError),
		nullString(att.ExtractedText), nullString(att.Summary), pq.Array(att.Keywords),
		nullString(string(att.Category)), att.Confidence,
	)
	if err != nil {
		return apperr.DatabaseError("failed to update attachment", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperr.NotFound(fmt.Sprintf("attachment %d not found", att.ID))
	}
	return nil
}

func (a *AttachmentAdapter) GetByMessageID(ctx context.Context, messageID int64) ([]*domain.EmailAttachment, error) {
	query := `
		SELECT id, message_id, filename, content_type, size, storage_path,
		       status, processing_error, extracted_text, summary, keywords,
		       category, confidence, created_at, updated_at
		FROM email_attachments
		WHERE message_id = $1
		ORDER BY id ASC`

	var rows []attachmentRow
	if err := a.db.SelectContext(ctx, &rows, query, messageID); err != nil {
		return nil, apperr.DatabaseError("failed to list attachments", err)
	}

	attachments := make([]*domain.EmailAttachment, 0, len(rows))
	for i := range rows {
		attachments = append(attachments, rows[i].toEntity())
	}
	return attachments, nil
}
