// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
)

// =============================================================================
// Message Repository Port (PostgreSQL)
// =============================================================================

// MessageRepository persists synced emails. Add must be idempotent on the
// provider MessageId: inserting a message whose (account_id, message_id)
// already exists is a no-op, enforced at the storage boundary so the
// check-then-insert in the orchestrator stays race-free if accounts are
// ever synced in parallel.
type MessageRepository interface {
	Exists(ctx context.Context, accountID int64, messageID string) (bool, error)
	Add(ctx context.Context, msg *domain.EmailMessage) error
	Update(ctx context.Context, msg *domain.EmailMessage) error
	Query(ctx context.Context, userID uuid.UUID, filter *domain.MessageFilter) ([]*domain.EmailMessage, int, error)

	// ListUnprocessed returns messages for the user created since the given
	// time whose AI block has not been filled in yet. Used by the batch
	// re-scan pass after a sync attempt.
	ListUnprocessed(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]*domain.EmailMessage, error)
}

// =============================================================================
// Account Registry Port
// =============================================================================

// AccountRepository resolves and persists email accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.EmailAccount, error)
	Update(ctx context.Context, account *domain.EmailAccount) error

	// GetAccountsNeedingSync returns active accounts whose last sync is
	// stale or has never run.
	GetAccountsNeedingSync(ctx context.Context) ([]*domain.EmailAccount, error)
}

// =============================================================================
// Attachment Repository Port
// =============================================================================

// AttachmentRepository persists attachment rows.
type AttachmentRepository interface {
	Create(ctx context.Context, att *domain.EmailAttachment) error
	Update(ctx context.Context, att *domain.EmailAttachment) error
	GetByMessageID(ctx context.Context, messageID int64) ([]*domain.EmailAttachment, error)
}

// =============================================================================
// Metrics Repository Port
// =============================================================================

// MetricsRepository reads historical metric series for forecasting.
type MetricsRepository interface {
	// GetSeries returns points for the metric in [start, end], ordered by
	// timestamp ascending.
	GetSeries(ctx context.Context, metric string, start, end time.Time) ([]domain.MetricPoint, error)
}

// =============================================================================
// Dedup Cache Port (Redis)
// =============================================================================

// DedupCache is a best-effort fast path in front of MessageRepository.Exists.
// A cache miss or cache error always falls through to the repository; the
// cache can never introduce duplicates, only save a query.
type DedupCache interface {
	Seen(ctx context.Context, accountID int64, messageID string) (bool, error)
	MarkSeen(ctx context.Context, accountID int64, messageID string) error
}

// =============================================================================
// Document Store Port (MongoDB)
// =============================================================================

// AttachmentTextStore keeps large derived text out of the relational store.
type AttachmentTextStore interface {
	SaveText(ctx context.Context, doc *AttachmentTextDoc) error
	GetText(ctx context.Context, attachmentID int64) (*AttachmentTextDoc, error)
}

// AttachmentTextDoc is the document-store record for one attachment.
type AttachmentTextDoc struct {
	AttachmentID int64     `bson:"attachment_id"`
	MessageID    int64     `bson:"message_id"`
	Text         string    `bson:"text"`
	Summary      string    `bson:"summary,omitempty"`
	UpdatedAt    time.Time `bson:"updated_at"`
}
