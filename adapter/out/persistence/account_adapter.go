package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
)

// =============================================================================
// Account Adapter (PostgreSQL)
// =============================================================================

// staleSyncAfter is the age at which a completed sync counts as needing a
// refresh in GetAccountsNeedingSync.
const staleSyncAfter = 15 * time.Minute

// AccountAdapter implements out.AccountRepository.
type AccountAdapter struct {
	db *sqlx.DB
}

func NewAccountAdapter(db *sqlx.DB) *AccountAdapter {
	return &AccountAdapter{db: db}
}

const accountSelectColumns = `
	a.id, a.user_id, a.email_address, a.provider, a.is_active, a.is_primary,
	a.sync_status, a.sync_started_at, a.last_synced_at, a.last_sync_error, a.failure_count,
	a.total_emails_synced, a.total_attachments_synced,
	a.imap_host, a.imap_username, a.imap_password, a.refresh_token,
	a.created_at, a.updated_at`

type accountRow struct {
	ID           int64     `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	EmailAddress string    `db:"email_address"`
	Provider     string    `db:"provider"`
	IsActive     bool      `db:"is_active"`
	IsPrimary    bool      `db:"is_primary"`

	SyncStatus    string         `db:"sync_status"`
	SyncStartedAt sql.NullTime   `db:"sync_started_at"`
	LastSyncedAt  sql.NullTime   `db:"last_synced_at"`
	LastSyncError sql.NullString `db:"last_sync_error"`
	FailureCount  int            `db:"failure_count"`

	TotalEmailsSynced      int `db:"total_emails_synced"`
	TotalAttachmentsSynced int `db:"total_attachments_synced"`

	IMAPHost     sql.NullString `db:"imap_host"`
	IMAPUsername sql.NullString `db:"imap_username"`
	IMAPPassword sql.NullString `db:"imap_password"`
	RefreshToken sql.NullString `db:"refresh_token"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *accountRow) toEntity() *domain.EmailAccount {
	account := &domain.EmailAccount{
		ID:           r.ID,
		UserID:       r.UserID,
		EmailAddress: r.EmailAddress,
		Provider:     domain.Provider(r.Provider),
		IsActive:     r.IsActive,
		IsPrimary:    r.IsPrimary,

		SyncStatus:    domain.SyncStatus(r.SyncStatus),
		LastSyncError: r.LastSyncError.String,
		FailureCount:  r.FailureCount,

		TotalEmailsSynced:      r.TotalEmailsSynced,
		TotalAttachmentsSynced: r.TotalAttachmentsSynced,

		IMAPHost:     r.IMAPHost.String,
		IMAPUsername: r.IMAPUsername.String,
		IMAPPassword: r.IMAPPassword.String,
		RefreshToken: r.RefreshToken.String,

		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.SyncStartedAt.Valid {
		t := r.SyncStartedAt.Time
		account.SyncStartedAt = &t
	}
	if r.LastSyncedAt.Valid {
		t := r.LastSyncedAt.Time
		account.LastSyncedAt = &t
	}
	return account
}

func (a *AccountAdapter) GetByID(ctx context.Context, id int64) (*domain.EmailAccount, error) {
	query := fmt.Sprintf(`SELECT %s FROM email_accounts a WHERE a.id = $1`, accountSelectColumns)

	var row accountRow
	err := a.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.DatabaseError("failed to load account", err)
	}
	return row.toEntity(), nil
}

func (a *AccountAdapter) Update(ctx context.Context, account *domain.EmailAccount) error {
	query := `
		UPDATE email_accounts SET
			is_active = $2, is_primary = $3,
			sync_status = $4, sync_started_at = $5, last_synced_at = $6,
			last_sync_error = $7, failure_count = $8,
			total_emails_synced = $9, total_attachments_synced = $10,
			updated_at = NOW()
		WHERE id = $1`

	result, err := a.db.ExecContext(ctx, query,
		account.ID,
		account.IsActive, account.IsPrimary,
		string(account.SyncStatus), account.SyncStartedAt, account.LastSyncedAt,
		nullString(account.LastSyncError), account.FailureCount,
		account.TotalEmailsSynced, account.TotalAttachmentsSynced,
	)
	if err != nil {
		return apperr.DatabaseError("failed to update account", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperr.NotFound(fmt.Sprintf("account %d not found", account.ID))
	}
	return nil
}

// GetAccountsNeedingSync returns active accounts that never synced or whose
// last sync is older than the staleness cutoff. InProgress accounts are
// excluded; a crashed attempt surfaces through SyncStuckSince instead.
func (a *AccountAdapter) GetAccountsNeedingSync(ctx context.Context) ([]*domain.EmailAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM email_accounts a
		WHERE a.is_active = TRUE
		  AND a.sync_status <> $1
		  AND (a.last_synced_at IS NULL OR a.last_synced_at < $2)
		ORDER BY a.last_synced_at ASC NULLS FIRST`, accountSelectColumns)

	cutoff := time.Now().UTC().Add(-staleSyncAfter)

	var rows []accountRow
	if err := a.db.SelectContext(ctx, &rows, query, string(domain.SyncStatusInProgress), cutoff); err != nil {
		return nil, apperr.DatabaseError("failed to list accounts needing sync", err)
	}

	accounts := make([]*domain.EmailAccount, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, rows[i].toEntity())
	}
	return accounts, nil
}
