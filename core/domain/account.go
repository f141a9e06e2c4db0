package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Provider string

const (
	ProviderIMAP     Provider = "imap"
	ProviderGmail    Provider = "gmail"
	ProviderOutlook  Provider = "outlook"
	ProviderExchange Provider = "exchange"
)

// SyncStatus is the account-level sync state.
type SyncStatus string

const (
	SyncStatusNotStarted SyncStatus = "not_started"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
	SyncStatusPaused     SyncStatus = "paused"
)

// Terminal reports whether the status ends a sync attempt.
func (s SyncStatus) Terminal() bool {
	return s == SyncStatusCompleted || s == SyncStatusFailed
}

// EmailAccount is one linked mailbox. Sync status is mutated only through
// the transition methods below so that an illegal transition (e.g. a second
// concurrent BeginSync) surfaces as an error instead of silently clobbering
// state.
type EmailAccount struct {
	ID           int64     `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	EmailAddress string    `json:"email_address"`
	Provider     Provider  `json:"provider"`
	IsActive     bool      `json:"is_active"`
	IsPrimary    bool      `json:"is_primary"`

	SyncStatus    SyncStatus `json:"sync_status"`
	SyncStartedAt *time.Time `json:"sync_started_at,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	LastSyncError string     `json:"last_sync_error,omitempty"`
	FailureCount  int        `json:"failure_count"`

	TotalEmailsSynced      int `json:"total_emails_synced"`
	TotalAttachmentsSynced int `json:"total_attachments_synced"`

	// IMAP endpoint (generic provider only; OAuth providers ignore these)
	IMAPHost     string `json:"-"`
	IMAPUsername string `json:"-"`
	IMAPPassword string `json:"-"`

	// OAuth refresh token reference (OAuth providers only)
	RefreshToken string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeginSync transitions the account into InProgress. Only one sync may be
// in progress per account; a second BeginSync while InProgress is an error.
func (a *EmailAccount) BeginSync(now time.Time) error {
	if a.SyncStatus == SyncStatusInProgress {
		return fmt.Errorf("account %d: sync already in progress since %v", a.ID, a.SyncStartedAt)
	}
	a.SyncStatus = SyncStatusInProgress
	a.SyncStartedAt = &now
	return nil
}

// CompleteSync transitions InProgress -> Completed and records counters.
func (a *EmailAccount) CompleteSync(now time.Time, emails, attachments int) error {
	if a.SyncStatus != SyncStatusInProgress {
		return fmt.Errorf("account %d: complete from %s (want %s)", a.ID, a.SyncStatus, SyncStatusInProgress)
	}
	a.SyncStatus = SyncStatusCompleted
	a.LastSyncedAt = &now
	a.LastSyncError = ""
	a.FailureCount = 0
	a.TotalEmailsSynced += emails
	a.TotalAttachmentsSynced += attachments
	return nil
}

// FailSync transitions InProgress -> Failed and records the error text.
func (a *EmailAccount) FailSync(now time.Time, errMsg string) error {
	if a.SyncStatus != SyncStatusInProgress {
		return fmt.Errorf("account %d: fail from %s (want %s)", a.ID, a.SyncStatus, SyncStatusInProgress)
	}
	a.SyncStatus = SyncStatusFailed
	a.LastSyncedAt = &now
	a.LastSyncError = errMsg
	a.FailureCount++
	return nil
}

// SyncStuckSince reports how long the account has been InProgress, or zero
// if it is not. A crash mid-sync leaves the account InProgress on purpose;
// callers use this to flag accounts for manual retry.
func (a *EmailAccount) SyncStuckSince(now time.Time) time.Duration {
	if a.SyncStatus != SyncStatusInProgress || a.SyncStartedAt == nil {
		return 0
	}
	return now.Sub(*a.SyncStartedAt)
}
