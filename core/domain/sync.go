package domain

import "time"

// FolderSyncResult summarizes one folder within a sync attempt.
type FolderSyncResult struct {
	Folder               Folder `json:"folder"`
	EmailsProcessed      int    `json:"emails_processed"`
	AttachmentsProcessed int    `json:"attachments_processed"`
	EmailsSkipped        int    `json:"emails_skipped"` // dedup hits
	ItemFailures         int    `json:"item_failures"`
}

// SyncResult summarizes one sync attempt for one account. Not persisted;
// returned to the caller and logged.
type SyncResult struct {
	AccountID        int64              `json:"account_id"`
	Success          bool               `json:"success"`
	ErrorMessage     string             `json:"error_message,omitempty"`
	Folders          []FolderSyncResult `json:"folders,omitempty"`
	EmailsClassified int                `json:"emails_classified"`
	StartedAt        time.Time          `json:"started_at"`
	FinishedAt       time.Time          `json:"finished_at"`
}

// EmailsProcessed sums new messages across folders.
func (r *SyncResult) EmailsProcessed() int {
	total := 0
	for _, f := range r.Folders {
		total += f.EmailsProcessed
	}
	return total
}

// AttachmentsProcessed sums attachments across folders.
func (r *SyncResult) AttachmentsProcessed() int {
	total := 0
	for _, f := range r.Folders {
		total += f.AttachmentsProcessed
	}
	return total
}
