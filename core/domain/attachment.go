package domain

import "time"

// ProcessingStatus is the attachment enrichment state.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingProcessed ProcessingStatus = "processed"
	ProcessingFailed    ProcessingStatus = "failed"
)

// DocumentCategory is the coarse document type assigned to an attachment.
type DocumentCategory string

const (
	DocumentCategoryDocument     DocumentCategory = "document"
	DocumentCategorySpreadsheet  DocumentCategory = "spreadsheet"
	DocumentCategoryPresentation DocumentCategory = "presentation"
	DocumentCategoryImage        DocumentCategory = "image"
	DocumentCategoryArchive      DocumentCategory = "archive"
	DocumentCategoryOther        DocumentCategory = "other"
)

// EmailAttachment belongs to exactly one EmailMessage. It is created when
// the parent message is first persisted and enriched afterwards by the
// attachment processor; once Processed it is only touched again for
// corrective re-processing.
type EmailAttachment struct {
	ID        int64 `json:"id"`
	MessageID int64 `json:"message_id"`

	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	StoragePath string `json:"storage_path,omitempty"`

	Status          ProcessingStatus `json:"status"`
	ProcessingError string           `json:"processing_error,omitempty"`

	ExtractedText string           `json:"extracted_text,omitempty"`
	Summary       string           `json:"summary,omitempty"`
	Keywords      []string         `json:"keywords,omitempty"`
	Category      DocumentCategory `json:"category,omitempty"`
	Confidence    float64          `json:"confidence"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkProcessed records a successful enrichment.
func (a *EmailAttachment) MarkProcessed(text, summary string, keywords []string, category DocumentCategory, confidence float64) {
	a.Status = ProcessingProcessed
	a.ProcessingError = ""
	a.ExtractedText = text
	a.Summary = summary
	a.Keywords = keywords
	a.Category = category
	a.Confidence = confidence
}

// MarkFailed records a processing failure. The attachment row survives;
// the error is data, not a thrown condition.
func (a *EmailAttachment) MarkFailed(errMsg string) {
	a.Status = ProcessingFailed
	a.ProcessingError = errMsg
}
