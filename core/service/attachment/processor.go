// Package attachment enriches stored attachments with extracted text,
// keywords and a document category.
package attachment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// extractionConfidence is reported for the placeholder extractor.
const extractionConfidence = 0.5

// Processor runs text extraction over one attachment and records the
// outcome on the row. Failures are contained: a broken attachment ends up
// Failed with a readable ProcessingError, and the parent message is never
// affected.
type Processor struct {
	attachments out.AttachmentRepository
	texts       out.AttachmentTextStore // optional
}

func NewProcessor(attachments out.AttachmentRepository, texts out.AttachmentTextStore) *Processor {
	return &Processor{attachments: attachments, texts: texts}
}

// Process extracts text from the raw bytes and persists the enriched row.
// It never returns an extraction error; the error becomes row state.
func (p *Processor) Process(ctx context.Context, att *domain.EmailAttachment, data []byte) {
	text, err := extractText(att, data)
	if err != nil {
		att.MarkFailed(err.Error())
		logger.Warn("[Processor.Process] extraction failed: attachment=%d file=%s err=%v",
			att.ID, att.Filename, err)
	} else {
		category := categorize(att)
		summary := fmt.Sprintf("%s attachment %q (%d bytes)", category, att.Filename, att.Size)
		att.MarkProcessed(text, summary, filenameKeywords(att.Filename), category, extractionConfidence)
	}

	if err := p.attachments.Update(ctx, att); err != nil {
		logger.Error("[Processor.Process] failed to persist attachment %d: %v", att.ID, err)
		return
	}

	if att.Status == domain.ProcessingProcessed && p.texts != nil {
		doc := &out.AttachmentTextDoc{
			AttachmentID: att.ID,
			MessageID:    att.MessageID,
			Text:         att.ExtractedText,
			Summary:      att.Summary,
			UpdatedAt:    time.Now().UTC(),
		}
		// Document-store writes are best effort; the relational row already
		// carries the result.
		if err := p.texts.SaveText(ctx, doc); err != nil {
			logger.Warn("[Processor.Process] text store write failed: attachment=%d err=%v", att.ID, err)
		}
	}
}

// extractText is a placeholder for format-aware extraction (PDF, Word,
// Excel). It produces a fixed descriptive string; real extractors slot in
// here behind the same success/failure contract.
func extractText(att *domain.EmailAttachment, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("attachment %q has no content to extract", att.Filename)
	}
	return fmt.Sprintf("Extracted text from %s (%s, %d bytes)", att.Filename, att.ContentType, len(data)), nil
}

func categorize(att *domain.EmailAttachment) domain.DocumentCategory {
	if strings.HasPrefix(att.ContentType, "image/") {
		return domain.DocumentCategoryImage
	}

	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(att.Filename), ".")) {
	case "pdf", "doc", "docx", "txt", "rtf", "md":
		return domain.DocumentCategoryDocument
	case "xls", "xlsx", "csv":
		return domain.DocumentCategorySpreadsheet
	case "ppt", "pptx":
		return domain.DocumentCategoryPresentation
	case "png", "jpg", "jpeg", "gif", "bmp", "svg":
		return domain.DocumentCategoryImage
	case "zip", "rar", "tar", "gz", "7z":
		return domain.DocumentCategoryArchive
	default:
		return domain.DocumentCategoryOther
	}
}

// filenameKeywords splits the base name on common separators and keeps
// tokens long enough to be meaningful.
func filenameKeywords(filename string) []string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	tokens := strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})

	var keywords []string
	for _, tok := range tokens {
		if len(tok) >= 3 {
			keywords = append(keywords, tok)
		}
	}
	return keywords
}
