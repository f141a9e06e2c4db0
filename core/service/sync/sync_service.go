// Package sync orchestrates email sync attempts: fetch, dedup, classify,
// persist, then batch re-scan anything left unclassified.
package sync

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/analysis"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/attachment"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// =============================================================================
// Sync Service
// =============================================================================

const (
	// DefaultLookbackMonths bounds the fetch window for accounts that have
	// never synced and callers that pass no start date.
	DefaultLookbackMonths = 3

	// ReclassifyBatchSize caps the second-pass scan over messages whose
	// classification did not land during ingest.
	ReclassifyBatchSize = 200

	previewLength = 160
)

// Service runs sync attempts. One attempt per account at a time; the
// InProgress guard lives on the account itself.
type Service struct {
	accounts    out.AccountRepository
	messages    out.MessageRepository
	attachments out.AttachmentRepository
	providers   map[domain.Provider]out.MailProviderPort
	dedup       out.DedupCache // optional fast path
	analyzer    *analysis.Engine
	processor   *attachment.Processor
}

func NewService(
	accounts out.AccountRepository,
	messages out.MessageRepository,
	attachments out.AttachmentRepository,
	providers []out.MailProviderPort,
	dedup out.DedupCache,
	analyzer *analysis.Engine,
	processor *attachment.Processor,
) *Service {
	byType := make(map[domain.Provider]out.MailProviderPort, len(providers))
	for _, p := range providers {
		byType[p.ProviderType()] = p
	}
	return &Service{
		accounts:    accounts,
		messages:    messages,
		attachments: attachments,
		providers:   byType,
		dedup:       dedup,
		analyzer:    analyzer,
		processor:   processor,
	}
}

// =============================================================================
// SyncAccount
// =============================================================================

// SyncAccount runs one attempt for one account with the default fetch
// window: the last successful sync time, or three months back for accounts
// that have never synced.
func (s *Service) SyncAccount(ctx context.Context, accountID int64) (*domain.SyncResult, error) {
	return s.SyncAccountSince(ctx, accountID, time.Time{})
}

// SyncAccountSince runs one attempt for one account, fetching messages from
// startDate onward (zero value selects the default window). Provider
// failures come back as a result with Success=false and flip the account to
// Failed; per-item failures are absorbed into counters. The account always
// reaches a terminal status before return, except on context cancellation,
// where it stays InProgress for a manual retry.
func (s *Service) SyncAccountSince(ctx context.Context, accountID int64, startDate time.Time) (*domain.SyncResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperr.NotFound("email account not found")
	}

	now := time.Now().UTC()
	if err := account.BeginSync(now); err != nil {
		return nil, apperr.Conflict(err.Error())
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperr.DatabaseError("failed to mark sync in progress", err)
	}

	logger.Info("[SyncService.SyncAccount] Starting attempt: account=%d provider=%s", account.ID, account.Provider)

	result := &domain.SyncResult{AccountID: account.ID, StartedAt: now}

	provider, ok := s.providers[account.Provider]
	if !ok {
		return s.failAttempt(ctx, account, result, "no adapter registered for provider "+string(account.Provider)), nil
	}

	if _, err := provider.Authenticate(ctx, account); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return s.failAttempt(ctx, account, result, "authentication failed: "+err.Error()), nil
	}

	// Default window: three months back, narrowed to LastSyncedAt once the
	// account has synced before. The incremental window is safe because
	// MessageId dedup makes overlapping fetches idempotent; pass an
	// explicit startDate to force a wider backfill.
	since := startDate
	if since.IsZero() {
		since = now.AddDate(0, -DefaultLookbackMonths, 0)
		if account.LastSyncedAt != nil {
			since = *account.LastSyncedAt
		}
	}

	for _, folder := range domain.SyncFolders {
		if ctx.Err() != nil {
			// Cancelled mid-attempt: the account stays InProgress; no
			// rollback. Long-InProgress accounts are retry candidates.
			return result, ctx.Err()
		}

		folderResult, err := s.syncFolder(ctx, provider, account, folder, since, result)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			return s.failAttempt(ctx, account, result, "failed to fetch "+string(folder)+": "+err.Error()), nil
		}
		result.Folders = append(result.Folders, folderResult)
	}

	s.reclassifyUnprocessed(ctx, account, since, result)

	finished := time.Now().UTC()
	if err := account.CompleteSync(finished, result.EmailsProcessed(), result.AttachmentsProcessed()); err != nil {
		return nil, err
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperr.DatabaseError("failed to record completed sync", err)
	}

	result.Success = true
	result.FinishedAt = finished
	logger.Info("[SyncService.SyncAccount] Completed: account=%d emails=%d attachments=%d classified=%d in %v",
		account.ID, result.EmailsProcessed(), result.AttachmentsProcessed(), result.EmailsClassified, finished.Sub(now))
	return result, nil
}

// syncFolder ingests one folder. Item-level failures increment counters and
// keep the loop going; only the fetch itself can fail the folder.
func (s *Service) syncFolder(
	ctx context.Context,
	provider out.MailProviderPort,
	account *domain.EmailAccount,
	folder domain.Folder,
	since time.Time,
	result *domain.SyncResult,
) (domain.FolderSyncResult, error) {
	folderResult := domain.FolderSyncResult{Folder: folder}

	raws, err := provider.FetchMessages(ctx, account, folder, since)
	if err != nil {
		return folderResult, err
	}

	for i := range raws {
		if ctx.Err() != nil {
			return folderResult, ctx.Err()
		}
		raw := &raws[i]

		seen, err := s.alreadySeen(ctx, account.ID, raw.MessageID)
		if err != nil {
			logger.Warn("[SyncService.syncFolder] dedup check failed: account=%d msg=%s err=%v", account.ID, raw.MessageID, err)
			folderResult.ItemFailures++
			continue
		}
		if seen {
			folderResult.EmailsSkipped++
			continue
		}

		msg := s.toMessage(raw, account, folder)

		classification := s.analyzer.Classify(ctx, msg)
		msg.ApplyClassification(classification)

		if err := s.messages.Add(ctx, msg); err != nil {
			logger.Warn("[SyncService.syncFolder] persist failed: account=%d msg=%s err=%v", account.ID, raw.MessageID, err)
			folderResult.ItemFailures++
			continue
		}
		s.markSeen(ctx, account.ID, raw.MessageID)

		result.EmailsClassified++
		folderResult.EmailsProcessed++
		folderResult.AttachmentsProcessed += s.ingestAttachments(ctx, msg, raw.Attachments, &folderResult)
	}

	return folderResult, nil
}

// ingestAttachments creates and enriches attachment rows for one message.
// A broken attachment never takes the parent message down with it.
func (s *Service) ingestAttachments(ctx context.Context, msg *domain.EmailMessage, raws []out.RawAttachment, folderResult *domain.FolderSyncResult) int {
	processed := 0
	for _, raw := range raws {
		att := &domain.EmailAttachment{
			MessageID:   msg.ID,
			Filename:    raw.Filename,
			ContentType: raw.ContentType,
			Size:        raw.Size,
			Status:      domain.ProcessingPending,
		}
		if err := s.attachments.Create(ctx, att); err != nil {
			logger.Warn("[SyncService.ingestAttachments] create failed: msg=%d file=%s err=%v", msg.ID, raw.Filename, err)
			folderResult.ItemFailures++
			continue
		}
		s.processor.Process(ctx, att, raw.Data)
		processed++
	}
	return processed
}

// reclassifyUnprocessed is the second pass: messages persisted without a
// filled-in classification get another chance. Best effort; errors here
// never fail the attempt.
func (s *Service) reclassifyUnprocessed(ctx context.Context, account *domain.EmailAccount, since time.Time, result *domain.SyncResult) {
	unprocessed, err := s.messages.ListUnprocessed(ctx, account.UserID, since, ReclassifyBatchSize)
	if err != nil {
		logger.Warn("[SyncService.reclassifyUnprocessed] list failed: account=%d err=%v", account.ID, err)
		return
	}

	for _, msg := range unprocessed {
		if ctx.Err() != nil {
			return
		}
		classification := s.analyzer.Classify(ctx, msg)
		msg.ApplyClassification(classification)
		if err := s.messages.Update(ctx, msg); err != nil {
			logger.Warn("[SyncService.reclassifyUnprocessed] update failed: msg=%d err=%v", msg.ID, err)
			continue
		}
		result.EmailsClassified++
	}
}

// =============================================================================
// SyncAllAccounts
// =============================================================================

// SyncAllAccounts runs attempts sequentially over every account needing a
// sync. One failing account never aborts the rest; cancellation stops the
// batch.
func (s *Service) SyncAllAccounts(ctx context.Context) ([]*domain.SyncResult, error) {
	accounts, err := s.accounts.GetAccountsNeedingSync(ctx)
	if err != nil {
		return nil, apperr.DatabaseError("failed to list accounts needing sync", err)
	}

	logger.Info("[SyncService.SyncAllAccounts] %d accounts queued", len(accounts))

	results := make([]*domain.SyncResult, 0, len(accounts))
	for _, account := range accounts {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		result, err := s.SyncAccount(ctx, account.ID)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			logger.Error("[SyncService.SyncAllAccounts] account %d skipped: %v", account.ID, err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// =============================================================================
// Helpers
// =============================================================================

// alreadySeen consults the cache first, then the repository. Cache errors
// fall through to the repository so the cache can only save a query, never
// introduce a duplicate.
func (s *Service) alreadySeen(ctx context.Context, accountID int64, messageID string) (bool, error) {
	if s.dedup != nil {
		if seen, err := s.dedup.Seen(ctx, accountID, messageID); err == nil && seen {
			return true, nil
		}
	}
	return s.messages.Exists(ctx, accountID, messageID)
}

func (s *Service) markSeen(ctx context.Context, accountID int64, messageID string) {
	if s.dedup == nil {
		return
	}
	if err := s.dedup.MarkSeen(ctx, accountID, messageID); err != nil {
		logger.Debug("[SyncService.markSeen] cache write failed: %v", err)
	}
}

// failAttempt terminalizes a provider-level failure: the account flips to
// Failed with the error text and the attempt result carries the message.
func (s *Service) failAttempt(ctx context.Context, account *domain.EmailAccount, result *domain.SyncResult, message string) *domain.SyncResult {
	now := time.Now().UTC()
	if err := account.FailSync(now, message); err != nil {
		logger.Error("[SyncService.failAttempt] illegal transition for account %d: %v", account.ID, err)
	} else if err := s.accounts.Update(ctx, account); err != nil {
		logger.Error("[SyncService.failAttempt] failed to persist failure for account %d: %v", account.ID, err)
	}

	result.Success = false
	result.ErrorMessage = message
	result.FinishedAt = now
	logger.Error("[SyncService.failAttempt] account=%d: %s", account.ID, message)
	return result
}

func (s *Service) toMessage(raw *out.RawMessage, account *domain.EmailAccount, folder domain.Folder) *domain.EmailMessage {
	return &domain.EmailMessage{
		AccountID:      account.ID,
		UserID:         account.UserID,
		MessageID:      raw.MessageID,
		Subject:        raw.Subject,
		FromAddress:    raw.FromAddress,
		ToAddresses:    raw.ToAddresses,
		CcAddresses:    raw.CcAddresses,
		SentAt:         raw.SentAt,
		ReceivedAt:     raw.ReceivedAt,
		BodyText:       raw.BodyText,
		BodyHTML:       raw.BodyHTML,
		BodyPreview:    preview(raw.BodyText),
		Folder:         folder,
		IsRead:         raw.IsRead,
		IsFlagged:      raw.IsFlagged,
		IsDraft:        raw.IsDraft,
		HasAttachments: len(raw.Attachments) > 0,
	}
}

// preview truncates body to previewLength bytes, backing off to a rune
// boundary so a multibyte character is never split. An invalid-UTF-8
// preview would be rejected by the database and sink the whole message.
func preview(body string) string {
	if len(body) <= previewLength {
		return body
	}
	cut := previewLength
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
