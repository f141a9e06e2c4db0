package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	syncsvc "github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/sync"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// =============================================================================
// Sync Handler
// =============================================================================

type SyncHandler struct {
	syncService *syncsvc.Service
	accounts    out.AccountRepository
}

func NewSyncHandler(syncService *syncsvc.Service, accounts out.AccountRepository) *SyncHandler {
	return &SyncHandler{syncService: syncService, accounts: accounts}
}

func (h *SyncHandler) Register(api fiber.Router) {
	api.Post("/accounts/:id/sync", h.SyncAccount)
	api.Get("/accounts/:id/sync", h.SyncStatus)
	api.Post("/sync", h.SyncAll)
}

// SyncAccount triggers one sync attempt for the account. An optional
// since=RFC3339 query overrides the fetch window. The attempt runs inline;
// provider failures come back as a 200 with success=false inside the
// result, matching how callers consume SyncResult.
func (h *SyncHandler) SyncAccount(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return respondError(c, apperr.Unauthorized("missing user identity"))
	}

	accountID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondError(c, apperr.BadRequest("invalid account id"))
	}

	account, err := h.accounts.GetByID(c.Context(), accountID)
	if err != nil {
		return respondError(c, err)
	}
	if account == nil || account.UserID != userID {
		return respondError(c, apperr.NotFound("email account not found"))
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return respondError(c, apperr.BadRequest("since must be RFC3339"))
		}
	}

	result, err := h.syncService.SyncAccountSince(c.Context(), accountID, since)
	if err != nil {
		return respondError(c, err)
	}

	logger.Info("[SyncHandler.SyncAccount] account=%d success=%v", accountID, result.Success)
	return respondOK(c, result)
}

// SyncStatus reports the account's current sync state.
func (h *SyncHandler) SyncStatus(c *fiber.Ctx) error {
	userID, err := GetUserID(c)
	if err != nil {
		return respondError(c, apperr.Unauthorized("missing user identity"))
	}

	accountID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return respondError(c, apperr.BadRequest("invalid account id"))
	}

	account, err := h.accounts.GetByID(c.Context(), accountID)
	if err != nil {
		return respondError(c, err)
	}
	if account == nil || account.UserID != userID {
		return respondError(c, apperr.NotFound("email account not found"))
	}

	payload := fiber.Map{
		"account_id":               account.ID,
		"sync_status":              account.SyncStatus,
		"sync_started_at":          account.SyncStartedAt,
		"last_synced_at":           account.LastSyncedAt,
		"last_sync_error":          account.LastSyncError,
		"failure_count":            account.FailureCount,
		"total_emails_synced":      account.TotalEmailsSynced,
		"total_attachments_synced": account.TotalAttachmentsSynced,
	}
	// A long-InProgress account is a retry candidate; nothing resets it
	// automatically.
	if stuck := account.SyncStuckSince(time.Now().UTC()); stuck > 0 {
		payload["in_progress_for_seconds"] = int(stuck.Seconds())
	}
	return respondOK(c, payload)
}

// SyncAll runs a batch sync over every account needing one.
func (h *SyncHandler) SyncAll(c *fiber.Ctx) error {
	if _, err := GetUserID(c); err != nil {
		return respondError(c, apperr.Unauthorized("missing user identity"))
	}

	results, err := h.syncService.SyncAllAccounts(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, results)
}
