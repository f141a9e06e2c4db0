package out

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
)

// =============================================================================
// Mail Provider Port (IMAP, Gmail)
// =============================================================================

// MailProviderPort is the narrow capability the sync orchestrator needs
// from a mail provider. Timeout and retry policy live in the adapters, not
// here; the orchestrator only propagates ctx cancellation.
type MailProviderPort interface {
	ProviderType() domain.Provider

	// Authenticate validates credentials and returns an access token.
	// IMAP adapters return a synthetic token; OAuth adapters a real one.
	Authenticate(ctx context.Context, account *domain.EmailAccount) (*oauth2.Token, error)

	// FetchMessages returns candidate messages in the folder received at or
	// after since. Order is provider-defined.
	FetchMessages(ctx context.Context, account *domain.EmailAccount, folder domain.Folder, since time.Time) ([]RawMessage, error)
}

// RawMessage is a provider-shape message before conversion to the domain.
type RawMessage struct {
	MessageID   string
	Subject     string
	FromAddress string
	ToAddresses []string
	CcAddresses []string
	SentAt      time.Time
	ReceivedAt  time.Time
	BodyText    string
	BodyHTML    string
	IsRead      bool
	IsFlagged   bool
	IsDraft     bool
	Attachments []RawAttachment
}

// RawAttachment carries attachment metadata and, when the provider inlines
// it, the raw bytes handed to the attachment processor.
type RawAttachment struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// ProviderError wraps provider failures with a stable code.
type ProviderError struct {
	Code    ProviderErrorCode
	Message string
	Err     error
}

type ProviderErrorCode string

const (
	ProviderErrAuth        ProviderErrorCode = "auth_failed"
	ProviderErrUnreachable ProviderErrorCode = "unreachable"
	ProviderErrFetch       ProviderErrorCode = "fetch_failed"
	ProviderErrRateLimited ProviderErrorCode = "rate_limited"
)

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// =============================================================================
// Classification Backend Port (LLM)
// =============================================================================

// ClassificationBackend is the optional AI strategy dependency. A nil
// backend degrades the analysis engine to the rule-based strategy with no
// orchestrator-visible behavior change.
type ClassificationBackend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
