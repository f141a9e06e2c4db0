package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// =============================================================================
// Gmail Adapter
// =============================================================================

// folderQueries maps logical folders to Gmail search scopes.
var folderQueries = map[domain.Folder]string{
	domain.FolderInbox:  "in:inbox",
	domain.FolderSent:   "in:sent",
	domain.FolderDrafts: "in:drafts",
	domain.FolderTrash:  "in:trash",
	domain.FolderSpam:   "in:spam",
}

// GmailAdapter implements out.MailProviderPort over the Gmail REST API.
// All API calls go through a circuit breaker so a Gmail outage trips fast
// instead of burning the sync worker on timeouts.
type GmailAdapter struct {
	config *oauth2.Config
	cb     *gobreaker.CircuitBreaker
}

type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func NewGmailAdapter(cfg *GmailConfig) *GmailAdapter {
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	cbSettings := gobreaker.Settings{
		Name:     "gmail-api",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[GmailAdapter] circuit %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &GmailAdapter{
		config: config,
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
	}
}

func (a *GmailAdapter) ProviderType() domain.Provider {
	return domain.ProviderGmail
}

// Authenticate turns the stored refresh token into a live access token.
func (a *GmailAdapter) Authenticate(ctx context.Context, account *domain.EmailAccount) (*oauth2.Token, error) {
	if account.RefreshToken == "" {
		return nil, &out.ProviderError{Code: out.ProviderErrAuth, Message: "account has no refresh token"}
	}

	src := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: account.RefreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, &out.ProviderError{Code: out.ProviderErrAuth, Message: "token refresh failed", Err: err}
	}
	return token, nil
}

func (a *GmailAdapter) FetchMessages(ctx context.Context, account *domain.EmailAccount, folder domain.Folder, since time.Time) ([]out.RawMessage, error) {
	token, err := a.Authenticate(ctx, account)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(a.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, &out.ProviderError{Code: out.ProviderErrUnreachable, Message: "failed to build gmail client", Err: err}
	}

	query := fmt.Sprintf("%s after:%s", folderQueries[folder], since.Format("2006/01/02"))

	listResult, err := a.cb.Execute(func() (any, error) {
		return svc.Users.Messages.List("me").Q(query).MaxResults(fetchLimit).Context(ctx).Do()
	})
	if err != nil {
		return nil, a.wrapFetchError(err, "message list failed")
	}
	list := listResult.(*gmail.ListMessagesResponse)

	var messages []out.RawMessage
	for _, ref := range list.Messages {
		if ctx.Err() != nil {
			return messages, ctx.Err()
		}

		fullResult, err := a.cb.Execute(func() (any, error) {
			return svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		})
		if err != nil {
			logger.Warn("[GmailAdapter.FetchMessages] get %s failed: %v", ref.Id, err)
			continue
		}

		raw := a.toRawMessage(ctx, svc, fullResult.(*gmail.Message))
		messages = append(messages, raw)
	}
	return messages, nil
}

func (a *GmailAdapter) wrapFetchError(err error, msg string) error {
	code := out.ProviderErrFetch
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		code = out.ProviderErrUnreachable
	}
	return &out.ProviderError{Code: code, Message: msg, Err: err}
}

// =============================================================================
// Message Conversion
// =============================================================================

func (a *GmailAdapter) toRawMessage(ctx context.Context, svc *gmail.Service, msg *gmail.Message) out.RawMessage {
	raw := out.RawMessage{
		MessageID:  msg.Id, // fallback when the Message-ID header is missing
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}

	raw.IsRead = !hasLabel(msg.LabelIds, "UNREAD")
	raw.IsFlagged = hasLabel(msg.LabelIds, "STARRED")
	raw.IsDraft = hasLabel(msg.LabelIds, "DRAFT")

	if msg.Payload == nil {
		return raw
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "message-id":
			raw.MessageID = strings.Trim(h.Value, "<>")
		case "subject":
			raw.Subject = h.Value
		case "from":
			raw.FromAddress = h.Value
		case "to":
			raw.ToAddresses = splitAddressList(h.Value)
		case "cc":
			raw.CcAddresses = splitAddressList(h.Value)
		case "date":
			if t, ok := parseDateHeader(h.Value); ok {
				raw.SentAt = t
			}
		}
	}
	if raw.SentAt.IsZero() {
		raw.SentAt = raw.ReceivedAt
	}

	a.walkParts(ctx, svc, msg.Id, msg.Payload, &raw)
	return raw
}

// dateLayouts covers the RFC 5322 shapes seen in the wild: optional
// weekday, one- or two-digit day, numeric or named zone, trailing zone
// comment. Checked in order; first match wins.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
}

func parseDateHeader(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// walkParts descends the MIME part tree collecting bodies and attachments.
// Attachment bytes over the inline threshold come through a second API call.
func (a *GmailAdapter) walkParts(ctx context.Context, svc *gmail.Service, messageID string, part *gmail.MessagePart, raw *out.RawMessage) {
	if part == nil {
		return
	}

	if part.Filename != "" && part.Body != nil {
		data := a.attachmentData(ctx, svc, messageID, part)
		raw.Attachments = append(raw.Attachments, out.RawAttachment{
			Filename:    part.Filename,
			ContentType: part.MimeType,
			Size:        part.Body.Size,
			Data:        data,
		})
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			switch part.MimeType {
			case "text/plain":
				raw.BodyText = string(decoded)
			case "text/html":
				raw.BodyHTML = string(decoded)
			}
		}
	}

	for _, child := range part.Parts {
		a.walkParts(ctx, svc, messageID, child, raw)
	}
}

func (a *GmailAdapter) attachmentData(ctx context.Context, svc *gmail.Service, messageID string, part *gmail.MessagePart) []byte {
	if part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err == nil {
			return data
		}
	}
	if part.Body.AttachmentId == "" {
		return nil
	}

	result, err := a.cb.Execute(func() (any, error) {
		return svc.Users.Messages.Attachments.Get("me", messageID, part.Body.AttachmentId).Context(ctx).Do()
	})
	if err != nil {
		logger.Warn("[GmailAdapter.attachmentData] fetch failed: msg=%s file=%s err=%v", messageID, part.Filename, err)
		return nil
	}

	body := result.(*gmail.MessagePartBody)
	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		return nil
	}
	return data
}

func hasLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}

func splitAddressList(header string) []string {
	parts := strings.Split(header, ",")
	addresses := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}
