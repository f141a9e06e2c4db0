// Package provider implements mail provider adapters (generic IMAP, Gmail).
package provider

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// =============================================================================
// IMAP Adapter
// =============================================================================

// fetchLimit caps how many messages one folder fetch returns. Protects
// against unbounded first syncs on large mailboxes.
const fetchLimit = 500

// mailboxCandidates maps a logical folder to mailbox names tried in order.
// Server layouts differ (Dovecot, Gmail IMAP, Courier); the first mailbox
// that selects wins.
var mailboxCandidates = map[domain.Folder][]string{
	domain.FolderInbox:  {"INBOX"},
	domain.FolderSent:   {"Sent", "[Gmail]/Sent Mail", "INBOX.Sent", "Sent Items"},
	domain.FolderDrafts: {"Drafts", "[Gmail]/Drafts", "INBOX.Drafts"},
	domain.FolderTrash:  {"Trash", "[Gmail]/Trash", "INBOX.Trash"},
	domain.FolderSpam:   {"Junk", "[Gmail]/Spam", "INBOX.Junk"},
}

// IMAPAdapter implements out.MailProviderPort for password-authenticated
// IMAP accounts. Each call dials a fresh connection; IMAP sessions are
// cheap relative to a sync attempt and a pooled connection would have to
// survive folder selection state.
type IMAPAdapter struct{}

func NewIMAPAdapter() *IMAPAdapter {
	return &IMAPAdapter{}
}

func (a *IMAPAdapter) ProviderType() domain.Provider {
	return domain.ProviderIMAP
}

// Authenticate dials and logs in, then drops the session. IMAP has no
// token; the returned value is synthetic so the port shape stays uniform
// across providers.
func (a *IMAPAdapter) Authenticate(ctx context.Context, account *domain.EmailAccount) (*oauth2.Token, error) {
	client, err := a.connect(ctx, account)
	if err != nil {
		return nil, err
	}
	_ = client.Logout().Wait()

	return &oauth2.Token{AccessToken: "imap-session", TokenType: "basic"}, nil
}

func (a *IMAPAdapter) FetchMessages(ctx context.Context, account *domain.EmailAccount, folder domain.Folder, since time.Time) ([]out.RawMessage, error) {
	client, err := a.connect(ctx, account)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if err := a.selectMailbox(client, folder); err != nil {
		return nil, err
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{Since: since}, nil).Wait()
	if err != nil {
		return nil, &out.ProviderError{Code: out.ProviderErrFetch, Message: "search failed", Err: err}
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if len(uids) > fetchLimit {
		uids = uids[len(uids)-fetchLimit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:     true,
		Flags:        true,
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var messages []out.RawMessage
	for {
		if ctx.Err() != nil {
			return messages, ctx.Err()
		}

		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			logger.Warn("[IMAPAdapter.FetchMessages] collect failed: account=%d err=%v", account.ID, err)
			continue
		}

		raw := toRawMessage(buf, bodySection)
		if raw.MessageID == "" {
			// No Message-ID header means no dedup key; skip rather than
			// ingest the same message forever.
			continue
		}
		messages = append(messages, raw)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, &out.ProviderError{Code: out.ProviderErrFetch, Message: "fetch close failed", Err: err}
	}
	return messages, nil
}

func (a *IMAPAdapter) connect(ctx context.Context, account *domain.EmailAccount) (*imapclient.Client, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	addr := account.IMAPHost
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}

	client, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return nil, &out.ProviderError{Code: out.ProviderErrUnreachable, Message: "dial " + addr, Err: err}
	}

	if err := client.Login(account.IMAPUsername, account.IMAPPassword).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &out.ProviderError{Code: out.ProviderErrAuth, Message: "login failed for " + account.IMAPUsername, Err: err}
	}
	return client, nil
}

func (a *IMAPAdapter) selectMailbox(client *imapclient.Client, folder domain.Folder) error {
	candidates := mailboxCandidates[folder]
	if len(candidates) == 0 {
		candidates = []string{string(folder)}
	}

	var lastErr error
	for _, mailbox := range candidates {
		_, err := client.Select(mailbox, nil).Wait()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return &out.ProviderError{Code: out.ProviderErrFetch, Message: "no mailbox for folder " + string(folder), Err: lastErr}
}

// =============================================================================
// Message Conversion
// =============================================================================

func toRawMessage(buf *imapclient.FetchMessageBuffer, bodySection *imap.FetchItemBodySection) out.RawMessage {
	raw := out.RawMessage{ReceivedAt: buf.InternalDate}

	if env := buf.Envelope; env != nil {
		raw.MessageID = env.MessageID
		raw.Subject = env.Subject
		raw.SentAt = env.Date
		if len(env.From) > 0 {
			raw.FromAddress = env.From[0].Addr()
		}
		for _, to := range env.To {
			raw.ToAddresses = append(raw.ToAddresses, to.Addr())
		}
		for _, cc := range env.Cc {
			raw.CcAddresses = append(raw.CcAddresses, cc.Addr())
		}
	}
	if raw.ReceivedAt.IsZero() {
		raw.ReceivedAt = raw.SentAt
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			raw.IsRead = true
		case imap.FlagFlagged:
			raw.IsFlagged = true
		case imap.FlagDraft:
			raw.IsDraft = true
		}
	}

	if body := buf.FindBodySection(bodySection); body != nil {
		raw.BodyText, raw.BodyHTML, raw.Attachments = parseMIMEBody(body)
	}
	return raw
}

// parseMIMEBody walks the MIME tree with go-message and pulls out the
// text/plain part, the text/html part, and attachment parts with their
// bytes. An unparseable body degrades to plain text.
func parseMIMEBody(raw []byte) (textBody, htmlBody string, attachments []out.RawAttachment) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}
			attachments = append(attachments, out.RawAttachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int64(len(body)),
				Data:        body,
			})
		}
	}
	return textBody, htmlBody, attachments
}
