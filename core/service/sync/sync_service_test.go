package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/domain"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/analysis"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/attachment"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/apperr"
	"golang.org/x/oauth2"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeAccounts struct {
	byID    map[int64]*domain.EmailAccount
	needing []*domain.EmailAccount
	updates int
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*domain.EmailAccount, error) {
	return f.byID[id], nil
}

func (f *fakeAccounts) Update(_ context.Context, _ *domain.EmailAccount) error {
	f.updates++
	return nil
}

func (f *fakeAccounts) GetAccountsNeedingSync(_ context.Context) ([]*domain.EmailAccount, error) {
	return f.needing, nil
}

type fakeMessages struct {
	nextID      int64
	stored      map[string]*domain.EmailMessage
	addErrFor   map[string]error
	unprocessed []*domain.EmailMessage
	updated     []*domain.EmailMessage
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{stored: make(map[string]*domain.EmailMessage), addErrFor: make(map[string]error)}
}

func msgKey(accountID int64, messageID string) string {
	return fmt.Sprintf("%d|%s", accountID, messageID)
}

func (f *fakeMessages) Exists(_ context.Context, accountID int64, messageID string) (bool, error) {
	_, ok := f.stored[msgKey(accountID, messageID)]
	return ok, nil
}

func (f *fakeMessages) Add(_ context.Context, msg *domain.EmailMessage) error {
	if err := f.addErrFor[msg.MessageID]; err != nil {
		return err
	}
	key := msgKey(msg.AccountID, msg.MessageID)
	if _, ok := f.stored[key]; ok {
		return nil // idempotent no-op
	}
	f.nextID++
	msg.ID = f.nextID
	f.stored[key] = msg
	return nil
}

func (f *fakeMessages) Update(_ context.Context, msg *domain.EmailMessage) error {
	f.updated = append(f.updated, msg)
	return nil
}

func (f *fakeMessages) Query(_ context.Context, _ uuid.UUID, _ *domain.MessageFilter) ([]*domain.EmailMessage, int, error) {
	return nil, 0, nil
}

func (f *fakeMessages) ListUnprocessed(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]*domain.EmailMessage, error) {
	return f.unprocessed, nil
}

type fakeAttachments struct {
	nextID    int64
	created   []*domain.EmailAttachment
	createErr error
}

func (f *fakeAttachments) Create(_ context.Context, att *domain.EmailAttachment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	att.ID = f.nextID
	f.created = append(f.created, att)
	return nil
}

func (f *fakeAttachments) Update(_ context.Context, _ *domain.EmailAttachment) error { return nil }

func (f *fakeAttachments) GetByMessageID(_ context.Context, _ int64) ([]*domain.EmailAttachment, error) {
	return nil, nil
}

type fakeProvider struct {
	ptype     domain.Provider
	authErr   error
	byFolder  map[domain.Folder][]out.RawMessage
	fetchErr  map[domain.Folder]error
	sinceSeen []time.Time
}

func (f *fakeProvider) ProviderType() domain.Provider { return f.ptype }

func (f *fakeProvider) Authenticate(_ context.Context, _ *domain.EmailAccount) (*oauth2.Token, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &oauth2.Token{AccessToken: "fake"}, nil
}

func (f *fakeProvider) FetchMessages(_ context.Context, _ *domain.EmailAccount, folder domain.Folder, since time.Time) ([]out.RawMessage, error) {
	f.sinceSeen = append(f.sinceSeen, since)
	if err := f.fetchErr[folder]; err != nil {
		return nil, err
	}
	return f.byFolder[folder], nil
}

type fakeDedup struct {
	seen   map[string]bool
	marked int
}

func (f *fakeDedup) Seen(_ context.Context, accountID int64, messageID string) (bool, error) {
	return f.seen[msgKey(accountID, messageID)], nil
}

func (f *fakeDedup) MarkSeen(_ context.Context, accountID int64, messageID string) error {
	f.seen[msgKey(accountID, messageID)] = true
	f.marked++
	return nil
}

// =============================================================================
// Fixtures
// =============================================================================

func testAccount(id int64) *domain.EmailAccount {
	return &domain.EmailAccount{
		ID:           id,
		UserID:       uuid.New(),
		EmailAddress: "user@example.com",
		Provider:     domain.ProviderIMAP,
		IsActive:     true,
		SyncStatus:   domain.SyncStatusNotStarted,
	}
}

func rawMessage(id, subject, body string, atts ...out.RawAttachment) out.RawMessage {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return out.RawMessage{
		MessageID:   id,
		Subject:     subject,
		FromAddress: "sender@example.com",
		ToAddresses: []string{"user@example.com"},
		SentAt:      now,
		ReceivedAt:  now,
		BodyText:    body,
		Attachments: atts,
	}
}

type fixture struct {
	svc         *Service
	accounts    *fakeAccounts
	messages    *fakeMessages
	attachments *fakeAttachments
	provider    *fakeProvider
	dedup       *fakeDedup
}

func newFixture(account *domain.EmailAccount, provider *fakeProvider) *fixture {
	accounts := &fakeAccounts{byID: map[int64]*domain.EmailAccount{}}
	if account != nil {
		accounts.byID[account.ID] = account
		accounts.needing = []*domain.EmailAccount{account}
	}
	messages := newFakeMessages()
	attachments := &fakeAttachments{}
	dedup := &fakeDedup{seen: make(map[string]bool)}

	svc := NewService(
		accounts,
		messages,
		attachments,
		[]out.MailProviderPort{provider},
		dedup,
		analysis.NewEngine(nil),
		attachment.NewProcessor(attachments, nil),
	)
	return &fixture{svc: svc, accounts: accounts, messages: messages, attachments: attachments, provider: provider, dedup: dedup}
}

// =============================================================================
// Tests
// =============================================================================

func TestSyncAccountHappyPath(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype: domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{
			domain.FolderInbox: {
				rawMessage("m1", "URGENT: server down", "please fix immediately"),
				rawMessage("m2", "Weekly status", "the report for this project",
					out.RawAttachment{Filename: "status.pdf", ContentType: "application/pdf", Size: 100, Data: []byte("pdf")}),
			},
			domain.FolderSent: {
				rawMessage("m3", "Re: lunch", "sounds good"),
			},
		},
	}
	f := newFixture(account, provider)

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if !result.Success {
		t.Fatalf("Success = false: %s", result.ErrorMessage)
	}
	if got := result.EmailsProcessed(); got != 3 {
		t.Errorf("EmailsProcessed = %d, want 3", got)
	}
	if got := result.AttachmentsProcessed(); got != 1 {
		t.Errorf("AttachmentsProcessed = %d, want 1", got)
	}
	if result.EmailsClassified != 3 {
		t.Errorf("EmailsClassified = %d, want 3", result.EmailsClassified)
	}

	if account.SyncStatus != domain.SyncStatusCompleted {
		t.Errorf("status = %s, want completed", account.SyncStatus)
	}
	if account.TotalEmailsSynced != 3 || account.TotalAttachmentsSynced != 1 {
		t.Errorf("totals = (%d, %d), want (3, 1)", account.TotalEmailsSynced, account.TotalAttachmentsSynced)
	}

	stored := f.messages.stored[msgKey(1, "m1")]
	if stored == nil {
		t.Fatal("m1 not persisted")
	}
	if !stored.AI.IsProcessed {
		t.Error("m1 classification missing")
	}
	if stored.AI.Priority != domain.PriorityUrgent {
		t.Errorf("m1 priority = %s, want urgent", stored.AI.Priority)
	}
	if !f.messages.stored[msgKey(1, "m2")].HasAttachments {
		t.Error("m2 HasAttachments = false")
	}
	if len(f.attachments.created) != 1 {
		t.Errorf("attachments created = %d, want 1", len(f.attachments.created))
	}
}

func TestSyncAccountExplicitStartDate(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{ptype: domain.ProviderIMAP}
	f := newFixture(account, provider)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.svc.SyncAccountSince(context.Background(), 1, start); err != nil {
		t.Fatalf("SyncAccountSince: %v", err)
	}

	if len(provider.sinceSeen) == 0 {
		t.Fatal("provider never fetched")
	}
	for _, got := range provider.sinceSeen {
		if !got.Equal(start) {
			t.Errorf("fetch window = %v, want %v", got, start)
		}
	}
}

func TestSyncAccountDefaultWindowIsThreeMonths(t *testing.T) {
	account := testAccount(1) // never synced: LastSyncedAt nil
	provider := &fakeProvider{ptype: domain.ProviderIMAP}
	f := newFixture(account, provider)

	if _, err := f.svc.SyncAccount(context.Background(), 1); err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if len(provider.sinceSeen) == 0 {
		t.Fatal("provider never fetched")
	}
	want := time.Now().UTC().AddDate(0, -DefaultLookbackMonths, 0)
	got := provider.sinceSeen[0]
	if diff := got.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("fetch window = %v, want ~%v", got, want)
	}
}

func TestSyncAccountIdempotency(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype: domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{
			domain.FolderInbox: {
				rawMessage("m1", "a", "b"),
				rawMessage("m2", "c", "d"),
			},
		},
	}
	f := newFixture(account, provider)

	first, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if got := first.EmailsProcessed(); got != 2 {
		t.Fatalf("first EmailsProcessed = %d, want 2", got)
	}

	second, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if got := second.EmailsProcessed(); got != 0 {
		t.Errorf("second EmailsProcessed = %d, want 0", got)
	}
	skipped := 0
	for _, fr := range second.Folders {
		skipped += fr.EmailsSkipped
	}
	if skipped != 2 {
		t.Errorf("second EmailsSkipped = %d, want 2", skipped)
	}
	if len(f.messages.stored) != 2 {
		t.Errorf("stored = %d, want 2 (no duplicates)", len(f.messages.stored))
	}
}

func TestSyncAccountProviderFetchFailure(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype:    domain.ProviderIMAP,
		fetchErr: map[domain.Folder]error{domain.FolderInbox: errors.New("imap: connection reset")},
	}
	f := newFixture(account, provider)

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if result.ErrorMessage == "" {
		t.Error("ErrorMessage is empty")
	}
	if account.SyncStatus != domain.SyncStatusFailed {
		t.Errorf("status = %s, want failed", account.SyncStatus)
	}
	if account.FailureCount != 1 {
		t.Errorf("FailureCount = %d, want 1", account.FailureCount)
	}
	if account.LastSyncError == "" {
		t.Error("LastSyncError not recorded")
	}
}

func TestSyncAccountAuthFailure(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{ptype: domain.ProviderIMAP, authErr: errors.New("invalid credentials")}
	f := newFixture(account, provider)

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}
	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if account.SyncStatus != domain.SyncStatusFailed {
		t.Errorf("status = %s, want failed", account.SyncStatus)
	}
}

func TestSyncAccountNotFound(t *testing.T) {
	f := newFixture(nil, &fakeProvider{ptype: domain.ProviderIMAP})

	_, err := f.svc.SyncAccount(context.Background(), 404)
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Code != apperr.CodeNotFound {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestSyncAccountRejectsConcurrentAttempt(t *testing.T) {
	account := testAccount(1)
	started := time.Now().Add(-time.Minute)
	account.SyncStatus = domain.SyncStatusInProgress
	account.SyncStartedAt = &started
	f := newFixture(account, &fakeProvider{ptype: domain.ProviderIMAP})

	_, err := f.svc.SyncAccount(context.Background(), 1)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Code != apperr.CodeConflict {
		t.Errorf("err = %v, want CONFLICT", err)
	}
	if account.SyncStatus != domain.SyncStatusInProgress {
		t.Errorf("status = %s, want in_progress untouched", account.SyncStatus)
	}
}

func TestSyncAccountItemFailureDoesNotFailAttempt(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype: domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{
			domain.FolderInbox: {
				rawMessage("ok1", "a", "b"),
				rawMessage("broken", "c", "d"),
				rawMessage("ok2", "e", "f"),
			},
		},
	}
	f := newFixture(account, provider)
	f.messages.addErrFor["broken"] = errors.New("value too long for column")

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if !result.Success {
		t.Fatalf("Success = false: %s", result.ErrorMessage)
	}
	if got := result.EmailsProcessed(); got != 2 {
		t.Errorf("EmailsProcessed = %d, want 2", got)
	}
	failures := 0
	for _, fr := range result.Folders {
		failures += fr.ItemFailures
	}
	if failures != 1 {
		t.Errorf("ItemFailures = %d, want 1", failures)
	}
	if account.SyncStatus != domain.SyncStatusCompleted {
		t.Errorf("status = %s, want completed despite item failure", account.SyncStatus)
	}
}

func TestSyncAccountAttachmentFailureContainment(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype: domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{
			domain.FolderInbox: {
				// nil Data makes the extractor fail for this attachment
				rawMessage("m1", "contract", "see attached",
					out.RawAttachment{Filename: "contract.pdf", ContentType: "application/pdf", Size: 999}),
			},
		},
	}
	f := newFixture(account, provider)

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if !result.Success {
		t.Fatalf("Success = false: %s", result.ErrorMessage)
	}
	if f.messages.stored[msgKey(1, "m1")] == nil {
		t.Fatal("parent message must still be persisted")
	}
	if len(f.attachments.created) != 1 {
		t.Fatalf("attachments created = %d, want 1", len(f.attachments.created))
	}
	att := f.attachments.created[0]
	if att.Status != domain.ProcessingFailed {
		t.Errorf("attachment status = %s, want failed", att.Status)
	}
	if att.ProcessingError == "" {
		t.Error("ProcessingError not recorded")
	}
}

func TestSyncAccountDedupCacheFastPath(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype: domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{
			domain.FolderInbox: {rawMessage("cached", "a", "b"), rawMessage("fresh", "c", "d")},
		},
	}
	f := newFixture(account, provider)
	f.dedup.seen[msgKey(1, "cached")] = true

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if got := result.EmailsProcessed(); got != 1 {
		t.Errorf("EmailsProcessed = %d, want 1", got)
	}
	if f.messages.stored[msgKey(1, "cached")] != nil {
		t.Error("cached message must not be re-persisted")
	}
	if !f.dedup.seen[msgKey(1, "fresh")] {
		t.Error("fresh message not marked in dedup cache")
	}
}

func TestSyncAccountSecondPassReclassifies(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{ptype: domain.ProviderIMAP}
	f := newFixture(account, provider)

	leftover := &domain.EmailMessage{
		ID: 77, AccountID: 1, UserID: account.UserID,
		MessageID: "old", Subject: "Team meeting", BodyText: "agenda",
	}
	f.messages.unprocessed = []*domain.EmailMessage{leftover}

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}

	if result.EmailsClassified != 1 {
		t.Errorf("EmailsClassified = %d, want 1 from second pass", result.EmailsClassified)
	}
	if !leftover.AI.IsProcessed {
		t.Error("leftover message not classified")
	}
	if len(f.messages.updated) != 1 {
		t.Errorf("updates = %d, want 1", len(f.messages.updated))
	}
}

func TestSyncAccountCancelledLeavesInProgress(t *testing.T) {
	account := testAccount(1)
	provider := &fakeProvider{
		ptype:    domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{domain.FolderInbox: {rawMessage("m1", "a", "b")}},
	}
	f := newFixture(account, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.SyncAccount(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if account.SyncStatus != domain.SyncStatusInProgress {
		t.Errorf("status = %s, want in_progress (no rollback on cancel)", account.SyncStatus)
	}
}

func TestSyncAllAccountsContinuesPastFailure(t *testing.T) {
	healthy := testAccount(1)
	failing := testAccount(2)

	provider := &fakeProvider{
		ptype:    domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{domain.FolderInbox: {rawMessage("m1", "a", "b")}},
	}

	accounts := &fakeAccounts{
		byID:    map[int64]*domain.EmailAccount{1: healthy}, // account 2 vanished
		needing: []*domain.EmailAccount{failing, healthy},
	}
	messages := newFakeMessages()
	attachments := &fakeAttachments{}
	svc := NewService(accounts, messages, attachments,
		[]out.MailProviderPort{provider}, nil,
		analysis.NewEngine(nil), attachment.NewProcessor(attachments, nil))

	results, err := svc.SyncAllAccounts(context.Background())
	if err != nil {
		t.Fatalf("SyncAllAccounts: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 (missing account skipped)", len(results))
	}
	if results[0].AccountID != 1 || !results[0].Success {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if healthy.SyncStatus != domain.SyncStatusCompleted {
		t.Errorf("healthy status = %s, want completed", healthy.SyncStatus)
	}
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"short body unchanged", "héllo wörld", "héllo wörld"},
		{"ascii cut at limit", strings.Repeat("a", previewLength+40), strings.Repeat("a", previewLength)},
		{"multibyte char straddling the limit", strings.Repeat("a", previewLength-1) + "é tail", strings.Repeat("a", previewLength-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preview(tt.body)
			if !utf8.ValidString(got) {
				t.Fatalf("preview produced invalid UTF-8: %q", got)
			}
			if got != tt.want {
				t.Errorf("preview = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncAccountIngestsMultibyteBodyAtPreviewBoundary(t *testing.T) {
	account := testAccount(1)
	body := strings.Repeat("a", previewLength-1) + "é and more text after the boundary"
	provider := &fakeProvider{
		ptype: domain.ProviderIMAP,
		byFolder: map[domain.Folder][]out.RawMessage{
			domain.FolderInbox: {rawMessage("m1", "hello", body)},
		},
	}
	f := newFixture(account, provider)

	result, err := f.svc.SyncAccount(context.Background(), 1)
	if err != nil {
		t.Fatalf("SyncAccount: %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false: %s", result.ErrorMessage)
	}

	stored := f.messages.stored[msgKey(1, "m1")]
	if stored == nil {
		t.Fatal("m1 not persisted")
	}
	if !utf8.ValidString(stored.BodyPreview) {
		t.Errorf("BodyPreview is invalid UTF-8: %q", stored.BodyPreview)
	}
}
