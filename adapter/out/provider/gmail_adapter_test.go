package provider

import (
	"context"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
)

func TestParseDateHeader(t *testing.T) {
	wantUTC := time.Date(2025, 6, 10, 7, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Time
		ok    bool
	}{
		{"weekday and numeric zone", "Tue, 10 Jun 2025 09:30:00 +0200", wantUTC, true},
		{"single-digit day", "Mon, 2 Jun 2025 07:30:00 +0000", time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC), true},
		{"no weekday", "10 Jun 2025 09:30:00 +0200", wantUTC, true},
		{"named zone", "Tue, 10 Jun 2025 07:30:00 GMT", wantUTC, true},
		{"trailing zone comment", "Tue, 10 Jun 2025 09:30:00 +0200 (CEST)", wantUTC, true},
		{"surrounding whitespace", "  Tue, 10 Jun 2025 09:30:00 +0200  ", wantUTC, true},
		{"garbage", "not a date at all", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDateHeader(tt.value)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.UTC().Equal(tt.want) {
				t.Errorf("parsed = %v, want %v", got.UTC(), tt.want)
			}
		})
	}
}

func TestGmailDateHeaderFallsBackToInternalDate(t *testing.T) {
	a := NewGmailAdapter(&GmailConfig{ClientID: "id", ClientSecret: "secret"})
	internal := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	msg := &gmail.Message{
		Id:           "g1",
		InternalDate: internal.UnixMilli(),
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "hello"},
				{Name: "Date", Value: "definitely not a date"},
			},
		},
	}

	raw := a.toRawMessage(context.Background(), nil, msg)
	if !raw.SentAt.Equal(internal) {
		t.Errorf("SentAt = %v, want ReceivedAt fallback %v", raw.SentAt, internal)
	}
	if raw.Subject != "hello" {
		t.Errorf("Subject = %q", raw.Subject)
	}
}
