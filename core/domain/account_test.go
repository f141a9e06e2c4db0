package domain

import (
	"testing"
	"time"
)

func TestSyncStatusTransitions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		from    SyncStatus
		call    func(a *EmailAccount) error
		wantErr bool
		want    SyncStatus
	}{
		{
			name:    "NotStarted -> InProgress",
			from:    SyncStatusNotStarted,
			call:    func(a *EmailAccount) error { return a.BeginSync(now) },
			wantErr: false,
			want:    SyncStatusInProgress,
		},
		{
			name:    "Completed -> InProgress (fresh attempt)",
			from:    SyncStatusCompleted,
			call:    func(a *EmailAccount) error { return a.BeginSync(now) },
			wantErr: false,
			want:    SyncStatusInProgress,
		},
		{
			name:    "Failed -> InProgress (fresh attempt)",
			from:    SyncStatusFailed,
			call:    func(a *EmailAccount) error { return a.BeginSync(now) },
			wantErr: false,
			want:    SyncStatusInProgress,
		},
		{
			name:    "Paused -> InProgress",
			from:    SyncStatusPaused,
			call:    func(a *EmailAccount) error { return a.BeginSync(now) },
			wantErr: false,
			want:    SyncStatusInProgress,
		},
		{
			name:    "InProgress -> InProgress rejected",
			from:    SyncStatusInProgress,
			call:    func(a *EmailAccount) error { return a.BeginSync(now) },
			wantErr: true,
			want:    SyncStatusInProgress,
		},
		{
			name:    "InProgress -> Completed",
			from:    SyncStatusInProgress,
			call:    func(a *EmailAccount) error { return a.CompleteSync(now, 3, 1) },
			wantErr: false,
			want:    SyncStatusCompleted,
		},
		{
			name:    "InProgress -> Failed",
			from:    SyncStatusInProgress,
			call:    func(a *EmailAccount) error { return a.FailSync(now, "boom") },
			wantErr: false,
			want:    SyncStatusFailed,
		},
		{
			name:    "Completed -> Failed rejected without attempt",
			from:    SyncStatusCompleted,
			call:    func(a *EmailAccount) error { return a.FailSync(now, "boom") },
			wantErr: true,
			want:    SyncStatusCompleted,
		},
		{
			name:    "NotStarted -> Completed rejected without attempt",
			from:    SyncStatusNotStarted,
			call:    func(a *EmailAccount) error { return a.CompleteSync(now, 0, 0) },
			wantErr: true,
			want:    SyncStatusNotStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &EmailAccount{ID: 1, SyncStatus: tt.from}
			if tt.from == SyncStatusInProgress {
				started := now.Add(-time.Minute)
				a.SyncStartedAt = &started
			}

			err := tt.call(a)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if a.SyncStatus != tt.want {
				t.Errorf("status = %s, want %s", a.SyncStatus, tt.want)
			}
		})
	}
}

func TestCompleteSyncCounters(t *testing.T) {
	now := time.Now()
	a := &EmailAccount{ID: 7, SyncStatus: SyncStatusNotStarted, FailureCount: 2, LastSyncError: "old"}

	if err := a.BeginSync(now); err != nil {
		t.Fatalf("BeginSync: %v", err)
	}
	if err := a.CompleteSync(now, 10, 4); err != nil {
		t.Fatalf("CompleteSync: %v", err)
	}

	if a.TotalEmailsSynced != 10 || a.TotalAttachmentsSynced != 4 {
		t.Errorf("counters = (%d, %d), want (10, 4)", a.TotalEmailsSynced, a.TotalAttachmentsSynced)
	}
	if a.FailureCount != 0 || a.LastSyncError != "" {
		t.Errorf("failure state not reset: count=%d err=%q", a.FailureCount, a.LastSyncError)
	}
	if a.LastSyncedAt == nil {
		t.Error("LastSyncedAt not set")
	}
}

func TestFailSyncIncrementsFailureCount(t *testing.T) {
	now := time.Now()
	a := &EmailAccount{ID: 7, SyncStatus: SyncStatusFailed, FailureCount: 1}

	if err := a.BeginSync(now); err != nil {
		t.Fatalf("BeginSync: %v", err)
	}
	if err := a.FailSync(now, "imap: connection refused"); err != nil {
		t.Fatalf("FailSync: %v", err)
	}

	if a.FailureCount != 2 {
		t.Errorf("FailureCount = %d, want 2", a.FailureCount)
	}
	if a.LastSyncError != "imap: connection refused" {
		t.Errorf("LastSyncError = %q", a.LastSyncError)
	}
}

func TestSyncStuckSince(t *testing.T) {
	now := time.Now()
	a := &EmailAccount{ID: 1, SyncStatus: SyncStatusNotStarted}

	if d := a.SyncStuckSince(now); d != 0 {
		t.Errorf("not in progress: stuck = %v, want 0", d)
	}

	if err := a.BeginSync(now.Add(-2 * time.Hour)); err != nil {
		t.Fatalf("BeginSync: %v", err)
	}
	if d := a.SyncStuckSince(now); d != 2*time.Hour {
		t.Errorf("stuck = %v, want 2h", d)
	}
}
