// Package worker runs background jobs: the periodic account sync loop.
package worker

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	syncsvc "github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/sync"
)

const (
	// DefaultInterval between sweep runs.
	DefaultInterval = 5 * time.Minute

	// startupDelay lets the API surface come up before the first sweep.
	startupDelay = 10 * time.Second

	// runTimeout bounds one full sweep; a hung provider call cannot wedge
	// the loop forever.
	runTimeout = 10 * time.Minute
)

// SyncScheduler periodically sweeps accounts needing a sync.
type SyncScheduler struct {
	syncService *syncsvc.Service
	interval    time.Duration
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewSyncScheduler(syncService *syncsvc.Service, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncScheduler{
		syncService: syncService,
		interval:    interval,
		log:         zerolog.New(os.Stdout).With().Timestamp().Str("component", "sync-scheduler").Logger(),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func (s *SyncScheduler) Start() {
	s.log.Info().Dur("interval", s.interval).Msg("starting")
	go s.run()
}

// Stop cancels the loop and waits for the in-flight sweep to notice.
func (s *SyncScheduler) Stop() {
	s.cancel()
	<-s.done
	s.log.Info().Msg("stopped")
}

func (s *SyncScheduler) run() {
	defer close(s.done)

	select {
	case <-s.ctx.Done():
		return
	case <-time.After(startupDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *SyncScheduler) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	started := time.Now()
	results, err := s.syncService.SyncAllAccounts(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep aborted")
		return
	}

	emails, failures := 0, 0
	for _, r := range results {
		emails += r.EmailsProcessed()
		if !r.Success {
			failures++
		}
	}
	s.log.Info().
		Int("accounts", len(results)).
		Int("emails", emails).
		Int("failed_accounts", failures).
		Dur("took", time.Since(started)).
		Msg("sweep complete")
}
