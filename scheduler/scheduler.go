package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"goposh/config"
	"goposh/models"
	"goposh/services"
	"goposh/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// account groups everything the scheduler can run for one login.
type account struct {
	sync   *services.SyncService
	export *services.ExportService
	orders Triggerable
}

type Scheduler struct {
	cfg    *config.Config
	store  *storage.SQLiteStore
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}

	mu       sync.Mutex
	accounts map[string]*account
	paused   bool
}

func New(cfg *config.Config, store *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		store:    store,
		cron:     cron.New(),
		stopCh:   make(chan struct{}),
		accounts: make(map[string]*account),
	}
}

// AddAccount registers an account's services for scheduled and
// command-driven runs.
func (s *Scheduler) AddAccount(name string, syncSvc *services.SyncService, exportSvc *services.ExportService, orders Triggerable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[name] = &account{sync: syncSvc, export: exportSvc, orders: orders}
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			if err := s.RunAll(ctx); err != nil {
				log.Printf("Scheduled run error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					if err := s.RunAll(ctx); err != nil {
						log.Printf("Scheduled run error: %v", err)
					}
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

// RunAll syncs every registered account sequentially.
func (s *Scheduler) RunAll(ctx context.Context) error {
	if s.isPaused() {
		log.Println("Scheduler paused, skipping run")
		return nil
	}

	var firstErr error
	for name, acct := range s.snapshot() {
		run, err := acct.sync.Run(ctx)
		if err != nil {
			log.Printf("Sync error for %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Printf("Sync completed for %s: %d items (%d new), %d orders, %d price changes",
			name, run.ItemsFound, run.ItemsNew, run.OrdersFound, run.PriceChanges)
	}
	return firstErr
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	return s.RunAll(ctx)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	params, err := s.store.ParseCommandParams(cmd)
	if err != nil {
		return fmt.Errorf("parse params: %w", err)
	}

	switch cmd.Command {
	case models.CmdSyncNow:
		for name, acct := range s.selected(params.Account) {
			if _, err := acct.sync.Run(ctx); err != nil {
				log.Printf("Sync error for %s: %v", name, err)
			}
		}
		return nil
	case models.CmdRunExport:
		for name, acct := range s.selected(params.Account) {
			if acct.export == nil {
				log.Printf("No exporter configured for %s", name)
				continue
			}
			if _, err := acct.export.Run(ctx); err != nil {
				log.Printf("Export error for %s: %v", name, err)
			}
		}
		return nil
	case models.CmdRunOrderDetails:
		for name, acct := range s.selected(params.Account) {
			if acct.orders == nil {
				log.Printf("No order detail worker for %s", name)
				continue
			}
			acct.orders.Trigger()
			log.Printf("Order detail worker triggered for %s", name)
		}
		return nil
	case models.CmdPause:
		s.setPaused(true)
		log.Println("Scheduler paused")
		return nil
	case models.CmdResume:
		s.setPaused(false)
		log.Println("Scheduler resumed")
		return nil
	case models.CmdResetData:
		if err := s.store.ResetAllData(); err != nil {
			return fmt.Errorf("reset data: %w", err)
		}
		log.Println("Operational data cleared")
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

// selected returns the named account, or all accounts when name is
// empty.
func (s *Scheduler) selected(name string) map[string]*account {
	all := s.snapshot()
	if name == "" {
		return all
	}
	if acct, ok := all[name]; ok {
		return map[string]*account{name: acct}
	}
	log.Printf("Warning: unknown account %q in command", name)
	return nil
}

func (s *Scheduler) snapshot() map[string]*account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*account, len(s.accounts))
	for name, acct := range s.accounts {
		out[name] = acct
	}
	return out
}

func (s *Scheduler) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Scheduler) setPaused(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = v
}
