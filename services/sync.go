package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"goposh/models"
	"goposh/poshmark"
	"goposh/storage"
)

// SyncService pulls an account's closet and sales through the client
// and fans the results out to the operational and domain stores.
type SyncService struct {
	client     *poshmark.Client
	local      *storage.SQLiteStore
	domain     *storage.PostgresStore
	account    string
	orderLimit int
}

func NewSyncService(client *poshmark.Client, local *storage.SQLiteStore, domain *storage.PostgresStore, orderLimit int) *SyncService {
	if orderLimit <= 0 {
		orderLimit = 100
	}
	return &SyncService{
		client:     client,
		local:      local,
		domain:     domain,
		account:    client.Session().Identity().Username,
		orderLimit: orderLimit,
	}
}

func (s *SyncService) Account() string { return s.account }

// ItemResult contains the outcome of processing one listing
type ItemResult struct {
	IsNew        bool
	PriceChanged bool
}

// SyncStats tracks aggregate statistics for a sync run
type SyncStats struct {
	ItemsProcessed  int
	ItemsNew        int
	OrdersProcessed int
	PriceChanges    int
	Errors          int
}

// Aggregate adds an ItemResult to the stats
func (s *SyncStats) Aggregate(r *ItemResult) {
	s.ItemsProcessed++
	if r.IsNew {
		s.ItemsNew++
	}
	if r.PriceChanged {
		s.PriceChanges++
	}
}

// ToJSON returns JSON-serializable metadata
func (s *SyncStats) ToJSON() json.RawMessage {
	data, _ := json.Marshal(map[string]int{
		"items_processed":  s.ItemsProcessed,
		"items_new":        s.ItemsNew,
		"orders_processed": s.OrdersProcessed,
		"price_changes":    s.PriceChanges,
		"errors":           s.Errors,
	})
	return data
}

// Run executes one full sync: closet first, then the sales list. The
// run record in the operational store tracks progress and outcome.
func (s *SyncService) Run(ctx context.Context) (*models.SyncRun, error) {
	run := &models.SyncRun{
		Account:   s.account,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := s.local.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	stats := &SyncStats{}
	syncErr := s.sync(ctx, run, stats)

	now := time.Now()
	run.FinishedAt = &now
	run.ItemsFound = stats.ItemsProcessed
	run.ItemsNew = stats.ItemsNew
	run.OrdersFound = stats.OrdersProcessed
	run.PriceChanges = stats.PriceChanges
	run.ErrorsCount = stats.Errors
	if syncErr != nil {
		run.Status = models.RunStatusFailed
		s.localLog(&runID, models.LogLevelError, fmt.Sprintf("sync failed: %v", syncErr))
	} else {
		run.Status = models.RunStatusCompleted
	}

	if err := s.local.UpdateRun(run); err != nil {
		log.Printf("Warning: failed to finalize run %d: %v", runID, err)
	}
	if err := s.local.UpdateAccountStats(s.account); err != nil {
		log.Printf("Warning: failed to update stats for %s: %v", s.account, err)
	}

	return run, syncErr
}

func (s *SyncService) sync(ctx context.Context, run *models.SyncRun, stats *SyncStats) error {
	items, err := s.client.GetItems(ctx)
	if err != nil {
		return fmt.Errorf("fetch closet: %w", err)
	}
	s.localLog(&run.ID, models.LogLevelInfo, fmt.Sprintf("fetched %d listings", len(items)))

	for i := range items {
		result, err := s.processItem(ctx, &items[i], run.ID)
		if err != nil {
			stats.Errors++
			s.localLog(&run.ID, models.LogLevelWarn, fmt.Sprintf("item %s: %v", items[i].ID, err))
			continue
		}
		stats.Aggregate(result)
	}

	orders, err := s.client.GetOrderSummaries(ctx, s.orderLimit)
	if err != nil {
		return fmt.Errorf("fetch sales: %w", err)
	}
	s.localLog(&run.ID, models.LogLevelInfo, fmt.Sprintf("fetched %d orders", len(orders)))

	for i := range orders {
		if err := s.processOrder(ctx, &orders[i], run.ID); err != nil {
			stats.Errors++
			s.localLog(&run.ID, models.LogLevelWarn, fmt.Sprintf("order %s: %v", orders[i].ID, err))
			continue
		}
		stats.OrdersProcessed++
	}

	if s.domain != nil {
		if n, err := s.domain.GetItemCount(ctx, s.account); err == nil {
			s.localLog(&run.ID, models.LogLevelInfo, fmt.Sprintf("domain store holds %d listings", n))
		}
	}

	return nil
}

// processItem snapshots a listing locally, detects price movement
// against the previous snapshot, and upserts the domain record. Safe
// to call multiple times for the same listing.
func (s *SyncService) processItem(ctx context.Context, item *models.Item, runID int64) (*ItemResult, error) {
	result := &ItemResult{}
	now := time.Now()

	prev, err := s.local.GetLastItemSnapshot(s.account, item.ID)
	if err != nil {
		return nil, fmt.Errorf("get last snapshot: %w", err)
	}

	prevAmount := ""
	if prev != nil {
		if prev.Price != item.Price.Amount() || prev.PriceCode != item.Price.CurrencyCode() {
			result.PriceChanged = true
			prevAmount = prev.Price
		}
	} else if s.domain != nil {
		// Local snapshots may have been reset; the domain record still
		// knows whether the listing is actually new.
		existing, err := s.domain.GetItem(ctx, s.account, item.ID)
		if err != nil {
			return nil, fmt.Errorf("get domain item: %w", err)
		}
		switch {
		case existing == nil:
			result.IsNew = true
		case existing.Price.Amount() != item.Price.Amount() || existing.Price.CurrencyCode() != item.Price.CurrencyCode():
			result.PriceChanged = true
			prevAmount = existing.Price.Amount()
		}
	} else {
		result.IsNew = true
	}

	rawData, err := json.Marshal(item.RawData)
	if err != nil {
		return nil, fmt.Errorf("marshal raw data: %w", err)
	}
	snap := &models.ItemSnapshot{
		ItemID:    item.ID,
		Account:   s.account,
		Title:     item.Title,
		PriceCode: item.Price.CurrencyCode(),
		Price:     item.Price.Amount(),
		Data:      rawData,
		SyncedAt:  now,
		RunID:     runID,
	}
	if err := s.local.CreateItemSnapshot(snap); err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	if s.domain == nil {
		return result, nil
	}

	if err := s.domain.UpsertItem(ctx, s.account, item); err != nil {
		return nil, fmt.Errorf("upsert item: %w", err)
	}

	if result.PriceChanged {
		// A change can be reported twice when runs overlap snapshots;
		// skip the event if the latest one already has this amount.
		last, err := s.domain.GetLatestPriceEvent(ctx, s.account, item.ID)
		if err != nil {
			log.Printf("Warning: failed to read price events for %s: %v", item.ID, err)
		}
		if last == nil || last.Amount != item.Price.Amount() {
			event := &models.PriceEvent{
				Account:    s.account,
				ItemID:     item.ID,
				Amount:     item.Price.Amount(),
				Currency:   item.Price.CurrencyCode(),
				PrevAmount: prevAmount,
				EventDate:  now,
				RunID:      runID,
			}
			if err := s.domain.CreatePriceEvent(ctx, event); err != nil {
				log.Printf("Warning: failed to create price event for %s: %v", item.ID, err)
			}
		}
	}

	return result, nil
}

func (s *SyncService) processOrder(ctx context.Context, order *models.Order, runID int64) error {
	rawData, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	snap := &models.OrderSnapshot{
		OrderID:  order.ID,
		Account:  s.account,
		Title:    order.Title,
		Status:   order.Status,
		Total:    order.OrderTotal.Amount(),
		Detailed: false,
		Data:     rawData,
		SyncedAt: time.Now(),
		RunID:    runID,
	}
	if err := s.local.CreateOrderSnapshot(snap); err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	if s.domain == nil {
		return nil
	}
	if err := s.domain.UpsertOrder(ctx, s.account, order, false); err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

func (s *SyncService) localLog(runID *int64, level models.LogLevel, message string) {
	if err := s.local.Log(runID, level, message, s.account); err != nil {
		log.Printf("Warning: failed to write sync log: %v", err)
	}
}
