package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"goposh/models"
	"goposh/poshmark"
	"goposh/storage"
)

// OrderDetailWorker upgrades summary-only orders to full orders by
// fetching each order page in the background.
type OrderDetailWorker struct {
	client    *poshmark.Client
	local     *storage.SQLiteStore
	domain    *storage.PostgresStore
	account   string
	triggerCh chan struct{}
}

func NewOrderDetailWorker(client *poshmark.Client, local *storage.SQLiteStore, domain *storage.PostgresStore) *OrderDetailWorker {
	return &OrderDetailWorker{
		client:    client,
		local:     local,
		domain:    domain,
		account:   client.Session().Identity().Username,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger requests an immediate batch outside the regular interval.
func (w *OrderDetailWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// RunOnce processes a single batch immediately.
func (w *OrderDetailWorker) RunOnce(ctx context.Context, batchSize int) {
	w.processBatch(ctx, batchSize)
}

// Run starts the order detail worker loop
func (w *OrderDetailWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Order detail worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *OrderDetailWorker) processBatch(ctx context.Context, batchSize int) {
	ids, err := w.pendingOrderIDs(ctx, batchSize)
	if err != nil {
		log.Printf("Order details: query error: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}

	log.Printf("Order details: processing %d orders", len(ids))

	for _, orderID := range ids {
		order, err := w.client.GetOrderDetails(ctx, orderID)
		if err != nil {
			var notFound poshmark.OrderNotFoundError
			if errors.As(err, &notFound) {
				// Page is gone; record the miss so the order is not
				// retried forever.
				log.Printf("Warning: order %s no longer retrievable: %v", orderID, err)
				w.markDetailed(ctx, orderID, nil)
				continue
			}
			log.Printf("Order details: failed to fetch %s: %v", orderID, err)
			continue
		}

		w.markDetailed(ctx, orderID, order)
		log.Printf("Order details: enriched %s (%d items)", orderID, order.ItemCount)

		// Rate limit between requests
		time.Sleep(500 * time.Millisecond)
	}
}

func (w *OrderDetailWorker) pendingOrderIDs(ctx context.Context, limit int) ([]string, error) {
	if w.domain != nil {
		return w.domain.GetOrdersMissingDetails(ctx, w.account, limit)
	}

	snaps, err := w.local.GetOrdersMissingDetails(w.account, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.OrderID)
	}
	return ids, nil
}

// markDetailed writes the detailed snapshot locally and upgrades the
// domain row. A nil order marks the id processed without new data.
func (w *OrderDetailWorker) markDetailed(ctx context.Context, orderID string, order *models.Order) {
	snap := &models.OrderSnapshot{
		OrderID:  orderID,
		Account:  w.account,
		Detailed: true,
		SyncedAt: time.Now(),
	}
	if order != nil {
		snap.Title = order.Title
		snap.Status = order.Status
		snap.Total = order.OrderTotal.Amount()
		if data, err := json.Marshal(order); err == nil {
			snap.Data = data
		}
	}
	if err := w.local.CreateOrderSnapshot(snap); err != nil {
		log.Printf("Warning: failed to snapshot order %s: %v", orderID, err)
	}

	if w.domain == nil {
		return
	}
	if order == nil {
		if err := w.domain.MarkOrderDetailed(ctx, w.account, orderID); err != nil {
			log.Printf("Warning: failed to mark order %s detailed: %v", orderID, err)
		}
		return
	}
	if err := w.domain.UpsertOrder(ctx, w.account, order, true); err != nil {
		log.Printf("Warning: failed to upsert order %s: %v", orderID, err)
	}
}
