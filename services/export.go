package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"goposh/models"
	"goposh/poshmark"
	"goposh/storage"
)

// ExportService serializes an account's closet and sales to JSON and
// ships the snapshot to object storage.
type ExportService struct {
	client     *poshmark.Client
	uploader   *storage.SnapshotUploader
	account    string
	orderLimit int
}

func NewExportService(client *poshmark.Client, uploader *storage.SnapshotUploader, orderLimit int) *ExportService {
	if orderLimit <= 0 {
		orderLimit = 100
	}
	return &ExportService{
		client:     client,
		uploader:   uploader,
		account:    client.Session().Identity().Username,
		orderLimit: orderLimit,
	}
}

type closetExport struct {
	Account     string         `json:"account"`
	GeneratedAt time.Time      `json:"generated_at"`
	ItemCount   int            `json:"item_count"`
	OrderCount  int            `json:"order_count"`
	Items       []models.Item  `json:"items"`
	Orders      []models.Order `json:"orders"`
}

// Run fetches the full closet and recent sales and uploads them as a
// single timestamped JSON document. Returns the object key.
func (s *ExportService) Run(ctx context.Context) (string, error) {
	items, err := s.client.GetItems(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch closet: %w", err)
	}

	orders, err := s.client.GetOrderSummaries(ctx, s.orderLimit)
	if err != nil {
		return "", fmt.Errorf("fetch sales: %w", err)
	}

	export := closetExport{
		Account:     s.account,
		GeneratedAt: time.Now(),
		ItemCount:   len(items),
		OrderCount:  len(orders),
		Items:       items,
		Orders:      orders,
	}

	key := fmt.Sprintf("exports/%s/%s-%s.json",
		s.account, time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	if err := s.uploader.UploadJSON(ctx, key, export); err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}

	log.Printf("Exported %d items and %d orders for %s to %s",
		len(items), len(orders), s.account, s.uploader.PublicURL(key))
	return key, nil
}
