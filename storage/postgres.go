package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"goposh/models"
)

// PostgresStore is the durable domain store: the deduplicated view of
// closet items, orders and price history across all sync runs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS closet_items (
		account TEXT NOT NULL,
		item_id TEXT NOT NULL,
		title TEXT,
		description TEXT,
		brand TEXT,
		size TEXT,
		condition TEXT,
		price TEXT,
		price_code TEXT,
		orig_price TEXT,
		image_url TEXT,
		external_url TEXT,
		raw_data JSONB,
		listed_at TIMESTAMPTZ,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (account, item_id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		account TEXT NOT NULL,
		order_id TEXT NOT NULL,
		title TEXT,
		status TEXT,
		total TEXT,
		earnings TEXT,
		fee TEXT,
		tax TEXT,
		buyer_username TEXT,
		order_date TIMESTAMPTZ,
		item_count INTEGER,
		url TEXT,
		shipping_label_url TEXT,
		detailed BOOLEAN NOT NULL DEFAULT FALSE,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (account, order_id)
	);

	CREATE TABLE IF NOT EXISTS price_events (
		id BIGSERIAL PRIMARY KEY,
		account TEXT NOT NULL,
		item_id TEXT NOT NULL,
		amount TEXT,
		currency TEXT,
		prev_amount TEXT,
		event_date TIMESTAMPTZ,
		run_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_price_events_item ON price_events(account, item_id, event_date);
	CREATE INDEX IF NOT EXISTS idx_orders_pending ON orders(account, detailed);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) UpsertItem(ctx context.Context, account string, item *models.Item) error {
	rawData, err := json.Marshal(item.RawData)
	if err != nil {
		return fmt.Errorf("marshal raw data: %w", err)
	}

	query := `
		INSERT INTO closet_items (
			account, item_id, title, description, brand, size, condition,
			price, price_code, orig_price, image_url, external_url, raw_data, listed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account, item_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			brand = EXCLUDED.brand,
			size = EXCLUDED.size,
			condition = EXCLUDED.condition,
			price = EXCLUDED.price,
			price_code = EXCLUDED.price_code,
			orig_price = EXCLUDED.orig_price,
			image_url = COALESCE(NULLIF(EXCLUDED.image_url, ''), closet_items.image_url),
			external_url = EXCLUDED.external_url,
			raw_data = EXCLUDED.raw_data,
			last_seen_at = NOW()`

	_, err = s.pool.Exec(ctx, query,
		account, item.ID, item.Title, item.Description, item.Brand, item.Size, item.Condition,
		item.Price.Amount(), item.Price.CurrencyCode(), item.OrigPrice.Amount(),
		item.ImageURL, item.ExternalURL, rawData, item.CreatedAt)
	return err
}

func (s *PostgresStore) GetItem(ctx context.Context, account, itemID string) (*models.Item, error) {
	query := `
		SELECT item_id, title, description, brand, size, condition,
			price, price_code, orig_price, image_url, external_url, listed_at
		FROM closet_items WHERE account = $1 AND item_id = $2`

	var item models.Item
	var price, priceCode, origPrice string
	err := s.pool.QueryRow(ctx, query, account, itemID).Scan(
		&item.ID, &item.Title, &item.Description, &item.Brand, &item.Size, &item.Condition,
		&price, &priceCode, &origPrice, &item.ImageURL, &item.ExternalURL, &item.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.Price = models.NewPrice(price, priceCode)
	item.OrigPrice = models.NewPrice(origPrice, priceCode)
	return &item, nil
}

func (s *PostgresStore) GetItemCount(ctx context.Context, account string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM closet_items WHERE account = $1`, account).Scan(&count)
	return count, err
}

// UpsertOrder writes a summary or detail order. A detailed row is
// never downgraded by a later summary-only sync.
func (s *PostgresStore) UpsertOrder(ctx context.Context, account string, order *models.Order, detailed bool) error {
	query := `
		INSERT INTO orders (
			account, order_id, title, status, total, earnings, fee, tax,
			buyer_username, order_date, item_count, url, shipping_label_url, detailed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account, order_id) DO UPDATE SET
			title = EXCLUDED.title,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			earnings = CASE WHEN EXCLUDED.detailed THEN EXCLUDED.earnings ELSE orders.earnings END,
			fee = CASE WHEN EXCLUDED.detailed THEN EXCLUDED.fee ELSE orders.fee END,
			tax = CASE WHEN EXCLUDED.detailed THEN EXCLUDED.tax ELSE orders.tax END,
			buyer_username = EXCLUDED.buyer_username,
			order_date = CASE WHEN EXCLUDED.detailed THEN EXCLUDED.order_date ELSE orders.order_date END,
			item_count = EXCLUDED.item_count,
			detailed = orders.detailed OR EXCLUDED.detailed,
			last_seen_at = NOW()`

	var orderDate *time.Time
	if !order.OrderDate.IsZero() {
		orderDate = &order.OrderDate
	}

	_, err := s.pool.Exec(ctx, query,
		account, order.ID, order.Title, order.Status, order.OrderTotal.Amount(),
		order.Earnings.Amount(), order.Fee.Amount(), order.Tax.Amount(),
		order.BuyerUsername, orderDate, order.ItemCount, order.URL, order.ShippingLabelURL, detailed)
	return err
}

// GetOrdersMissingDetails lists order ids that have only ever been
// seen on the summary page.
func (s *PostgresStore) GetOrdersMissingDetails(ctx context.Context, account string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT order_id FROM orders
		WHERE account = $1 AND detailed = FALSE
		ORDER BY first_seen_at
		LIMIT $2`, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkOrderDetailed flags an order as fully fetched without touching
// its fields. Used when the detail page no longer exists.
func (s *PostgresStore) MarkOrderDetailed(ctx context.Context, account, orderID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE orders SET detailed = TRUE, last_seen_at = NOW() WHERE account = $1 AND order_id = $2`,
		account, orderID)
	return err
}

func (s *PostgresStore) CreatePriceEvent(ctx context.Context, e *models.PriceEvent) error {
	query := `
		INSERT INTO price_events (account, item_id, amount, currency, prev_amount, event_date, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		e.Account, e.ItemID, e.Amount, e.Currency, e.PrevAmount, e.EventDate, e.RunID,
	).Scan(&e.ID)
}

func (s *PostgresStore) GetLatestPriceEvent(ctx context.Context, account, itemID string) (*models.PriceEvent, error) {
	query := `
		SELECT id, account, item_id, amount, currency, prev_amount, event_date, run_id, created_at
		FROM price_events
		WHERE account = $1 AND item_id = $2
		ORDER BY event_date DESC
		LIMIT 1`

	var e models.PriceEvent
	err := s.pool.QueryRow(ctx, query, account, itemID).Scan(
		&e.ID, &e.Account, &e.ItemID, &e.Amount, &e.Currency, &e.PrevAmount, &e.EventDate, &e.RunID, &e.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
