package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"goposh/models"
)

// SQLiteStore is the local operational store: sync runs, logs,
// commands and the per-run snapshots of what the marketplace served.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS item_snapshots (
		id INTEGER PRIMARY KEY,
		item_id TEXT NOT NULL,
		account TEXT NOT NULL,
		title TEXT,
		price_code TEXT,
		price TEXT,
		data JSON,
		synced_at DATETIME,
		run_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS order_snapshots (
		id INTEGER PRIMARY KEY,
		order_id TEXT NOT NULL,
		account TEXT NOT NULL,
		title TEXT,
		status TEXT,
		total TEXT,
		detailed BOOLEAN DEFAULT FALSE,
		data JSON,
		synced_at DATETIME,
		run_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY,
		account TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		items_found INTEGER,
		items_new INTEGER,
		orders_found INTEGER,
		price_changes INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		account TEXT
	);

	CREATE TABLE IF NOT EXISTS account_stats (
		account TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_items INTEGER,
		total_orders INTEGER,
		success_rate REAL,
		avg_run_duration_sec INTEGER
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_item_snapshots_item ON item_snapshots(account, item_id, synced_at);
	CREATE INDEX IF NOT EXISTS idx_order_snapshots_order ON order_snapshots(account, order_id, synced_at);
	CREATE INDEX IF NOT EXISTS idx_order_snapshots_pending ON order_snapshots(account, detailed);
	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON sync_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON sync_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateItemSnapshot(snap *models.ItemSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO item_snapshots (item_id, account, title, price_code, price, data, synced_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ItemID, snap.Account, snap.Title, snap.PriceCode, snap.Price, snap.Data, snap.SyncedAt, snap.RunID)
	return err
}

func (s *SQLiteStore) GetLastItemSnapshot(account, itemID string) (*models.ItemSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, item_id, account, title, price_code, price, data, synced_at, run_id
		FROM item_snapshots WHERE account = ? AND item_id = ?
		ORDER BY synced_at DESC LIMIT 1`, account, itemID)

	var snap models.ItemSnapshot
	var data sql.NullString
	err := row.Scan(&snap.ID, &snap.ItemID, &snap.Account, &snap.Title, &snap.PriceCode,
		&snap.Price, &data, &snap.SyncedAt, &snap.RunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data.Valid {
		snap.Data = json.RawMessage(data.String)
	}
	return &snap, nil
}

func (s *SQLiteStore) CreateOrderSnapshot(snap *models.OrderSnapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO order_snapshots (order_id, account, title, status, total, detailed, data, synced_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.OrderID, snap.Account, snap.Title, snap.Status, snap.Total, snap.Detailed,
		snap.Data, snap.SyncedAt, snap.RunID)
	return err
}

func (s *SQLiteStore) GetLastOrderSnapshot(account, orderID string) (*models.OrderSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, order_id, account, title, status, total, detailed, data, synced_at, run_id
		FROM order_snapshots WHERE account = ? AND order_id = ?
		ORDER BY synced_at DESC LIMIT 1`, account, orderID)

	var snap models.OrderSnapshot
	var data sql.NullString
	err := row.Scan(&snap.ID, &snap.OrderID, &snap.Account, &snap.Title, &snap.Status,
		&snap.Total, &snap.Detailed, &data, &snap.SyncedAt, &snap.RunID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if data.Valid {
		snap.Data = json.RawMessage(data.String)
	}
	return &snap, nil
}

// GetOrdersMissingDetails returns the most recent snapshot of every
// order that has never been fetched in full.
func (s *SQLiteStore) GetOrdersMissingDetails(account string, limit int) ([]models.OrderSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, account, title, status, total, detailed, data, MAX(synced_at) AS synced_at, run_id
		FROM order_snapshots
		WHERE account = ? AND order_id NOT IN
			(SELECT order_id FROM order_snapshots WHERE account = ? AND detailed = TRUE)
		GROUP BY order_id
		ORDER BY synced_at
		LIMIT ?`, account, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.OrderSnapshot
	for rows.Next() {
		var snap models.OrderSnapshot
		var data sql.NullString
		if err := rows.Scan(&snap.ID, &snap.OrderID, &snap.Account, &snap.Title, &snap.Status,
			&snap.Total, &snap.Detailed, &data, &snap.SyncedAt, &snap.RunID); err != nil {
			return nil, err
		}
		if data.Valid {
			snap.Data = json.RawMessage(data.String)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

func (s *SQLiteStore) CreateRun(run *models.SyncRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO sync_runs (account, started_at, status, items_found, items_new,
			orders_found, price_changes, errors_count)
		VALUES (?, ?, ?, 0, 0, 0, 0, 0)`,
		run.Account, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.SyncRun) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs SET finished_at = ?, status = ?, items_found = ?,
			items_new = ?, orders_found = ?, price_changes = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.ItemsFound, run.ItemsNew,
		run.OrdersFound, run.PriceChanges, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, account string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_logs (run_id, timestamp, level, message, account)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, account)
	return err
}

func (s *SQLiteStore) UpdateAccountStats(account string) error {
	_, err := s.db.Exec(`
		INSERT INTO account_stats (account, last_run_at, last_run_status, total_items,
			total_orders, success_rate, avg_run_duration_sec)
		SELECT
			?,
			COALESCE(
				(SELECT started_at FROM sync_runs WHERE account = ? AND status = 'completed' ORDER BY started_at DESC LIMIT 1),
				(SELECT started_at FROM sync_runs WHERE account = ? ORDER BY started_at DESC LIMIT 1)
			),
			(SELECT status FROM sync_runs WHERE account = ? ORDER BY started_at DESC LIMIT 1),
			(SELECT COUNT(DISTINCT item_id) FROM item_snapshots WHERE account = ?),
			(SELECT COUNT(DISTINCT order_id) FROM order_snapshots WHERE account = ?),
			(SELECT CAST(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) AS REAL) /
				NULLIF(COUNT(*), 0) FROM sync_runs WHERE account = ?),
			(SELECT AVG(CAST((julianday(finished_at) - julianday(started_at)) * 86400 AS INTEGER))
				FROM sync_runs WHERE account = ? AND finished_at IS NOT NULL)
		ON CONFLICT(account) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_items = excluded.total_items,
			total_orders = excluded.total_orders,
			success_rate = excluded.success_rate,
			avg_run_duration_sec = excluded.avg_run_duration_sec`,
		account, account, account, account, account, account, account, account)
	return err
}

func (s *SQLiteStore) GetLastRunTime(account string) (time.Time, error) {
	var lastRun time.Time
	err := s.db.QueryRow(`
		SELECT last_run_at FROM account_stats WHERE account = ?`, account).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return lastRun, err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

// ResetAllData clears all SQLite operational tables
func (s *SQLiteStore) ResetAllData() error {
	tables := []string{
		"sync_logs",
		"sync_runs",
		"item_snapshots",
		"order_snapshots",
		"account_stats",
		"commands",
	}

	for _, table := range tables {
		_, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return nil
}
