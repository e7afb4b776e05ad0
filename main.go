package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goposh/config"
	"goposh/identity"
	"goposh/logging"
	"goposh/poshmark"
	"goposh/scheduler"
	"goposh/services"
	"goposh/storage"
	"goposh/workers"
)

var (
	syncNow   = flag.Bool("sync", false, "Run one sync for every account and exit")
	ordersNow = flag.Bool("orders", false, "Fetch pending order details once and exit")
	exportNow = flag.Bool("export", false, "Upload a closet export for every account and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting goposh...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if len(cfg.Accounts) == 0 {
		log.Fatal("No accounts configured (config/accounts/*.yaml)")
	}

	ctx := context.Background()

	// Domain store is optional; without DATABASE_URL everything still
	// lands in the local SQLite snapshots.
	var pgStore *storage.PostgresStore
	if cfg.PostgresURL != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.PostgresURL))
	}

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	var uploader *storage.SnapshotUploader
	if cfg.S3.Bucket != "" {
		uploader, err = storage.NewSnapshotUploader(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("Failed to set up uploader: %v", err)
		}
		log.Printf("Exports go to s3://%s", cfg.S3.Bucket)
	}

	sched := scheduler.New(cfg, sqliteStore)
	var orderWorkers []*workers.OrderDetailWorker
	var exportServices []*services.ExportService

	for name, acct := range cfg.Accounts {
		session, err := identity.NewSession(acct.Cookies)
		if err != nil {
			log.Fatalf("Invalid cookies for account %s: %v", name, err)
		}

		client, err := poshmark.NewClient(session, poshmark.Config{
			BaseURL:   cfg.Marketplace.BaseURL,
			Referer:   cfg.Marketplace.Referer,
			Timeout:   time.Duration(cfg.Marketplace.TimeoutMS) * time.Millisecond,
			PageDelay: time.Duration(cfg.Marketplace.PageDelayMS) * time.Millisecond,
		})
		if err != nil {
			log.Fatalf("Failed to build client for %s: %v", name, err)
		}
		log.Printf("Account %s: signed in as %s", name, session.Identity().Username)

		orderLimit := acct.OrderLimit
		if orderLimit == 0 {
			orderLimit = cfg.Scheduler.OrderLimit
		}

		syncSvc := services.NewSyncService(client, sqliteStore, pgStore, orderLimit)

		var exportSvc *services.ExportService
		if uploader != nil {
			exportSvc = services.NewExportService(client, uploader, orderLimit)
			exportServices = append(exportServices, exportSvc)
		}

		orderWorker := workers.NewOrderDetailWorker(client, sqliteStore, pgStore)
		orderWorkers = append(orderWorkers, orderWorker)

		sched.AddAccount(name, syncSvc, exportSvc, orderWorker)
	}

	// One-shot modes
	if *syncNow {
		log.Println("Running sync...")
		if err := sched.TriggerNow(ctx); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		log.Println("Sync complete!")
		return
	}
	if *ordersNow {
		log.Println("Fetching pending order details...")
		for _, w := range orderWorkers {
			w.RunOnce(ctx, 20)
		}
		log.Println("Order details complete!")
		return
	}
	if *exportNow {
		log.Println("Running export...")
		for _, svc := range exportServices {
			if _, err := svc.Run(ctx); err != nil {
				log.Fatalf("Export failed: %v", err)
			}
		}
		log.Println("Export complete!")
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	for _, w := range orderWorkers {
		go w.Run(ctx, 10, 5*time.Minute) // batch of 10 every 5 min
	}
	log.Printf("Order detail workers started for %d accounts", len(orderWorkers))

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	// Find : after user
	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
