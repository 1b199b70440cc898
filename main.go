package main

// GET /cart - current cart with count and subtotal
// POST /cart/add - add one unit of a product
// POST /cart/remove - remove a product from the cart
// POST /cart/amount - set the quantity of a product in the cart
// GET /notifications - websocket feed of cart notifications
// GET /products/{id}, GET /stock/{id} - catalog lookups (needs DATABASE_URL)
// POST /products, GET /products/list, POST /stock - catalog admin

// --- EMBED MIGRATIONS ---
import (
	"context"
	_ "embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-cart/catalog"
	"storefront-cart/config"
	"storefront-cart/handler"
	"storefront-cart/notify"
	"storefront-cart/service"
	"storefront-cart/store"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed migrations.sql
var migrationSQL string

var log *logrus.Logger

func init() {
	log = logrus.New()
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
}

func main() {
	cfg := config.Load()
	log.Level = cfg.LogLevel
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	ctx := context.Background()

	// --- Postgres (catalog, optional snapshot slot) ---
	var pg *store.PostgresStore
	if cfg.DatabaseURL != "" {
		var err error
		pg, err = store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("DB connection failed: %v", err)
		}
		defer pg.Close()

		if _, err := pg.DB.ExecContext(ctx, migrationSQL); err != nil {
			log.Fatalf("Failed running migrations: %v", err)
		}
		log.Info("database migrations executed")
	}

	// --- Snapshot slot ---
	var snapshots store.SnapshotStore
	switch cfg.SnapshotBackend {
	case config.BackendPostgres:
		snapshots = pg
	case config.BackendRedis:
		rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		defer rs.Close()
		snapshots = rs
	default:
		snapshots = store.NewMemoryStore()
	}
	log.WithField("backend", cfg.SnapshotBackend).Info("snapshot store ready")

	// --- Notifications ---
	hub := notify.NewHub(log)
	defer hub.Close()
	notifier := notify.Multi{notify.NewLogNotifier(log), hub}

	// --- Cart ---
	cart, err := service.NewCartStore(ctx, service.Deps{
		Snapshots: snapshots,
		Catalog:   catalog.NewClient(cfg.CatalogURL, cfg.CatalogTimeout),
		Notifier:  notifier,
		Log:       log,
		Key:       cfg.StorageKey,
	})
	if err != nil {
		log.Fatalf("failed to load cart: %v", err)
	}

	// --- Handlers ---
	var cat store.Catalog
	if pg != nil {
		cat = pg
	}
	h := handler.NewHandler(cart, cat, hub, log)

	// --- Router ---
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	// --- Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server running on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
}
