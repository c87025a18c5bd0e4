package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/menucraft/api/internal/checkout"
	"github.com/menucraft/api/internal/config"
	"github.com/menucraft/api/internal/database"
	"github.com/menucraft/api/internal/notify"
	"github.com/menucraft/api/internal/offline"
	"github.com/menucraft/api/internal/router"
	"github.com/menucraft/api/internal/ws"
)

func main() {
	cfg := config.Load()

	// `server migrate` applies migrations and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	hub := ws.NewHub()
	go hub.Run()

	deps := router.Deps{
		Queries:    database.New(pool),
		Pool:       pool,
		Hub:        hub,
		Sessions:   checkout.NewSessionStore(checkout.DefaultSessionTTL),
		Dispatcher: newDispatcher(cfg, hub),
		Worker:     newWorker(ctx, cfg),
	}

	if cfg.RedisURL != "" {
		client, err := checkout.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Unable to connect to redis: %v", err)
		}
		defer client.Close()
		deps.Challenges = checkout.NewRedisChallengeStore(client)
		log.Println("Verification codes stored in redis")
	}
	if cfg.OTPWebhookURL != "" {
		deps.Sender = checkout.NewHTTPSender(cfg.OTPWebhookURL)
	}

	go sweepSessions(ctx, deps.Sessions)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		log.Fatalf("Server error: %v", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
	deps.Dispatcher.Wait()
	if deps.Worker != nil {
		deps.Worker.Wait()
	}
}

// newDispatcher always notifies open admin windows and, when configured,
// the Telegram admin chat.
func newDispatcher(cfg *config.Config, hub *ws.Hub) *notify.Dispatcher {
	channels := []notify.Channel{notify.NewHubChannel(hub)}

	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Printf("ERROR: telegram bot disabled: %v", err)
		} else {
			log.Printf("Telegram notifications enabled as @%s", bot.Self.UserName)
			channels = append(channels, notify.NewTelegramChannel(bot, cfg.TelegramChatID, cfg.PublicBaseURL))
		}
	}

	return notify.NewDispatcher(channels...)
}

// newWorker precaches the asset manifest. A failed install is logged and
// the worker still serves, fetching from disk on every miss.
func newWorker(ctx context.Context, cfg *config.Config) *offline.Worker {
	manifest, err := offline.LoadManifest(cfg.OfflineManifest)
	if err != nil {
		log.Printf("ERROR: offline manifest: %v", err)
		return nil
	}

	worker, err := offline.NewWorker(manifest, offline.NewCacheStorage(), offline.FSFetcher{FS: os.DirFS(cfg.AssetsDir)}, cfg.PublicBaseURL)
	if err != nil {
		log.Printf("ERROR: offline worker: %v", err)
		return nil
	}

	if err := worker.Install(ctx); err != nil {
		log.Printf("ERROR: precache assets: %v", err)
	} else {
		deleted := worker.Activate(ctx)
		log.Printf("Precached %d assets into %s (removed %d old caches)", len(manifest.Assets), manifest.CacheName, len(deleted))
	}
	return worker
}

func sweepSessions(ctx context.Context, sessions *checkout.SessionStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				log.Printf("Expired %d checkout sessions", n)
			}
		}
	}
}
