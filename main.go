package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"checkinbot/internal/api"
	"checkinbot/internal/checkin"
	"checkinbot/internal/config"
	"checkinbot/internal/redis"
	"checkinbot/internal/storage"
	"checkinbot/internal/telegram"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfgPath := os.Getenv("CHECKINBOT_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Telegram.AdminChatID == 0 {
		log.Printf("WARNING: telegram.admin_chat_id not configured, completed check-ins will not be forwarded")
	}

	// The session store degrades to memory-only when redis is unreachable,
	// so a failed connection is a warning, not a fatal.
	var kv checkin.KV
	rdb, err := redis.NewClient(cfg)
	if err != nil {
		log.Printf("WARNING: redis unavailable, sessions will not survive a restart: %v", err)
	} else {
		defer rdb.Close()
		kv = rdb
	}
	sessions := checkin.NewStore(kv)

	// The submission archive is optional: no database config, no archive.
	var archive *storage.Store
	dbType := os.Getenv("CHECKINBOT_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	if len(cfg.Databases) > 0 {
		db, err := storage.Open(dbType, cfg)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		if err := storage.Migrate(db, dbType); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		archive = storage.NewStore(db)
	} else {
		log.Printf("no databases configured, submission archive disabled")
	}

	client := telegram.NewClient(cfg.Telegram.BotToken)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if base := cfg.Telegram.WebhookBaseURL; base != "" {
		url := strings.TrimRight(base, "/") + "/webhook"
		if err := client.SetWebhook(ctx, url, cfg.Telegram.WebhookSecret); err != nil {
			log.Fatalf("register webhook %s: %v", url, err)
		}
		log.Printf("webhook registered at %s", url)
	}

	handlers := api.NewHandler(cfg, client, sessions, archive)
	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
