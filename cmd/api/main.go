package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/knc219-a11y/pension-list/internal/app"
	"github.com/knc219-a11y/pension-list/internal/config"
	"github.com/knc219-a11y/pension-list/internal/export"
	"github.com/knc219-a11y/pension-list/internal/feed"
	"github.com/knc219-a11y/pension-list/internal/search"
	"github.com/knc219-a11y/pension-list/internal/session"
	"github.com/knc219-a11y/pension-list/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded, relying on the process environment")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var items app.ItemStore
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := store.ApplyMigrations(ctx, db, os.DirFS(cfg.MigrationsDir)); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
		items = store.NewPostgresStore(db)
	} else {
		log.Printf("DATABASE_URL not set, keeping items in memory")
		items = store.NewMemoryStore()
	}

	var (
		notifier feed.Notifier
		sessions app.SessionStore
	)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for the change feed and guest identities")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
		notifier = feed.NewRedis(redisStore.Client())
	} else {
		log.Printf("REDIS_URL not set, running a single-instance feed")
		sessions = session.NewMemoryStore()
		notifier = feed.NewLocal()
	}

	service := app.New(cfg, items, notifier, sessions)

	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meili.Close()
		service.UseSearch(search.NewService(meili, search.NewStoreSearch(items)))
	}

	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archive, err := export.NewMinioArchive(ctx, export.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("WARNING: export archive disabled: %v", err)
		} else {
			service.UseExporter(export.NewService(items, archive))
		}
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("pension-list API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
