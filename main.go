package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deview/adapters/catalog"
	"deview/adapters/tabular"
	"deview/internal"
	"deview/internal/config"
	"deview/internal/metrics"
	"deview/internal/session"
	"deview/internal/storage"
	"deview/ui"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	sessionTTL      = 12 * time.Hour
	sweepInterval   = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	internal.DefaultLogger.SetLevel(internal.ParseLogLevel(appConfig.LogLevel))
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, appConfig.Storage)
	if err != nil {
		log.Fatalf("Failed to open upload storage: %v", err)
	}
	if store != nil {
		log.Printf("[Storage] Keeping uploads in %s storage", store.Provider())
	} else {
		log.Println("[Storage] Upload storage disabled")
	}

	cat, err := catalog.Open(ctx, appConfig.Database)
	if err != nil {
		log.Fatalf("Failed to open upload catalog: %v", err)
	}
	defer cat.Close()

	m := metrics.New()
	readerConfig := tabular.DefaultConfig()
	readerConfig.Mapping = appConfig.Analysis.Mapping
	reader := tabular.NewReader(readerConfig)
	sessions := session.NewManager(appConfig.Analysis.Threshold, m)
	service := session.NewService(reader, store, cat.Uploads, m)

	if path := appConfig.Analysis.ResultsFile; path != "" {
		if err := service.Preload(ctx, sessions, path); err != nil {
			log.Fatalf("Failed to preload RESULTS_FILE: %v", err)
		}
	}

	server, err := ui.NewServer(ui.Assets, sessions, service, m, ui.Options{
		MaxUploadBytes: appConfig.Server.MaxUploadBytes,
		PipelineRoot:   appConfig.Analysis.PipelineRoot,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	servers := []*http.Server{{Addr: ":" + appConfig.Server.Port, Handler: server.Handler()}}
	if appConfig.Admin.Enabled {
		admin := ui.NewAdmin(m, sessions, service, map[string]ui.Pinger{"catalog": cat})
		servers = append(servers, &http.Server{Addr: ":" + appConfig.Admin.Port, Handler: admin.Handler()})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			log.Printf("🚀 Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Sweep(sessionTTL); n > 0 {
					log.Printf("[Session] Evicted %d idle sessions", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Shutdown of %s failed: %v", srv.Addr, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
