package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"estatehub/internal/auth"
	"estatehub/internal/backend"
	"estatehub/internal/category"
	"estatehub/internal/listing"
	"estatehub/internal/seed"
	synchub "estatehub/internal/sync"
	"estatehub/internal/transfer"
	"estatehub/pkg/utils"
)

func main() {
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	be, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("backend %s: %v", cfg.Backend, err)
	}
	defer be.Close()

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	// Start TCP sync first (so binding errors show up early)
	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub))
	tcpSrv := synchub.NewServer(cfg.SyncAddr, hub)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": be.Kind})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		if err := be.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"backend":     be.Kind,
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
			"last_seq":    stats.LastSeq,
		})
	})

	// Auth
	admin, err := auth.NewAdmin(cfg.Auth.AdminPassword)
	if err != nil {
		log.Fatalf("admin credentials: %v", err)
	}
	tokens := auth.TokenService{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Duration: cfg.Auth.JWTDuration,
	}
	auth.NewHandler(admin, tokens).RegisterRoutes(router.Group("/auth"))

	listingHandler := listing.NewHandler(be.Listings, hub)
	categoryHandler := category.NewHandler(be.Categories, hub)
	transferHandler := transfer.NewHandler(be.Transfer, hub)

	// Public catalog
	public := router.Group("")
	listingHandler.RegisterPublicRoutes(public)
	categoryHandler.RegisterPublicRoutes(public)

	// Admin (protected)
	protected := router.Group("/admin")
	protected.Use(auth.AdminMiddleware(tokens))
	listingHandler.RegisterAdminRoutes(protected)
	categoryHandler.RegisterAdminRoutes(protected)
	transferHandler.RegisterRoutes(protected)

	// Seed an empty catalog in the background; a failure never stops the server
	if sources := seedSources(cfg.Seed); len(sources) > 0 {
		boot := seed.NewBootstrapper(be.Listings, be.Transfer, sources...)
		go func() {
			seedCtx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			res, err := boot.Bootstrap(seedCtx, false)
			if err != nil {
				log.Printf("[seed] bootstrap failed: %v", err)
				return
			}
			if res.Applied > 0 {
				hub.BroadcastJSON(synchub.Event{Type: synchub.EventListingImport, Count: res.Applied})
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP API server listening on %s (%s backend)", cfg.HTTPAddr, be.Kind)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("server error: %v", err)
	}

	log.Println("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("tcp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("servers stopped")
}

func seedSources(cfg utils.SeedConfig) []seed.Source {
	var sources []seed.Source
	if cfg.URL != "" {
		sources = append(sources, seed.NewHTTPSource(cfg.URL))
	}
	if cfg.File != "" {
		sources = append(sources, &seed.FileSource{Path: cfg.File})
	}
	return sources
}
