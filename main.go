package main

import (
	"context"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/username/moneyflow/backend/src/config"
	"github.com/username/moneyflow/backend/src/database"
	"github.com/username/moneyflow/backend/src/handlers"
	"github.com/username/moneyflow/backend/src/logger"
	"github.com/username/moneyflow/backend/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == config.Cfg.FrontendURL {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Cache-Control")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("MoneyFlow backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	db, err := database.InitDB(config.Cfg.DatabasePath)
	if err != nil {
		stdlog.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()
	if err := database.RunMigrations(db, config.Cfg.DatabasePath, config.Cfg.MigrationsPath); err != nil {
		stdlog.Fatalf("failed to run migrations: %v", err)
	}

	store := database.NewStore(db)

	rates := services.NewECBRateService(config.Cfg.BaseCurrency)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rates.Run(ctx, config.Cfg.RateRefreshInterval)

	calcService := services.NewCalculateService(rates)
	groupService := services.NewGroupService(calcService, store, services.SystemClock{})

	txHandler := handlers.NewTransactionHandler(store, groupService)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(rateLimitMiddleware)
	r.Use(enableCORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/transactions/list", txHandler.HandleGetTransactionsList)
		r.Get("/transactions/stream", txHandler.HandleStreamTransactionsList)
		r.Post("/transactions", txHandler.HandleAddTransaction)
		r.Post("/transactions/link", txHandler.HandleLinkTransactions)
		r.Delete("/transactions/{id}", txHandler.HandleDeleteTransaction)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE stream endpoint holds its response open.
		IdleTimeout: 60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
