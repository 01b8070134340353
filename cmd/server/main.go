package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/OleSpjeldnas/ConvexFX/internal/amount"
	"github.com/OleSpjeldnas/ConvexFX/internal/api"
	"github.com/OleSpjeldnas/ConvexFX/internal/asset"
	"github.com/OleSpjeldnas/ConvexFX/internal/clearing"
	"github.com/OleSpjeldnas/ConvexFX/internal/ledger"
	"github.com/OleSpjeldnas/ConvexFX/internal/metrics"
	"github.com/OleSpjeldnas/ConvexFX/internal/oracle"
	"github.com/OleSpjeldnas/ConvexFX/internal/reporter"
	"github.com/OleSpjeldnas/ConvexFX/internal/risk"
	"github.com/OleSpjeldnas/ConvexFX/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Oracle: NATS subscriber if configured, mock otherwise ---
	var o oracle.Oracle
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		nc, err := nats.Connect(natsURL)
		if err != nil {
			slog.Error("nats connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, nc.Close)
		sub, err := oracle.NewSubscriber(nc, os.Getenv("NATS_PRICE_SUBJECT"))
		if err != nil {
			slog.Error("nats subscriber setup failed", "err", err)
			os.Exit(1)
		}
		streamName := os.Getenv("NATS_PRICE_STREAM")
		if streamName == "" {
			streamName = "CONVEXFX_ORACLE"
		}
		subCtx, subCancel := context.WithCancel(context.Background())
		cleanup = append(cleanup, subCancel)
		go func() {
			if err := sub.Run(subCtx, streamName); err != nil && subCtx.Err() == nil {
				slog.Error("oracle subscriber stopped", "err", err)
			}
		}()
		o = sub
		slog.Info("subscribed to oracle price feed", "stream", streamName)
	} else {
		slog.Warn("NATS_URL not set, using mock oracle")
		o = oracle.NewMock()
	}

	// --- Risk parameters ---
	riskPreset := os.Getenv("RISK_PRESET")
	var riskParams risk.Params
	switch riskPreset {
	case "ultra_low_slippage":
		riskParams = risk.UltraLowSlippage(asset.N)
	case "low_slippage":
		riskParams = risk.LowSlippage(asset.N)
	case "fill_friendly":
		riskParams = risk.FillFriendly(asset.N)
	default:
		riskParams = risk.DefaultDemo(asset.N)
	}
	slog.Info("risk preset loaded", "preset", riskPreset)

	// --- Solver backend + SCP driver ---
	var backend clearing.SolverBackend
	if os.Getenv("SOLVER_BACKEND") == "projected_gradient" {
		backend = clearing.NewProjectedGradientSolver()
	} else {
		backend = clearing.NewADMMSolver()
	}
	driver := clearing.NewDriver(backend)

	// --- Ledger, seeded with pool inventory ---
	led := ledger.NewMemoryLedger()
	if err := led.CreateAccount(api.PoolAccount); err != nil {
		slog.Error("failed to create pool account", "err", err)
		os.Exit(1)
	}
	for _, a := range asset.All {
		units, err := strconv.ParseInt(os.Getenv("POOL_SEED_"+a.String()), 10, 64)
		if err != nil {
			units = 1_000_000
		}
		if err := led.Deposit(api.PoolAccount, a, amount.FromUnits(units)); err != nil {
			slog.Error("failed to seed pool inventory", "asset", a.String(), "err", err)
			os.Exit(1)
		}
	}

	// --- Audit reporter ---
	rep := reporter.NewMemoryReporter()

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- Clearing service ---
	svc := api.NewService(driver, o, riskParams, led, rep, st, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"convexfx"}`))
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ws", wsHub.HandleWS)

		r.Post("/epochs/{epochID}/commitments", svc.CommitOrder)
		r.Post("/epochs/{epochID}/orders", svc.RevealOrder)
		r.Post("/epochs/{epochID}/clear", svc.ClearEpoch)
		r.Get("/epochs/{epochID}", svc.GetEpochReport)
		r.Get("/epochs/{epochID}/witness", svc.GetWitness)

		r.Get("/accounts/{accountID}/balance", svc.GetBalance)
		r.Get("/inventory", svc.GetPoolInventory)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("convexfx listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down convexfx...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("convexfx stopped")
}
