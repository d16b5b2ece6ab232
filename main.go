package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agromart/analytics"
	"agromart/auth"
	"agromart/cart"
	"agromart/config"
	"agromart/db"
	"agromart/farms"
	"agromart/idempotency"
	"agromart/logging"
	"agromart/middleware"
	"agromart/mq"
	"agromart/notify"
	"agromart/orders"
	"agromart/ratelim"
	"agromart/rdx"
	"agromart/routes"
	"agromart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// healthHandler reports 503 while MongoDB is unreachable.
func healthHandler(store *db.DB) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Client.Ping(ctx, readpref.Primary()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "status": "ok"})
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			slog.Warn("mongo disconnect", "error", err)
		}
	}()
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	orderStore := orders.NewMongoStore(store.Collections.Orders)
	var (
		sequence orders.Sequencer = orders.NewMongoSequence(store.Collections.Counters)
		locks    orders.Locker    = orders.NewLocalLocker()
		tx       orders.TxRunner  = db.DirectRunner{}
	)

	hub := notify.NewHub()
	go hub.Run()
	var notifier orders.Notifier = hub

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	if cfg.RedisAddr != "" {
		redisClient, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locks = rdx.NewLocker(redisClient, utils.GetUUID)
		if cfg.OrderSequence == config.SequenceRedis {
			sequence = rdx.NewOrderSequence(redisClient, orderStore.MaxSequence)
		}
		// events go through Redis so sockets on other instances see them
		notifier = mq.NewPublisher(redisClient)
		mq.StartWorker(relayCtx, redisClient, hub)
		slog.Info("connected to Redis", "addr", cfg.RedisAddr, "orderSequence", cfg.OrderSequence)
	}
	if cfg.MongoTransactions {
		tx = db.NewSessionRunner(store.Client)
	} else {
		slog.Info("MongoDB transactions disabled; failed checkouts are compensated")
	}

	limiter := ratelim.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	tokens := middleware.NewAuth(cfg.JWTSecret, cfg.TokenTTL)
	users := auth.NewMongoUsers(store.Collections.Users)
	carts := cart.NewMongoStore(store.Collections.Users)

	orderSvc := orders.NewService(orders.Deps{
		Orders:   orderStore,
		Carts:    carts,
		Users:    users,
		Sequence: sequence,
		Locks:    locks,
		Tx:       tx,
		Notifier: notifier,
	})

	router := httprouter.New()
	routes.RoutesWrapper(router, &routes.Handlers{
		Tokens:      tokens,
		Limiter:     limiter,
		Idempotency: idempotency.New(idempotency.NewMongoStore(store.Collections.Idempotency)),
		Auth:        auth.NewHandler(auth.NewService(users, tokens), cfg.TokenTTL, cfg.CookieSecure),
		Cart:        cart.NewHandler(cart.NewService(carts)),
		Orders:      orders.NewHandler(orderSvc),
		Analytics:   analytics.NewHandler(analytics.NewMongoReporter(store.Collections.Orders)),
		Farms:       farms.NewHandler(orderSvc, farms.NewSigner(cfg.ReceiptSecret)),
		Hub:         hub,
		Upgrader:    notify.NewUpgrader(cfg.AllowedOrigins),
		Health:      healthHandler(store),
	})

	// apply middleware: security headers → request id → logging → CORS → recover → router
	corsHandler := middleware.CORS(cfg.AllowedOrigins, middleware.Recover(router))

	handler := middleware.SecurityHeaders(middleware.RequestID(middleware.Logging(corsHandler)))

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// on shutdown: close every websocket
	server.RegisterOnShutdown(func() {
		slog.Info("shutting down notification hub")
		stopRelay()
		hub.Stop()
	})

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped cleanly")
	return nil
}
