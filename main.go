package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ms-boxoffice/internal/auth"
	"ms-boxoffice/internal/catalog"
	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/database"
	"ms-boxoffice/internal/database/migrations"
	"ms-boxoffice/internal/inventory"
	"ms-boxoffice/internal/kafka"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/notify"
	"ms-boxoffice/internal/order"
	orderdb "ms-boxoffice/internal/order/db"
	orderkafka "ms-boxoffice/internal/order/kafka"
	"ms-boxoffice/internal/order/order_api"
	rediswrap "ms-boxoffice/internal/order/redis"
	"ms-boxoffice/internal/outbox"
	"ms-boxoffice/internal/payment"
	"ms-boxoffice/internal/tickets"
	ticketsdb "ms-boxoffice/internal/tickets/db"
	"ms-boxoffice/internal/tickets/pdf"
	"ms-boxoffice/internal/tickets/qr"
	"ms-boxoffice/internal/tickets/ticket_api"
	"ms-boxoffice/internal/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Box Office service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("APP", err.Error())
		log.Close()
		os.Exit(1)
	}
	log.Info("APP", "Box Office service shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// --- PostgreSQL ---
	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(database.DSN(cfg.Database), cfg.Database.MigrationsDir, log)
		err := runner.Up()
		runner.Close()
		if err != nil {
			return err
		}
	}

	// --- Redis ---
	redisClient, err := rediswrap.Connect(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// --- Kafka ---
	var (
		events     order.KafkaPublisher
		dispatcher notify.Dispatcher = notify.Nop{}
	)
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
		defer producer.Close()

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		events = orderkafka.NewEvents(producer, cfg.Kafka.Topics.OrderEvents)
		dispatcher = notify.NewKafkaDispatcher(producer, cfg.Kafka.Topics.Notifications)
	} else {
		log.Warn("KAFKA", "Kafka disabled, order events and notifications are dropped")
	}

	// --- Payments and auth ---
	gateway, err := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency, log)
	if err != nil {
		return err
	}

	staff, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
	if err != nil {
		return fmt.Errorf("oidc provider: %w", err)
	}
	orderTokens := auth.NewOrderTokens(cfg.Auth.OrderTokenSecret, cfg.Auth.OrderTokenIssuer, cfg.Auth.OrderTokenAud)
	scanLimiter := auth.NewScanLimiter(cfg.CheckIn.ScanRate, cfg.CheckIn.ScanBurst)

	// --- Services ---
	ticketStore := ticketsdb.New(bunDB)
	ticketService := tickets.NewTicketService(ticketStore, cfg.CheckIn.GraceWindow, log)
	rollOver := inventory.New(bunDB, log)

	wlog := logger.Watermill(log)
	subscriber, err := outbox.NewSubscriber(bunDB.DB, cfg.Outbox, wlog)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	orderService := order.NewOrderService(order.Deps{
		DB:      orderdb.New(bunDB),
		Catalog: catalog.NewReader(bunDB),
		Gateway: gateway,
		Lock:    rediswrap.NewCheckoutLock(redisClient, cfg.Checkout.LockTTL, log),
		Outbox:  outbox.NewEnqueuer(wlog),
		Kafka:   events,
		Notify:  dispatcher,
		Guests:  ticketStore,
		Tokens:  orderTokens,
	}, cfg.Checkout, cfg.Notify, log)
	defer orderService.Wait()

	// --- HTTP ---
	orderHandler := order_api.NewHandler(orderService, log)
	qrGenerator := qr.NewGenerator()
	ticketHandler := ticket_api.NewHandler(ticketService, qrGenerator, pdf.NewRenderer(qrGenerator), log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(utils.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		// --- Public Routes ---
		r.Post("/orders", orderHandler.CreateOrder)
		r.Get("/tickets/{seed}/qr", ticketHandler.TicketQR)

		// --- Purchaser or staff ---
		r.Group(func(r chi.Router) {
			r.Use(auth.OrderAccess(orderTokens, staff, log))
			r.Get("/orders/{id}/tickets", ticketHandler.OrderTickets)
			r.Get("/orders/{id}/tickets.pdf", ticketHandler.OrderTicketsPDF)
		})

		// --- Staff Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(staff, log))

			r.Get("/orders/{id}", orderHandler.GetOrder)
			r.Delete("/orders/{id}", orderHandler.RefundOrder)
			r.Post("/orders/{id}/transfers", orderHandler.TransferTickets)

			ticketHandler.RegisterDoorRoutes(r, scanLimiter.Middleware)
			r.Post("/guests", ticketHandler.CreateGuest)
			r.Patch("/guests/{id}", ticketHandler.UpdateGuest)
			r.Delete("/guests/{id}", ticketHandler.ArchiveGuest)
		})
	})
	log.Info("ROUTER", "Routes registered under /v1")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	var router *message.Router
	if cfg.Outbox.Enabled {
		router, err = outbox.NewRouter(subscriber, outbox.NewHandlers(ticketService, rollOver, log), cfg.Outbox, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return router.Run(ctx)
		})
	} else {
		log.Warn("OUTBOX", "Outbox router disabled, jobs wait for another instance")
	}

	g.Go(func() error {
		if router != nil {
			select {
			case <-router.Running():
			case <-ctx.Done():
				return nil
			}
		}
		log.Info("HTTP", fmt.Sprintf("Box Office service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if router != nil {
			return router.Close()
		}
		return nil
	})

	return g.Wait()
}
