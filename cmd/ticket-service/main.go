// Command ticket-service runs only the door endpoints (check-in, ticket
// inspection and attendance) so scanners keep working when the checkout
// service is being redeployed.
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
	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/database"
	"ms-boxoffice/internal/logger"
	"ms-boxoffice/internal/tickets"
	ticketsdb "ms-boxoffice/internal/tickets/db"
	"ms-boxoffice/internal/tickets/qr"
	"ms-boxoffice/internal/tickets/ticket_api"
	"ms-boxoffice/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		log.Error("DATABASE", err.Error())
		os.Exit(1)
	}
	defer bunDB.Close()

	staff, err := auth.NewOIDCVerifier(ctx, cfg.Auth.OIDCIssuer, cfg.Auth.OIDCClientID)
	if err != nil {
		log.Error("AUTH", fmt.Sprintf("oidc provider: %v", err))
		os.Exit(1)
	}
	scanLimiter := auth.NewScanLimiter(cfg.CheckIn.ScanRate, cfg.CheckIn.ScanBurst)

	service := tickets.NewTicketService(ticketsdb.New(bunDB), cfg.CheckIn.GraceWindow, log)
	handler := ticket_api.NewHandler(service, qr.NewGenerator(), nil, log)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(utils.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tickets/{seed}/qr", handler.TicketQR)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(staff, log))
			handler.RegisterDoorRoutes(r, scanLimiter.Middleware)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Ticket door service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP", fmt.Sprintf("HTTP server error: %v", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
}
