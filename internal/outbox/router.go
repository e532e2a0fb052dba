package outbox

import (
	"database/sql"
	"fmt"
	"time"

	"ms-boxoffice/internal/config"
	"ms-boxoffice/internal/logger"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewSubscriber polls the postgres outbox tables and initializes them.
func NewSubscriber(db *sql.DB, cfg config.OutboxConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := watermillSQL.NewSubscriber(db, watermillSQL.SubscriberConfig{
		SchemaAdapter:    watermillSQL.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   watermillSQL.DefaultPostgreSQLOffsetsAdapter{},
		PollInterval:     cfg.PollInterval,
		InitializeSchema: true,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create outbox subscriber: %w", err)
	}

	for _, topic := range Topics() {
		if err := sub.SubscribeInitialize(topic); err != nil {
			return nil, fmt.Errorf("initialize outbox topic %s: %w", topic, err)
		}
	}
	return sub, nil
}

// NewRouter wires the outbox handlers. Guest fan-out retries until it
// succeeds; inventory roll-over gives up after cfg.MaxRetries.
func NewRouter(sub message.Subscriber, h *Handlers, cfg config.OutboxConfig, log *logger.Logger) (*message.Router, error) {
	wlog := logger.Watermill(log)

	router, err := message.NewRouter(message.RouterConfig{}, wlog)
	if err != nil {
		return nil, fmt.Errorf("create outbox router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
		Logger:          wlog,
	}

	fanOut := router.AddNoPublisherHandler("guest_fan_out", TopicGuestFanOut, sub, h.FanOutGuests)
	fanOut.AddMiddleware(retry.Middleware)

	rollOver := router.AddNoPublisherHandler("inventory_rollover", TopicInventory, sub, h.RollOverInventory)
	rollOver.AddMiddleware(BestEffort(log), retry.Middleware)

	return router, nil
}
