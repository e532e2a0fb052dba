package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	watermillSQL "github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
)

const keyMetadata = "key"

// Enqueuer writes jobs into the outbox tables inside the caller's
// transaction, so a job exists exactly when the rows it follows up on do.
type Enqueuer struct {
	Logger watermill.LoggerAdapter
}

func NewEnqueuer(logger watermill.LoggerAdapter) *Enqueuer {
	return &Enqueuer{Logger: logger}
}

func (e *Enqueuer) Enqueue(ctx context.Context, tx *sql.Tx, jobs ...Job) error {
	publisher, err := watermillSQL.NewPublisher(
		tx,
		watermillSQL.PublisherConfig{
			SchemaAdapter: watermillSQL.DefaultPostgreSQLSchema{},
		},
		e.Logger,
	)
	if err != nil {
		return fmt.Errorf("create outbox publisher: %w", err)
	}

	for _, job := range jobs {
		msg, err := NewMessage(job)
		if err != nil {
			return err
		}
		msg.SetContext(ctx)
		if err := publisher.Publish(job.Topic(), msg); err != nil {
			return fmt.Errorf("enqueue %s for %s: %w", job.Topic(), job.Key(), err)
		}
	}
	return nil
}

// NewMessage encodes a job as a watermill message.
func NewMessage(job Job) (*message.Message, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal %s job: %w", job.Topic(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(keyMetadata, job.Key())
	return msg, nil
}
