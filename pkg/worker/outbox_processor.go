package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

const maxRetryDelay = time.Hour

type OutboxProcessorConfig struct {
	Channel      string
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries is how many failed publishes an event gets before it is
	// parked as failed
	MaxRetries int
	// RetryDelay is the first backoff step; it doubles per attempt
	RetryDelay time.Duration
	// StaleAfter reclaims events left in processing by a crashed worker
	StaleAfter time.Duration
}

func (c OutboxProcessorConfig) validate() error {
	switch {
	case c.Channel == "":
		return errors.New("channel must not be empty")
	case c.BatchSize <= 0:
		return errors.New("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be greater than 0")
	case c.MaxRetries < 0:
		return errors.New("max retries must not be negative")
	case c.RetryDelay <= 0:
		return errors.New("retry delay must be greater than 0")
	case c.StaleAfter <= 0:
		return errors.New("stale after must be greater than 0")
	}
	return nil
}

// OutboxProcessor publishes recorded events to the broker. Delivery is at
// least once: an event is marked processed only after a successful publish.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.Broker
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	if m == nil {
		return nil, errors.New("metrics must not be nil")
	}
	if log == nil {
		log = logger.Nop()
	}

	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		config:  config,
		logger:  log.With("outbox-processor"),
		metrics: m,
		now:     time.Now,
	}, nil
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("starting outbox processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch of due events and publishes them. It returns
// the number of events published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize, p.config.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.OutboxBatchSize.Set(float64(len(events)))

	published := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Error(err, "failed to process event",
				"event_id", event.ID.String(),
				"event_type", event.EventType)
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	msg := messaging.Message{
		ID:         event.ID,
		Type:       event.EventType,
		Payload:    event.Payload,
		OccurredAt: event.CreatedAt,
	}

	if err := p.broker.Publish(ctx, p.config.Channel, msg); err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		if markErr := p.repo.MarkFailed(ctx, event.ID, err.Error(), p.nextAttempt(event)); markErr != nil {
			p.logger.Error(markErr, "failed to update event status", "event_id", event.ID.String())
		}
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if event.RetryCount > 0 {
		p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	}
	p.metrics.OutboxEventsProcessed.Inc()

	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// nextAttempt returns when a failed event is due again, or nil once its
// retries are exhausted
func (p *OutboxProcessor) nextAttempt(event *model.OutboxEvent) *time.Time {
	if event.RetryCount >= p.config.MaxRetries {
		return nil
	}
	delay := p.config.RetryDelay << event.RetryCount
	if delay <= 0 || delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	at := p.now().Add(delay)
	return &at
}
