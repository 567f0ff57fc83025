package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tablebook/pkg/logger"

	"github.com/IBM/sarama"
)

// errMalformed marks messages that can never be processed. They are committed
// so they do not block the partition.
var errMalformed = errors.New("malformed notification")

type NotificationConsumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	SessionTimeout    time.Duration
	Heartbeat         time.Duration
	MaxProcessingTime time.Duration
	OffsetOldest      bool

	// email retries inside one delivery, before the offset is left uncommitted
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "tablebook-notification-workers",
		Topics:               []string{"reservations"},
		SessionTimeout:       30 * time.Second,
		Heartbeat:            3 * time.Second,
		MaxProcessingTime:    time.Minute,
		OffsetOldest:         true,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

func (c *ConsumerConfig) saramaConfig() *sarama.Config {
	sc := sarama.NewConfig()
	sc.Consumer.Group.Session.Timeout = c.SessionTimeout
	sc.Consumer.Group.Heartbeat.Interval = c.Heartbeat
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.MaxProcessingTime = c.MaxProcessingTime
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.AutoCommit.Enable = true
	sc.Consumer.Offsets.AutoCommit.Interval = time.Second

	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	if c.OffsetOldest {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	return sc
}

// KafkaNotificationConsumer runs one group member per worker so the topic's
// partitions are split between them.
type KafkaNotificationConsumer struct {
	config       *ConsumerConfig
	emailService EmailService
	log          *logger.Logger

	mu     sync.Mutex
	groups []sarama.ConsumerGroup
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaNotificationConsumer checks the configuration by building the
// sarama config; members join the group in StartConsumers.
func NewKafkaNotificationConsumer(config *ConsumerConfig, emailService EmailService) (*KafkaNotificationConsumer, error) {
	if len(config.Brokers) == 0 || config.GroupID == "" || len(config.Topics) == 0 {
		return nil, errors.New("consumer needs brokers, a group id and at least one topic")
	}
	if err := config.saramaConfig().Validate(); err != nil {
		return nil, fmt.Errorf("invalid consumer config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaNotificationConsumer{
		config:       config,
		emailService: emailService,
		log:          logger.GetDefault(),
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

func (knc *KafkaNotificationConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}

	knc.mu.Lock()
	defer knc.mu.Unlock()

	for i := 0; i < numWorkers; i++ {
		group, err := sarama.NewConsumerGroup(knc.config.Brokers, knc.config.GroupID, knc.config.saramaConfig())
		if err != nil {
			knc.cancel()
			return fmt.Errorf("failed to join consumer group (worker %d): %w", i, err)
		}
		knc.groups = append(knc.groups, group)

		handler := &ConsumerGroupHandler{
			config:       knc.config,
			workerID:     i,
			emailService: knc.emailService,
			log:          knc.log,
		}

		knc.wg.Add(2)
		go func() {
			defer knc.wg.Done()
			knc.consume(group, handler)
		}()
		go func() {
			defer knc.wg.Done()
			for err := range group.Errors() {
				knc.log.Error("Consumer group error", slog.Int("worker", handler.workerID), slog.String("error", err.Error()))
			}
		}()
	}

	knc.log.InfoContext(ctx, "Notification consumers started",
		slog.Int("workers", numWorkers), slog.Any("topics", knc.config.Topics))
	return nil
}

// consume re-enters Consume after every rebalance until Stop
func (knc *KafkaNotificationConsumer) consume(group sarama.ConsumerGroup, handler *ConsumerGroupHandler) {
	for {
		err := group.Consume(knc.ctx, knc.config.Topics, handler)
		if knc.ctx.Err() != nil || errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return
		}
		if err != nil {
			knc.log.Error("Notification worker consume failed",
				slog.Int("worker", handler.workerID), slog.String("error", err.Error()))
			select {
			case <-time.After(time.Second):
			case <-knc.ctx.Done():
				return
			}
		}
	}
}

func (knc *KafkaNotificationConsumer) Stop() error {
	knc.cancel()

	knc.mu.Lock()
	var errs []error
	for _, g := range knc.groups {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	knc.groups = nil
	knc.mu.Unlock()

	knc.wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	knc.log.Info("Notification consumer stopped")
	return nil
}

func (knc *KafkaNotificationConsumer) HealthCheck(ctx context.Context) error {
	if knc.ctx.Err() != nil {
		return errors.New("consumer is stopped")
	}
	if knc.emailService == nil {
		return errors.New("email service not configured")
	}

	knc.mu.Lock()
	members := len(knc.groups)
	knc.mu.Unlock()
	if members == 0 {
		return errors.New("no consumer group members running")
	}
	return nil
}

// ConsumerGroupHandler sends one email per consumed message
type ConsumerGroupHandler struct {
	config       *ConsumerConfig
	workerID     int
	emailService EmailService
	log          *logger.Logger
}

func (h *ConsumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session started",
		slog.Int("worker", h.workerID), slog.Any("claims", session.Claims()))
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Debug("Consumer group session ended", slog.Int("worker", h.workerID))
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			err := h.processMessage(session.Context(), message)
			switch {
			case err == nil:
				session.MarkMessage(message, "")
			case errors.Is(err, errMalformed):
				h.log.Error("Dropping malformed notification",
					slog.Int("worker", h.workerID),
					slog.Int64("offset", message.Offset),
					slog.String("error", err.Error()))
				session.MarkMessage(message, "malformed")
			default:
				h.log.Error("Failed to process notification",
					slog.Int("worker", h.workerID),
					slog.Int64("offset", message.Offset),
					slog.String("error", err.Error()))
			}

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *ConsumerGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var notification EmailNotification
	if err := json.Unmarshal(message.Value, &notification); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	if notification.IsExpired() {
		h.log.Warn("Notification expired, skipping",
			slog.String("notification_id", notification.ID.String()),
			slog.String("reservation_number", notification.ReservationNumber))
		return nil
	}

	notification.Status = NotificationStatusSending
	if err := h.sendWithRetry(ctx, &notification); err != nil {
		return err
	}

	notification.MarkSent()
	h.log.Info("Notification email sent",
		slog.Int("worker", h.workerID),
		slog.String("type", string(notification.Type)),
		slog.String("reservation_number", notification.ReservationNumber))
	return nil
}

// sendWithRetry stops at the config's retry cap or when the notification's
// own retry budget runs out, whichever comes first.
func (h *ConsumerGroupHandler) sendWithRetry(ctx context.Context, notification *EmailNotification) error {
	delay := h.config.RetryBackoffDuration

	for attempt := 0; ; attempt++ {
		err := h.emailService.SendNotification(ctx, notification)
		if err == nil {
			return nil
		}

		notification.MarkFailed(err)
		notification.IncrementRetry()
		if attempt >= h.config.MaxRetries || notification.Status == NotificationStatusExpired {
			return fmt.Errorf("send %s to %s: %w", notification.Type, notification.RecipientEmail, err)
		}

		h.log.Warn("Retrying notification email",
			slog.Int("attempt", attempt+1), slog.Duration("delay", delay), slog.String("error", err.Error()))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}
