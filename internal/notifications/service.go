package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"tablebook/internal/shared/config"
	"tablebook/internal/submission"
	"tablebook/pkg/logger"
)

// NotificationService publishes reservation events and runs the workers that
// turn them into emails.
type NotificationService interface {
	submission.Notifier
	Start(ctx context.Context) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ServiceConfig struct {
	KafkaBrokers       []string
	Topic              string
	ConsumerGroupID    string
	NumConsumerWorkers int
	SMTP               SMTPConfig
	RestaurantEmail    string
	RestaurantPhone    string
}

// NewServiceConfig picks the notification settings out of the app config
func NewServiceConfig(cfg *config.Config, restaurant *config.Restaurant) *ServiceConfig {
	return &ServiceConfig{
		KafkaBrokers:       cfg.Kafka.Brokers,
		Topic:              cfg.Kafka.Topic,
		ConsumerGroupID:    cfg.Kafka.ConsumerGroupID,
		NumConsumerWorkers: cfg.Kafka.NumWorkers,
		SMTP: SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
			UseTLS:    true,
		},
		RestaurantEmail: cfg.Email.RestaurantEmail,
		RestaurantPhone: restaurant.Phone,
	}
}

type EmailNotificationService struct {
	config   *ServiceConfig
	producer NotificationProducer
	consumer NotificationConsumer
	notifier *ReservationNotifier
	log      *logger.Logger

	isRunning bool
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewEmailNotificationService connects the producer and consumer group. Emails
// go through SMTP when a host is configured, and to the log otherwise.
func NewEmailNotificationService(cfg *ServiceConfig) (*EmailNotificationService, error) {
	var emailService EmailService
	if cfg.SMTP.Host != "" {
		smtpService, err := NewSMTPEmailService(&cfg.SMTP)
		if err != nil {
			return nil, err
		}
		emailService = smtpService
	} else {
		logService, err := NewLogEmailService()
		if err != nil {
			return nil, err
		}
		emailService = logService
	}

	producerConfig := DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.KafkaBrokers
	producerConfig.Topic = cfg.Topic

	producer, err := NewKafkaNotificationProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification producer: %w", err)
	}

	consumerConfig := DefaultConsumerConfig()
	consumerConfig.Brokers = cfg.KafkaBrokers
	consumerConfig.Topics = []string{cfg.Topic}
	consumerConfig.GroupID = cfg.ConsumerGroupID

	consumer, err := NewKafkaNotificationConsumer(consumerConfig, emailService)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to create notification consumer: %w", err)
	}

	return newEmailNotificationService(cfg, producer, consumer), nil
}

func newEmailNotificationService(cfg *ServiceConfig, producer NotificationProducer, consumer NotificationConsumer) *EmailNotificationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &EmailNotificationService{
		config:   cfg,
		producer: producer,
		consumer: consumer,
		notifier: NewReservationNotifier(NewNotificationPublisher(producer), cfg.RestaurantEmail, cfg.RestaurantPhone),
		log:      logger.GetDefault(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (ens *EmailNotificationService) Start(ctx context.Context) error {
	ens.mu.Lock()
	defer ens.mu.Unlock()

	if ens.isRunning {
		return fmt.Errorf("notification service is already running")
	}

	if err := ens.consumer.StartConsumers(ens.ctx, ens.config.NumConsumerWorkers); err != nil {
		return fmt.Errorf("failed to start consumers: %w", err)
	}

	ens.isRunning = true
	ens.log.InfoContext(ctx, "Notification service started",
		slog.String("topic", ens.config.Topic),
		slog.Int("workers", ens.config.NumConsumerWorkers))
	return nil
}

func (ens *EmailNotificationService) Stop() error {
	ens.mu.Lock()
	defer ens.mu.Unlock()

	if !ens.isRunning {
		return fmt.Errorf("notification service is not running")
	}

	ens.cancel()

	if err := ens.consumer.Stop(); err != nil {
		ens.log.Error("Error stopping consumer", slog.String("error", err.Error()))
	}
	if err := ens.producer.Close(); err != nil {
		ens.log.Error("Error closing producer", slog.String("error", err.Error()))
	}

	ens.isRunning = false
	ens.log.Info("Notification service stopped")
	return nil
}

// ReservationSubmitted implements submission.Notifier
func (ens *EmailNotificationService) ReservationSubmitted(ctx context.Context, rec submission.Record) error {
	return ens.notifier.ReservationSubmitted(ctx, rec)
}

func (ens *EmailNotificationService) HealthCheck(ctx context.Context) error {
	ens.mu.RLock()
	isRunning := ens.isRunning
	ens.mu.RUnlock()

	if !isRunning {
		return fmt.Errorf("notification service is not running")
	}
	if err := ens.producer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("producer health check failed: %w", err)
	}
	if err := ens.consumer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("consumer health check failed: %w", err)
	}
	return nil
}
