package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"tablebook/internal/submission"
	"tablebook/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func sampleRecord() submission.Record {
	return submission.NewRecord(submission.Reservation{
		Date:        "2025-04-10",
		Time:        "18:00",
		Period:      "dinner",
		Guests:      4,
		Course:      "dinner-chef",
		CourseLabel: "シェフおまかせコース（¥6,500）",
		Name:        "山田 太郎",
		NameKana:    "ヤマダ タロウ",
		Email:       "taro@example.com",
		Phone:       "090-1234-5678",
	}, time.UnixMilli(1712345678901))
}

func newMockProducer(t *testing.T) (*mocks.SyncProducer, *KafkaNotificationProducer) {
	t.Helper()
	cfg := DefaultKafkaProducerConfig()
	mock := mocks.NewSyncProducer(t, cfg.SaramaConfig())
	producer := NewKafkaNotificationProducerWith(mock, cfg)
	producer.log = logger.Discard()
	return mock, producer
}

func expectType(want NotificationType, seen *[]EmailNotification) mocks.ValueChecker {
	return func(val []byte) error {
		var n EmailNotification
		if err := json.Unmarshal(val, &n); err != nil {
			return err
		}
		if n.Type != want {
			return fmt.Errorf("type = %s, want %s", n.Type, want)
		}
		*seen = append(*seen, n)
		return nil
	}
}

func TestReservationNotifierPublishesCustomerAndAlert(t *testing.T) {
	mock, producer := newMockProducer(t)
	var seen []EmailNotification
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(expectType(NotificationTypeReservationReceived, &seen))
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(expectType(NotificationTypeReservationAlert, &seen))

	notifier := NewReservationNotifier(NewNotificationPublisher(producer), "owner@example.com", "03-1234-5678")
	rec := sampleRecord()
	if err := notifier.ReservationSubmitted(context.Background(), rec); err != nil {
		t.Fatalf("ReservationSubmitted() error = %v", err)
	}
	if err := mock.Close(); err != nil {
		t.Fatalf("producer close: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("published %d notifications, want 2", len(seen))
	}
	customer := seen[0]
	if customer.RecipientEmail != "taro@example.com" || customer.ReservationNumber != rec.ReservationNumber {
		t.Errorf("customer notification = %+v", customer)
	}
	if customer.Status != NotificationStatusQueued {
		t.Errorf("status = %s, want QUEUED", customer.Status)
	}
	if !strings.Contains(customer.Subject, rec.ReservationNumber) {
		t.Errorf("subject = %q", customer.Subject)
	}
	if customer.TemplateData["date"] != "2025年4月10日（木）" || customer.TemplateData["requests"] != "なし" {
		t.Errorf("template data = %v", customer.TemplateData)
	}
	if seen[1].RecipientEmail != "owner@example.com" {
		t.Errorf("alert recipient = %q", seen[1].RecipientEmail)
	}
}

func TestReservationNotifierWithoutRestaurantInbox(t *testing.T) {
	mock, producer := newMockProducer(t)
	var seen []EmailNotification
	mock.ExpectSendMessageWithCheckerFunctionAndSucceed(expectType(NotificationTypeReservationReceived, &seen))

	notifier := NewReservationNotifier(NewNotificationPublisher(producer), "", "03-1234-5678")
	if err := notifier.ReservationSubmitted(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("ReservationSubmitted() error = %v", err)
	}
	if err := mock.Close(); err != nil {
		t.Fatalf("producer close: %v", err)
	}
	if len(seen) != 1 {
		t.Errorf("published %d notifications, want 1", len(seen))
	}
}

func TestPublishNotificationFailure(t *testing.T) {
	mock, producer := newMockProducer(t)
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	n := NewNotificationBuilder().
		WithType(NotificationTypeReservationReceived).
		WithRecipient("taro@example.com", "山田 太郎").
		Build()

	err := producer.PublishNotification(context.Background(), n)
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("PublishNotification() error = %v", err)
	}
	if n.Status != NotificationStatusFailed || n.LastError == nil {
		t.Errorf("notification = %+v", n)
	}
	if err := mock.Close(); err != nil {
		t.Fatalf("producer close: %v", err)
	}
}

type flakyEmailService struct {
	failures int
	calls    int
	sent     []*EmailNotification
}

func (f *flakyEmailService) SendNotification(ctx context.Context, n *EmailNotification) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp: 421 service not available")
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *flakyEmailService) SendHTML(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return nil
}

func newTestHandler(email EmailService) *ConsumerGroupHandler {
	cfg := DefaultConsumerConfig()
	cfg.RetryBackoffDuration = time.Millisecond
	return &ConsumerGroupHandler{config: cfg, emailService: email, log: logger.Discard()}
}

func messageFor(t *testing.T, n *EmailNotification) *sarama.ConsumerMessage {
	t.Helper()
	value, err := n.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	return &sarama.ConsumerMessage{Topic: "reservations", Value: value}
}

func TestProcessMessage(t *testing.T) {
	past := time.Now().Add(-time.Minute)

	tests := []struct {
		name      string
		failures  int
		expires   *time.Time
		wantErr   bool
		wantCalls int
	}{
		{"sent first time", 0, nil, false, 1},
		{"recovers after retries", 2, nil, false, 3},
		{"gives up", 10, nil, true, 3},
		{"expired is skipped", 0, &past, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &flakyEmailService{failures: tt.failures}
			n := NewNotificationBuilder().
				WithType(NotificationTypeReservationReceived).
				WithRecipient("taro@example.com", "山田 太郎").
				WithExpiration(tt.expires).
				Build()

			err := newTestHandler(email).processMessage(context.Background(), messageFor(t, n))
			if (err != nil) != tt.wantErr {
				t.Fatalf("processMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if email.calls != tt.wantCalls {
				t.Errorf("send calls = %d, want %d", email.calls, tt.wantCalls)
			}
		})
	}

	bad := &sarama.ConsumerMessage{Value: []byte("{not json")}
	if err := newTestHandler(&flakyEmailService{}).processMessage(context.Background(), bad); !errors.Is(err, errMalformed) {
		t.Errorf("processMessage() error = %v, want errMalformed", err)
	}
}

func TestRenderContent(t *testing.T) {
	templates, err := parseTemplates()
	if err != nil {
		t.Fatalf("parseTemplates() error = %v", err)
	}

	rec := sampleRecord()
	rec.Requests = "<b>窓際</b>"
	n := NewNotificationBuilder().
		WithType(NotificationTypeReservationReceived).
		WithRecipient(rec.Email, rec.Name).
		WithTemplateData(ReservationTemplateData(rec, "03-1234-5678")).
		Build()

	html, text, err := renderContent(templates, n)
	if err != nil {
		t.Fatalf("renderContent() error = %v", err)
	}
	if strings.Contains(html, "<b>窓際</b>") || !strings.Contains(html, "&lt;b&gt;") {
		t.Errorf("html body not escaped: %s", html)
	}
	for _, want := range []string{"山田 太郎 様", rec.ReservationNumber, "2025年4月10日（木） 18:00", "4名", "03-1234-5678", "<b>窓際</b>"} {
		if !strings.Contains(text, want) {
			t.Errorf("text body missing %q:\n%s", want, text)
		}
	}

	n.Type = "UNKNOWN"
	if _, _, err := renderContent(templates, n); err == nil {
		t.Error("renderContent() accepted an unknown type")
	}
}

func TestBuildMessage(t *testing.T) {
	s := &SMTPEmailService{config: &SMTPConfig{FromEmail: "noreply@example.com", FromName: "レストラン"}}
	now := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	msg := string(s.buildMessage("taro@example.com", "ご予約を受け付けました", "<p>html</p>", "text", now))

	if !strings.HasPrefix(msg, "From: =?UTF-8?q?") {
		t.Errorf("From header not encoded:\n%s", msg)
	}
	if !strings.Contains(msg, "\r\nSubject: =?UTF-8?q?") {
		t.Errorf("Subject header not encoded:\n%s", msg)
	}
	boundary := fmt.Sprintf("boundary_%d", now.UnixNano())
	if !strings.Contains(msg, "--"+boundary+"\r\nContent-Type: text/plain") || !strings.HasSuffix(msg, "--"+boundary+"--\r\n") {
		t.Errorf("multipart layout wrong:\n%s", msg)
	}
}

func TestNewSMTPEmailServiceValidation(t *testing.T) {
	valid := SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", FromEmail: "f@example.com"}
	if _, err := NewSMTPEmailService(&valid); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(c *SMTPConfig){
		"host":     func(c *SMTPConfig) { c.Host = "" },
		"port":     func(c *SMTPConfig) { c.Port = 70000 },
		"username": func(c *SMTPConfig) { c.Username = "" },
		"password": func(c *SMTPConfig) { c.Password = "" },
		"from":     func(c *SMTPConfig) { c.FromEmail = "" },
	}
	for name, mutate := range cases {
		cfg := valid
		mutate(&cfg)
		if _, err := NewSMTPEmailService(&cfg); err == nil {
			t.Errorf("missing %s accepted", name)
		}
	}
}

type recordingProducer struct {
	published []*EmailNotification
	closed    bool
}

func (p *recordingProducer) PublishNotification(ctx context.Context, n *EmailNotification) error {
	p.published = append(p.published, n)
	return nil
}
func (p *recordingProducer) Close() error { p.closed = true; return nil }
func (p *recordingProducer) HealthCheck(ctx context.Context) error { return nil }

type idleConsumer struct{ started, stopped bool }

func (c *idleConsumer) StartConsumers(ctx context.Context, n int) error { c.started = true; return nil }
func (c *idleConsumer) Stop() error { c.stopped = true; return nil }
func (c *idleConsumer) HealthCheck(ctx context.Context) error { return nil }

func TestEmailNotificationServiceLifecycle(t *testing.T) {
	producer := &recordingProducer{}
	consumer := &idleConsumer{}
	svc := newEmailNotificationService(&ServiceConfig{Topic: "reservations", NumConsumerWorkers: 1, RestaurantPhone: "03"}, producer, consumer)
	svc.log = logger.Discard()
	ctx := context.Background()

	if err := svc.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() passed before Start")
	}
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := svc.Start(ctx); err == nil {
		t.Error("second Start() succeeded")
	}
	if err := svc.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	var notifier submission.Notifier = svc
	if err := notifier.ReservationSubmitted(ctx, sampleRecord()); err != nil {
		t.Fatalf("ReservationSubmitted() error = %v", err)
	}
	if len(producer.published) != 1 {
		t.Errorf("published = %d, want 1", len(producer.published))
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !consumer.started || !consumer.stopped || !producer.closed {
		t.Errorf("consumer started=%v stopped=%v, producer closed=%v", consumer.started, consumer.stopped, producer.closed)
	}
}
