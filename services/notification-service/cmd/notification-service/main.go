package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rentaear/bookings/libs/config"
	"github.com/rentaear/bookings/libs/db"
	"github.com/rentaear/bookings/libs/httpx"
	"github.com/rentaear/bookings/libs/kafkax"
	otelx "github.com/rentaear/bookings/libs/otel"
	"github.com/rentaear/bookings/libs/runtime"
	"github.com/rentaear/bookings/services/notification-service/internal/consumer"
	"github.com/rentaear/bookings/services/notification-service/internal/email"
	"github.com/rentaear/bookings/services/notification-service/internal/inbox"
	"github.com/rentaear/bookings/services/notification-service/internal/message"
	"github.com/rentaear/bookings/services/notification-service/internal/sms"
	"github.com/rentaear/bookings/services/notification-service/internal/storage"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	var emailSender email.Sender = email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@bookings.local"),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(
			config.String("SMS_WEBHOOK_URL", ""),
			config.String("SMS_WEBHOOK_TOKEN", ""),
		)
	default:
		smsSender = sms.NewNoopSender()
	}

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", "booking.notification.requested.v1"),
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var payload message.Payload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid notification payload", "err", err)
			return nil
		}
		if payload.BookingID == "" || payload.Kind == "" || payload.Email == "" {
			logger.Error("missing notification fields", "booking_id", payload.BookingID, "kind", payload.Kind)
			return nil
		}

		rendered, err := message.Render(payload)
		if err != nil {
			// Malformed payloads never become deliverable by retrying.
			logger.Error("render failed", "err", err, "booking_id", payload.BookingID)
			return nil
		}

		emailStatus, emailErr := "sent", ""
		if err := emailSender.Send(payload.Email, rendered.Subject, rendered.EmailBody); err != nil {
			emailStatus, emailErr = "failed", err.Error()
			logger.Error("email send failed", "err", err, "booking_id", payload.BookingID)
		}
		if err := notificationsRepo.Insert(ctx, storage.Notification{
			BookingID: payload.BookingID,
			Kind:      payload.Kind,
			Channel:   "email",
			Recipient: payload.Email,
			Status:    emailStatus,
			Error:     emailErr,
			Payload:   msg.Value,
		}); err != nil {
			logger.Error("failed to persist notification", "err", err)
			return err
		}

		if payload.Phone != "" {
			smsStatus, smsErr := "sent", ""
			if err := smsSender.Send(ctx, payload.Phone, rendered.SMSBody); err != nil {
				smsStatus, smsErr = "failed", err.Error()
				logger.Error("sms send failed", "err", err, "provider", smsSender.ProviderID(), "booking_id", payload.BookingID)
			} else {
				logger.Info("sms sent", "provider", smsSender.ProviderID(), "booking_id", payload.BookingID)
			}
			if err := notificationsRepo.Insert(ctx, storage.Notification{
				BookingID: payload.BookingID,
				Kind:      payload.Kind,
				Channel:   "sms",
				Recipient: payload.Phone,
				Status:    smsStatus,
				Error:     smsErr,
				Payload:   msg.Value,
			}); err != nil {
				logger.Error("failed to persist notification", "err", err)
				return err
			}
		}

		logger.Info("notification processed", "booking_id", payload.BookingID, "kind", payload.Kind, "email_status", emailStatus)
		return nil
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
