package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rentaear/bookings/libs/config"
	"github.com/rentaear/bookings/libs/db"
	"github.com/rentaear/bookings/libs/httpx"
	"github.com/rentaear/bookings/libs/kafkax"
	otelx "github.com/rentaear/bookings/libs/otel"
	"github.com/rentaear/bookings/libs/runtime"
	"github.com/rentaear/bookings/services/booking-service/internal/handlers"
	"github.com/rentaear/bookings/services/booking-service/internal/outbox"
	"github.com/rentaear/bookings/services/booking-service/internal/schedule"
	"github.com/rentaear/bookings/services/booking-service/internal/storage"
)

// defaultHours mirrors the studio's standing schedule; override with
// BUSINESS_HOURS_JSON.
const defaultHours = `{
	"mon": ["00:00-05:00", "21:00-23:59"],
	"tue": ["00:00-05:00", "21:00-23:59"],
	"wed": ["00:00-05:00", "21:00-23:59"],
	"thu": ["00:00-05:00", "21:00-23:59"],
	"fri": ["00:00-05:00", "21:00-23:59"],
	"sat": ["00:00-05:00", "21:00-23:59"],
	"sun": ["00:00-05:00", "21:00-23:59"]
}`

func loadScheduleConfig() (handlers.Config, error) {
	hours, err := schedule.ParseTemplateJSON([]byte(config.String("BUSINESS_HOURS_JSON", defaultHours)))
	if err != nil {
		return handlers.Config{}, err
	}
	blocked, err := schedule.ParseDates(config.String("BLOCKED_DATES", ""))
	if err != nil {
		return handlers.Config{}, err
	}
	zone, err := time.LoadLocation(config.String("BOOKING_TIMEZONE", "America/Chicago"))
	if err != nil {
		return handlers.Config{}, err
	}
	slotMinutes, err := config.Int("SLOT_MINUTES", 60)
	if err != nil {
		return handlers.Config{}, err
	}
	daysAhead, err := config.Int("DAYS_AHEAD", 21)
	if err != nil {
		return handlers.Config{}, err
	}
	leadMinutes, err := config.Int("LEAD_MINUTES", 120)
	if err != nil {
		return handlers.Config{}, err
	}
	return handlers.Config{
		Hours:         hours,
		Blocked:       blocked,
		DefaultZone:   zone,
		SlotLen:       time.Duration(slotMinutes) * time.Minute,
		DaysAhead:     daysAhead,
		Lead:          time.Duration(leadMinutes) * time.Minute,
		PhoneRegion:   config.String("PHONE_REGION", "US"),
		PublicBaseURL: config.String("PUBLIC_BASE_URL", "http://localhost:8080"),
	}, nil
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8080")
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

	// Schedule configuration is static; malformed templates are a startup
	// failure, never a per-request error.
	schedCfg, err := loadScheduleConfig()
	if err != nil {
		logger.Error("schedule config invalid", "err", err)
		panic(err)
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

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewBookingRepository(pool, outboxRepo)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(repo, logger, schedCfg)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	var rateLimit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		limiter := httpx.NewRedisRateLimiter(rdb, 120, time.Minute, "booking")
		rateLimit = limiter.Middleware(logger, true)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		rateLimit = httpx.NewRateLimiter(120, time.Minute).Middleware()
	}

	mux := runtime.NewBaseMux(readyChecks...)
	mux.HandleFunc("/api/v1/availability", bookingHandler.Availability)
	mux.HandleFunc("/api/v1/bookings", bookingHandler.Create)
	mux.HandleFunc("/api/v1/bookings/manage", bookingHandler.Manage)
	mux.HandleFunc("/api/v1/bookings/reschedule", bookingHandler.Reschedule)
	mux.HandleFunc("/api/v1/bookings/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/bookings/calendar", bookingHandler.Calendar)
	mux.HandleFunc("/api/v1/admin/bookings", bookingHandler.AdminList)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitCSV(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
		rateLimit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
