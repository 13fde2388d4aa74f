package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farmaciavalero/farmaline/libs/config"
	"github.com/farmaciavalero/farmaline/libs/db"
	"github.com/farmaciavalero/farmaline/libs/httpx"
	"github.com/farmaciavalero/farmaline/libs/kafkax"
	otelx "github.com/farmaciavalero/farmaline/libs/otel"
	"github.com/farmaciavalero/farmaline/libs/outbox"
	"github.com/farmaciavalero/farmaline/libs/runtime"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/booking"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/handlers"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/identity"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/metrics"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/schedule"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/storage"
)

const defaultServiceCatalog = "Seguimiento y Sistemas personalizados de dosificación o SPD," +
	"Asesoramiento en fitoterapia," +
	"Elaboramos cosmética a tu medida," +
	"Análisis Bioquímicos," +
	"Dermofarmacia Facial," +
	"Dermofarmacia Capilar"

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "booking-service")
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
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	catalog, err := schedule.ParseCatalog(config.String("SLOT_CATALOG", schedule.DefaultSlots))
	if err != nil {
		logger.Error("invalid slot catalog", "err", err)
		panic(err)
	}
	loc, err := time.LoadLocation(config.String("TIMEZONE", "Europe/Madrid"))
	if err != nil {
		logger.Error("invalid timezone", "err", err)
		panic(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	bookingMetrics := metrics.NewBookingMetrics(registry)

	outboxRepo := outbox.NewRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	profileRepo := storage.NewProfileRepository(pool)

	svc := booking.NewService(appointmentRepo, identity.NewProvider(profileRepo), logger, bookingMetrics, booking.Config{
		Catalog:        catalog,
		ServiceCatalog: config.List("SERVICE_CATALOG", defaultServiceCatalog),
		Location:       loc,
	})
	bookingHandler := handlers.NewBookingHandler(svc, logger, bookingMetrics)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/v1/public/days", bookingHandler.Days)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/book", bookingHandler.Book)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		identity.Middleware(jwtSecret),
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
