package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/farmaciavalero/farmaline/libs/config"
	"github.com/farmaciavalero/farmaline/libs/db"
	"github.com/farmaciavalero/farmaline/libs/httpx"
	"github.com/farmaciavalero/farmaline/libs/kafkax"
	otelx "github.com/farmaciavalero/farmaline/libs/otel"
	"github.com/farmaciavalero/farmaline/libs/outbox"
	"github.com/farmaciavalero/farmaline/libs/runtime"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/handlers"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/ocr"
	"github.com/farmaciavalero/farmaline/services/formulation-service/internal/storage"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "formulation-service")
	port, err := config.Port("PORT", "8083")
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

	var extractor handlers.Extractor
	if apiKey := config.String("GEMINI_API_KEY", ""); apiKey != "" {
		gemini, err := ocr.NewGeminiExtractor(ctx, apiKey, config.String("GEMINI_MODEL", ""))
		if err != nil {
			logger.Error("gemini client init failed; scanning disabled", "err", err)
		} else {
			defer gemini.Close()
			extractor = gemini
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set; prescription scanning disabled")
	}

	outboxRepo := outbox.NewRepository(pool)
	repo := storage.NewFormulationRepository(pool, outboxRepo)
	formulationHandler := handlers.NewFormulationHandler(repo, extractor, logger, jwtSecret)

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
	mux.HandleFunc("/api/v1/formulations", formulationHandler.List)
	mux.HandleFunc("/api/v1/formulations/create", formulationHandler.Create)
	mux.HandleFunc("/api/v1/formulations/scan", formulationHandler.Scan)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "formulations")
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
