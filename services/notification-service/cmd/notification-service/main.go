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
	"github.com/farmaciavalero/farmaline/libs/runtime"
	"github.com/farmaciavalero/farmaline/services/notification-service/internal/consumer"
	"github.com/farmaciavalero/farmaline/services/notification-service/internal/email"
	"github.com/farmaciavalero/farmaline/services/notification-service/internal/inbox"
	"github.com/farmaciavalero/farmaline/services/notification-service/internal/notify"
	"github.com/farmaciavalero/farmaline/services/notification-service/internal/storage"
)

func main() {
	config.LoadDotenv()

	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8084")
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

	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	sender := email.NewSMTPSender(email.Config{
		Host:     config.String("SMTP_HOST", "localhost"),
		Port:     config.String("SMTP_PORT", "1025"),
		From:     config.String("SMTP_FROM", ""),
		Username: config.String("SMTP_USERNAME", ""),
		Password: config.String("SMTP_PASSWORD", ""),
	})
	notificationsRepo := storage.NewNotificationsRepository(pool)
	recipients := config.List("NOTIFY_RECIPIENTS", "mostrador@farmaline.local")
	notifier := notify.New(sender, notificationsRepo, logger, recipients)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	inboxRepo := inbox.NewRepository(pool)

	topics := config.List("KAFKA_CONSUME_TOPICS",
		notify.TopicAppointmentConfirmed+","+notify.TopicOrderPlaced+","+notify.TopicFormulationRequested)
	for _, topic := range topics {
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: kafkaBrokers,
			GroupID: groupID,
			Topic:   topic,
		}, notifier.Handle)
		go c.Run(ctx)
	}

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notifications")
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
