package main

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/studiodans/dance-booking/config"
	"github.com/studiodans/dance-booking/internal/consumer"
	"github.com/studiodans/dance-booking/internal/handler"
	"github.com/studiodans/dance-booking/internal/middleware"
	"github.com/studiodans/dance-booking/internal/repository"
	"github.com/studiodans/dance-booking/internal/service"
	"github.com/studiodans/dance-booking/internal/validation"
	"github.com/studiodans/dance-booking/pkg/database"
	"github.com/studiodans/dance-booking/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()

	db := database.NewPostgresDB(cfg.DSN())

	// RabbitMQ: payment confirmations in, booking/class events out. Without a
	// broker the HTTP API still serves; events and webhook purchases are off.
	var publisher *rabbitmq.Publisher
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Printf("[RabbitMQ] broker unavailable, events disabled: %v", err)
	} else {
		defer mqConsumer.Close()
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to create RabbitMQ publisher: %v", err)
		}
		defer publisher.Close()
	}

	// Repositories
	txm := repository.NewTxManager(db)
	templateRepo := repository.NewTemplateRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)
	passRepo := repository.NewPassRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)
	bookingRepo := repository.NewBookingRepository(db)

	// Services
	ledger := service.NewEntitlementService(passRepo, entitlementRepo, txm)
	scheduleSvc := service.NewScheduleService(templateRepo, instanceRepo)
	bookingSvc := service.NewBookingService(txm, instanceRepo, entitlementRepo, bookingRepo, ledger, publisher)
	cancelSvc := service.NewCancellationService(txm, instanceRepo, entitlementRepo, bookingRepo, ledger, publisher)

	// Payment confirmations drive entitlement purchases
	if mqConsumer != nil {
		msgs, err := mqConsumer.Consume()
		if err != nil {
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewPaymentConsumer(ledger).Start(msgs)
	}

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = validation.New()
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	// Bounds every store call made under the request context.
	e.Use(echoMw.ContextTimeout(10 * time.Second))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "dance-booking"})
	})

	handler.NewScheduleHandler(scheduleSvc, cancelSvc).RegisterRoutes(e)
	handler.NewBookingHandler(bookingSvc, cancelSvc).RegisterRoutes(e)
	handler.NewEntitlementHandler(ledger, passRepo).RegisterRoutes(e)

	log.Printf("Dance booking service starting on :%s", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
