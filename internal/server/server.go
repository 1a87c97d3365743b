package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quotebot/internal/fulfillment"
	"quotebot/internal/logger"
)

const (
	WebhookPath     = "/webhook"
	RequestIDHeader = "X-Request-ID"

	requestIDLocal = "requestId"
)

// New builds the fiber application serving the fulfillment webhook.
func New(handler *fulfillment.Handler, log logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "quotebot",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(log),
	})

	app.Hooks().OnListen(func(ld fiber.ListenData) error {
		log.Info(fmt.Sprintf("Dialogflow Webhook running on %s", listenURL(ld)), map[string]interface{}{
			"host": ld.Host,
			"port": ld.Port,
		})
		return nil
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestID())
	app.Use(accessLog(log))

	app.Post(WebhookPath, func(c *fiber.Ctx) error {
		ctx := logger.WithContext(c.UserContext(), requestLogger(c, log))
		return c.JSON(handler.Handle(ctx, c.Body()))
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Insurance quote webhook. POST fulfillment requests to " + WebhookPath)
	})

	return app
}

// errorHandler keeps the webhook contract of always answering 200 with a
// fulfillmentText, even when a handler panics.
func errorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if c.Path() == WebhookPath && c.Method() == fiber.MethodPost {
			requestLogger(c, log).WithError(err).Error("webhook handler aborted", nil)
			return c.Status(fiber.StatusOK).JSON(fulfillment.Response{
				FulfillmentText: fulfillment.MsgServerError,
			})
		}

		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		return c.Status(code).SendString(err.Error())
	}
}

// listenURL is the webhook address a local client would call.
func listenURL(ld fiber.ListenData) string {
	host := ld.Host
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		host = "localhost"
	}
	scheme := "http"
	if ld.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%s%s", scheme, host, ld.Port, WebhookPath)
}

func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDLocal, id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

func requestLogger(c *fiber.Ctx, log logger.Logger) logger.Logger {
	id, _ := c.Locals(requestIDLocal).(string)
	return log.With(map[string]interface{}{"requestId": id})
}

func accessLog(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		requestLogger(c, log).Debug("http request", map[string]interface{}{
			"method":   c.Method(),
			"path":     c.Path(),
			"status":   status,
			"duration": time.Since(start).String(),
		})
		return err
	}
}
