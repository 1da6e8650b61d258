package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
	"github.com/open-teleop/legged-teleop/services"
)

// Options wires the HTTP API to the rest of the controller. Status and
// ConfigService are required; Indicator and Input are optional.
type Options struct {
	Status        StatusProvider
	Indicator     IndicatorPublisher
	ConfigService services.TeleopConfigService
	Input         InputSink
	Logger        customlog.Logger
	AccessLog     bool
}

// NewApp builds the fiber application with every route registered.
func NewApp(opts Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Legged Teleop Controller",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	if opts.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "legged-teleop controller",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	RegisterTeleopRoutes(app, opts.Status, opts.Indicator, opts.Logger)
	RegisterConfigRoutes(app, opts.ConfigService, opts.Logger)
	if opts.Input != nil {
		RegisterInputRoutes(app, opts.Input, opts.Logger)
	}

	return app
}

// customErrorHandler renders errors as JSON, keeping fiber's status codes
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
