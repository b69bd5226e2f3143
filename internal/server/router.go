package server

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/pypi-stats/internal/logging"
)

// AppOptions controls how the Fiber application is assembled.
type AppOptions struct {
	Logger   *logrus.Logger
	Registry *Registry
}

const contextKeyRequestID = "_pypistats_request_id"

// NewApp builds a Fiber application with request-ID, recover and access-log
// middleware. Routes are attached afterwards by the routes package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		ErrorHandler:  jsonErrorHandler(opts.Logger),
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	return app, nil
}

// requestContextMiddleware 生成请求 ID 并在请求结束后输出访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		fields := logging.RequestFields(reqID, c.Path(), status)
		fields["method"] = c.Method()
		logger.WithFields(fields).Debug("request")
		return err
	}
}

// jsonErrorHandler 把未处理的错误统一渲染为 {"error": "..."}。
func jsonErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal_error"

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
			if code == fiber.StatusNotFound {
				message = "not_found"
			}
		} else {
			logger.WithError(err).WithFields(logrus.Fields{
				"action":     "request_failed",
				"request_id": RequestID(c),
				"route":      c.Path(),
			}).Error("unhandled error")
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
