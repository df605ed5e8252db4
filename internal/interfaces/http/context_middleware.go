package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// OperationTimeout acota el tiempo de cada petición; los casos de uso reciben el contexto vía c.UserContext().
// timeout <= 0 no aplica límite.
func OperationTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if timeout <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// httpObserver lo implementa metrics.Prometheus.
type httpObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// RequestMetrics registra conteo y latencia por ruta (patrón, no path concreto).
func RequestMetrics(obs httpObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		obs.ObserveHTTP(c.Method(), c.Route().Path, status, time.Since(start))
		return err
	}
}
