package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jhoicas/mercado-ledger/pkg/logger"
	"github.com/jhoicas/mercado-ledger/pkg/metrics"
	"github.com/jhoicas/mercado-ledger/pkg/tracing"
)

const (
	tracerName = "github.com/jhoicas/mercado-ledger/internal/interfaces/http"
	localError = "internal_error"
)

// Observability abre un span por request (continuando el traceparent entrante),
// registra métricas de duración y status por ruta y deja una línea de log.
func Observability(log *logger.Logger) fiber.Handler {
	log = log.Named("http")
	return func(c *fiber.Ctx) error {
		start := time.Now()

		carrier := propagation.MapCarrier{}
		for k, v := range c.GetReqHeaders() {
			if len(v) > 0 {
				carrier[strings.ToLower(k)] = v[0]
			}
		}
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)
		ctx, span := tracing.Start(ctx, tracerName, c.Method()+" "+c.Path(),
			semconv.HTTPRequestMethodKey.String(c.Method()),
			semconv.URLPath(c.Path()),
		)
		c.SetUserContext(ctx)

		chainErr := c.Next()
		if chainErr != nil {
			// deja que el ErrorHandler de fiber fije el status
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

		span.SetAttributes(
			semconv.HTTPResponseStatusCode(status),
			attribute.String("http.route", route),
		)
		internal, _ := c.Locals(localError).(error)
		tracing.End(span, internal)

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error().Err(internal)
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("vendor_id", GetVendorID(c)).
			Msg("request")
		return nil
	}
}
