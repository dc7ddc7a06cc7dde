// Package messaging consume los eventos de venta del POS publicados en Kafka y
// los traduce a movimientos del libro de stock.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/mercado-ledger/internal/application/inventory"
	"github.com/jhoicas/mercado-ledger/internal/domain"
	"github.com/jhoicas/mercado-ledger/internal/domain/entity"
	"github.com/jhoicas/mercado-ledger/pkg/config"
	"github.com/jhoicas/mercado-ledger/pkg/logger"
	"github.com/jhoicas/mercado-ledger/pkg/metrics"
	"github.com/jhoicas/mercado-ledger/pkg/tracing"
)

const tracerName = "github.com/jhoicas/mercado-ledger/internal/infrastructure/messaging"

// Tipos de evento aceptados.
const (
	EventSaleCompleted = "sale.completed"
	EventSaleVoided    = "sale.voided"
)

const (
	resultApplied  = "applied"
	resultRejected = "rejected"
	resultRetry    = "retry"
)

// SaleEvent es el payload JSON publicado por el POS.
type SaleEvent struct {
	EventID   string     `json:"event_id"`
	EventType string     `json:"event_type"`
	VendorID  string     `json:"vendor_id"`
	UserID    string     `json:"user_id"`
	SaleID    string     `json:"sale_id"`
	Lines     []SaleLine `json:"lines"`
}

// SaleLine una línea vendida. LineID es la clave de idempotencia del movimiento.
type SaleLine struct {
	LineID      string          `json:"line_id"`
	InventoryID string          `json:"inventory_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// Reader es el subconjunto de *kafka.Reader que usa el listener.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Ledger es el subconjunto del libro de stock que usa el listener.
type Ledger interface {
	ApplyBatch(ctx context.Context, in inventory.BatchInput) (*inventory.BatchResult, error)
}

// SalesListener lee eventos de venta y los aplica al libro. El offset solo se
// confirma cuando el evento fue aplicado o rechazado de forma definitiva; los
// errores transitorios se reintentan con backoff.
type SalesListener struct {
	reader     Reader
	ledger     Ledger
	log        *logger.Logger
	maxBackoff time.Duration
}

// NewReader construye el *kafka.Reader de consumidor de grupo.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// NewSalesListener construye el listener.
func NewSalesListener(reader Reader, ledger Ledger, log *logger.Logger) *SalesListener {
	return &SalesListener{
		reader:     reader,
		ledger:     ledger,
		log:        log.Named("sales_listener"),
		maxBackoff: 5 * time.Second,
	}
}

// Run consume hasta que ctx se cancele. Cierra el reader al salir.
func (l *SalesListener) Run(ctx context.Context) error {
	defer func() {
		if err := l.reader.Close(); err != nil {
			l.log.Error().Err(err).Msg("error cerrando reader de kafka")
		}
	}()

	l.log.Info().Msg("consumidor de ventas iniciado")
	backoff := initialBackoff
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				l.log.Info().Msg("consumidor de ventas detenido")
				return nil
			}
			l.log.Error().Err(err).Dur("backoff", backoff).Msg("error leyendo de kafka")
			if !sleep(ctx, backoff) {
				l.log.Info().Msg("consumidor de ventas detenido")
				return nil
			}
			backoff = l.next(backoff)
			continue
		}
		backoff = initialBackoff

		if err := l.handleWithRetry(ctx, msg); err != nil {
			// solo ocurre si ctx se canceló durante el reintento; el mensaje queda sin confirmar
			return nil
		}
		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.log.Error().Err(err).Int64("offset", msg.Offset).Msg("error confirmando offset")
		}
	}
}

const initialBackoff = 100 * time.Millisecond

func (l *SalesListener) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	backoff := initialBackoff
	for {
		err := l.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		l.log.Warn().Err(err).Int64("offset", msg.Offset).Dur("backoff", backoff).Msg("error transitorio, reintentando")
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = l.next(backoff)
	}
}

// next duplica el backoff hasta maxBackoff.
func (l *SalesListener) next(backoff time.Duration) time.Duration {
	backoff *= 2
	if backoff > l.maxBackoff {
		return l.maxBackoff
	}
	return backoff
}

// sleep espera d o hasta que ctx termine; false si ctx terminó.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Handle procesa un mensaje. Devuelve error solo para fallos transitorios que
// justifican reintentar; payloads inválidos y rechazos de dominio se registran
// y se descartan.
func (l *SalesListener) Handle(ctx context.Context, msg kafka.Message) (err error) {
	ctx = extractTraceContext(ctx, msg.Headers)

	var ev SaleEvent
	if jerr := json.Unmarshal(msg.Value, &ev); jerr != nil {
		metrics.SaleEventsTotal.WithLabelValues("unknown", resultRejected).Inc()
		l.log.Error().Err(jerr).Bytes("raw_value", msg.Value).Msg("evento de venta con JSON inválido")
		return nil
	}

	ctx, span := tracing.Start(ctx, tracerName, "sales.handle",
		attribute.String("event.type", ev.EventType),
		attribute.String("sale.id", ev.SaleID),
	)
	defer func() { tracing.End(span, err) }()

	if verr := validateEvent(ev); verr != nil {
		metrics.SaleEventsTotal.WithLabelValues(ev.EventType, resultRejected).Inc()
		l.log.Error().Err(verr).Str("event_id", ev.EventID).Msg("evento de venta rechazado")
		return nil
	}

	batch := inventory.BatchInput{
		VendorID:      ev.VendorID,
		UserID:        ev.UserID,
		ReferenceType: entity.ReferenceSale,
		Reason:        "venta " + ev.SaleID,
		Decrement:     true,
		Lines:         make([]inventory.BatchLine, 0, len(ev.Lines)),
	}
	if ev.EventType == EventSaleVoided {
		batch.ReferenceType = entity.ReferenceVoid
		batch.Reason = "anulación venta " + ev.SaleID
		batch.Decrement = false
	}
	for _, line := range ev.Lines {
		batch.Lines = append(batch.Lines, inventory.BatchLine{
			InventoryID: line.InventoryID,
			Quantity:    line.Quantity,
			ReferenceID: line.LineID,
		})
	}

	// todas las líneas en una transacción: un rechazo no deja líneas aplicadas
	res, aerr := l.ledger.ApplyBatch(ctx, batch)
	if aerr != nil {
		if !permanent(aerr) {
			metrics.SaleEventsTotal.WithLabelValues(ev.EventType, resultRetry).Inc()
			return fmt.Errorf("evento %s: %w", ev.EventID, aerr)
		}
		l.log.Error().Err(aerr).
			Str("event_id", ev.EventID).
			Str("sale_id", ev.SaleID).
			Msg("evento de venta rechazado, sin cambios en inventario")
		metrics.SaleEventsTotal.WithLabelValues(ev.EventType, resultRejected).Inc()
		return nil
	}

	metrics.SaleEventsTotal.WithLabelValues(ev.EventType, resultApplied).Inc()
	l.log.Info().
		Str("event_id", ev.EventID).
		Str("sale_id", ev.SaleID).
		Int("applied", res.Applied).
		Int("replayed", res.Replayed).
		Msg("evento de venta aplicado")
	return nil
}

func validateEvent(ev SaleEvent) error {
	if ev.EventType != EventSaleCompleted && ev.EventType != EventSaleVoided {
		return fmt.Errorf("%w: event_type %q", domain.ErrInvalidInput, ev.EventType)
	}
	if ev.VendorID == "" || ev.SaleID == "" {
		return fmt.Errorf("%w: vendor_id y sale_id requeridos", domain.ErrInvalidInput)
	}
	if len(ev.Lines) == 0 {
		return fmt.Errorf("%w: el evento no tiene líneas", domain.ErrInvalidInput)
	}
	for _, line := range ev.Lines {
		if line.LineID == "" || line.InventoryID == "" {
			return fmt.Errorf("%w: line_id e inventory_id requeridos", domain.ErrInvalidInput)
		}
	}
	return nil
}

// permanent indica errores que no cambian al reintentar.
func permanent(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidInput,
		domain.ErrInvalidQuantity,
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrInsufficientStock,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// extractTraceContext enlaza el span con el del productor a partir de los headers.
func extractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
