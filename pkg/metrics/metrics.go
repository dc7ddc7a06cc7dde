// Package metrics expone los contadores Prometheus del servicio.
// Las métricas se registran una sola vez, en la inicialización del paquete.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ledger"

// Resultados de GetOrCreate.
const (
	SessionCreated          = "created"
	SessionJoined           = "joined"
	SessionConflictResolved = "conflict_resolved"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Transacciones del store
	TxDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tx_duration_seconds",
			Help:      "Duration of store transactions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"driver", "result"},
	)

	// Libro de stock
	MovementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movements_total",
			Help:      "Stock movements written, by reference type",
		},
		[]string{"reference_type"},
	)

	MovementReplaysTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_movement_replays_total",
			Help:      "Idempotent replays detected, by reference type",
		},
		[]string{"reference_type"},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_total",
			Help:      "Inventory transfers, by result",
		},
		[]string{"result"},
	)

	ProductsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_created_total",
			Help:      "Products created, by product type",
		},
		[]string{"product_type"},
	)

	// Sesiones de caja
	SessionGetOrCreateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_get_or_create_total",
			Help:      "get-or-create session outcomes",
		},
		[]string{"outcome"},
	)

	SaleEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_events_total",
			Help:      "Sale events consumed from the broker, by type and result",
		},
		[]string{"event_type", "result"},
	)
)

// ObserveTx registra la duración de una transacción.
func ObserveTx(driver string, start time.Time, err error) {
	result := "commit"
	if err != nil {
		result = "rollback"
	}
	TxDuration.WithLabelValues(driver, result).Observe(time.Since(start).Seconds())
}

// Result traduce un error a etiqueta "ok"/"error".
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler expone el registro por defecto en formato Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
