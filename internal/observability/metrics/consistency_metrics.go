package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"gorm.io/gorm"
)

const (
	OperationReasonDeadlineExceeded     = "deadline_exceeded"
	OperationReasonDBLockTimeout        = "db_lock_timeout"
	OperationReasonSerializationFailure = "serialization_failure"
	OperationReasonUniqueViolation      = "unique_violation"
	OperationReasonForbidden            = "forbidden"
	OperationReasonDB                   = "db"
	OperationReasonBusinessRule         = "business_rule"
)

const (
	LockResourceProductStock  = "product_stock"
	LockResourceBinFlag       = "bin_flag"
	LockResourceOrderSequence = "order_sequence"
)

// ConsistencyMetrics captures transaction health of the stock, bin and order writers.
type ConsistencyMetrics struct {
	opDuration       *prometheus.HistogramVec
	opErrors         *prometheus.CounterVec
	dbLockWait       *prometheus.HistogramVec
	receiptRetries   prometheus.Counter
	lockWaitObserver map[string]prometheus.Observer
}

var (
	consistencyMetricsOnce sync.Once
	consistencyMetrics     *ConsistencyMetrics
)

// Consistency returns the singleton consistency metrics registry.
func Consistency() *ConsistencyMetrics {
	return ConsistencyWithConfig(Config{})
}

// ConsistencyOrDefault returns m, or the process-wide registry when m is nil.
func ConsistencyOrDefault(m *ConsistencyMetrics) *ConsistencyMetrics {
	if m != nil {
		return m
	}
	return Consistency()
}

// ConsistencyWithConfig returns the singleton registry using config labels.
func ConsistencyWithConfig(cfg Config) *ConsistencyMetrics {
	consistencyMetricsOnce.Do(func() {
		consistencyMetrics = newConsistencyMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return consistencyMetrics
}

func newConsistencyMetrics(registerer prometheus.Registerer, cfg Config) *ConsistencyMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "trashforcoin"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "trashforcoin_operation_duration_seconds",
		Help:        "Latency of transactional order and stock operations.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"operation"})
	opErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "trashforcoin_operation_errors_total",
		Help:        "Operation errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	dbLockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "trashforcoin_db_lock_wait_seconds",
		Help:        "Row lock wait time for SELECT FOR UPDATE contention.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"resource"})
	receiptRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "trashforcoin_receipt_barcode_collisions_total",
		Help:        "Random receipt barcodes rejected because they were already taken.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(opDuration, opErrors, dbLockWait, receiptRetries)

	lockWaitObserver := map[string]prometheus.Observer{
		LockResourceProductStock:  dbLockWait.WithLabelValues(LockResourceProductStock),
		LockResourceBinFlag:       dbLockWait.WithLabelValues(LockResourceBinFlag),
		LockResourceOrderSequence: dbLockWait.WithLabelValues(LockResourceOrderSequence),
	}

	return &ConsistencyMetrics{
		opDuration:       opDuration,
		opErrors:         opErrors,
		dbLockWait:       dbLockWait,
		receiptRetries:   receiptRetries,
		lockWaitObserver: lockWaitObserver,
	}
}

// ObserveOperation records the latency of op and, when err is set, its error reason.
func (m *ConsistencyMetrics) ObserveOperation(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		m.opErrors.WithLabelValues(op, ClassifyOperationReason(err)).Inc()
	}
}

// ObserveDBLockWait records lock wait time for a row lock.
func (m *ConsistencyMetrics) ObserveDBLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	if observer, ok := m.lockWaitObserver[resource]; ok {
		observer.Observe(duration.Seconds())
		return
	}
	m.dbLockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// IncReceiptBarcodeCollision counts a rejected receipt barcode candidate.
func (m *ConsistencyMetrics) IncReceiptBarcodeCollision() {
	if m == nil {
		return
	}
	m.receiptRetries.Inc()
}

// ClassifyOperationReason maps errors to low-cardinality reasons.
func ClassifyOperationReason(err error) string {
	if err == nil {
		return OperationReasonBusinessRule
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return OperationReasonDeadlineExceeded
	}
	if errors.Is(err, access.ErrPermissionDenied) || errors.Is(err, access.ErrInvalidActor) {
		return OperationReasonForbidden
	}
	if hasPGCode(err, "55P03") {
		return OperationReasonDBLockTimeout
	}
	if hasPGCode(err, "40001") {
		return OperationReasonSerializationFailure
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return OperationReasonUniqueViolation
	}
	if isDBError(err) {
		return OperationReasonDB
	}
	return OperationReasonBusinessRule
}

// IsRetryable reports whether a failed transaction may succeed when run again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return hasPGCode(err, "40001") || hasPGCode(err, "40P01") || hasPGCode(err, "55P03")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
