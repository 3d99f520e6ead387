package nanoarchive

import (
	"errors"

	"github.com/arthur-debert/nanoarchive/nanoarchive/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts archive operations and store events. Register one per
// process with NewMetrics and share it between Archivers with WithMetrics.
type Metrics struct {
	operations *prometheus.CounterVec
	events     *prometheus.CounterVec
}

// NewMetrics creates the archive counters and registers them with reg. When
// the counters are already registered the existing collectors are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nanoarchive",
		Name:      "operations_total",
		Help:      "Archive operations by collection, operation and result.",
	}, []string{"collection", "operation", "result"})

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nanoarchive",
		Name:      "store_events_total",
		Help:      "Directory store events by kind.",
	}, []string{"event"})

	var err error
	if operations, err = register(reg, operations); err != nil {
		return nil, err
	}
	if events, err = register(reg, events); err != nil {
		return nil, err
	}
	return &Metrics{operations: operations, events: events}, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if reg == nil {
		return c, nil
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Operation names used as the "operation" label
const (
	opStore  = "store"
	opLoad   = "load"
	opDelete = "delete"
	opClear  = "clear"
	opBuild  = "build"
)

func (m *Metrics) observe(collection, operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(collection, operation, resultLabel(err)).Inc()
}

func (m *Metrics) observeEvent(e store.Event) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(e.Kind.String()).Inc()
}

// resultLabel maps an operation error onto a small, fixed label set
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrInvalidID):
		return "invalid_id"
	default:
		return "error"
	}
}
