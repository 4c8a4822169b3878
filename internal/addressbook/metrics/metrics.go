package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the address book module.
type Metrics struct {
	AddressesCreated prometheus.Counter
	AddressesDeleted prometheus.Counter
	Conflicts        prometheus.Counter
	CreateDuration   prometheus.Histogram
	ListDuration     prometheus.Histogram
	NetworkLookups   prometheus.Counter
	EnrichedEntries  prometheus.Counter
}

// New creates a Metrics instance with all address book metrics registered.
func New() *Metrics {
	return &Metrics{
		AddressesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adbk_addresses_created_total",
			Help: "Total number of address book entries created",
		}),
		AddressesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adbk_addresses_deleted_total",
			Help: "Total number of address book entries deleted",
		}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adbk_uniqueness_conflicts_total",
			Help: "Total number of create/edit attempts rejected by uniqueness checks",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "adbk_create_duration_seconds",
			Help:    "Duration of createAddress operations including the locking transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "adbk_list_duration_seconds",
			Help:    "Duration of getAddresses listing queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		NetworkLookups: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adbk_network_lookups_total",
			Help: "Total number of remote network metadata lookups issued during enrichment",
		}),
		EnrichedEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "adbk_enriched_entries_total",
			Help: "Total number of entries returned with resolved network metadata",
		}),
	}
}

// ObserveCreate records the duration of a createAddress operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}

// ObserveList records the duration of a getAddresses operation.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}
