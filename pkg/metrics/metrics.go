package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "contactserver"

	metricLabelHandler   = "handler"
	metricLabelStatus    = "status"
	metricLabelSource    = "source"
	metricLabelOperation = "operation"
	metricLabelField     = "field"
)

var (
	// StoreOperationCounter counts store calls per operation and outcome
	StoreOperationCounter = newCounterVec(
		"store_operation_count",
		"Count of contact store operations",
		metricLabelOperation, metricLabelStatus,
	)
	// StoreOperationDuration observes the load, modify and persist time of each store call
	StoreOperationDuration = newSummaryVec(
		"store_operation_duration_seconds",
		"Seconds to load, modify and persist the contact document",
		metricLabelOperation,
	)
	// ContactsGauge number of contacts in the document after the last store call
	ContactsGauge = newGaugeVec(
		"contacts_total",
		"Number of contacts in the persisted document",
	)
	// HistoryPersistFailedCounter count the number of failed attempts to keep a backup
	HistoryPersistFailedCounter = newCounterVec(
		"history_persist_failed_count",
		"Number of failures to write or rotate document backups",
	)
	// ValidationFailedCounter counts rejected form values per field
	ValidationFailedCounter = newCounterVec(
		"validation_failed_count",
		"Number of rejected contact fields",
		metricLabelField,
	)
	// ServiceRequestCounter count the number of requests for each handler
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each handler",
		metricLabelHandler, metricLabelStatus, metricLabelSource,
	)
	// ServiceRequestDuration observe the duration of requests for each handler
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to handle a request and render its response",
		metricLabelHandler, metricLabelStatus, metricLabelSource,
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
