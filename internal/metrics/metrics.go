package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	UploadsAccepted prometheus.Counter
	UploadsRejected prometheus.Counter
	RowsIngested    prometheus.Counter
	Undos           prometheus.Counter
	IngestSeconds   prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	accepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "sales_uploads_accepted_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "sales_uploads_rejected_total"})
	rows := prometheus.NewCounter(prometheus.CounterOpts{Name: "sales_rows_ingested_total"})
	undos := prometheus.NewCounter(prometheus.CounterOpts{Name: "sales_batch_undos_total"})
	ingest := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_ingest_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(accepted, rejected, rows, undos, ingest)
	return &Registry{
		reg:             r,
		UploadsAccepted: accepted,
		UploadsRejected: rejected,
		RowsIngested:    rows,
		Undos:           undos,
		IngestSeconds:   ingest,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
