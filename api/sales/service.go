package sales

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"salesdash/internal/config"
	"salesdash/internal/connectors"
	"salesdash/internal/ingest"
	"salesdash/internal/kpi"
	"salesdash/internal/metrics"
	"salesdash/internal/serviceiface"
	"salesdash/internal/store"
)

// SalesService hosts the ingestion and KPI HTTP endpoints.
type SalesService struct {
	config map[string]interface{}
	db     *sql.DB
}

func NewSalesService(cfg map[string]interface{}, db *sql.DB) serviceiface.Service {
	return &SalesService{config: cfg, db: db}
}

func (s *SalesService) Name() string {
	return "sales"
}

func (s *SalesService) Start() error {
	go StartSalesService(s.config, s.db)
	return nil
}

func (s *SalesService) Stop() error {
	return nil
}

// Deps bundles what the handlers need.
type Deps struct {
	Store      *store.Store
	Aggregator *kpi.Aggregator
	Metrics    *metrics.Registry
	Schema     ingest.Config
}

// BuildDeps wires the store, connectors and metrics over an open database.
func BuildDeps(db *sql.DB) (*Deps, error) {
	st := store.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.InitSchema(ctx); err != nil {
		return nil, err
	}
	sources := connectors.DefaultSources(config.SnapshotTTLMinutes * time.Minute)
	kpiSources := make([]kpi.RevenueSource, len(sources))
	for i, s := range sources {
		kpiSources[i] = s
	}
	agg := &kpi.Aggregator{
		Totals:     st,
		Sources:    kpiSources,
		WindowDays: config.ExternalWindowDays,
	}
	return &Deps{
		Store:      st,
		Aggregator: agg,
		Metrics:    metrics.NewRegistry(),
		Schema:     ingest.DefaultConfig(),
	}, nil
}

// NewRouter mounts the sales routes.
func NewRouter(deps *Deps) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sales/hello", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Hello from Sales Service"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/sales/upload", UploadSales(deps)).Methods(http.MethodPost)
	r.HandleFunc("/sales/upload/undo", UndoLastUpload(deps)).Methods(http.MethodDelete)
	r.HandleFunc("/sales/upload/history", UploadHistory(deps)).Methods(http.MethodGet)
	r.HandleFunc("/sales/kpis/basic", BasicKPIs(deps)).Methods(http.MethodGet)
	r.HandleFunc("/sales/kpis/abc", ABCClassification(deps)).Methods(http.MethodGet)
	r.Handle("/sales/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	return r
}

// StartSalesService builds the dependencies and serves until the process
// exits.
func StartSalesService(cfg map[string]interface{}, db *sql.DB) {
	deps, err := BuildDeps(db)
	if err != nil {
		log.Fatalf("Sales Service setup failed: %v", err)
	}
	port := config.DefaultSalesPort
	if cfg != nil {
		if p, ok := cfg["port"].(string); ok && p != "" {
			port = p
		}
	}
	log.Println("Sales Service started on :" + port)
	if err := http.ListenAndServe(":"+port, NewRouter(deps)); err != nil {
		log.Fatalf("Sales Service failed: %v", err)
	}
}
