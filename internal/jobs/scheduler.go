package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"salesdash/internal/config"
	"salesdash/internal/connectors"
	"salesdash/internal/logger"
	"salesdash/internal/serviceiface"
)

// CronService keeps the external revenue snapshots warm so KPI requests
// rarely pay for a live connector round trip.
type CronService struct {
	config  map[string]interface{}
	sources []*connectors.Cached
	cron    *cron.Cron
}

func NewCronService(cfg map[string]interface{}, sources []*connectors.Cached) serviceiface.Service {
	return &CronService{config: cfg, sources: sources}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	schedule := config.DefaultRefreshSchedule
	if s.config != nil {
		if v, ok := s.config["refresh_schedule"].(string); ok && v != "" {
			schedule = v
		}
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(schedule, s.refreshAll); err != nil {
		return fmt.Errorf("schedule revenue refresh: %w", err)
	}
	s.cron.Start()

	// warm the snapshots once at startup
	go s.refreshAll()

	logger.Audit("cron service started, revenue refresh scheduled (%s)", schedule)
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Println("Cron service stopped")
	return nil
}

func (s *CronService) refreshAll() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, src := range s.sources {
		src.Refresh(ctx, config.ExternalWindowDays)
		log.Printf("[INFO] refreshed revenue snapshot for %s", src.Name())
	}
}
