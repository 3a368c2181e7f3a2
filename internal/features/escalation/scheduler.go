package escalation

import (
	"context"

	"go-approvals/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler runs the escalation scan on the interval configured by
// ESCALATION_CRON. It starts with the application and drains on shutdown.
type Scheduler struct {
	cron    *cron.Cron
	service EscalationService
	logger  *zap.Logger
	spec    string
}

func NewScheduler(lc fx.Lifecycle, service EscalationService, cfg *config.Config, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		service: service,
		logger:  logger,
		spec:    cfg.EscalationCron,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})

	return s
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.service.Scan(context.Background()); err != nil {
			s.logger.Error("scheduled escalation scan failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("escalation scheduler started", zap.String("schedule", s.spec))
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("escalation scheduler stopped")
}
