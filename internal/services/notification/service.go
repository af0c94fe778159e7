package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/models"
)

// Service renders analysis reports and fans them out to delivery channels
type Service struct {
	channels []interfaces.NotificationChannel
	logger   arbor.ILogger
	now      func() time.Time
}

// NewService creates a notification service delivering to the given channels
func NewService(logger arbor.ILogger, channels ...interfaces.NotificationChannel) *Service {
	return &Service{
		channels: channels,
		logger:   logger,
		now:      time.Now,
	}
}

// Channels returns the configured channel names
func (s *Service) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Notify renders the dashboard for results and sends it to every channel.
// A failing channel does not stop the others; their errors are joined.
func (s *Service) Notify(ctx context.Context, results []*models.AnalysisResult) (string, error) {
	report, err := s.GenerateDashboardReport(results)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	subject := fmt.Sprintf("%s 股票分析决策仪表盘", s.now().Format("2006-01-02"))
	return report, s.Send(ctx, subject, report)
}

// Send delivers an already rendered markdown report
func (s *Service) Send(ctx context.Context, subject, report string) error {
	if len(s.channels) == 0 {
		s.logger.Warn().Msg("No notification channels configured, report not delivered")
		return nil
	}

	var errs []error
	for _, ch := range s.channels {
		if err := ch.Send(ctx, subject, report); err != nil {
			s.logger.Error().Err(err).Str("channel", ch.Name()).Msg("Failed to deliver report")
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		s.logger.Info().Str("channel", ch.Name()).Int("bytes", len(report)).Msg("Report delivered")
	}
	return errors.Join(errs...)
}
