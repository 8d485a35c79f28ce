// Package notify delivers the end-of-run trading report over WhatsApp
package notify

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/bobmcallan/iacob/internal/common"
	"github.com/bobmcallan/iacob/internal/interfaces"
)

// Compile-time interface check
var _ interfaces.Notifier = (*Service)(nil)

// DefaultTimezone is used for the report header timestamp.
const DefaultTimezone = "America/Bogota"

// Service implements Notifier
type Service struct {
	client    interfaces.WhatsAppClient
	recipient string
	location  *time.Location
	logger    *common.Logger
	now       func() time.Time
}

// NewService creates a notifier. client may be nil when messaging is not
// configured, in which case every report is skipped with a warning.
func NewService(client interfaces.WhatsAppClient, recipient, timezone string, logger *common.Logger) *Service {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", timezone).Msg("Unknown timezone, using UTC for report header")
		loc = time.UTC
	}
	return &Service{
		client:    client,
		recipient: recipient,
		location:  loc,
		logger:    logger,
		now:       time.Now,
	}
}

// FormatReport prefixes the report with a robot header and local timestamp.
func (s *Service) FormatReport(report string) string {
	ts := s.now().In(s.location).Format("02/01/2006, 15:04:05")
	return fmt.Sprintf("🤖 *Reporte de Trading ⏰ %s*\n\n%s", ts, report)
}

// SendReport sends the report and reports whether it was delivered. Delivery
// problems are logged and never returned.
func (s *Service) SendReport(ctx context.Context, report string) bool {
	if s.client == nil || s.recipient == "" {
		s.logger.Warn().
			Bool("client", s.client != nil).
			Bool("recipient", s.recipient != "").
			Msg("WhatsApp notification not configured, skipping report")
		return false
	}

	s.logger.Info().Str("to", s.recipient).Msg("Sending trading report via WhatsApp")
	sid, err := s.client.SendMessage(ctx, s.recipient, s.FormatReport(report))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to send trading report")
		return false
	}

	s.logger.Info().Str("sid", sid).Msg("Trading report sent")
	return true
}
