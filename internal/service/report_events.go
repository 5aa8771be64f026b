package service

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lifegpa-api/internal/dto"
)

type natsReportPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSReportPublisher publishes baseline events on subject. It returns nil
// when no connection is configured so callers can skip publishing.
func NewNATSReportPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) ReportPublisher {
	if conn == nil || subject == "" {
		return nil
	}
	return &natsReportPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "report_publisher").Logger(),
	}
}

func (p *natsReportPublisher) PublishBaselineSubmitted(_ context.Context, event dto.BaselineSubmittedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return err
	}

	p.logger.Debug().Uint("report_id", event.ReportID).Str("subject", p.subject).Msg("baseline event published")
	return nil
}
