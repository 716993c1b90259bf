package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/brojonat/clawsignal/service/metrics"
)

// SubjectPrefix prefixes the wallet in every scan event subject.
const SubjectPrefix = "scans."

// Publisher defines the interface for publishing scan events to NATS.
type Publisher interface {
	// PublishScan publishes a scan summary to "scans.{wallet}".
	PublishScan(ctx context.Context, event *ScanEvent) error

	// Close closes the connection to NATS.
	Close() error
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
	Close()
}

// CorePublisher publishes scan events with core NATS (at-most-once).
type CorePublisher struct {
	nc      conn
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPublisher connects to NATS. If metrics is nil, no metrics are recorded.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*CorePublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("clawsignal-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS publisher initialized", "url", natsURL)

	return newPublisher(nc, m, logger), nil
}

func newPublisher(nc conn, m *metrics.Metrics, logger *slog.Logger) *CorePublisher {
	return &CorePublisher{
		nc:      nc,
		metrics: m,
		logger:  logger,
	}
}

// PublishScan publishes a single scan event.
func (p *CorePublisher) PublishScan(ctx context.Context, event *ScanEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.record("error")
		return fmt.Errorf("failed to marshal scan event: %w", err)
	}

	subject := event.Subject()
	if err := p.nc.Publish(subject, data); err != nil {
		p.record("error")
		return fmt.Errorf("failed to publish scan event: %w", err)
	}
	p.record("success")

	p.logger.DebugContext(ctx, "published scan event",
		"subject", subject,
		"score", event.Score,
	)

	return nil
}

func (p *CorePublisher) record(status string) {
	if p.metrics != nil {
		p.metrics.RecordNATSPublish(status)
	}
}

// Close closes the connection to NATS.
func (p *CorePublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
