// Package pipeline turns queued monitoring events into delivered
// notifications: classify, adapt, merge common fields, render, send.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mosajjal/alertmailer/pkg/catalog"
	"github.com/mosajjal/alertmailer/pkg/dispatch"
	"github.com/mosajjal/alertmailer/pkg/models"
	"github.com/mosajjal/alertmailer/pkg/provider"
	"github.com/mosajjal/alertmailer/pkg/render"
)

// ErrNoAdapter is returned when an event was classified but no adapter is
// registered for its kind.
var ErrNoAdapter = errors.New("no adapter registered")

// Config holds the collaborators shared by every item.
type Config struct {
	Fields     catalog.FieldCatalog
	Priorities catalog.PriorityCatalog
	Common     map[string]string
	Sender     dispatch.Sender
	Pacer      Pacer
	Logger     *slog.Logger
}

type Pipeline struct {
	adapters   map[models.Kind]provider.Adapter
	fields     catalog.FieldCatalog
	priorities catalog.PriorityCatalog
	common     map[string]string
	sender     dispatch.Sender
	pacer      Pacer
	logger     *slog.Logger
}

// New builds a Pipeline. Adapters are keyed by their Kind; a later adapter
// replaces an earlier one of the same kind.
func New(cfg Config, adapters ...provider.Adapter) (*Pipeline, error) {
	if cfg.Sender == nil {
		return nil, fmt.Errorf("pipeline: sender is required")
	}
	if len(cfg.Fields) == 0 {
		return nil, fmt.Errorf("pipeline: field catalog is empty")
	}
	p := &Pipeline{
		adapters:   make(map[models.Kind]provider.Adapter, len(adapters)),
		fields:     cfg.Fields,
		priorities: cfg.Priorities,
		common:     cfg.Common,
		sender:     cfg.Sender,
		pacer:      cfg.Pacer,
		logger:     cfg.Logger,
	}
	if p.pacer == nil {
		p.pacer = NopPacer{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	for _, a := range adapters {
		p.adapters[a.Kind()] = a
	}
	return p, nil
}

// Process handles one raw event. A skipped event returns nil without
// sending. Errors from the sender are returned unchanged.
func (p *Pipeline) Process(ctx context.Context, raw []byte) error {
	kind, err := provider.Classify(raw)
	if err != nil {
		return err
	}

	adapter, ok := p.adapters[kind]
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoAdapter, kind)
	}

	res, err := adapter.Extract(ctx, raw)
	if err != nil {
		p.logger.Warn("failed to extract event", "kind", kind.String(), "err", err)
		return fmt.Errorf("failed to extract %s event: %w", kind, err)
	}
	if res.Skipped() {
		p.logger.Info("event skipped", "kind", kind.String(), "reason", res.SkipReason)
		return nil
	}

	rec := res.Record.Merge(p.common)
	subject, text, html, err := render.Render(rec, p.fields, p.priorities)
	if err != nil {
		return fmt.Errorf("failed to render %s event: %w", kind, err)
	}

	if err := p.sender.Send(ctx, subject, text, html); err != nil {
		return err
	}
	p.logger.Info("notification sent", "kind", kind.String(), "subject", subject,
		"notify_uuid", rec[models.KeyNotifyUUID])
	return nil
}

// HandleBatch processes the records of an SQS batch in order and stops at the
// first failure so the whole batch is redelivered.
func (p *Pipeline) HandleBatch(ctx context.Context, ev events.SQSEvent) error {
	for i, record := range ev.Records {
		if i > 0 {
			if err := p.pacer.Wait(ctx); err != nil {
				return fmt.Errorf("interrupted before record %d: %w", i, err)
			}
		}
		if err := p.Process(ctx, []byte(record.Body)); err != nil {
			p.logger.Error("failed to process record", "message_id", record.MessageId, "err", err)
			return err
		}
	}
	return nil
}
